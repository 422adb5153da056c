package usecase

import (
	"errors"
	"fmt"
	"net/http"

	repo "confectionery/internal/repository"
)

// handlerでそのままステータスとメッセージに変換する
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// repository層のエラーを共通の形に寄せる
func dbError(err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, repo.ErrSchemaNotReady):
		return NewHTTPError(http.StatusServiceUnavailable, "schema not ready")
	case errors.Is(err, repo.ErrConflict):
		return NewHTTPError(http.StatusConflict, "conflict")
	}
	return NewHTTPError(http.StatusInternalServerError, "db error")
}

// セッションストア（Redis）のエラー
func sessionError(err error) error {
	if errors.Is(err, repo.ErrSessionBusy) {
		return NewHTTPError(http.StatusConflict, "session busy, retry")
	}
	return NewHTTPError(http.StatusInternalServerError, "session store error")
}
