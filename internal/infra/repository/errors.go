package repository

import (
	"errors"
	"fmt"
	"strings"

	repo "confectionery/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// postgres: undefined_table
const pgUndefinedTable = "42P01"

// gorm/DBのエラーをrepositoryのエラーに寄せる（元のメッセージは残す）
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repo.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", repo.ErrConflict, err.Error())
	case isUndefinedTable(err):
		return fmt.Errorf("%w: %s", repo.ErrSchemaNotReady, err.Error())
	}
	return err
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable
	}
	// sqlite（テスト用）
	return strings.Contains(err.Error(), "no such table")
}
