package validator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"confectionery/internal/repository"
	"confectionery/internal/usecase"

	"github.com/google/uuid"
)

var (
	// 入力が不正
	ErrInvalidInput = fmt.Errorf("%w: invalid input", usecase.ErrValidation)

	// パスワードが短い
	ErrPasswordTooShort = fmt.Errorf("%w: password must be at least 8 characters", usecase.ErrValidation)

	// emailが既に使用済み
	ErrEmailAlreadyUsed = fmt.Errorf("%w: email already used", usecase.ErrConflict)

	// refresh tokenが不正
	ErrInvalidRefresh = fmt.Errorf("%w: invalid refresh", usecase.ErrUnauthorized)
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcryptの上限
	maxNameLen     = 255
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var phoneRe = regexp.MustCompile(`^\+?[0-9 ()-]{10,20}$`)

type authValidator struct {
	users repository.UserRepository
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, in usecase.RegisterInput) error {
	// 必須チェック
	if in.Email == "" || in.Password == "" {
		return ErrInvalidInput
	}

	// email形式
	if !isEmailLike(in.Email) {
		return ErrInvalidInput
	}

	if len(in.Password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if len(in.Password) > maxPasswordLen {
		return ErrInvalidInput
	}

	if err := validateProfileFields(in.FullName, in.Phone); err != nil {
		return err
	}

	// email重複チェック（DBが必要）
	u, err := v.users.FindByEmail(ctx, in.Email)
	if err == nil && u != nil {
		return ErrEmailAlreadyUsed
	}

	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	// 必須チェック
	if strings.TrimSpace(email) == "" || password == "" {
		return ErrInvalidInput
	}

	// email形式
	if !isEmailLike(email) {
		return ErrInvalidInput
	}

	return nil
}

// refresh 入力を検証
func (v *authValidator) ValidateRefresh(ctx context.Context, refreshToken string, userAgent string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return ErrInvalidRefresh
	}
	return nil
}

func (v *authValidator) ValidateProfile(ctx context.Context, in usecase.UpdateProfileInput) error {
	return validateProfileFields(in.FullName, in.Phone)
}

// 強制ログアウトの入力を検証
func (v *authValidator) ValidateForceLogout(ctx context.Context, targetUserID uuid.UUID) error {
	if targetUserID == uuid.Nil {
		return ErrInvalidInput
	}
	return nil
}

// 氏名/電話は任意。入れるなら形式チェック。
func validateProfileFields(fullName string, phone string) error {
	if utf8.RuneCountInString(fullName) > maxNameLen {
		return ErrInvalidInput
	}
	if phone != "" && !phoneRe.MatchString(phone) {
		return ErrInvalidInput
	}
	return nil
}

// 簡易メール形式をチェック
func isEmailLike(s string) bool {
	return emailRe.MatchString(s)
}
