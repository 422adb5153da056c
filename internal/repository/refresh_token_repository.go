package repository

import (
	"confectionery/internal/domain/model"
	"context"
	"time"

	"github.com/google/uuid"
)

// リフレッシュトークンの保存・取得・更新・削除
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	MarkUsed(ctx context.Context, tokenID uuid.UUID, usedAt time.Time) error
	DeleteAllByUserID(ctx context.Context, userID uuid.UUID) error
	DeleteByID(ctx context.Context, tokenID uuid.UUID) error
}
