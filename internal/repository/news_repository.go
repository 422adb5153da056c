package repository

import (
	"context"

	"confectionery/internal/domain/model"

	"github.com/google/uuid"
)

type NewsRepository interface {
	// 新しい順
	List(ctx context.Context, page int, limit int) ([]model.News, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (model.News, error)
	Create(ctx context.Context, n model.News) error
	Update(ctx context.Context, n model.News) error
	Delete(ctx context.Context, id uuid.UUID) error
}
