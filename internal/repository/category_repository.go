package repository

import (
	"context"

	"confectionery/internal/domain/model"

	"github.com/google/uuid"
)

type CategoryRepository interface {
	// 名前順
	List(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (model.Category, error)
	Create(ctx context.Context, c model.Category) error
	Update(ctx context.Context, c model.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
}
