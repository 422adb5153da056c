package repository

import (
	"context"

	"confectionery/internal/domain/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// 一覧検索
type ProductListQuery struct {
	Page       int
	Limit      int
	Q          string
	CategoryID *uuid.UUID
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (model.Product, error)
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)

	Create(ctx context.Context, p model.Product) error
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}
