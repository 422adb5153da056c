package repository

import (
	"context"

	"confectionery/internal/domain/model"

	"github.com/google/uuid"
)

type OrderItemRepository interface {
	// 1回のINSERTでまとめて作る
	CreateBulk(ctx context.Context, orderID uuid.UUID, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)
}
