package repository

import (
	"context"
	"time"

	"confectionery/internal/domain/model"

	"github.com/google/uuid"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	// email / 氏名 / 電話番号の部分一致
	Search string
	UserID *uuid.UUID
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID uuid.UUID) (model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) error

	//検索（同じ送信元・同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, scope string, key string) (model.Order, bool, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
