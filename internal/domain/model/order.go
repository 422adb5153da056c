package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// 管理画面から指定できるステータスか
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// 終端（これ以上変更できない）
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

// 注文ヘッダ。作成後に変わるのはstatusだけ。
type Order struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           *uuid.UUID      `gorm:"type:uuid;index" json:"user_id"`
	Status           OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	Total            decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total"`
	ShippingAddress  string          `gorm:"type:text;not null" json:"shipping_address"`
	DeliveryMethod   string          `gorm:"type:varchar(20);not null" json:"delivery_method"`
	Notes            string          `gorm:"type:text" json:"notes"`
	FullName         string          `gorm:"type:varchar(255);not null" json:"full_name"`
	Phone            string          `gorm:"type:varchar(30);not null" json:"phone"`
	Email            string          `gorm:"type:varchar(255);not null;index" json:"email"`
	PaymentMethod    string          `gorm:"type:varchar(20);not null" json:"payment_method"`
	// キーは送信元（カートセッション/ユーザー）ごとに一意
	IdempotencyScope *string         `gorm:"type:varchar(64);uniqueIndex:idx_orders_idempotency,priority:1" json:"-"`
	IdempotencyKey   *string         `gorm:"type:varchar(255);uniqueIndex:idx_orders_idempotency,priority:2" json:"-"`
	CreatedAt        time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
