package usecase

import (
	"context"
	"time"

	"confectionery/internal/domain/model"

	"github.com/google/uuid"
)

// ID採番（テストで固定できるように差し替え可能）
type IDGenerator interface {
	NewID() (uuid.UUID, error)
}

type Clock interface {
	Now() time.Time
}

// 注文確定の通知先
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order model.Order, items []model.OrderItem) error
}

// UUIDv7（時刻順）
type UUIDv7Generator struct{}

func (UUIDv7Generator) NewID() (uuid.UUID, error) {
	return uuid.NewV7()
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
