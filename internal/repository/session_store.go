package repository

import (
	"context"
	"errors"

	"confectionery/internal/domain/cart"
	"confectionery/internal/domain/checkout"
)

// 同時更新がリトライ上限まで衝突した
var ErrSessionBusy = errors.New("session busy")

// セッション単位のカート。無ければ空カートを返す。
type CartStore interface {
	Load(ctx context.Context, sessionID string) (cart.Cart, error)
	// 読み込み→fn→保存を1セッション内で直列に行う
	Update(ctx context.Context, sessionID string, fn func(c *cart.Cart) error) (cart.Cart, error)
	Delete(ctx context.Context, sessionID string) error
}

// セッション単位のチェックアウト状態。無ければ初期状態を返す。
type CheckoutStore interface {
	Load(ctx context.Context, sessionID string) (checkout.Session, error)
	Save(ctx context.Context, sessionID string, s checkout.Session) error
	Delete(ctx context.Context, sessionID string) error
}
