// Package cart はセッション単位のカート（商品スナップショット＋数量）を扱う。
package cart

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// 数量が1未満
	ErrInvalidQuantity = errors.New("invalid quantity")
	// カートに無い商品
	ErrLineNotFound = errors.New("cart line not found")
)

// 追加時点の商品のコピー。価格が無効なら合計から除外される。
type ProductSnapshot struct {
	ID         uuid.UUID           `json:"id"`
	Name       string              `json:"name"`
	CategoryID uuid.UUID           `json:"category_id"`
	Image      string              `json:"image,omitempty"`
	Price      decimal.NullDecimal `json:"price"`
}

// 価格が使えるか（NULLや負の値はNG）
func (p ProductSnapshot) HasPrice() bool {
	return p.Price.Valid && !p.Price.Decimal.IsNegative()
}

type Line struct {
	Product  ProductSnapshot `json:"product"`
	Quantity int             `json:"quantity"`
}

// 小計（価格が無効なら0）
func (l Line) Subtotal() decimal.Decimal {
	if !l.Product.HasPrice() {
		return decimal.Zero
	}
	return l.Product.Price.Decimal.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// 商品IDごとに1行。合計は毎回計算する。
type Cart struct {
	Lines []Line `json:"lines"`
}

// 同じ商品があれば数量を足す、無ければ末尾に追加
func (c *Cart) Add(p ProductSnapshot, quantity int) {
	for i := range c.Lines {
		if c.Lines[i].Product.ID == p.ID {
			c.Lines[i].Quantity += quantity
			return
		}
	}
	c.Lines = append(c.Lines, Line{Product: p, Quantity: quantity})
}

// 数量を置き換える。1未満は受け付けない。
func (c *Cart) UpdateQuantity(productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	for i := range c.Lines {
		if c.Lines[i].Product.ID == productID {
			c.Lines[i].Quantity = quantity
			return nil
		}
	}
	return ErrLineNotFound
}

// 無ければ何もしない
func (c *Cart) Remove(productID uuid.UUID) {
	for i := range c.Lines {
		if c.Lines[i].Product.ID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

// 数量を差し引く。0以下になった行は消す。
func (c *Cart) Deduct(productID uuid.UUID, quantity int) {
	for i := range c.Lines {
		if c.Lines[i].Product.ID == productID {
			if c.Lines[i].Quantity > quantity {
				c.Lines[i].Quantity -= quantity
				return
			}
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.Lines = nil
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// 全行の数量合計
func (c Cart) TotalCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// 価格が有効な行だけを合計する
func (c Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// 全行の価格が有効か
func (c Cart) Priced() bool {
	for _, l := range c.Lines {
		if !l.Product.HasPrice() {
			return false
		}
	}
	return true
}
