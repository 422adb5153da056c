package usecase

import (
	"context"
	"errors"
	"net/http"

	"confectionery/internal/domain/cart"
	repo "confectionery/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// 1行あたりの数量上限
const maxLineQuantity = 999

// CartUsecase は /cart の業務ロジック。カートはセッションIDごとにRedisに置く。
type CartUsecase struct {
	carts       repo.CartStore
	productRepo repo.ProductRepository
}

func NewCartUsecase(carts repo.CartStore, productRepo repo.ProductRepository) *CartUsecase {
	return &CartUsecase{
		carts:       carts,
		productRepo: productRepo,
	}
}

type CartLineOutput struct {
	ProductID  uuid.UUID        `json:"product_id"`
	Name       string           `json:"name"`
	CategoryID uuid.UUID        `json:"category_id"`
	Image      string           `json:"image,omitempty"`
	Price      *decimal.Decimal `json:"price"`
	Quantity   int              `json:"quantity"`
	Subtotal   decimal.Decimal  `json:"subtotal"`
}

type CartOutput struct {
	Lines      []CartLineOutput `json:"lines"`
	TotalCount int              `json:"total_count"`
	TotalPrice decimal.Decimal  `json:"total_price"`
}

type AddCartInput struct {
	ProductID uuid.UUID
	Quantity  int
}

func (u *CartUsecase) GetCart(ctx context.Context, sessionID string) (CartOutput, error) {
	if sessionID == "" {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}
	c, err := u.carts.Load(ctx, sessionID)
	if err != nil {
		return CartOutput{}, sessionError(err)
	}
	return toCartOutput(c), nil
}

// 同一商品は数量加算。数量0は1扱い。
func (u *CartUsecase) AddToCart(ctx context.Context, sessionID string, in AddCartInput) (CartOutput, error) {
	if sessionID == "" {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}
	if in.ProductID == uuid.Nil {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 || in.Quantity > maxLineQuantity {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return CartOutput{}, dbError(err)
	}
	if !p.InStock {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "product out of stock")
	}

	//追加時点の商品情報を持たせる
	snap := cart.ProductSnapshot{
		ID:         p.ID,
		Name:       p.Name,
		CategoryID: p.CategoryID,
		Image:      p.Image,
		Price:      decimal.NewNullDecimal(p.Price),
	}

	c, err := u.carts.Update(ctx, sessionID, func(c *cart.Cart) error {
		for _, l := range c.Lines {
			if l.Product.ID == p.ID && l.Quantity+in.Quantity > maxLineQuantity {
				return NewHTTPError(http.StatusBadRequest, "invalid quantity")
			}
		}
		c.Add(snap, in.Quantity)
		return nil
	})
	if err != nil {
		return CartOutput{}, cartError(err)
	}
	return toCartOutput(c), nil
}

func (u *CartUsecase) UpdateQuantity(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (CartOutput, error) {
	if sessionID == "" {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}
	if quantity > maxLineQuantity {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	c, err := u.carts.Update(ctx, sessionID, func(c *cart.Cart) error {
		return c.UpdateQuantity(productID, quantity)
	})
	if err != nil {
		return CartOutput{}, cartError(err)
	}
	return toCartOutput(c), nil
}

func (u *CartUsecase) RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) (CartOutput, error) {
	if sessionID == "" {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}

	c, err := u.carts.Update(ctx, sessionID, func(c *cart.Cart) error {
		c.Remove(productID)
		return nil
	})
	if err != nil {
		return CartOutput{}, cartError(err)
	}
	return toCartOutput(c), nil
}

func (u *CartUsecase) ClearCart(ctx context.Context, sessionID string) (CartOutput, error) {
	if sessionID == "" {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}
	if err := u.carts.Delete(ctx, sessionID); err != nil {
		return CartOutput{}, sessionError(err)
	}
	return toCartOutput(cart.Cart{}), nil
}

func cartError(err error) error {
	if he, ok := AsHTTPError(err); ok {
		return he
	}
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		return NewHTTPError(http.StatusBadRequest, "invalid quantity")
	case errors.Is(err, cart.ErrLineNotFound):
		return NewHTTPError(http.StatusNotFound, "item not in cart")
	}
	return sessionError(err)
}

func toCartOutput(c cart.Cart) CartOutput {
	lines := make([]CartLineOutput, 0, len(c.Lines))
	for _, l := range c.Lines {
		out := CartLineOutput{
			ProductID:  l.Product.ID,
			Name:       l.Product.Name,
			CategoryID: l.Product.CategoryID,
			Image:      l.Product.Image,
			Quantity:   l.Quantity,
			Subtotal:   l.Subtotal(),
		}
		if l.Product.HasPrice() {
			price := l.Product.Price.Decimal
			out.Price = &price
		}
		lines = append(lines, out)
	}

	return CartOutput{
		Lines:      lines,
		TotalCount: c.TotalCount(),
		TotalPrice: c.TotalPrice(),
	}
}
