package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"confectionery/internal/domain/cart"
	"confectionery/internal/domain/checkout"
	"confectionery/internal/domain/model"
	repo "confectionery/internal/repository"

	"github.com/google/uuid"
)

const maxIdempotencyKeyLen = 255

type CheckoutUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	carts     repo.CartStore
	checkouts repo.CheckoutStore
	users     repo.UserRepository
	events    OrderEventPublisher
	ids       IDGenerator
	clock     Clock
	logger    *slog.Logger
}

// DI
func NewCheckoutUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	carts repo.CartStore,
	checkouts repo.CheckoutStore,
	users repo.UserRepository,
	events OrderEventPublisher,
	ids IDGenerator,
	clock Clock,
	logger *slog.Logger,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:        tx,
		orders:    orders,
		carts:     carts,
		checkouts: checkouts,
		users:     users,
		events:    events,
		ids:       ids,
		clock:     clock,
		logger:    logger,
	}
}

type CheckoutOutput struct {
	Step     checkout.Step          `json:"step"`
	Personal *checkout.PersonalData `json:"personal,omitempty"`
	Delivery *checkout.DeliveryData `json:"delivery,omitempty"`
}

func toCheckoutOutput(s checkout.Session) CheckoutOutput {
	return CheckoutOutput{
		Step:     s.Step,
		Personal: s.Aggregate.Personal,
		Delivery: s.Aggregate.Delivery,
	}
}

func (u *CheckoutUsecase) Get(ctx context.Context, sessionID string) (CheckoutOutput, error) {
	if sessionID == "" {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}
	s, err := u.checkouts.Load(ctx, sessionID)
	if err != nil {
		return CheckoutOutput{}, sessionError(err)
	}
	return toCheckoutOutput(s), nil
}

// ログイン中ならemail未入力をアカウントのemailで埋める
func (u *CheckoutUsecase) SubmitPersonal(ctx context.Context, sessionID string, userID *uuid.UUID, in checkout.PersonalData) (CheckoutOutput, error) {
	if sessionID == "" {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}

	if userID != nil && strings.TrimSpace(in.Email) == "" {
		user, err := u.users.FindByID(ctx, *userID)
		if err != nil {
			return CheckoutOutput{}, dbError(err)
		}
		if user != nil {
			in.Email = user.Email
		}
	}

	return u.advance(ctx, sessionID, func(s *checkout.Session) error {
		return s.SubmitPersonal(in)
	})
}

func (u *CheckoutUsecase) SubmitDelivery(ctx context.Context, sessionID string, in checkout.DeliveryData) (CheckoutOutput, error) {
	if sessionID == "" {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}
	return u.advance(ctx, sessionID, func(s *checkout.Session) error {
		return s.SubmitDelivery(in)
	})
}

func (u *CheckoutUsecase) Back(ctx context.Context, sessionID string) (CheckoutOutput, error) {
	if sessionID == "" {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}
	return u.advance(ctx, sessionID, func(s *checkout.Session) error {
		return s.Back()
	})
}

func (u *CheckoutUsecase) advance(ctx context.Context, sessionID string, fn func(s *checkout.Session) error) (CheckoutOutput, error) {
	s, err := u.checkouts.Load(ctx, sessionID)
	if err != nil {
		return CheckoutOutput{}, sessionError(err)
	}

	if err := fn(&s); err != nil {
		return CheckoutOutput{}, checkoutError(err)
	}

	if err := u.checkouts.Save(ctx, sessionID, s); err != nil {
		return CheckoutOutput{}, sessionError(err)
	}
	return toCheckoutOutput(s), nil
}

// 注文確定。ヘッダと明細は1トランザクション。
// 失敗時はカートとチェックアウト状態をそのまま残す。
func (u *CheckoutUsecase) PlaceOrder(ctx context.Context, sessionID string, userID *uuid.UUID, pay checkout.PaymentData, idempotencyKey string) (OrderOutput, error) {
	if sessionID == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}

	pay.Method = checkout.PaymentMethod(strings.ToLower(strings.TrimSpace(string(pay.Method))))
	if err := checkout.ValidatePayment(pay); err != nil {
		return OrderOutput{}, checkoutError(err)
	}

	key := strings.TrimSpace(idempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency key")
	}
	scope := idempotencyScope(sessionID, userID)

	s, err := u.checkouts.Load(ctx, sessionID)
	if err != nil {
		return OrderOutput{}, sessionError(err)
	}
	if err := s.Aggregate.Complete(); err != nil {
		// 確定済みで状態が消えている場合だけ再送として探す
		if key != "" && s.Aggregate.Personal == nil && s.Aggregate.Delivery == nil {
			if out, found, ferr := u.findByIdempotencyKey(ctx, scope, key); ferr != nil || found {
				return out, ferr
			}
		}
		return OrderOutput{}, checkoutError(err)
	}
	if s.Step != checkout.StepPayment {
		return OrderOutput{}, checkoutError(checkout.ErrWrongStep)
	}

	c, err := u.carts.Load(ctx, sessionID)
	if err != nil {
		return OrderOutput{}, sessionError(err)
	}
	if c.IsEmpty() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "cart is empty")
	}
	if !c.Priced() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "cart contains items without price")
	}

	order, items, err := u.buildOrder(s.Aggregate, c, userID, pay, scope, key)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "failed to generate id")
	}

	var replay *OrderOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じ送信元・同じキーの再送は作成済みの注文を返す
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, scope, key)
			if err != nil {
				return err
			}
			if found {
				existingItems, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
				if err != nil {
					return err
				}
				out := toOrderOutput(existing, existingItems)
				replay = &out
				return nil
			}
		}

		if err := r.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if err := r.OrderItems().CreateBulk(ctx, order.ID, items); err != nil {
			return fmt.Errorf("failed to add order items: %w", err)
		}
		return nil
	})
	if err != nil {
		u.logger.ErrorContext(ctx, "place order failed",
			slog.String("order_id", order.ID.String()),
			slog.Any("error", err),
		)

		switch {
		case errors.Is(err, repo.ErrSchemaNotReady):
			return OrderOutput{}, NewHTTPError(http.StatusServiceUnavailable, "schema not ready")
		case errors.Is(err, repo.ErrConflict) && key != "":
			//同時送信で同じキーが先に入った
			if out, found, lerr := u.findByIdempotencyKey(ctx, scope, key); lerr == nil && found {
				return out, nil
			}
			return OrderOutput{}, NewHTTPError(http.StatusConflict, "idempotency conflict")
		}
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if replay != nil {
		return *replay, nil
	}

	// ここから先は注文確定済み。失敗してもログだけ残す。
	// 注文した分だけ差し引く（確定中に追加された行は残す）
	if _, err := u.carts.Update(ctx, sessionID, func(c *cart.Cart) error {
		for _, it := range items {
			c.Deduct(it.ProductID, it.Quantity)
		}
		return nil
	}); err != nil {
		u.logger.WarnContext(ctx, "clear cart failed", slog.String("order_id", order.ID.String()), slog.Any("error", err))
	}
	if err := u.checkouts.Delete(ctx, sessionID); err != nil {
		u.logger.WarnContext(ctx, "reset checkout failed", slog.String("order_id", order.ID.String()), slog.Any("error", err))
	}
	if err := u.events.PublishOrderPlaced(ctx, order, items); err != nil {
		u.logger.WarnContext(ctx, "publish order placed failed", slog.String("order_id", order.ID.String()), slog.Any("error", err))
	}

	u.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID.String()),
		slog.String("total", order.Total.StringFixed(2)),
		slog.Int("items", len(items)),
	)

	return toOrderOutput(order, items), nil
}

// 冪等キーの名前空間。カートセッションとログインユーザーから作る。
func idempotencyScope(sessionID string, userID *uuid.UUID) string {
	h := sha256.New()
	h.Write([]byte(sessionID))
	if userID != nil {
		h.Write([]byte{0})
		h.Write([]byte(userID.String()))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (u *CheckoutUsecase) findByIdempotencyKey(ctx context.Context, scope string, key string) (OrderOutput, bool, error) {
	existing, found, err := u.orders.FindByIdempotencyKey(ctx, scope, key)
	if err != nil {
		return OrderOutput{}, false, dbError(err)
	}
	if !found {
		return OrderOutput{}, false, nil
	}
	items, err := u.orderItems(ctx, existing.ID)
	if err != nil {
		return OrderOutput{}, false, err
	}
	return toOrderOutput(existing, items), true, nil
}

func (u *CheckoutUsecase) orderItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		items, err = r.OrderItems().ListByOrderID(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, dbError(err)
	}
	return items, nil
}

// カートの内容を注文ヘッダと明細に写す
func (u *CheckoutUsecase) buildOrder(agg checkout.Aggregate, c cart.Cart, userID *uuid.UUID, pay checkout.PaymentData, scope string, key string) (model.Order, []model.OrderItem, error) {
	orderID, err := u.ids.NewID()
	if err != nil {
		return model.Order{}, nil, err
	}

	now := u.clock.Now()
	order := model.Order{
		ID:              orderID,
		UserID:          userID,
		Status:          model.OrderStatusPending,
		Total:           c.TotalPrice(),
		ShippingAddress: checkout.ShippingAddress(*agg.Delivery),
		DeliveryMethod:  string(agg.Delivery.Method),
		Notes:           agg.Delivery.Notes,
		FullName:        agg.Personal.FullName(),
		Phone:           agg.Personal.Phone,
		Email:           agg.Personal.Email,
		PaymentMethod:   string(pay.Method),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if key != "" {
		order.IdempotencyScope = &scope
		order.IdempotencyKey = &key
	}

	items := make([]model.OrderItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		id, err := u.ids.NewID()
		if err != nil {
			return model.Order{}, nil, err
		}
		items = append(items, model.OrderItem{
			ID:          id,
			OrderID:     orderID,
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			Quantity:    l.Quantity,
			Price:       l.Product.Price.Decimal,
			CreatedAt:   now,
		})
	}
	return order, items, nil
}

// ドメインのエラーをHTTPに寄せる
func checkoutError(err error) error {
	if ve, ok := checkout.AsValidationError(err); ok {
		return NewHTTPError(http.StatusBadRequest, ve.Error())
	}
	switch {
	case errors.Is(err, checkout.ErrIncompleteCheckout):
		return NewHTTPError(http.StatusBadRequest, "checkout data incomplete")
	case errors.Is(err, checkout.ErrWrongStep):
		return NewHTTPError(http.StatusConflict, "wrong checkout step")
	case errors.Is(err, checkout.ErrNoPreviousStep):
		return NewHTTPError(http.StatusBadRequest, "no previous step")
	}
	return NewHTTPError(http.StatusInternalServerError, "internal error")
}
