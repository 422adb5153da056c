package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"confectionery/internal/domain/checkout"
	"confectionery/internal/domain/model"
	"confectionery/internal/infra/messaging"
	gormrepo "confectionery/internal/infra/repository"
	"confectionery/internal/infra/session"
	"confectionery/internal/testutil"
	"confectionery/internal/usecase"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type flowFixture struct {
	db       *gorm.DB
	cart     *usecase.CartUsecase
	checkout *usecase.CheckoutUsecase
	cakeA    model.Product
	cakeB    model.Product
}

// SQLite + miniredis で実際の部品を組み立てる
func newFlowFixture(t *testing.T, ids usecase.IDGenerator) *flowFixture {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	client, _ := testutil.NewRedis(t)

	products := gormrepo.NewProductGormRepository(db)
	carts := session.NewRedisCartStore(client, time.Hour)
	checkouts := session.NewRedisCheckoutStore(client, time.Hour)

	categoryID := uuid.Must(uuid.NewV7())
	require.NoError(t, gormrepo.NewCategoryGormRepository(db).Create(context.Background(), model.Category{ID: categoryID, Name: "Cakes"}))

	f := &flowFixture{
		db:    db,
		cakeA: model.Product{ID: uuid.Must(uuid.NewV7()), CategoryID: categoryID, Name: "Cake A", Price: decimal.NewFromInt(50), InStock: true},
		cakeB: model.Product{ID: uuid.Must(uuid.NewV7()), CategoryID: categoryID, Name: "Cake B", Price: decimal.NewFromInt(30), InStock: true},
	}
	require.NoError(t, products.Create(context.Background(), f.cakeA))
	require.NoError(t, products.Create(context.Background(), f.cakeB))

	f.cart = usecase.NewCartUsecase(carts, products)
	f.checkout = usecase.NewCheckoutUsecase(
		gormrepo.NewTxManagerGorm(db),
		gormrepo.NewOrderGormRepository(db),
		carts,
		checkouts,
		gormrepo.NewUserGormRepository(db),
		messaging.NopPublisher{},
		ids,
		usecase.SystemClock{},
		discardLogger(),
	)
	return f
}

func (f *flowFixture) fillAndComplete(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := f.cart.AddToCart(ctx, sid, usecase.AddCartInput{ProductID: f.cakeA.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.cart.AddToCart(ctx, sid, usecase.AddCartInput{ProductID: f.cakeA.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.cart.AddToCart(ctx, sid, usecase.AddCartInput{ProductID: f.cakeB.ID})
	require.NoError(t, err)

	_, err = f.checkout.SubmitPersonal(ctx, sid, nil, validPersonal())
	require.NoError(t, err)
	_, err = f.checkout.SubmitDelivery(ctx, sid, checkout.DeliveryData{Method: checkout.DeliveryPickup, City: "Kyiv"})
	require.NoError(t, err)
}

func TestCheckoutFlow_GuestPickupOrder(t *testing.T) {
	f := newFlowFixture(t, usecase.UUIDv7Generator{})
	f.fillAndComplete(t)
	ctx := context.Background()

	c, err := f.cart.GetCart(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 3, c.TotalCount)
	assert.True(t, decimal.NewFromInt(130).Equal(c.TotalPrice))

	out, err := f.checkout.PlaceOrder(ctx, sid, nil, cash, "")
	require.NoError(t, err)

	var stored model.Order
	require.NoError(t, f.db.First(&stored, "id = ?", out.ID).Error)
	assert.True(t, decimal.NewFromInt(130).Equal(stored.Total))
	assert.Equal(t, "Self-pickup", stored.ShippingAddress)
	assert.Equal(t, model.OrderStatusPending, stored.Status)
	assert.Nil(t, stored.UserID)

	var items []model.OrderItem
	require.NoError(t, f.db.Where("order_id = ?", out.ID).Find(&items).Error)
	assert.Len(t, items, 2)

	c, err = f.cart.GetCart(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
	assert.True(t, decimal.Zero.Equal(c.TotalPrice))
}

func TestCheckoutFlow_IdempotencyKeyReturnsSameOrder(t *testing.T) {
	f := newFlowFixture(t, usecase.UUIDv7Generator{})
	f.fillAndComplete(t)
	ctx := context.Background()

	first, err := f.checkout.PlaceOrder(ctx, sid, nil, cash, "same-key")
	require.NoError(t, err)

	second, err := f.checkout.PlaceOrder(ctx, sid, nil, cash, "same-key")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Items, 2)

	var n int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestCheckoutFlow_SameKeyFromAnotherSessionPlacesItsOwnOrder(t *testing.T) {
	f := newFlowFixture(t, usecase.UUIDv7Generator{})
	f.fillAndComplete(t)
	ctx := context.Background()

	first, err := f.checkout.PlaceOrder(ctx, sid, nil, cash, "1")
	require.NoError(t, err)

	// 別のお客様が偶然同じキーを送る
	const other = "session-2"
	_, err = f.cart.AddToCart(ctx, other, usecase.AddCartInput{ProductID: f.cakeB.ID, Quantity: 5})
	require.NoError(t, err)
	_, err = f.checkout.SubmitPersonal(ctx, other, nil, checkout.PersonalData{
		FirstName: "Taras", LastName: "Melnyk", Email: "taras@example.com", Phone: "+380 67 765 43 21",
	})
	require.NoError(t, err)
	_, err = f.checkout.SubmitDelivery(ctx, other, checkout.DeliveryData{Method: checkout.DeliveryPickup, City: "Lviv"})
	require.NoError(t, err)

	second, err := f.checkout.PlaceOrder(ctx, other, nil, cash, "1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "taras@example.com", second.Email)
	assert.True(t, decimal.NewFromInt(150).Equal(second.Total))
	require.Len(t, second.Items, 1)
	assert.Equal(t, f.cakeB.ID, second.Items[0].ProductID)

	c, err := f.cart.GetCart(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, c.Lines)

	// それぞれの再送は自分の注文だけを返す
	again, err := f.checkout.PlaceOrder(ctx, sid, nil, cash, "1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	again, err = f.checkout.PlaceOrder(ctx, other, nil, cash, "1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, again.ID)

	var n int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&n).Error)
	assert.Equal(t, int64(2), n)
}

func TestCheckoutFlow_KeyFromClearedSessionIsNotFoundElsewhere(t *testing.T) {
	f := newFlowFixture(t, usecase.UUIDv7Generator{})
	f.fillAndComplete(t)
	ctx := context.Background()

	_, err := f.checkout.PlaceOrder(ctx, sid, nil, cash, "1")
	require.NoError(t, err)

	// 空のセッションから他人のキーを送っても注文は返らない
	_, err = f.checkout.PlaceOrder(ctx, "session-3", nil, cash, "1")
	assertErrContains(t, err, "checkout data incomplete")
}

// 2回目以降は同じIDを返す（明細の主キーを衝突させる）
type repeatingIDs struct {
	mu sync.Mutex
	n  int
}

func (g *repeatingIDs) NewID() (uuid.UUID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.n < 2 {
		g.n++
	}
	return uuid.MustParse(fmt.Sprintf("00000000-0000-7000-9000-%012d", g.n)), nil
}

func TestCheckoutFlow_ItemsFailureRollsBackHeader(t *testing.T) {
	f := newFlowFixture(t, &repeatingIDs{})
	f.fillAndComplete(t)
	ctx := context.Background()

	_, err := f.checkout.PlaceOrder(ctx, sid, nil, cash, "")
	assertErrContains(t, err, "failed to add order items")

	// ヘッダも残らない
	var n int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)

	c, err := f.cart.GetCart(ctx, sid)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 2)

	s, err := f.checkout.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, checkout.StepPayment, s.Step)
}

func TestCheckoutFlow_SchemaNotReady(t *testing.T) {
	db := testutil.NewEmptySQLiteDB(t)
	client, _ := testutil.NewRedis(t)
	carts := session.NewRedisCartStore(client, time.Hour)
	checkouts := session.NewRedisCheckoutStore(client, time.Hour)
	ctx := context.Background()

	uc := usecase.NewCheckoutUsecase(
		gormrepo.NewTxManagerGorm(db),
		gormrepo.NewOrderGormRepository(db),
		carts, checkouts,
		gormrepo.NewUserGormRepository(db),
		messaging.NopPublisher{},
		usecase.UUIDv7Generator{},
		usecase.SystemClock{},
		discardLogger(),
	)

	f := &checkoutFixture{uc: uc, carts: carts, checkouts: checkouts}
	f.fillCart(t)
	f.completeCheckout(t)

	_, err := uc.PlaceOrder(ctx, sid, nil, cash, "")
	assertErrContains(t, err, "schema not ready")
	assert.Len(t, f.loadCart(t).Lines, 2)
}
