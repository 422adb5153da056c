package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"confectionery/internal/domain/model"
	repo "confectionery/internal/repository"
	"confectionery/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type adminOrderFixture struct {
	uc     *usecase.AdminOrderUsecase
	tx     *TxManagerMock
	orders *OrderRepoMock
	items  *OrderItemRepoMock
	audit  *AuditRepoMock
}

func newAdminOrderFixture() *adminOrderFixture {
	f := &adminOrderFixture{
		tx:     new(TxManagerMock),
		orders: new(OrderRepoMock),
		items:  new(OrderItemRepoMock),
		audit:  new(AuditRepoMock),
	}
	f.tx.Repos = &TxReposMock{orders: f.orders, orderItems: f.items, auditLogs: f.audit}
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.uc = usecase.NewAdminOrderUsecase(f.tx, &seqIDs{}, fixedClock{t: testNow})
	return f
}

var admin = uuid.MustParse("0190c0de-0000-7000-8000-0000000000ad")

// =====================
// List tests
// =====================

func TestAdminOrderUsecase_List_InvalidInput(t *testing.T) {
	f := newAdminOrderFixture()
	ctx := context.Background()

	_, err := f.uc.List(ctx, repo.AdminOrderListFilter{Page: 0, Limit: 20})
	assertErrContains(t, err, "invalid page")

	_, err = f.uc.List(ctx, repo.AdminOrderListFilter{Page: 1, Limit: 0})
	assertErrContains(t, err, "invalid limit")

	_, err = f.uc.List(ctx, repo.AdminOrderListFilter{Page: 1, Limit: 20, Status: "shipped"})
	assertErrContains(t, err, "invalid status")

	from := testNow
	to := testNow.Add(-time.Hour)
	_, err = f.uc.List(ctx, repo.AdminOrderListFilter{Page: 1, Limit: 20, From: &from, To: &to})
	assertErrContains(t, err, "from must be <= to")

	f.orders.AssertNotCalled(t, "ListAdmin", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_List_Success_CallsItemsPerOrder(t *testing.T) {
	f := newAdminOrderFixture()

	filter := repo.AdminOrderListFilter{Page: 1, Limit: 20, Status: "pending", Search: "koval"}
	orders := []model.Order{
		{ID: uuid.New(), Status: model.OrderStatusPending},
		{ID: uuid.New(), Status: model.OrderStatusPending},
	}
	f.orders.On("ListAdmin", mock.Anything, filter).Return(orders, int64(7), nil)
	f.items.On("ListByOrderID", mock.Anything, orders[0].ID).Return([]model.OrderItem{}, nil)
	f.items.On("ListByOrderID", mock.Anything, orders[1].ID).Return([]model.OrderItem{}, nil)

	out, err := f.uc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, out.Items, 2)
	assert.Equal(t, int64(7), out.Total)

	f.orders.AssertExpectations(t)
	f.items.AssertExpectations(t)
}

// =====================
// UpdateStatus tests
// =====================

func TestAdminOrderUsecase_UpdateStatus_InvalidInput(t *testing.T) {
	f := newAdminOrderFixture()
	ctx := context.Background()

	_, err := f.uc.UpdateStatus(ctx, uuid.Nil, uuid.New(), usecase.AdminUpdateOrderStatusInput{Status: "processing"})
	assertErrContains(t, err, "unauthorized")

	_, err = f.uc.UpdateStatus(ctx, admin, uuid.Nil, usecase.AdminUpdateOrderStatusInput{Status: "processing"})
	assertErrContains(t, err, "invalid id")

	_, err = f.uc.UpdateStatus(ctx, admin, uuid.New(), usecase.AdminUpdateOrderStatusInput{Status: "XXX"})
	assertErrContains(t, err, "invalid status")
}

func TestAdminOrderUsecase_UpdateStatus_NotFound(t *testing.T) {
	f := newAdminOrderFixture()
	orderID := uuid.New()

	f.orders.On("FindByID", mock.Anything, orderID).Return(model.Order{}, repo.ErrNotFound)

	_, err := f.uc.UpdateStatus(context.Background(), admin, orderID, usecase.AdminUpdateOrderStatusInput{Status: "processing"})
	assertErrContains(t, err, "not found")
}

func TestAdminOrderUsecase_UpdateStatus_SameStatus_NoOp(t *testing.T) {
	f := newAdminOrderFixture()
	orderID := uuid.New()

	f.orders.On("FindByID", mock.Anything, orderID).Return(model.Order{ID: orderID, Status: model.OrderStatusProcessing}, nil)
	f.items.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderItem{}, nil)

	out, err := f.uc.UpdateStatus(context.Background(), admin, orderID, usecase.AdminUpdateOrderStatusInput{Status: "Processing"})
	require.NoError(t, err)
	assert.Equal(t, "processing", out.Status)

	f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	f.audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_UpdateStatus_TerminalStatuses(t *testing.T) {
	for _, terminal := range []model.OrderStatus{model.OrderStatusCancelled, model.OrderStatusRefunded} {
		t.Run(string(terminal), func(t *testing.T) {
			f := newAdminOrderFixture()
			orderID := uuid.New()

			f.orders.On("FindByID", mock.Anything, orderID).Return(model.Order{ID: orderID, Status: terminal}, nil)
			f.items.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderItem{}, nil)

			_, err := f.uc.UpdateStatus(context.Background(), admin, orderID, usecase.AdminUpdateOrderStatusInput{Status: "pending"})
			assertStatus(t, err, http.StatusBadRequest)
			assertErrContains(t, err, "order status is final: "+string(terminal)+" orders cannot change status")

			f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAdminOrderUsecase_UpdateStatus_WritesAuditLog(t *testing.T) {
	f := newAdminOrderFixture()
	orderID := uuid.New()

	f.orders.On("FindByID", mock.Anything, orderID).Return(model.Order{ID: orderID, Status: model.OrderStatusPending}, nil)
	f.items.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderItem{}, nil)
	f.orders.On("UpdateStatus", mock.Anything, orderID, model.OrderStatusCompleted).Return(nil).Once()
	f.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.ActorUserID == admin &&
			l.Action == model.AuditActionUpdateOrderStatus &&
			l.ResourceType == model.AuditResourceOrder &&
			l.ResourceID == orderID.String() &&
			l.BeforeJSON == `{"status":"pending"}` &&
			l.AfterJSON == `{"status":"completed"}` &&
			l.CreatedAt.Equal(testNow)
	})).Return(nil).Once()

	out, err := f.uc.UpdateStatus(context.Background(), admin, orderID, usecase.AdminUpdateOrderStatusInput{Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, "completed", out.Status)

	f.orders.AssertExpectations(t)
	f.audit.AssertExpectations(t)
}

func TestAdminOrderUsecase_UpdateStatus_AuditFailureFailsUpdate(t *testing.T) {
	f := newAdminOrderFixture()
	orderID := uuid.New()

	f.orders.On("FindByID", mock.Anything, orderID).Return(model.Order{ID: orderID, Status: model.OrderStatusPending}, nil)
	f.items.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderItem{}, nil)
	f.orders.On("UpdateStatus", mock.Anything, orderID, model.OrderStatusCancelled).Return(nil)
	f.audit.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := f.uc.UpdateStatus(context.Background(), admin, orderID, usecase.AdminUpdateOrderStatusInput{Status: "cancelled"})
	assertErrContains(t, err, "db error")
}

func TestParseDateParam(t *testing.T) {
	got, ok := usecase.ParseDateParam("", false)
	assert.True(t, ok)
	assert.Nil(t, got)

	got, ok = usecase.ParseDateParam("2026-03-14", true)
	require.True(t, ok)
	assert.Equal(t, 23, got.Hour())

	got, ok = usecase.ParseDateParam("2026-03-14T08:00:00Z", false)
	require.True(t, ok)
	assert.Equal(t, 8, got.Hour())

	_, ok = usecase.ParseDateParam("14/03/2026", false)
	assert.False(t, ok)
}
