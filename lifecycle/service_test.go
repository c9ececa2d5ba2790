package lifecycle

import (
	"context"
	"testing"
	"time"

	"qrdine-api/clock"
	"qrdine-api/models"
	"qrdine-api/statemachine"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testStart = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Restaurant{}, &models.Dish{},
		&models.Order{}, &models.OrderItem{}, &models.OrderStatusHistory{}, &models.Bill{},
	))
	return db
}

func newTestService(t *testing.T) (*Service, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(testStart)
	return NewService(newTestDB(t), fake, nil), fake
}

func paneerCart() []models.CartLine {
	return []models.CartLine{
		{DishID: 1, Name: "Paneer", Quantity: 2, UnitPrice: 200, PrepTimeMinutes: 20},
	}
}

func TestCreateOrder_StampsTotalsAndWindow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, 7, 3, paneerCart(), models.PayCash, models.SourceQR)
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, 400.0, order.TotalAmount)
	assert.Equal(t, models.StatusPreparing, order.Status)
	assert.Equal(t, models.PaymentPendingCash, order.PaymentStatus)
	assert.Equal(t, testStart, order.PrepStartedAt)
	assert.Equal(t, testStart.Add(20*time.Minute), order.PrepEndsAt)
	assert.Equal(t, 20*time.Minute, order.PrepEndsAt.Sub(order.PrepStartedAt))
	assert.Nil(t, order.CompletedAt)

	require.Len(t, order.Items, 1)
	assert.Equal(t, models.StatusPreparing, order.Items[0].Status)
	assert.Equal(t, 200.0, order.Items[0].UnitPrice)
}

func TestCreateOrder_WindowUsesMaxItemDuration(t *testing.T) {
	svc, _ := newTestService(t)

	order, err := svc.CreateOrder(context.Background(), 7, 3, []models.CartLine{
		{DishID: 1, Name: "Dal", Quantity: 1, UnitPrice: 100, PrepTimeMinutes: 10},
		{DishID: 2, Name: "Biryani", Quantity: 1, UnitPrice: 300, PrepTimeMinutes: 25},
	}, models.PayOnline, models.SourceQR)
	require.NoError(t, err)

	// Max, not sum, not average
	assert.Equal(t, testStart.Add(25*time.Minute), order.PrepEndsAt)
	assert.Equal(t, models.PaymentPendingOnline, order.PaymentStatus)
}

func TestCreateOrder_DefaultsMissingPrepTime(t *testing.T) {
	svc, _ := newTestService(t)

	order, err := svc.CreateOrder(context.Background(), 7, 3, []models.CartLine{
		{DishID: 1, Name: "Chai", Quantity: 1, UnitPrice: 20},
	}, models.PayCash, models.SourceQR)
	require.NoError(t, err)

	assert.Equal(t, testStart.Add(15*time.Minute), order.PrepEndsAt)
	assert.Equal(t, 15, order.Items[0].PrepTimeMinutes)
}

func TestCreateOrder_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, 7, 3, nil, models.PayCash, models.SourceQR)
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = svc.CreateOrder(ctx, 7, 3, []models.CartLine{
		{DishID: 1, Quantity: 0, UnitPrice: 10},
	}, models.PayCash, models.SourceQR)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateOrder(ctx, 7, 3, []models.CartLine{
		{DishID: 1, Quantity: 1, UnitPrice: -5},
	}, models.PayCash, models.SourceQR)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateOrder(ctx, 7, 3, paneerCart(), models.PaymentMethod("crypto"), models.SourceQR)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransition_ManualPathStampsCompletedAt(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, 7, 3, paneerCart(), models.PayCash, models.SourceQR)
	require.NoError(t, err)

	fake.Set(testStart.Add(5 * time.Minute))
	ready, err := svc.Transition(ctx, order.ID, models.StatusReady, statemachine.ActorKitchen, 42, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, ready.Status)
	assert.Nil(t, ready.CompletedAt)

	fake.Set(testStart.Add(8 * time.Minute))
	done, err := svc.Transition(ctx, order.ID, models.StatusCompleted, statemachine.ActorKitchen, 42, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, testStart.Add(8*time.Minute), done.CompletedAt.UTC())
}

func TestTransition_GuardFailuresLeaveStatusUnchanged(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, 7, 3, paneerCart(), models.PayCash, models.SourceQR)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, order.ID, models.StatusPreparing, statemachine.ActorKitchen, 42, "")
	assert.ErrorIs(t, err, ErrInvalidTransition, "cannot re-enter preparing")

	_, err = svc.Transition(ctx, order.ID, models.StatusCancelled, statemachine.ActorKitchen, 42, "")
	assert.ErrorIs(t, err, ErrInvalidTransition, "cancel is admin-only")

	_, err = svc.Transition(ctx, order.ID, models.OrderStatus("shipped"), statemachine.ActorAdmin, 1, "")
	assert.ErrorIs(t, err, ErrValidation)

	current, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, current.Status)
}

func TestTransition_TerminalStateIsSticky(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, 7, 3, paneerCart(), models.PayCash, models.SourceQR)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, order.ID, models.StatusCancelled, statemachine.ActorAdmin, 1, "customer left")
	require.NoError(t, err)

	// The scheduler's auto-complete on an already-cancelled order must fail
	err = svc.AutoComplete(ctx, order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	current, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, current.Status)
}

func TestTransition_CompleteTwiceIsRejectedSecondTime(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, 7, 3, paneerCart(), models.PayCash, models.SourceQR)
	require.NoError(t, err)

	first, err := svc.Transition(ctx, order.ID, models.StatusCompleted, statemachine.ActorAdmin, 1, "")
	require.NoError(t, err)

	_, err = svc.Transition(ctx, order.ID, models.StatusCompleted, statemachine.ActorAdmin, 1, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	current, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, current.Status)
	assert.Equal(t, first.CompletedAt.UTC(), current.CompletedAt.UTC())
}

func TestTransition_SurvivesHistoryWriteFailure(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, 7, 3, paneerCart(), models.PayCash, models.SourceQR)
	require.NoError(t, err)

	// The audit trail is best-effort: the status change must stick even
	// when the history write cannot
	require.NoError(t, svc.db.Migrator().DropTable(&models.OrderStatusHistory{}))

	updated, err := svc.Transition(ctx, order.ID, models.StatusReady, statemachine.ActorKitchen, 1, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, updated.Status)

	var current models.Order
	require.NoError(t, svc.db.First(&current, "id = ?", order.ID).Error)
	assert.Equal(t, models.StatusReady, current.Status)
}

func TestTransition_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Transition(context.Background(), "missing", models.StatusReady, statemachine.ActorKitchen, 1, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateBill_RequiresCompletionAndIsIdempotent(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, 7, 3, paneerCart(), models.PayCash, models.SourceQR)
	require.NoError(t, err)

	_, err = svc.GenerateBill(ctx, order.ID, 1)
	assert.ErrorIs(t, err, ErrValidation, "no bill before completion")

	fake.Set(testStart.Add(8 * time.Minute))
	_, err = svc.Transition(ctx, order.ID, models.StatusCompleted, statemachine.ActorAdmin, 1, "")
	require.NoError(t, err)

	fake.Set(testStart.Add(10 * time.Minute))
	bill, err := svc.GenerateBill(ctx, order.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 400.0, bill.Total)
	assert.Equal(t, uint(1), bill.GeneratedBy)

	done, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, bill.GeneratedAt.Before(*done.CompletedAt))

	// Second call is a no-op returning the original bill
	again, err := svc.GenerateBill(ctx, order.ID, 99)
	assert.ErrorIs(t, err, ErrBillExists)
	require.NotNil(t, again)
	assert.Equal(t, bill.ID, again.ID)
	assert.Equal(t, bill.ItemsJSON, again.ItemsJSON)
	assert.Equal(t, bill.GeneratedAt.UTC(), again.GeneratedAt.UTC())
	assert.Equal(t, bill.GeneratedBy, again.GeneratedBy)
}

func TestSetPaymentStatus_OrthogonalToLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, 7, 3, paneerCart(), models.PayCash, models.SourceQR)
	require.NoError(t, err)

	// Cash received while still preparing is fine
	updated, err := svc.SetPaymentStatus(ctx, order.ID, models.PaymentCashReceived)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCashReceived, updated.PaymentStatus)
	assert.Equal(t, models.StatusPreparing, updated.Status)

	_, err = svc.SetPaymentStatus(ctx, order.ID, models.PaymentStatus("iou"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.SetPaymentStatus(ctx, "missing", models.PaymentCashReceived)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteOrder_AdminOnlyAndCascades(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, 7, 3, paneerCart(), models.PayCash, models.SourceQR)
	require.NoError(t, err)

	err = svc.DeleteOrder(ctx, order.ID, models.RoleKitchen)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.DeleteOrder(ctx, order.ID, models.RoleAdmin))

	_, err = svc.GetOrder(ctx, order.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var itemCount int64
	svc.db.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&itemCount)
	assert.Zero(t, itemCount)

	err = svc.DeleteOrder(ctx, order.ID, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDueOrderIDs(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()

	short, err := svc.CreateOrder(ctx, 7, 3, []models.CartLine{
		{DishID: 1, Name: "Chai", Quantity: 1, UnitPrice: 20, PrepTimeMinutes: 5},
	}, models.PayCash, models.SourceQR)
	require.NoError(t, err)

	long, err := svc.CreateOrder(ctx, 7, 3, []models.CartLine{
		{DishID: 2, Name: "Biryani", Quantity: 1, UnitPrice: 300, PrepTimeMinutes: 30},
	}, models.PayCash, models.SourceQR)
	require.NoError(t, err)

	ids, err := svc.DueOrderIDs(ctx, testStart.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{short.ID}, ids)

	// Orders moved to a terminal state drop out of the active set
	fake.Set(testStart.Add(10 * time.Minute))
	require.NoError(t, svc.AutoComplete(ctx, short.ID))

	ids, err = svc.DueOrderIDs(ctx, testStart.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{long.ID}, ids)
}

func TestListActiveOrders_Filters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateOrder(ctx, 7, 3, paneerCart(), models.PayCash, models.SourceQR)
	require.NoError(t, err)
	b, err := svc.CreateOrder(ctx, 8, 3, paneerCart(), models.PayCash, models.SourceQR)
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, 7, 4, paneerCart(), models.PayCash, models.SourceQR)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, b.ID, models.StatusCompleted, statemachine.ActorAdmin, 1, "")
	require.NoError(t, err)

	// Default: only non-terminal orders for the restaurant
	active, err := svc.ListActiveOrders(ctx, 3, Filters{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)

	// Explicit status filter reaches terminal orders too
	completed, err := svc.ListActiveOrders(ctx, 3, Filters{Status: models.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, b.ID, completed[0].ID)

	// Date range excluding everything
	none, err := svc.ListActiveOrders(ctx, 3, Filters{From: testStart.Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, none)
}
