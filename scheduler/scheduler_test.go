package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"qrdine-api/clock"
	"qrdine-api/lifecycle"
	"qrdine-api/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testStart = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type stubEngine struct {
	mu        sync.Mutex
	due       []string
	failWith  map[string]error
	completed []string
	scans     int
}

func (s *stubEngine) DueOrderIDs(ctx context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans++
	return append([]string(nil), s.due...), nil
}

func (s *stubEngine) AutoComplete(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWith[orderID]; err != nil {
		return err
	}
	s.completed = append(s.completed, orderID)
	return nil
}

func (s *stubEngine) completedOrders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.completed...)
}

func (s *stubEngine) scanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scans
}

func TestScheduler_CompletesDueOrdersOnTick(t *testing.T) {
	engine := &stubEngine{due: []string{"a", "b"}}
	fake := clock.NewFake(testStart)
	s := New(engine, fake, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	defer func() { cancel(); s.Stop() }()

	fake.Advance(time.Second)

	require.Eventually(t, func() bool {
		return len(engine.completedOrders()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"a", "b"}, engine.completedOrders())
}

func TestScheduler_FailingOrderDoesNotBlockOthers(t *testing.T) {
	engine := &stubEngine{
		due: []string{"broken", "lost-race", "fine"},
		failWith: map[string]error{
			"broken":    errors.New("store unavailable"),
			"lost-race": lifecycle.ErrInvalidTransition,
		},
	}
	fake := clock.NewFake(testStart)
	s := New(engine, fake, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	defer func() { cancel(); s.Stop() }()

	fake.Advance(time.Second)

	require.Eventually(t, func() bool {
		return len(engine.completedOrders()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"fine"}, engine.completedOrders())
}

func TestScheduler_DisabledSkipsSweep(t *testing.T) {
	engine := &stubEngine{due: []string{"a"}}
	fake := clock.NewFake(testStart)
	s := New(engine, fake, time.Second)
	s.SetEnabled(false)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	defer func() { cancel(); s.Stop() }()

	fake.Advance(time.Second)
	fake.Advance(time.Second)
	time.Sleep(50 * time.Millisecond)

	assert.Zero(t, engine.scanCount())
	assert.Empty(t, engine.completedOrders())

	// Re-enabling resumes auto-completion on the next tick
	s.SetEnabled(true)
	fake.Advance(time.Second)
	require.Eventually(t, func() bool {
		return len(engine.completedOrders()) == 1
	}, time.Second, 10*time.Millisecond)
}

// blockingEngine stalls AutoComplete for one order until released.
type blockingEngine struct {
	stubEngine
	slowID  string
	release chan struct{}
}

func (b *blockingEngine) AutoComplete(ctx context.Context, orderID string) error {
	if orderID == b.slowID {
		<-b.release
	}
	return b.stubEngine.AutoComplete(ctx, orderID)
}

func TestScheduler_SlowOrderDoesNotDelayOthers(t *testing.T) {
	engine := &blockingEngine{
		stubEngine: stubEngine{due: []string{"slow", "fast"}},
		slowID:     "slow",
		release:    make(chan struct{}),
	}
	fake := clock.NewFake(testStart)
	s := New(engine, fake, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	defer func() { cancel(); s.Stop() }()

	fake.Advance(time.Second)

	// The fast order completes while the slow one is still in flight
	require.Eventually(t, func() bool {
		return len(engine.completedOrders()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"fast"}, engine.completedOrders())

	close(engine.release)
	require.Eventually(t, func() bool {
		return len(engine.completedOrders()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"slow", "fast"}, engine.completedOrders())
}

func TestScheduler_StopWithoutContextCancel(t *testing.T) {
	engine := &stubEngine{}
	fake := clock.NewFake(testStart)
	s := New(engine, fake, time.Second)

	s.Start(context.Background())

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return without a prior context cancel")
	}
}

// ── End-to-end against the real lifecycle engine ─────────────────────────────

func newLifecycle(t *testing.T, fake *clock.Fake) *lifecycle.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Order{}, &models.OrderItem{}, &models.OrderStatusHistory{}, &models.Bill{},
	))
	return lifecycle.NewService(db, fake, nil)
}

func TestScheduler_AutoCompletesElapsedOrder(t *testing.T) {
	fake := clock.NewFake(testStart)
	svc := newLifecycle(t, fake)
	s := New(svc, fake, time.Second)

	order, err := svc.CreateOrder(context.Background(), 7, 3, []models.CartLine{
		{DishID: 1, Name: "Chai", Quantity: 1, UnitPrice: 20, PrepTimeMinutes: 5},
	}, models.PayCash, models.SourceQR)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	defer func() { cancel(); s.Stop() }()

	// Window not elapsed yet: nothing happens
	fake.Advance(time.Minute)
	time.Sleep(50 * time.Millisecond)
	current, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, current.Status)

	// Past the window: the next tick completes it
	fake.Advance(5 * time.Minute)
	require.Eventually(t, func() bool {
		o, err := svc.GetOrder(context.Background(), order.ID)
		return err == nil && o.Status == models.StatusCompleted
	}, time.Second, 10*time.Millisecond)

	done, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
}

func TestScheduler_DisabledLeavesElapsedOrderPreparing(t *testing.T) {
	fake := clock.NewFake(testStart)
	svc := newLifecycle(t, fake)
	s := New(svc, fake, time.Second)
	s.SetEnabled(false)

	order, err := svc.CreateOrder(context.Background(), 7, 3, []models.CartLine{
		{DishID: 1, Name: "Chai", Quantity: 1, UnitPrice: 20, PrepTimeMinutes: 5},
	}, models.PayCash, models.SourceQR)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	defer func() { cancel(); s.Stop() }()

	fake.Advance(time.Hour)
	time.Sleep(50 * time.Millisecond)

	current, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, current.Status, "elapsed orders stay preparing while disabled")
}

func TestScheduler_ManualCancellationBeatsAutoCompletion(t *testing.T) {
	fake := clock.NewFake(testStart)
	svc := newLifecycle(t, fake)
	s := New(svc, fake, time.Second)

	order, err := svc.CreateOrder(context.Background(), 7, 3, []models.CartLine{
		{DishID: 1, Name: "Chai", Quantity: 1, UnitPrice: 20, PrepTimeMinutes: 5},
	}, models.PayCash, models.SourceQR)
	require.NoError(t, err)

	// Admin cancels before the scheduler sees the elapsed window
	_, err = svc.Transition(context.Background(), order.ID, models.StatusCancelled, "admin", 1, "no-show party")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	defer func() { cancel(); s.Stop() }()

	fake.Advance(time.Hour)
	time.Sleep(50 * time.Millisecond)

	current, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, current.Status, "terminal state is sticky")
}
