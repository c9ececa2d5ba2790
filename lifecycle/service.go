package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"qrdine-api/clock"
	"qrdine-api/models"
	"qrdine-api/preptime"
	"qrdine-api/statemachine"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Projector receives every canonical order change and fans it out to the
// derived views. Implementations are best-effort; the canonical write has
// already committed by the time these run.
type Projector interface {
	OrderCreated(ctx context.Context, order *models.Order)
	OrderUpdated(ctx context.Context, order *models.Order)
	OrderDeleted(ctx context.Context, order *models.Order)
}

// Filters narrows ListActiveOrders results
type Filters struct {
	Status models.OrderStatus
	From   time.Time
	To     time.Time
}

// Service is the order lifecycle engine. All mutations of a single order are
// serialized through a per-order mutex, and every transition re-checks the
// current status inside the UPDATE so stale writers cannot reopen a terminal
// order.
type Service struct {
	db    *gorm.DB
	clk   clock.Clock
	proj  Projector
	locks sync.Map // order id → *sync.Mutex
}

func NewService(db *gorm.DB, clk clock.Clock, proj Projector) *Service {
	return &Service{db: db, clk: clk, proj: proj}
}

func (s *Service) lock(orderID string) func() {
	v, _ := s.locks.LoadOrStore(orderID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// CreateOrder validates the cart, stamps preparation windows and commits the
// initial preparing state, then triggers projection of the new record.
func (s *Service) CreateOrder(ctx context.Context, customerID, restaurantID uint, lines []models.CartLine, method models.PaymentMethod, source models.OrderSource) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if method != models.PayOnline && method != models.PayCash {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, method)
	}
	if restaurantID == 0 || customerID == 0 {
		return nil, fmt.Errorf("%w: restaurant and customer are required", ErrValidation)
	}
	if source == "" {
		source = models.SourceQR
	}

	var items []models.OrderItem
	var total float64
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1 for dish %d", ErrValidation, line.DishID)
		}
		if line.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: negative price for dish %d", ErrValidation, line.DishID)
		}
		total += line.UnitPrice * float64(line.Quantity)
		items = append(items, models.OrderItem{
			DishID:          line.DishID,
			Name:            line.Name,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			PrepTimeMinutes: line.PrepTimeMinutes,
			SpiceLevel:      line.Customization.SpiceLevel,
			SaltLevel:       line.Customization.SaltLevel,
			SweetLevel:      line.Customization.SweetLevel,
			SaladQuantity:   line.Customization.SaladQuantity,
			SaladTaste:      line.Customization.SaladTaste,
		})
	}

	now := s.clk.Now()
	window := preptime.Stamp(items, now)

	paymentStatus := models.PaymentPendingCash
	if method == models.PayOnline {
		paymentStatus = models.PaymentPendingOnline
	}

	order := models.Order{
		ID:            uuid.New().String(),
		RestaurantID:  restaurantID,
		CustomerID:    customerID,
		Source:        source,
		Items:         items,
		TotalAmount:   total,
		PaymentMethod: method,
		PaymentStatus: paymentStatus,
		Status:        models.StatusPreparing,
		CreatedAt:     now,
		PrepStartedAt: window.StartedAt,
		PrepEndsAt:    window.EndsAt,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		history := models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusPreparing,
			ChangedBy: customerID,
			Note:      "Order placed",
			CreatedAt: now,
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if s.proj != nil {
		s.proj.OrderCreated(ctx, &order)
	}
	return &order, nil
}

// Transition applies a guarded lifecycle transition. The guard is evaluated
// twice: once against the loaded record to produce a useful error, and again
// inside the conditional UPDATE so a concurrent writer cannot slip between
// check and write.
func (s *Service) Transition(ctx context.Context, orderID string, target models.OrderStatus, actor string, changedBy uint, note string) (*models.Order, error) {
	if !statemachine.IsKnown(target) {
		return nil, fmt.Errorf("%w: unknown target status %q", ErrValidation, target)
	}

	unlock := s.lock(orderID)
	defer unlock()

	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if err := statemachine.CanTransition(order.Status, target, actor); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, err.Error())
	}

	now := s.clk.Now()
	updates := map[string]interface{}{"status": target, "updated_at": now}
	if target == models.StatusCompleted {
		updates["completed_at"] = now
	}

	prev := order.Status
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, prev).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Status moved under us; the stale transition is rejected, not applied
		return nil, fmt.Errorf("%w: order %s is no longer %s", ErrInvalidTransition, orderID, prev)
	}

	history := models.OrderStatusHistory{
		OrderID:    orderID,
		FromStatus: prev,
		ToStatus:   target,
		ChangedBy:  changedBy,
		Note:       note,
		CreatedAt:  now,
	}
	// The transition already committed; a missing audit row is logged, not fatal
	if err := s.db.WithContext(ctx).Create(&history).Error; err != nil {
		log.Printf("lifecycle: failed to record status history for order %s: %v", orderID, err)
	}

	if err := s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}

	if s.proj != nil {
		s.proj.OrderUpdated(ctx, &order)
	}
	return &order, nil
}

// DueOrderIDs returns orders still preparing whose window has elapsed.
func (s *Service) DueOrderIDs(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("status = ? AND prep_ends_at <= ?", models.StatusPreparing, now).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan due orders: %w", err)
	}
	return ids, nil
}

// AutoComplete is the scheduler's entry point for a single elapsed order.
func (s *Service) AutoComplete(ctx context.Context, orderID string) error {
	_, err := s.Transition(ctx, orderID, models.StatusCompleted, statemachine.ActorSystem, 0, "Auto-completed after preparation window elapsed")
	return err
}

// GenerateBill creates the immutable post-completion bill. Idempotent: when
// a bill already exists it is returned alongside ErrBillExists, which callers
// report as a no-op rather than a failure.
func (s *Service) GenerateBill(ctx context.Context, orderID string, actorID uint) (*models.Bill, error) {
	unlock := s.lock(orderID)
	defer unlock()

	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	var existing models.Bill
	if err := s.db.WithContext(ctx).First(&existing, "order_id = ?", orderID).Error; err == nil {
		return &existing, ErrBillExists
	}

	if order.Status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: bill requires a completed order, current status is %s", ErrValidation, order.Status)
	}

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot items: %w", err)
	}

	bill := models.Bill{
		OrderID:     orderID,
		Total:       order.TotalAmount,
		ItemsJSON:   string(itemsJSON),
		GeneratedAt: s.clk.Now(),
		GeneratedBy: actorID,
	}
	if err := s.db.WithContext(ctx).Create(&bill).Error; err != nil {
		return nil, fmt.Errorf("failed to create bill: %w", err)
	}
	return &bill, nil
}

// SetPaymentStatus is orthogonal to the lifecycle and allowed in any state.
func (s *Service) SetPaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) (*models.Order, error) {
	switch status {
	case models.PaymentPendingOnline, models.PaymentPaidOnline, models.PaymentPendingCash, models.PaymentCashReceived:
	default:
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidation, status)
	}

	unlock := s.lock(orderID)
	defer unlock()

	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_status", status)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	if s.proj != nil {
		s.proj.OrderUpdated(ctx, &order)
	}
	return &order, nil
}

// DeleteOrder permanently removes an order and everything derived from it.
// Not a lifecycle transition — any status may be deleted, admin only.
func (s *Service) DeleteOrder(ctx context.Context, orderID string, role models.UserRole) error {
	if role != models.RoleAdmin {
		return ErrUnauthorized
	}

	unlock := s.lock(orderID)
	defer unlock()

	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load order: %w", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.OrderStatusHistory{}, "order_id = ?", orderID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Bill{}, "order_id = ?", orderID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.OrderItem{}, "order_id = ?", orderID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, "id = ?", orderID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	if s.proj != nil {
		s.proj.OrderDeleted(ctx, &order)
	}
	return nil
}

// GetOrder loads one order with items, bill and history.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").Preload("Bill").Preload("StatusHistory").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

// ListActiveOrders returns a restaurant's orders for the kitchen display.
// Without a status filter only non-terminal orders are returned.
func (s *Service) ListActiveOrders(ctx context.Context, restaurantID uint, f Filters) ([]models.Order, error) {
	query := s.db.WithContext(ctx).Preload("Items").
		Where("restaurant_id = ?", restaurantID)

	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	} else {
		query = query.Where("status IN ?", []models.OrderStatus{models.StatusPreparing, models.StatusReady})
	}
	if !f.From.IsZero() {
		query = query.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		query = query.Where("created_at <= ?", f.To)
	}

	var orders []models.Order
	if err := query.Order("created_at asc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ListCustomerOrders returns a customer's order history, newest first.
func (s *Service) ListCustomerOrders(ctx context.Context, customerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Preload("Items").
		Where("customer_id = ?", customerID).
		Order("created_at desc").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}
