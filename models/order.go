package models

import "time"

// OrderStatus represents all possible states of an order
type OrderStatus string

const (
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
	StatusNoShow    OrderStatus = "no-show"
	StatusRejected  OrderStatus = "rejected"
	StatusDelivered OrderStatus = "delivered"
)

// PaymentMethod is chosen by the customer at checkout
type PaymentMethod string

const (
	PayOnline PaymentMethod = "online"
	PayCash   PaymentMethod = "cash"
)

// PaymentStatus is orthogonal to the order lifecycle and may change in any state
type PaymentStatus string

const (
	PaymentPendingOnline PaymentStatus = "pending_online"
	PaymentPaidOnline    PaymentStatus = "paid_online"
	PaymentPendingCash   PaymentStatus = "pending_cash"
	PaymentCashReceived  PaymentStatus = "cash_received"
)

// OrderSource records which intake channel produced the order
type OrderSource string

const (
	SourceQR       OrderSource = "qr"
	SourceWhatsApp OrderSource = "whatsapp"
)

// Customization holds the values a customer picked for one cart line
type Customization struct {
	SpiceLevel    int          `json:"spice_level"`
	SaltLevel     int          `json:"salt_level"`
	SweetLevel    int          `json:"sweet_level"`
	SaladQuantity int          `json:"salad_quantity"`
	SaladTaste    TasteProfile `json:"salad_taste,omitempty"`
}

// CartLine is customer-session scoped and never persisted server-side.
// Price and prep time are snapshotted from the dish catalog at add-time.
type CartLine struct {
	DishID          uint          `json:"dish_id" binding:"required"`
	Name            string        `json:"name"`
	Quantity        int           `json:"quantity" binding:"required,min=1"`
	UnitPrice       float64       `json:"unit_price"`
	PrepTimeMinutes int           `json:"prep_time_minutes"`
	Customization   Customization `json:"customization"`
}

type Order struct {
	ID           string      `json:"id" gorm:"primaryKey"`
	RestaurantID uint        `json:"restaurant_id" gorm:"not null;index"`
	CustomerID   uint        `json:"customer_id" gorm:"not null;index"`
	Source       OrderSource `json:"source" gorm:"default:'qr'"`

	Items         []OrderItem   `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	TotalAmount   float64       `json:"total_amount"`
	PaymentMethod PaymentMethod `json:"payment_method" gorm:"not null"`
	PaymentStatus PaymentStatus `json:"payment_status" gorm:"not null"`

	Status        OrderStatus `json:"status" gorm:"not null;default:'preparing';index"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	PrepStartedAt time.Time   `json:"prep_started_at"`
	PrepEndsAt    time.Time   `json:"prep_ends_at" gorm:"index"`
	CompletedAt   *time.Time  `json:"completed_at"`

	Bill          *Bill                `json:"bill,omitempty" gorm:"foreignKey:OrderID"`
	StatusHistory []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
}

// OrderItem is a frozen copy of a CartLine plus its own preparation window.
// Item-level status mirrors the order at creation and is informational only;
// queue placement is driven by the order-level status.
type OrderItem struct {
	ID              uint        `json:"id" gorm:"primaryKey"`
	OrderID         string      `json:"order_id" gorm:"not null;index"`
	DishID          uint        `json:"dish_id" gorm:"not null"`
	Name            string      `json:"name"` // snapshot name
	Quantity        int         `json:"quantity" gorm:"not null"`
	UnitPrice       float64     `json:"unit_price" gorm:"not null"` // snapshot price
	PrepTimeMinutes int         `json:"prep_time_minutes"`
	Status          OrderStatus `json:"status"`
	PrepStartedAt   time.Time   `json:"prep_started_at"`
	PrepEndsAt      time.Time   `json:"prep_ends_at"`

	SpiceLevel    int          `json:"spice_level"`
	SaltLevel     int          `json:"salt_level"`
	SweetLevel    int          `json:"sweet_level"`
	SaladQuantity int          `json:"salad_quantity"`
	SaladTaste    TasteProfile `json:"salad_taste,omitempty"`
}

// Bill is generated on explicit request after completion and never mutated.
type Bill struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	OrderID     string    `json:"order_id" gorm:"uniqueIndex;not null"`
	Total       float64   `json:"total" gorm:"not null"`
	ItemsJSON   string    `json:"items_json" gorm:"not null"` // frozen line-item snapshot
	GeneratedAt time.Time `json:"generated_at"`
	GeneratedBy uint      `json:"generated_by"`
}

// OrderStatusHistory tracks every status change for audit purposes
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    string      `json:"order_id" gorm:"not null;index"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  uint        `json:"changed_by"` // 0 = automatic (scheduler)
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}

// KitchenQueueEntry is the projected subset of an order shown on the
// kitchen display. It lives in the derived-view store, never in the DB.
type KitchenQueueEntry struct {
	OrderID       string        `json:"order_id"`
	CustomerID    uint          `json:"customer_id"`
	Source        OrderSource   `json:"source"`
	Status        OrderStatus   `json:"status"`
	TotalAmount   float64       `json:"total_amount"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	ItemCount     int           `json:"item_count"`
	CreatedAt     time.Time     `json:"created_at"`
	PrepEndsAt    time.Time     `json:"prep_ends_at"`
}
