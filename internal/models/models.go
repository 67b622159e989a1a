package models

import (
	"time"

	"github.com/lib/pq"
)

// Product statuses as stored (the storefront operates in Spanish)
const (
	ProductStatusActive  = "Activo"
	ProductStatusPaused  = "Pausado"
	ProductStatusSoldOut = "Agotado"
)

// Product represents a coffee in the catalog
type Product struct {
	ID                 string         `db:"id" json:"id"`
	Name               string         `db:"name" json:"name"`
	OriginFarm         string         `db:"origin_farm" json:"origin_farm"`
	OriginMunicipality string         `db:"origin_municipality" json:"origin_municipality"`
	OriginAltitude     int            `db:"origin_altitude" json:"origin_altitude"`
	Variety            string         `db:"variety" json:"variety"`
	Process            string         `db:"process" json:"process"`
	RoastLevel         string         `db:"roast_level" json:"roast_level"`
	TastingNotes       pq.StringArray `db:"tasting_notes" json:"tasting_notes"`
	Description        string         `db:"description" json:"description"`
	Price              int64          `db:"price" json:"price"`
	Stock              int            `db:"stock" json:"stock"`
	Gramaje            int            `db:"gramaje" json:"gramaje"`
	Status             string         `db:"status" json:"status"`
	IsPublished        bool           `db:"is_published" json:"is_published"`
	ImageURL           string         `db:"image_url" json:"image_url"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// Normalize applies the zero-stock rule: a product whose stock reaches zero
// becomes Agotado unless an admin paused it. Only active products stay in
// the catalog.
func (p *Product) Normalize() {
	if p.Status == "" {
		p.Status = ProductStatusActive
	}
	if p.Stock <= 0 && p.Status != ProductStatusPaused {
		p.Stock = 0
		p.Status = ProductStatusSoldOut
	}
	if p.Stock > 0 && p.Status == ProductStatusSoldOut {
		p.Status = ProductStatusActive
	}
	p.IsPublished = p.Status == ProductStatusActive
}

// Purchasable reports whether the product can still be added to a cart.
func (p *Product) Purchasable() bool {
	return p.Status != ProductStatusSoldOut && p.Stock > 0
}

// Cart line kinds. The kind is an explicit discriminant; nothing is
// inferred from the shape of the id.
const (
	LineKindProduct      = "product"
	LineKindSubscription = "subscription"
)

// CartLine is a snapshot of a product or a subscription plan placed in a
// cart. Subscription lines are pinned at quantity 1.
type CartLine struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Stock     int    `json:"stock"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Subtotal returns unit price x quantity for the line.
func (l CartLine) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Payment statuses
const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusApproved = "APPROVED"
)

// Order statuses
const (
	OrderStatusReceived  = "RECIBIDO"
	OrderStatusPreparing = "PREPARANDO"
	OrderStatusOnTheWay  = "EN_CAMINO"
	OrderStatusDelivered = "ENTREGADO"
	OrderStatusCancelled = "CANCELADO"
)

// ValidOrderStatus reports whether s is one of the order statuses. Any
// status may move to any other; only membership is enforced.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusReceived, OrderStatusPreparing, OrderStatusOnTheWay,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	return s == PaymentStatusPending || s == PaymentStatusApproved
}

// ShippingAddress is snapshotted onto the order at creation time.
type ShippingAddress struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Department string `json:"department"`
	Notes      string `json:"notes,omitempty"`
}

// Order represents a customer order. The total is immutable once created.
type Order struct {
	ID              string    `db:"id" json:"id"`
	UserID          *string   `db:"user_id" json:"user_id,omitempty"`
	CustomerEmail   string    `db:"customer_email" json:"customer_email"`
	ShippingAddress []byte    `db:"shipping_address" json:"-"`
	TotalAmount     int64     `db:"total_amount" json:"total_amount"`
	PaymentStatus   string    `db:"payment_status" json:"payment_status"`
	OrderStatus     string    `db:"order_status" json:"order_status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem freezes unit price and display name at purchase time.
type OrderItem struct {
	ID          int64  `db:"id" json:"id"`
	OrderID     string `db:"order_id" json:"order_id"`
	ProductID   string `db:"product_id" json:"product_id"`
	ProductName string `db:"product_name" json:"product_name"`
	Quantity    int    `db:"quantity" json:"quantity"`
	UnitPrice   int64  `db:"unit_price" json:"unit_price"`
}

// Subscription statuses
const (
	SubscriptionStatusActive    = "ACTIVE"
	SubscriptionStatusPaused    = "PAUSED"
	SubscriptionStatusCancelled = "CANCELLED"
	SubscriptionStatusExpired   = "EXPIRED"
)

// Subscription tracks a user's plan. At most one row per user is ACTIVE.
type Subscription struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	PlanID          string    `db:"plan_id" json:"plan_id"`
	Status          string    `db:"status" json:"status"`
	StartDate       time.Time `db:"start_date" json:"start_date"`
	NextBillingDate time.Time `db:"next_billing_date" json:"next_billing_date"`
	PendingPlanID   *string   `db:"pending_plan_id" json:"pending_plan_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// SubscriptionPlan is edited only through the admin reconciler.
type SubscriptionPlan struct {
	ID           string         `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	BagsCount    int            `db:"bags_count" json:"bags_count"`
	Grammage     int            `db:"grammage" json:"grammage"`
	PriceMonthly int64          `db:"price_monthly" json:"price_monthly"`
	Description  string         `db:"description" json:"description"`
	Features     pq.StringArray `db:"features" json:"features"`
	IsActive     bool           `db:"is_active" json:"is_active"`
	IsPopular    bool           `db:"is_popular" json:"is_popular"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// ProcessedEvent for worker idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
