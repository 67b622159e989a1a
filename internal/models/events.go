package models

import "time"

// Event types published to the change stream. They stand in for the
// row-change notifications the storefront UIs subscribe to.
const (
	EventTypeOrderCreated          = "ORDER_CREATED"
	EventTypeProductChanged        = "PRODUCT_CHANGED"
	EventTypeProductDeleted        = "PRODUCT_DELETED"
	EventTypeStockDepleted         = "STOCK_DEPLETED"
	EventTypeSubscriptionActivated = "SUBSCRIPTION_ACTIVATED"
	EventTypeSubscriptionCancelled = "SUBSCRIPTION_CANCELLED"
	EventTypePlanUpdated           = "PLAN_UPDATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when checkout commits an order
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id,omitempty"`
	TotalAmount int64           `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
}

// ProductChangedEvent published on admin create/update and on checkout
// stock decrement; consumers refresh caches from it
type ProductChangedEvent struct {
	BaseEvent
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
	Status    string `json:"status"`
}

// ProductDeletedEvent published on explicit admin delete
type ProductDeletedEvent struct {
	BaseEvent
	ProductID string `json:"product_id"`
}

// StockDepletedEvent published when a purchase drives stock to zero
type StockDepletedEvent struct {
	BaseEvent
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
}

// SubscriptionActivatedEvent published when a new subscription goes ACTIVE
type SubscriptionActivatedEvent struct {
	BaseEvent
	SubscriptionID string `json:"subscription_id"`
	UserID         string `json:"user_id"`
	PlanID         string `json:"plan_id"`
}

// SubscriptionCancelledEvent published when a prior plan is replaced or a
// subscription is cancelled outright
type SubscriptionCancelledEvent struct {
	BaseEvent
	SubscriptionID string `json:"subscription_id"`
	UserID         string `json:"user_id"`
	Reason         string `json:"reason"`
}

// PlanUpdatedEvent published after an atomic plan edit
type PlanUpdatedEvent struct {
	BaseEvent
	PlanID       string `json:"plan_id"`
	PriceMonthly int64  `json:"price_monthly"`
}

// OrderItemData represents item data carried in events
type OrderItemData struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}
