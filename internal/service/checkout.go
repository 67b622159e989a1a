package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/santia053/cafe-suroeste/internal/broker"
	"github.com/santia053/cafe-suroeste/internal/cart"
	"github.com/santia053/cafe-suroeste/internal/models"
	"github.com/santia053/cafe-suroeste/internal/store"
	"github.com/santia053/cafe-suroeste/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEmptyCart is returned when checkout is invoked on an empty cart.
var ErrEmptyCart = errors.New("cart is empty")

// ErrMissingCustomer is returned when a checkout carries neither a user id
// nor a guest email. Every order needs one of the two.
var ErrMissingCustomer = errors.New("checkout requires a user or a guest email")

// CheckoutStore is the slice of the store the checkout reconciler needs.
type CheckoutStore interface {
	GetPlanPricesByIDs(ctx context.Context, ids []string) (map[string]int64, error)
	CommitCheckout(ctx context.Context, draft *store.CheckoutDraft) (*store.CheckoutResult, error)
	GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error)
}

// ChangePublisher publishes store change events. Satisfied by
// *broker.EventPublisher; nil disables publishing.
type ChangePublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishProductChanged(ctx context.Context, event *models.ProductChangedEvent) error
	PublishProductDeleted(ctx context.Context, event *models.ProductDeletedEvent) error
	PublishStockDepleted(ctx context.Context, event *models.StockDepletedEvent) error
	PublishSubscriptionActivated(ctx context.Context, event *models.SubscriptionActivatedEvent) error
	PublishSubscriptionCancelled(ctx context.Context, event *models.SubscriptionCancelledEvent) error
	PublishPlanUpdated(ctx context.Context, event *models.PlanUpdatedEvent) error
}

var _ ChangePublisher = (*broker.EventPublisher)(nil)

// CheckoutService turns a cart into durable order, stock and subscription
// state. The whole write set commits in one transaction or not at all.
type CheckoutService struct {
	store         CheckoutStore
	carts         *cart.Service
	publisher     ChangePublisher
	shippingFee   int64
	freeThreshold int64
	now           func() time.Time
	logger        *zap.Logger
}

// NewCheckoutService creates a checkout service
func NewCheckoutService(
	checkoutStore CheckoutStore,
	carts *cart.Service,
	publisher ChangePublisher,
	shippingFee, freeThreshold int64,
) *CheckoutService {
	return &CheckoutService{
		store:         checkoutStore,
		carts:         carts,
		publisher:     publisher,
		shippingFee:   shippingFee,
		freeThreshold: freeThreshold,
		now:           time.Now,
		logger:        util.GetLogger(),
	}
}

// CheckoutRequest identifies the cart being checked out, the buyer (nil
// user id means guest) and the shipping snapshot.
type CheckoutRequest struct {
	CartID   string                 `json:"cart_id" binding:"required"`
	UserID   *string                `json:"user_id,omitempty"`
	Shipping models.ShippingAddress `json:"shipping" binding:"required"`
}

// Checkout outcome statuses
const (
	CheckoutCompleted     = "COMPLETED"
	CheckoutPricesChanged = "PRICES_CHANGED"
)

// CheckoutOutcome is the result of a checkout attempt. PricesChanged means
// nothing was written: the cart was refreshed with live plan prices and the
// buyer must review the new total and retry.
type CheckoutOutcome struct {
	Status       string               `json:"status"`
	Order        *models.Order        `json:"order,omitempty"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
	Lines        []models.CartLine    `json:"lines,omitempty"`
	PriceUpdates []cart.PriceUpdate   `json:"price_updates,omitempty"`
}

// ShippingCost returns the flat fee, waived once the product subtotal
// reaches the free-shipping threshold.
func (s *CheckoutService) ShippingCost(productSubtotal int64) int64 {
	if productSubtotal >= s.freeThreshold {
		return 0
	}
	return s.shippingFee
}

// Checkout performs the full reconciliation: price validation, atomic
// order/stock/subscription commit, cart clearing.
func (s *CheckoutService) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutOutcome, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	if req.UserID == nil && req.Shipping.Email == "" {
		util.CheckoutFailedTotal.WithLabelValues("missing_customer").Inc()
		return nil, ErrMissingCustomer
	}

	lines, err := s.carts.Get(ctx, req.CartID)
	if err != nil {
		util.CheckoutFailedTotal.WithLabelValues("cart_load").Inc()
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	var productLines, planLines []models.CartLine
	for _, line := range lines {
		if line.Kind == models.LineKindSubscription {
			planLines = append(planLines, line)
		} else {
			productLines = append(productLines, line)
		}
	}

	// Plan prices are re-validated against the store before anything is
	// written. A mismatch refreshes the cart and aborts so the buyer can
	// review the new total.
	if len(planLines) > 0 {
		updates, err := s.stalePlanPrices(ctx, planLines)
		if err != nil {
			util.CheckoutFailedTotal.WithLabelValues("price_check").Inc()
			return nil, err
		}
		if len(updates) > 0 {
			refreshed, err := s.carts.SyncPrices(ctx, req.CartID, updates)
			if err != nil {
				return nil, fmt.Errorf("failed to sync cart prices: %w", err)
			}
			util.CheckoutPriceMismatchTotal.Inc()
			s.logger.Warn("Checkout aborted on stale plan prices",
				zap.String("cart_id", req.CartID),
				zap.Int("updated_lines", len(updates)))
			return &CheckoutOutcome{
				Status:       CheckoutPricesChanged,
				Lines:        refreshed,
				PriceUpdates: updates,
			}, nil
		}
	}

	draft := &store.CheckoutDraft{}

	if len(productLines) > 0 {
		order, items, decrements, err := s.buildOrder(req, productLines)
		if err != nil {
			return nil, err
		}
		draft.Order = order
		draft.Items = items
		draft.Decrements = decrements
	}

	if len(planLines) > 0 && req.UserID != nil {
		// Last subscription line wins, matching the single-slot cart rule.
		planLine := planLines[len(planLines)-1]
		today := s.now()
		draft.Subscription = &store.SubscriptionChange{
			ID:              uuid.New().String(),
			UserID:          *req.UserID,
			PlanID:          planLine.ID,
			StartDate:       today,
			NextBillingDate: today.AddDate(0, 1, 0),
		}
	}

	if draft.Order == nil && draft.Subscription == nil {
		// Guest cart holding only a subscription line: nothing durable to
		// write. The cart is cleared so the buyer is not stuck.
		s.logger.Warn("Checkout with nothing to commit",
			zap.String("cart_id", req.CartID))
		if err := s.carts.Clear(ctx, req.CartID); err != nil {
			return nil, fmt.Errorf("failed to clear cart: %w", err)
		}
		return &CheckoutOutcome{Status: CheckoutCompleted}, nil
	}

	result, err := s.store.CommitCheckout(ctx, draft)
	if err != nil {
		var insufficient *store.ErrInsufficientStock
		if errors.As(err, &insufficient) {
			util.CheckoutFailedTotal.WithLabelValues("insufficient_stock").Inc()
		} else {
			util.CheckoutFailedTotal.WithLabelValues("commit").Inc()
		}
		return nil, fmt.Errorf("failed to process order: %w", err)
	}

	if err := s.carts.Clear(ctx, req.CartID); err != nil {
		// The order is durable; a stale cart is recoverable, so log and go on.
		s.logger.Error("Failed to clear cart after checkout",
			zap.String("cart_id", req.CartID), zap.Error(err))
	}

	s.publishCheckoutEvents(ctx, draft, result)

	outcome := &CheckoutOutcome{Status: CheckoutCompleted, Order: draft.Order}
	if result.ActivatedSubscription != nil {
		outcome.Subscription = result.ActivatedSubscription
		util.SubscriptionsActivatedTotal.Inc()
	}
	if result.CancelledSubscriptionID != "" {
		util.SubscriptionsCancelledTotal.WithLabelValues("plan_change").Inc()
	}
	if draft.Order != nil {
		util.OrdersCreatedTotal.Inc()
		s.logger.Info("Order created",
			zap.String("order_id", draft.Order.ID),
			zap.Int64("total", draft.Order.TotalAmount))
	}

	return outcome, nil
}

// OrderHistory returns the user's past orders, newest first.
func (s *CheckoutService) OrderHistory(ctx context.Context, userID string) ([]models.Order, error) {
	return s.store.GetOrdersByUserID(ctx, userID)
}

// stalePlanPrices compares cached plan prices against the store and
// returns the updates needed to bring the cart current.
func (s *CheckoutService) stalePlanPrices(ctx context.Context, planLines []models.CartLine) ([]cart.PriceUpdate, error) {
	ids := make([]string, len(planLines))
	for i, line := range planLines {
		ids[i] = line.ID
	}

	prices, err := s.store.GetPlanPricesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plan prices: %w", err)
	}

	var updates []cart.PriceUpdate
	for _, line := range planLines {
		live, ok := prices[line.ID]
		if ok && live != line.UnitPrice {
			updates = append(updates, cart.PriceUpdate{ID: line.ID, Price: live})
		}
	}
	return updates, nil
}

// buildOrder assembles the order row, its item snapshots and the stock
// decrements for the regular product lines.
func (s *CheckoutService) buildOrder(req *CheckoutRequest, productLines []models.CartLine) (*models.Order, []models.OrderItem, []store.StockDecrement, error) {
	var subtotal int64
	for _, line := range productLines {
		subtotal += line.Subtotal()
	}
	total := subtotal + s.ShippingCost(subtotal)

	addressJSON, err := json.Marshal(req.Shipping)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode shipping address: %w", err)
	}

	order := &models.Order{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		CustomerEmail:   req.Shipping.Email,
		ShippingAddress: addressJSON,
		TotalAmount:     total,
		PaymentStatus:   models.PaymentStatusApproved,
		OrderStatus:     models.OrderStatusReceived,
	}

	items := make([]models.OrderItem, 0, len(productLines))
	decrements := make([]store.StockDecrement, 0, len(productLines))
	for _, line := range productLines {
		items = append(items, models.OrderItem{
			ProductID:   line.ID,
			ProductName: line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
		decrements = append(decrements, store.StockDecrement{
			ProductID: line.ID,
			Quantity:  line.Quantity,
		})
	}

	return order, items, decrements, nil
}

func (s *CheckoutService) publishCheckoutEvents(ctx context.Context, draft *store.CheckoutDraft, result *store.CheckoutResult) {
	if s.publisher == nil {
		return
	}

	if draft.Order != nil {
		itemData := make([]models.OrderItemData, 0, len(draft.Items))
		for _, item := range draft.Items {
			itemData = append(itemData, models.OrderItemData{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}
		event := &models.OrderCreatedEvent{
			BaseEvent:   newBaseEvent(models.EventTypeOrderCreated),
			OrderID:     draft.Order.ID,
			TotalAmount: draft.Order.TotalAmount,
			Items:       itemData,
		}
		if draft.Order.UserID != nil {
			event.UserID = *draft.Order.UserID
		}
		if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
		}
	}

	for _, product := range result.Depleted {
		util.StockDepletedTotal.Inc()
		event := &models.StockDepletedEvent{
			BaseEvent:   newBaseEvent(models.EventTypeStockDepleted),
			ProductID:   product.ID,
			ProductName: product.Name,
		}
		if err := s.publisher.PublishStockDepleted(ctx, event); err != nil {
			s.logger.Error("Failed to publish StockDepleted event", zap.Error(err))
		}
	}

	if result.CancelledSubscriptionID != "" && draft.Subscription != nil {
		event := &models.SubscriptionCancelledEvent{
			BaseEvent:      newBaseEvent(models.EventTypeSubscriptionCancelled),
			SubscriptionID: result.CancelledSubscriptionID,
			UserID:         draft.Subscription.UserID,
			Reason:         "plan_change",
		}
		if err := s.publisher.PublishSubscriptionCancelled(ctx, event); err != nil {
			s.logger.Error("Failed to publish SubscriptionCancelled event", zap.Error(err))
		}
	}

	if result.ActivatedSubscription != nil {
		event := &models.SubscriptionActivatedEvent{
			BaseEvent:      newBaseEvent(models.EventTypeSubscriptionActivated),
			SubscriptionID: result.ActivatedSubscription.ID,
			UserID:         result.ActivatedSubscription.UserID,
			PlanID:         result.ActivatedSubscription.PlanID,
		}
		if err := s.publisher.PublishSubscriptionActivated(ctx, event); err != nil {
			s.logger.Error("Failed to publish SubscriptionActivated event", zap.Error(err))
		}
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
