package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/santia053/cafe-suroeste/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher publishes store change events. They take the place of the
// row-change notifications the storefront and admin UIs refresh from.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderCreated publishes OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	key := fmt.Sprintf("order-%s", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishProductChanged publishes ProductChanged event
func (ep *EventPublisher) PublishProductChanged(ctx context.Context, event *models.ProductChangedEvent) error {
	key := fmt.Sprintf("product-%s", event.ProductID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishProductDeleted publishes ProductDeleted event
func (ep *EventPublisher) PublishProductDeleted(ctx context.Context, event *models.ProductDeletedEvent) error {
	key := fmt.Sprintf("product-%s", event.ProductID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishStockDepleted publishes StockDepleted event
func (ep *EventPublisher) PublishStockDepleted(ctx context.Context, event *models.StockDepletedEvent) error {
	key := fmt.Sprintf("product-%s", event.ProductID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSubscriptionActivated publishes SubscriptionActivated event
func (ep *EventPublisher) PublishSubscriptionActivated(ctx context.Context, event *models.SubscriptionActivatedEvent) error {
	key := fmt.Sprintf("subscription-%s", event.SubscriptionID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSubscriptionCancelled publishes SubscriptionCancelled event
func (ep *EventPublisher) PublishSubscriptionCancelled(ctx context.Context, event *models.SubscriptionCancelledEvent) error {
	key := fmt.Sprintf("subscription-%s", event.SubscriptionID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPlanUpdated publishes PlanUpdated event
func (ep *EventPublisher) PublishPlanUpdated(ctx context.Context, event *models.PlanUpdatedEvent) error {
	key := fmt.Sprintf("plan-%s", event.PlanID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming change events to registered callbacks
type EventHandler struct {
	onProductChanged func(context.Context, *models.ProductChangedEvent) error
	onProductDeleted func(context.Context, *models.ProductDeletedEvent) error
	onStockDepleted  func(context.Context, *models.StockDepletedEvent) error
	onPlanUpdated    func(context.Context, *models.PlanUpdatedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnProductChanged registers a handler for ProductChanged events
func (eh *EventHandler) OnProductChanged(handler func(context.Context, *models.ProductChangedEvent) error) {
	eh.onProductChanged = handler
}

// OnProductDeleted registers a handler for ProductDeleted events
func (eh *EventHandler) OnProductDeleted(handler func(context.Context, *models.ProductDeletedEvent) error) {
	eh.onProductDeleted = handler
}

// OnStockDepleted registers a handler for StockDepleted events
func (eh *EventHandler) OnStockDepleted(handler func(context.Context, *models.StockDepletedEvent) error) {
	eh.onStockDepleted = handler
}

// OnPlanUpdated registers a handler for PlanUpdated events
func (eh *EventHandler) OnPlanUpdated(handler func(context.Context, *models.PlanUpdatedEvent) error) {
	eh.onPlanUpdated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeProductChanged:
		if eh.onProductChanged != nil {
			var event models.ProductChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ProductChanged event: %w", err)
			}
			return eh.onProductChanged(ctx, &event)
		}

	case models.EventTypeProductDeleted:
		if eh.onProductDeleted != nil {
			var event models.ProductDeletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ProductDeleted event: %w", err)
			}
			return eh.onProductDeleted(ctx, &event)
		}

	case models.EventTypeStockDepleted:
		if eh.onStockDepleted != nil {
			var event models.StockDepletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockDepleted event: %w", err)
			}
			return eh.onStockDepleted(ctx, &event)
		}

	case models.EventTypePlanUpdated:
		if eh.onPlanUpdated != nil {
			var event models.PlanUpdatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PlanUpdated event: %w", err)
			}
			return eh.onPlanUpdated(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
