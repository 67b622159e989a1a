package worker

import (
	"context"
	"log"

	"github.com/santia053/cafe-suroeste/internal/broker"
	"github.com/santia053/cafe-suroeste/internal/models"
	"github.com/santia053/cafe-suroeste/internal/util"

	"go.uber.org/zap"
)

// DedupStore tracks which events have been fully handled. Satisfied by the
// database store.
type DedupStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// CatalogInvalidator drops the cached catalog. Satisfied by the Redis client.
type CatalogInvalidator interface {
	InvalidateCatalog(ctx context.Context) error
}

// CacheWorker consumes store change events and drops the catalog cache so
// storefront reads pick up product and plan edits. Events are deduplicated
// through the processed_events table; an event is only marked processed
// after its invalidation succeeds, so a failed one is redelivered and retried.
type CacheWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        DedupStore
	cache        CatalogInvalidator
	logger       *zap.Logger
}

// NewCacheWorker creates a cache worker
func NewCacheWorker(consumer *broker.Consumer, db DedupStore, cache CatalogInvalidator) *CacheWorker {
	w := &CacheWorker{
		consumer: consumer,
		store:    db,
		cache:    cache,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnProductChanged(w.handleProductChanged)
	eventHandler.OnProductDeleted(w.handleProductDeleted)
	eventHandler.OnStockDepleted(w.handleStockDepleted)
	eventHandler.OnPlanUpdated(w.handlePlanUpdated)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *CacheWorker) Start(ctx context.Context) error {
	log.Println("Starting cache worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CacheWorker) Stop() error {
	log.Println("Stopping cache worker...")
	return w.consumer.Close()
}

func (w *CacheWorker) alreadyProcessed(ctx context.Context, event models.BaseEvent) (bool, error) {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return false, err
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
	}
	return processed, nil
}

func (w *CacheWorker) markProcessed(ctx context.Context, event models.BaseEvent) error {
	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *CacheWorker) invalidateCatalog(ctx context.Context) error {
	if err := w.cache.InvalidateCatalog(ctx); err != nil {
		w.logger.Error("Failed to invalidate catalog cache", zap.Error(err))
		return err
	}
	return nil
}

func (w *CacheWorker) handleProductChanged(ctx context.Context, event *models.ProductChangedEvent) error {
	if dup, err := w.alreadyProcessed(ctx, event.BaseEvent); dup || err != nil {
		return err
	}
	w.logger.Info("Product changed, refreshing catalog cache",
		zap.String("product_id", event.ProductID),
		zap.Int("stock", event.Stock),
		zap.String("status", event.Status))
	if err := w.invalidateCatalog(ctx); err != nil {
		return err
	}
	return w.markProcessed(ctx, event.BaseEvent)
}

func (w *CacheWorker) handleProductDeleted(ctx context.Context, event *models.ProductDeletedEvent) error {
	if dup, err := w.alreadyProcessed(ctx, event.BaseEvent); dup || err != nil {
		return err
	}
	if err := w.invalidateCatalog(ctx); err != nil {
		return err
	}
	return w.markProcessed(ctx, event.BaseEvent)
}

func (w *CacheWorker) handleStockDepleted(ctx context.Context, event *models.StockDepletedEvent) error {
	if dup, err := w.alreadyProcessed(ctx, event.BaseEvent); dup || err != nil {
		return err
	}
	w.logger.Warn("Product sold out",
		zap.String("product_id", event.ProductID),
		zap.String("name", event.ProductName))
	if err := w.invalidateCatalog(ctx); err != nil {
		return err
	}
	return w.markProcessed(ctx, event.BaseEvent)
}

func (w *CacheWorker) handlePlanUpdated(ctx context.Context, event *models.PlanUpdatedEvent) error {
	if dup, err := w.alreadyProcessed(ctx, event.BaseEvent); dup || err != nil {
		return err
	}
	w.logger.Info("Plan updated",
		zap.String("plan_id", event.PlanID),
		zap.Int64("price_monthly", event.PriceMonthly))
	if err := w.invalidateCatalog(ctx); err != nil {
		return err
	}
	return w.markProcessed(ctx, event.BaseEvent)
}
