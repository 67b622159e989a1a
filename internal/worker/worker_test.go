package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/santia053/cafe-suroeste/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDedupStore struct {
	processed map[string]bool
}

func newFakeDedupStore() *fakeDedupStore {
	return &fakeDedupStore{processed: map[string]bool{}}
}

func (f *fakeDedupStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	return f.processed[eventID], nil
}

func (f *fakeDedupStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	f.processed[eventID] = true
	return nil
}

type fakeInvalidator struct {
	calls    int
	failNext bool
}

func (f *fakeInvalidator) InvalidateCatalog(ctx context.Context) error {
	f.calls++
	if f.failNext {
		f.failNext = false
		return errors.New("connection refused")
	}
	return nil
}

func productChangedEvent(id string) *models.ProductChangedEvent {
	return &models.ProductChangedEvent{
		BaseEvent: models.BaseEvent{EventID: id, EventType: models.EventTypeProductChanged},
		ProductID: "p1",
		Stock:     5,
		Status:    models.ProductStatusActive,
	}
}

func TestHandleProductChangedMarksAfterInvalidation(t *testing.T) {
	dedup := newFakeDedupStore()
	cache := &fakeInvalidator{}
	w := NewCacheWorker(nil, dedup, cache)

	err := w.handleProductChanged(context.Background(), productChangedEvent("e1"))
	require.NoError(t, err)

	assert.Equal(t, 1, cache.calls)
	assert.True(t, dedup.processed["e1"])
}

func TestFailedInvalidationIsRetriedOnRedelivery(t *testing.T) {
	dedup := newFakeDedupStore()
	cache := &fakeInvalidator{failNext: true}
	w := NewCacheWorker(nil, dedup, cache)
	ctx := context.Background()

	// first delivery: invalidation fails, the event must stay unmarked so
	// the broker redelivers it
	err := w.handleProductChanged(ctx, productChangedEvent("e1"))
	require.Error(t, err)
	assert.False(t, dedup.processed["e1"])

	// redelivery succeeds and only then marks the event
	err = w.handleProductChanged(ctx, productChangedEvent("e1"))
	require.NoError(t, err)
	assert.Equal(t, 2, cache.calls)
	assert.True(t, dedup.processed["e1"])
}

func TestDuplicateEventSkipsInvalidation(t *testing.T) {
	dedup := newFakeDedupStore()
	cache := &fakeInvalidator{}
	w := NewCacheWorker(nil, dedup, cache)
	ctx := context.Background()

	require.NoError(t, w.handleProductChanged(ctx, productChangedEvent("e1")))
	require.NoError(t, w.handleProductChanged(ctx, productChangedEvent("e1")))

	assert.Equal(t, 1, cache.calls)
}

func TestPlanUpdatedInvalidatesCatalog(t *testing.T) {
	dedup := newFakeDedupStore()
	cache := &fakeInvalidator{}
	w := NewCacheWorker(nil, dedup, cache)

	event := &models.PlanUpdatedEvent{
		BaseEvent:    models.BaseEvent{EventID: "e2", EventType: models.EventTypePlanUpdated},
		PlanID:       "plan-a",
		PriceMonthly: 52000,
	}
	require.NoError(t, w.handlePlanUpdated(context.Background(), event))

	assert.Equal(t, 1, cache.calls)
	assert.True(t, dedup.processed["e2"])
}
