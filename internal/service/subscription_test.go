package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/santia053/cafe-suroeste/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscriptionStore struct {
	subs  map[string]*models.Subscription
	plans map[string]*models.SubscriptionPlan
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{
		subs:  map[string]*models.Subscription{},
		plans: map[string]*models.SubscriptionPlan{},
	}
}

func (f *fakeSubscriptionStore) GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	for _, sub := range f.subs {
		if sub.UserID == userID && sub.Status == models.SubscriptionStatusActive {
			return sub, nil
		}
	}
	return nil, nil
}

func (f *fakeSubscriptionStore) GetSubscriptionByID(ctx context.Context, id string) (*models.Subscription, error) {
	sub, ok := f.subs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return sub, nil
}

func (f *fakeSubscriptionStore) UpdateSubscriptionStatus(ctx context.Context, id, status string) error {
	sub, ok := f.subs[id]
	if !ok {
		return sql.ErrNoRows
	}
	sub.Status = status
	return nil
}

func (f *fakeSubscriptionStore) SetPendingPlan(ctx context.Context, subscriptionID, planID string) error {
	sub, ok := f.subs[subscriptionID]
	if !ok {
		return sql.ErrNoRows
	}
	sub.PendingPlanID = &planID
	return nil
}

func (f *fakeSubscriptionStore) GetPlanByID(ctx context.Context, id string) (*models.SubscriptionPlan, error) {
	plan, ok := f.plans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return plan, nil
}

// fakeStash mimics the one-shot GetDel semantics of the Redis stash.
type fakeStash struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeStash() *fakeStash {
	return &fakeStash{entries: map[string][]byte{}}
}

func (f *fakeStash) SetPendingSelection(ctx context.Context, token string, payload []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[token] = payload
	return nil
}

func (f *fakeStash) TakePendingSelection(ctx context.Context, token string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, ok := f.entries[token]
	if !ok {
		return nil, false, nil
	}
	delete(f.entries, token)
	return payload, true, nil
}

func newSubscriptionFixture() (*SubscriptionService, *fakeSubscriptionStore) {
	fake := newFakeSubscriptionStore()
	svc := NewSubscriptionService(fake, newFakeStash(), nil, 15*time.Minute)
	return svc, fake
}

func TestTogglePauseFlipsActiveAndPaused(t *testing.T) {
	svc, fake := newSubscriptionFixture()
	fake.subs["sub-1"] = &models.Subscription{ID: "sub-1", UserID: "u1", Status: models.SubscriptionStatusActive}

	status, err := svc.TogglePause(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusPaused, status)

	status, err = svc.TogglePause(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, status)
}

func TestTogglePauseRejectsCancelled(t *testing.T) {
	svc, fake := newSubscriptionFixture()
	fake.subs["sub-1"] = &models.Subscription{ID: "sub-1", Status: models.SubscriptionStatusCancelled}

	_, err := svc.TogglePause(context.Background(), "sub-1")
	require.Error(t, err)
	assert.Equal(t, models.SubscriptionStatusCancelled, fake.subs["sub-1"].Status)
}

func TestCancelIsIdempotent(t *testing.T) {
	svc, fake := newSubscriptionFixture()
	fake.subs["sub-1"] = &models.Subscription{ID: "sub-1", UserID: "u1", Status: models.SubscriptionStatusActive}

	require.NoError(t, svc.Cancel(context.Background(), "sub-1"))
	assert.Equal(t, models.SubscriptionStatusCancelled, fake.subs["sub-1"].Status)

	require.NoError(t, svc.Cancel(context.Background(), "sub-1"))
}

func TestScheduleUpgradeSetsPendingPlan(t *testing.T) {
	svc, fake := newSubscriptionFixture()
	fake.plans["plan-b"] = &models.SubscriptionPlan{ID: "plan-b", Name: "Maestro"}
	fake.subs["sub-1"] = &models.Subscription{ID: "sub-1", UserID: "u1", PlanID: "plan-a", Status: models.SubscriptionStatusActive}

	sub, err := svc.ScheduleUpgrade(context.Background(), "u1", "plan-b")
	require.NoError(t, err)

	require.NotNil(t, sub.PendingPlanID)
	assert.Equal(t, "plan-b", *sub.PendingPlanID)
	assert.Equal(t, "plan-a", sub.PlanID, "current plan stays until the next billing cycle")
}

func TestScheduleUpgradeRequiresActiveSubscription(t *testing.T) {
	svc, fake := newSubscriptionFixture()
	fake.plans["plan-b"] = &models.SubscriptionPlan{ID: "plan-b"}

	_, err := svc.ScheduleUpgrade(context.Background(), "u1", "plan-b")
	assert.Error(t, err)
}

func TestScheduleUpgradeRejectsSamePlan(t *testing.T) {
	svc, fake := newSubscriptionFixture()
	fake.plans["plan-a"] = &models.SubscriptionPlan{ID: "plan-a"}
	fake.subs["sub-1"] = &models.Subscription{ID: "sub-1", UserID: "u1", PlanID: "plan-a", Status: models.SubscriptionStatusActive}

	_, err := svc.ScheduleUpgrade(context.Background(), "u1", "plan-a")
	require.Error(t, err)
	assert.Nil(t, fake.subs["sub-1"].PendingPlanID)
}

func TestScheduleUpgradeUnknownPlan(t *testing.T) {
	svc, _ := newSubscriptionFixture()

	_, err := svc.ScheduleUpgrade(context.Background(), "u1", "missing")
	assert.Error(t, err)
}

func TestSelectionStashIsOneShot(t *testing.T) {
	svc, _ := newSubscriptionFixture()
	ctx := context.Background()

	require.NoError(t, svc.StashSelection(ctx, "tok-1", "plan-b"))

	selection, ok, err := svc.ClaimSelection(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "plan-b", selection.PlanID)

	_, ok, err = svc.ClaimSelection(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, ok, "a claimed selection must not be claimable twice")
}

func TestClaimSelectionMissingToken(t *testing.T) {
	svc, _ := newSubscriptionFixture()

	_, ok, err := svc.ClaimSelection(context.Background(), "never-stashed")
	require.NoError(t, err)
	assert.False(t, ok)
}
