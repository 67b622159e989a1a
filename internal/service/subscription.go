package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santia053/cafe-suroeste/internal/models"
	"github.com/santia053/cafe-suroeste/internal/util"

	"go.uber.org/zap"
)

// SubscriptionStore is the store surface subscription management needs.
type SubscriptionStore interface {
	GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	GetSubscriptionByID(ctx context.Context, id string) (*models.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, id, status string) error
	SetPendingPlan(ctx context.Context, subscriptionID, planID string) error
	GetPlanByID(ctx context.Context, id string) (*models.SubscriptionPlan, error)
}

// SelectionStash holds a plan selection across the login redirect,
// one-shot. Satisfied by the Redis client.
type SelectionStash interface {
	SetPendingSelection(ctx context.Context, token string, payload []byte, ttl time.Duration) error
	TakePendingSelection(ctx context.Context, token string) ([]byte, bool, error)
}

// SubscriptionService manages existing subscriptions: the pause toggle,
// scheduled plan changes, and the pre-login plan selection handoff.
// Activation itself happens inside checkout.
type SubscriptionService struct {
	store     SubscriptionStore
	stash     SelectionStash
	publisher ChangePublisher
	stashTTL  time.Duration
	logger    *zap.Logger
}

// NewSubscriptionService creates a subscription service
func NewSubscriptionService(subStore SubscriptionStore, stash SelectionStash, publisher ChangePublisher, stashTTL time.Duration) *SubscriptionService {
	return &SubscriptionService{
		store:     subStore,
		stash:     stash,
		publisher: publisher,
		stashTTL:  stashTTL,
		logger:    util.GetLogger(),
	}
}

// ActiveSubscription returns the user's ACTIVE subscription, or nil
func (s *SubscriptionService) ActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	return s.store.GetActiveSubscription(ctx, userID)
}

// TogglePause flips a subscription between ACTIVE and PAUSED. Cancelled
// and expired subscriptions stay where they are.
func (s *SubscriptionService) TogglePause(ctx context.Context, subscriptionID string) (string, error) {
	sub, err := s.store.GetSubscriptionByID(ctx, subscriptionID)
	if err != nil {
		return "", err
	}

	var newStatus string
	switch sub.Status {
	case models.SubscriptionStatusActive:
		newStatus = models.SubscriptionStatusPaused
	case models.SubscriptionStatusPaused:
		newStatus = models.SubscriptionStatusActive
	default:
		return "", fmt.Errorf("subscription %s is %s and cannot be paused or resumed", subscriptionID, sub.Status)
	}

	if err := s.store.UpdateSubscriptionStatus(ctx, subscriptionID, newStatus); err != nil {
		return "", err
	}

	s.logger.Info("Subscription pause toggled",
		zap.String("subscription_id", subscriptionID),
		zap.String("status", newStatus))
	return newStatus, nil
}

// Cancel marks a subscription CANCELLED
func (s *SubscriptionService) Cancel(ctx context.Context, subscriptionID string) error {
	sub, err := s.store.GetSubscriptionByID(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.Status == models.SubscriptionStatusCancelled {
		return nil
	}

	if err := s.store.UpdateSubscriptionStatus(ctx, subscriptionID, models.SubscriptionStatusCancelled); err != nil {
		return err
	}

	util.SubscriptionsCancelledTotal.WithLabelValues("user_request").Inc()
	if s.publisher != nil {
		event := &models.SubscriptionCancelledEvent{
			BaseEvent:      newBaseEvent(models.EventTypeSubscriptionCancelled),
			SubscriptionID: subscriptionID,
			UserID:         sub.UserID,
			Reason:         "user_request",
		}
		if err := s.publisher.PublishSubscriptionCancelled(ctx, event); err != nil {
			s.logger.Error("Failed to publish SubscriptionCancelled event", zap.Error(err))
		}
	}
	return nil
}

// ScheduleUpgrade records a plan change on the user's ACTIVE subscription,
// applied at the next billing cycle rather than immediately.
func (s *SubscriptionService) ScheduleUpgrade(ctx context.Context, userID, planID string) (*models.Subscription, error) {
	if _, err := s.store.GetPlanByID(ctx, planID); err != nil {
		return nil, err
	}

	sub, err := s.store.GetActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, fmt.Errorf("user %s has no active subscription to upgrade", userID)
	}
	if sub.PlanID == planID {
		return nil, fmt.Errorf("subscription %s is already on plan %s", sub.ID, planID)
	}

	if err := s.store.SetPendingPlan(ctx, sub.ID, planID); err != nil {
		return nil, fmt.Errorf("failed to schedule plan change: %w", err)
	}

	sub.PendingPlanID = &planID
	s.logger.Info("Plan change scheduled",
		zap.String("subscription_id", sub.ID),
		zap.String("pending_plan_id", planID),
		zap.Time("effective", sub.NextBillingDate))
	return sub, nil
}

// PendingSelection is a plan picked before login, parked until the user
// returns from the auth redirect.
type PendingSelection struct {
	PlanID string `json:"plan_id"`
}

// StashSelection parks a plan selection under a caller-supplied token
func (s *SubscriptionService) StashSelection(ctx context.Context, token, planID string) error {
	payload, err := json.Marshal(PendingSelection{PlanID: planID})
	if err != nil {
		return err
	}
	return s.stash.SetPendingSelection(ctx, token, payload, s.stashTTL)
}

// ClaimSelection retrieves and deletes a parked selection. The second
// return is false when nothing was parked or it already expired.
func (s *SubscriptionService) ClaimSelection(ctx context.Context, token string) (*PendingSelection, bool, error) {
	payload, ok, err := s.stash.TakePendingSelection(ctx, token)
	if err != nil || !ok {
		return nil, false, err
	}

	var selection PendingSelection
	if err := json.Unmarshal(payload, &selection); err != nil {
		return nil, false, fmt.Errorf("failed to decode pending selection: %w", err)
	}
	return &selection, true, nil
}
