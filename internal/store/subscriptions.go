package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/santia053/cafe-suroeste/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetPlans retrieves subscription plans ordered by monthly price
func (s *Store) GetPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := s.db.SelectContext(ctx, &plans,
		"SELECT * FROM subscription_plans ORDER BY price_monthly ASC")
	return plans, err
}

// GetPlanByID retrieves a single subscription plan
func (s *Store) GetPlanByID(ctx context.Context, id string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	err := s.db.GetContext(ctx, &plan, "SELECT * FROM subscription_plans WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("plan not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetPlanPricesByIDs returns the authoritative monthly price per plan id.
// Used by the checkout price-validation pass.
func (s *Store) GetPlanPricesByIDs(ctx context.Context, ids []string) (map[string]int64, error) {
	if len(ids) == 0 {
		return map[string]int64{}, nil
	}

	query, args, err := sqlx.In("SELECT id, price_monthly FROM subscription_plans WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make(map[string]int64, len(ids))
	for rows.Next() {
		var id string
		var price int64
		if err := rows.Scan(&id, &price); err != nil {
			return nil, err
		}
		prices[id] = price
	}
	return prices, rows.Err()
}

// UpdatePlan applies the full plan field set in one statement. This is the
// atomic replacement for per-field read-modify-write plan edits.
func (s *Store) UpdatePlan(ctx context.Context, p *models.SubscriptionPlan) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscription_plans SET
			name = $1, price_monthly = $2, features = $3, description = $4,
			is_active = $5, is_popular = $6, updated_at = NOW()
		WHERE id = $7`,
		p.Name, p.PriceMonthly, p.Features, p.Description,
		p.IsActive, p.IsPopular, p.ID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("plan not found: %s", p.ID)
	}
	return nil
}

// GetActiveSubscription returns the user's ACTIVE subscription, or nil
func (s *Store) GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.GetContext(ctx, &sub,
		"SELECT * FROM subscriptions WHERE user_id = $1 AND status = $2",
		userID, models.SubscriptionStatusActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSubscriptionByID retrieves a subscription by ID
func (s *Store) GetSubscriptionByID(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.GetContext(ctx, &sub, "SELECT * FROM subscriptions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("subscription not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSubscriptions retrieves all subscriptions, newest first (admin view)
func (s *Store) GetSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.SelectContext(ctx, &subs, "SELECT * FROM subscriptions ORDER BY created_at DESC")
	return subs, err
}

// UpdateSubscriptionStatus moves a subscription between lifecycle states
func (s *Store) UpdateSubscriptionStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE subscriptions SET status = $1, updated_at = NOW() WHERE id = $2",
		status, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("subscription not found: %s", id)
	}
	return nil
}

// SetPendingPlan schedules a plan change for the next billing cycle
func (s *Store) SetPendingPlan(ctx context.Context, subscriptionID, planID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE subscriptions SET pending_plan_id = $1, updated_at = NOW() WHERE id = $2",
		planID, subscriptionID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("subscription not found: %s", subscriptionID)
	}
	return nil
}
