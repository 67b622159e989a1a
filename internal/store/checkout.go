package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/santia053/cafe-suroeste/internal/models"

	"github.com/jmoiron/sqlx"
)

// StockDecrement is one product deduction inside a checkout commit.
type StockDecrement struct {
	ProductID string
	Quantity  int
}

// SubscriptionChange describes the subscription row a checkout should
// activate. The id is assigned by the caller.
type SubscriptionChange struct {
	ID              string
	UserID          string
	PlanID          string
	StartDate       time.Time
	NextBillingDate time.Time
}

// CheckoutDraft is the full write set of a checkout. Either everything in
// it commits or nothing does.
type CheckoutDraft struct {
	Order        *models.Order
	Items        []models.OrderItem
	Decrements   []StockDecrement
	Subscription *SubscriptionChange
}

// CheckoutResult reports what the commit actually did.
type CheckoutResult struct {
	Depleted                []models.Product
	ActivatedSubscription   *models.Subscription
	CancelledSubscriptionID string
	SubscriptionUnchanged   bool
}

// ErrInsufficientStock is returned when a conditional decrement would drive
// stock negative. The whole checkout rolls back.
type ErrInsufficientStock struct {
	ProductID string
	Requested int
}

func (e *ErrInsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d", e.ProductID, e.Requested)
}

// CommitCheckout applies a checkout draft in a single transaction: order
// row, item rows, conditional stock decrements with the zero-stock status
// flip, and the one-active-subscription swap.
func (s *Store) CommitCheckout(ctx context.Context, draft *CheckoutDraft) (*CheckoutResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result := &CheckoutResult{}

	if draft.Order != nil {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO orders (id, user_id, customer_email, shipping_address,
				total_amount, payment_status, order_status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at`,
			draft.Order.ID, draft.Order.UserID, draft.Order.CustomerEmail,
			draft.Order.ShippingAddress, draft.Order.TotalAmount,
			draft.Order.PaymentStatus, draft.Order.OrderStatus,
		).Scan(&draft.Order.CreatedAt, &draft.Order.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}

		for i := range draft.Items {
			item := &draft.Items[i]
			item.OrderID = draft.Order.ID
			err := tx.QueryRowxContext(ctx, `
				INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id`,
				item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice,
			).Scan(&item.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to create order item: %w", err)
			}
		}

		for _, dec := range draft.Decrements {
			depleted, product, err := decrementStockTx(ctx, tx, dec)
			if err != nil {
				return nil, err
			}
			if depleted {
				result.Depleted = append(result.Depleted, *product)
			}
		}
	}

	if draft.Subscription != nil {
		sub := draft.Subscription

		var existing models.Subscription
		err := tx.GetContext(ctx, &existing, `
			SELECT * FROM subscriptions
			WHERE user_id = $1 AND status = $2
			FOR UPDATE`,
			sub.UserID, models.SubscriptionStatusActive)
		switch {
		case err == sql.ErrNoRows:
			// no active subscription, activate below
		case err != nil:
			return nil, fmt.Errorf("failed to look up active subscription: %w", err)
		case existing.PlanID == sub.PlanID:
			// already on this exact plan, leave it alone
			result.SubscriptionUnchanged = true
		default:
			_, err := tx.ExecContext(ctx,
				"UPDATE subscriptions SET status = $1, updated_at = NOW() WHERE id = $2",
				models.SubscriptionStatusCancelled, existing.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to cancel prior subscription: %w", err)
			}
			result.CancelledSubscriptionID = existing.ID
		}

		if !result.SubscriptionUnchanged {
			created := &models.Subscription{
				ID:              sub.ID,
				UserID:          sub.UserID,
				PlanID:          sub.PlanID,
				Status:          models.SubscriptionStatusActive,
				StartDate:       sub.StartDate,
				NextBillingDate: sub.NextBillingDate,
			}
			err := tx.QueryRowxContext(ctx, `
				INSERT INTO subscriptions (id, user_id, plan_id, status, start_date, next_billing_date)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING created_at, updated_at`,
				created.ID, created.UserID, created.PlanID, created.Status,
				created.StartDate, created.NextBillingDate,
			).Scan(&created.CreatedAt, &created.UpdatedAt)
			if err != nil {
				return nil, fmt.Errorf("failed to activate subscription: %w", err)
			}
			result.ActivatedSubscription = created
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// decrementStockTx applies one conditional decrement. The WHERE guard
// rejects the purchase instead of clamping stock negative.
func decrementStockTx(ctx context.Context, tx *sqlx.Tx, dec StockDecrement) (bool, *models.Product, error) {
	var product models.Product
	err := tx.QueryRowxContext(ctx, `
		UPDATE products
		SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1
		RETURNING id, name, stock, status`,
		dec.Quantity, dec.ProductID,
	).Scan(&product.ID, &product.Name, &product.Stock, &product.Status)
	if err == sql.ErrNoRows {
		return false, nil, &ErrInsufficientStock{ProductID: dec.ProductID, Requested: dec.Quantity}
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to decrement stock for %s: %w", dec.ProductID, err)
	}

	if product.Stock > 0 || product.Status == models.ProductStatusPaused {
		return false, &product, nil
	}

	product.Status = models.ProductStatusSoldOut
	product.IsPublished = false
	_, err = tx.ExecContext(ctx,
		"UPDATE products SET status = $1, is_published = FALSE, updated_at = NOW() WHERE id = $2",
		product.Status, product.ID)
	if err != nil {
		return false, nil, fmt.Errorf("failed to mark product sold out: %w", err)
	}
	return true, &product, nil
}
