package cart

import (
	"context"
	"fmt"

	"github.com/santia053/cafe-suroeste/internal/models"
	"github.com/santia053/cafe-suroeste/internal/util"

	"go.uber.org/zap"
)

// Repository persists the full line list of a cart. The in-memory
// implementation backs tests, the Redis implementation production.
type Repository interface {
	Load(ctx context.Context, cartID string) ([]models.CartLine, error)
	Save(ctx context.Context, cartID string, lines []models.CartLine) error
	Delete(ctx context.Context, cartID string) error
}

// PriceUpdate rewrites the cached price of one cart line.
type PriceUpdate struct {
	ID    string `json:"id"`
	Price int64  `json:"price"`
}

// Service holds the cart rules: merge-on-add, the single subscription
// slot, and stock-capped quantities. Every mutation persists the full
// line list before returning the new state.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a cart service over the given repository
func NewService(repo Repository) *Service {
	return &Service{
		repo:   repo,
		logger: util.GetLogger(),
	}
}

// Get returns the current lines of a cart
func (s *Service) Get(ctx context.Context, cartID string) ([]models.CartLine, error) {
	return s.repo.Load(ctx, cartID)
}

// AddProduct merges a product into the cart: an existing line gains one
// unit, capped at the product's current stock, otherwise a new line is
// appended at quantity 1. Sold-out products are ignored with a warning.
func (s *Service) AddProduct(ctx context.Context, cartID string, product *models.Product) ([]models.CartLine, error) {
	if !product.Purchasable() {
		s.logger.Warn("Attempted to add out-of-stock product",
			zap.String("cart_id", cartID),
			zap.String("product_id", product.ID),
			zap.String("name", product.Name))
		util.CartRejectedAddsTotal.Inc()
		return s.repo.Load(ctx, cartID)
	}

	lines, err := s.repo.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range lines {
		if lines[i].ID == product.ID && lines[i].Kind == models.LineKindProduct {
			if lines[i].Quantity < product.Stock {
				lines[i].Quantity++
			}
			lines[i].Stock = product.Stock
			merged = true
			break
		}
	}
	if !merged {
		lines = append(lines, models.CartLine{
			ID:        product.ID,
			Kind:      models.LineKindProduct,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  1,
			Stock:     product.Stock,
			ImageURL:  product.ImageURL,
		})
	}

	util.CartMutationsTotal.WithLabelValues("add_product").Inc()
	return lines, s.repo.Save(ctx, cartID, lines)
}

// AddPlan puts a subscription plan in the cart. A cart holds at most one
// subscription line: any prior one is evicted first, and the new line is
// pinned at quantity 1.
func (s *Service) AddPlan(ctx context.Context, cartID string, plan *models.SubscriptionPlan) ([]models.CartLine, error) {
	lines, err := s.repo.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	kept := lines[:0]
	for _, line := range lines {
		if line.Kind != models.LineKindSubscription {
			kept = append(kept, line)
		}
	}
	kept = append(kept, models.CartLine{
		ID:        plan.ID,
		Kind:      models.LineKindSubscription,
		Name:      fmt.Sprintf("Suscripción: %s", plan.Name),
		UnitPrice: plan.PriceMonthly,
		Quantity:  1,
	})

	util.CartMutationsTotal.WithLabelValues("add_plan").Inc()
	return kept, s.repo.Save(ctx, cartID, kept)
}

// RemoveItem drops the line with the given id, if present
func (s *Service) RemoveItem(ctx context.Context, cartID, id string) ([]models.CartLine, error) {
	lines, err := s.repo.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	kept := lines[:0]
	for _, line := range lines {
		if line.ID != id {
			kept = append(kept, line)
		}
	}

	util.CartMutationsTotal.WithLabelValues("remove").Inc()
	return kept, s.repo.Save(ctx, cartID, kept)
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes the line; subscription lines ignore quantity changes.
func (s *Service) UpdateQuantity(ctx context.Context, cartID, id string, quantity int) ([]models.CartLine, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, cartID, id)
	}

	lines, err := s.repo.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	for i := range lines {
		if lines[i].ID != id {
			continue
		}
		if lines[i].Kind == models.LineKindSubscription {
			return lines, nil
		}
		lines[i].Quantity = quantity
	}

	util.CartMutationsTotal.WithLabelValues("update_quantity").Inc()
	return lines, s.repo.Save(ctx, cartID, lines)
}

// SyncPrices overwrites cached prices of matching lines in place. Used to
// reconcile stale prices at checkout time without discarding the cart.
func (s *Service) SyncPrices(ctx context.Context, cartID string, updates []PriceUpdate) ([]models.CartLine, error) {
	lines, err := s.repo.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	for _, update := range updates {
		for i := range lines {
			if lines[i].ID == update.ID && lines[i].UnitPrice != update.Price {
				lines[i].UnitPrice = update.Price
			}
		}
	}

	util.CartMutationsTotal.WithLabelValues("sync_prices").Inc()
	return lines, s.repo.Save(ctx, cartID, lines)
}

// Clear empties the cart
func (s *Service) Clear(ctx context.Context, cartID string) error {
	util.CartMutationsTotal.WithLabelValues("clear").Inc()
	return s.repo.Delete(ctx, cartID)
}

// TotalItems sums the quantities of all lines
func TotalItems(lines []models.CartLine) int {
	total := 0
	for _, line := range lines {
		total += line.Quantity
	}
	return total
}

// TotalPrice sums price x quantity over all lines
func TotalPrice(lines []models.CartLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.Subtotal()
	}
	return total
}
