package service

import (
	"context"
	"fmt"

	"github.com/santia053/cafe-suroeste/internal/models"
	"github.com/santia053/cafe-suroeste/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminStore is the store surface the back-office needs.
type AdminStore interface {
	GetAllProducts(ctx context.Context) ([]models.Product, error)
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error

	GetOrders(ctx context.Context) ([]models.Order, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
	UpdatePaymentStatus(ctx context.Context, orderID, status string) error

	GetPlanByID(ctx context.Context, id string) (*models.SubscriptionPlan, error)
	UpdatePlan(ctx context.Context, p *models.SubscriptionPlan) error
	GetSubscriptions(ctx context.Context) ([]models.Subscription, error)
}

// AdminService is the back-office reconciler: product CRUD with the
// zero-stock rule applied before every write, order status moves, and
// atomic plan edits.
type AdminService struct {
	store     AdminStore
	publisher ChangePublisher
	logger    *zap.Logger
}

// NewAdminService creates an admin service
func NewAdminService(adminStore AdminStore, publisher ChangePublisher) *AdminService {
	return &AdminService{
		store:     adminStore,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// ProductInput is the full product field set submitted by the back-office.
type ProductInput struct {
	ID                 string   `json:"id,omitempty"`
	Name               string   `json:"name" binding:"required"`
	OriginFarm         string   `json:"origin_farm"`
	OriginMunicipality string   `json:"origin_municipality"`
	OriginAltitude     int      `json:"origin_altitude"`
	Variety            string   `json:"variety"`
	Process            string   `json:"process"`
	RoastLevel         string   `json:"roast_level"`
	TastingNotes       []string `json:"tasting_notes"`
	Description        string   `json:"description"`
	Price              int64    `json:"price" binding:"required"`
	Stock              int      `json:"stock"`
	Gramaje            int      `json:"gramaje"`
	Status             string   `json:"status"`
	ImageURL           string   `json:"image_url"`
}

// SaveProduct creates or updates a product. Status and publication are
// recomputed from the submitted stock before the row is written.
func (s *AdminService) SaveProduct(ctx context.Context, input *ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.SaveProduct")
	defer span.End()

	product := &models.Product{
		ID:                 input.ID,
		Name:               input.Name,
		OriginFarm:         input.OriginFarm,
		OriginMunicipality: input.OriginMunicipality,
		OriginAltitude:     input.OriginAltitude,
		Variety:            input.Variety,
		Process:            input.Process,
		RoastLevel:         input.RoastLevel,
		TastingNotes:       input.TastingNotes,
		Description:        input.Description,
		Price:              input.Price,
		Stock:              input.Stock,
		Gramaje:            input.Gramaje,
		Status:             input.Status,
		ImageURL:           input.ImageURL,
	}
	if product.Gramaje == 0 {
		product.Gramaje = 340
	}
	product.Normalize()

	if product.ID == "" {
		product.ID = uuid.New().String()
		if err := s.store.CreateProduct(ctx, product); err != nil {
			return nil, fmt.Errorf("failed to create product: %w", err)
		}
		s.logger.Info("Product created", zap.String("product_id", product.ID))
	} else {
		if err := s.store.UpdateProduct(ctx, product); err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
		s.logger.Info("Product updated", zap.String("product_id", product.ID))
	}

	s.publishProductChanged(ctx, product)
	return product, nil
}

// DeleteProduct removes a product. This is the only deletion path.
func (s *AdminService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Product deleted", zap.String("product_id", id))
	if s.publisher != nil {
		event := &models.ProductDeletedEvent{
			BaseEvent: newBaseEvent(models.EventTypeProductDeleted),
			ProductID: id,
		}
		if err := s.publisher.PublishProductDeleted(ctx, event); err != nil {
			s.logger.Error("Failed to publish ProductDeleted event", zap.Error(err))
		}
	}
	return nil
}

// Products returns every product, paused ones included
func (s *AdminService) Products(ctx context.Context) ([]models.Product, error) {
	return s.store.GetAllProducts(ctx)
}

// Orders returns all orders, newest first
func (s *AdminService) Orders(ctx context.Context) ([]models.Order, error) {
	return s.store.GetOrders(ctx)
}

// Order returns one order with its items
func (s *AdminService) Order(ctx context.Context, id string) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.store.GetOrderItemsByOrderID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}

// Subscriptions returns all subscription rows, newest first
func (s *AdminService) Subscriptions(ctx context.Context) ([]models.Subscription, error) {
	return s.store.GetSubscriptions(ctx)
}

// UpdateOrderStatus moves an order to any status in the enum. There is no
// transition graph; the back-office may move orders freely.
func (s *AdminService) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	if !models.ValidOrderStatus(status) {
		return fmt.Errorf("invalid order status: %s", status)
	}
	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return err
	}
	s.logger.Info("Order status updated",
		zap.String("order_id", orderID), zap.String("status", status))
	return nil
}

// UpdatePaymentStatus sets the payment status of an order
func (s *AdminService) UpdatePaymentStatus(ctx context.Context, orderID, status string) error {
	if !models.ValidPaymentStatus(status) {
		return fmt.Errorf("invalid payment status: %s", status)
	}
	return s.store.UpdatePaymentStatus(ctx, orderID, status)
}

// PlanInput is the full plan field set applied in one atomic update.
type PlanInput struct {
	Name         string   `json:"name" binding:"required"`
	PriceMonthly int64    `json:"price_monthly" binding:"required"`
	Features     []string `json:"features"`
	Description  string   `json:"description"`
	IsActive     bool     `json:"is_active"`
	IsPopular    bool     `json:"is_popular"`
}

// UpdatePlan applies the full field set to a plan in a single statement,
// so concurrent edits cannot interleave per field.
func (s *AdminService) UpdatePlan(ctx context.Context, planID string, input *PlanInput) (*models.SubscriptionPlan, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.UpdatePlan")
	defer span.End()

	plan := &models.SubscriptionPlan{
		ID:           planID,
		Name:         input.Name,
		PriceMonthly: input.PriceMonthly,
		Features:     input.Features,
		Description:  input.Description,
		IsActive:     input.IsActive,
		IsPopular:    input.IsPopular,
	}

	if err := s.store.UpdatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to update plan: %w", err)
	}

	util.PlanUpdatesTotal.Inc()
	s.logger.Info("Plan updated",
		zap.String("plan_id", planID),
		zap.Int64("price_monthly", input.PriceMonthly))

	if s.publisher != nil {
		event := &models.PlanUpdatedEvent{
			BaseEvent:    newBaseEvent(models.EventTypePlanUpdated),
			PlanID:       planID,
			PriceMonthly: input.PriceMonthly,
		}
		if err := s.publisher.PublishPlanUpdated(ctx, event); err != nil {
			s.logger.Error("Failed to publish PlanUpdated event", zap.Error(err))
		}
	}

	return s.store.GetPlanByID(ctx, planID)
}

func (s *AdminService) publishProductChanged(ctx context.Context, product *models.Product) {
	if s.publisher == nil {
		return
	}
	event := &models.ProductChangedEvent{
		BaseEvent: newBaseEvent(models.EventTypeProductChanged),
		ProductID: product.ID,
		Stock:     product.Stock,
		Status:    product.Status,
	}
	if err := s.publisher.PublishProductChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish ProductChanged event", zap.Error(err))
	}
}
