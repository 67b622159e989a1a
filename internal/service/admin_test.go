package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/santia053/cafe-suroeste/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdminStore struct {
	products map[string]*models.Product
	orders   map[string]*models.Order
	plans    map[string]*models.SubscriptionPlan
}

func newFakeAdminStore() *fakeAdminStore {
	return &fakeAdminStore{
		products: map[string]*models.Product{},
		orders:   map[string]*models.Order{},
		plans:    map[string]*models.SubscriptionPlan{},
	}
}

func (f *fakeAdminStore) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeAdminStore) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *p
	return &copied, nil
}

func (f *fakeAdminStore) CreateProduct(ctx context.Context, p *models.Product) error {
	copied := *p
	f.products[p.ID] = &copied
	return nil
}

func (f *fakeAdminStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	if _, ok := f.products[p.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *p
	f.products[p.ID] = &copied
	return nil
}

func (f *fakeAdminStore) DeleteProduct(ctx context.Context, id string) error {
	delete(f.products, id)
	return nil
}

func (f *fakeAdminStore) GetOrders(ctx context.Context) ([]models.Order, error) { return nil, nil }

func (f *fakeAdminStore) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return o, nil
}

func (f *fakeAdminStore) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	return nil, nil
}

func (f *fakeAdminStore) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	o, ok := f.orders[orderID]
	if !ok {
		return sql.ErrNoRows
	}
	o.OrderStatus = status
	return nil
}

func (f *fakeAdminStore) UpdatePaymentStatus(ctx context.Context, orderID, status string) error {
	o, ok := f.orders[orderID]
	if !ok {
		return sql.ErrNoRows
	}
	o.PaymentStatus = status
	return nil
}

func (f *fakeAdminStore) GetPlanByID(ctx context.Context, id string) (*models.SubscriptionPlan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *p
	return &copied, nil
}

func (f *fakeAdminStore) UpdatePlan(ctx context.Context, p *models.SubscriptionPlan) error {
	if _, ok := f.plans[p.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *p
	f.plans[p.ID] = &copied
	return nil
}

func (f *fakeAdminStore) GetSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	return nil, nil
}

func TestSaveProductCreatesWithNormalizedStatus(t *testing.T) {
	fake := newFakeAdminStore()
	svc := NewAdminService(fake, nil)

	product, err := svc.SaveProduct(context.Background(), &ProductInput{
		Name:  "Nuevo Lote",
		Price: 42000,
		Stock: 0,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, product.ID)
	assert.Equal(t, models.ProductStatusSoldOut, product.Status)
	assert.False(t, product.IsPublished)
	assert.Equal(t, 340, product.Gramaje)
	assert.Contains(t, fake.products, product.ID)
}

func TestSaveProductUpdateRestocksSoldOut(t *testing.T) {
	fake := newFakeAdminStore()
	fake.products["p1"] = &models.Product{ID: "p1", Name: "Lote", Status: models.ProductStatusSoldOut}
	svc := NewAdminService(fake, nil)

	product, err := svc.SaveProduct(context.Background(), &ProductInput{
		ID:     "p1",
		Name:   "Lote",
		Price:  42000,
		Stock:  10,
		Status: models.ProductStatusSoldOut,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ProductStatusActive, product.Status)
	assert.True(t, product.IsPublished)
}

func TestSaveProductPausedStaysPausedAtZeroStock(t *testing.T) {
	fake := newFakeAdminStore()
	fake.products["p1"] = &models.Product{ID: "p1"}
	svc := NewAdminService(fake, nil)

	product, err := svc.SaveProduct(context.Background(), &ProductInput{
		ID:     "p1",
		Name:   "Lote",
		Price:  42000,
		Stock:  0,
		Status: models.ProductStatusPaused,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ProductStatusPaused, product.Status)
	assert.False(t, product.IsPublished)
}

func TestUpdateOrderStatusRejectsUnknownStatus(t *testing.T) {
	fake := newFakeAdminStore()
	fake.orders["o1"] = &models.Order{ID: "o1", OrderStatus: models.OrderStatusReceived}
	svc := NewAdminService(fake, nil)

	err := svc.UpdateOrderStatus(context.Background(), "o1", "SHIPPED")
	require.Error(t, err)
	assert.Equal(t, models.OrderStatusReceived, fake.orders["o1"].OrderStatus)
}

func TestUpdateOrderStatusAllowsAnyDirection(t *testing.T) {
	fake := newFakeAdminStore()
	fake.orders["o1"] = &models.Order{ID: "o1", OrderStatus: models.OrderStatusDelivered}
	svc := NewAdminService(fake, nil)

	// no transition graph: the back-office may move orders backwards
	err := svc.UpdateOrderStatus(context.Background(), "o1", models.OrderStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPreparing, fake.orders["o1"].OrderStatus)
}

func TestUpdatePaymentStatus(t *testing.T) {
	fake := newFakeAdminStore()
	fake.orders["o1"] = &models.Order{ID: "o1", PaymentStatus: models.PaymentStatusPending}
	svc := NewAdminService(fake, nil)

	require.NoError(t, svc.UpdatePaymentStatus(context.Background(), "o1", models.PaymentStatusApproved))
	assert.Equal(t, models.PaymentStatusApproved, fake.orders["o1"].PaymentStatus)

	assert.Error(t, svc.UpdatePaymentStatus(context.Background(), "o1", "REFUNDED"))
}

func TestUpdatePlanAppliesFullFieldSet(t *testing.T) {
	fake := newFakeAdminStore()
	fake.plans["plan-a"] = &models.SubscriptionPlan{
		ID:           "plan-a",
		Name:         "Explorador",
		PriceMonthly: 45000,
		IsPopular:    true,
	}
	svc := NewAdminService(fake, nil)

	plan, err := svc.UpdatePlan(context.Background(), "plan-a", &PlanInput{
		Name:         "Explorador Plus",
		PriceMonthly: 52000,
		Features:     []string{"2 bolsas de 340g"},
		IsActive:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Explorador Plus", plan.Name)
	assert.Equal(t, int64(52000), plan.PriceMonthly)
	// omitted fields are overwritten, not preserved
	assert.False(t, plan.IsPopular)
}

func TestUpdatePlanUnknownPlan(t *testing.T) {
	svc := NewAdminService(newFakeAdminStore(), nil)

	_, err := svc.UpdatePlan(context.Background(), "missing", &PlanInput{Name: "X", PriceMonthly: 1})
	assert.Error(t, err)
}
