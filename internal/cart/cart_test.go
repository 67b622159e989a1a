package cart

import (
	"context"
	"testing"

	"github.com/santia053/cafe-suroeste/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProduct(id string, price int64, stock int) *models.Product {
	return &models.Product{
		ID:     id,
		Name:   "Café " + id,
		Price:  price,
		Stock:  stock,
		Status: models.ProductStatusActive,
	}
}

func testPlan(id string, price int64) *models.SubscriptionPlan {
	return &models.SubscriptionPlan{ID: id, Name: "Barista", PriceMonthly: price}
}

func TestAddProductMergesInsteadOfDuplicating(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	product := testProduct("p1", 38000, 10)

	_, err := svc.AddProduct(ctx, "c1", product)
	require.NoError(t, err)
	lines, err := svc.AddProduct(ctx, "c1", product)
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestAddProductCapsAtStock(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	product := testProduct("p1", 38000, 2)

	var lines []models.CartLine
	var err error
	for i := 0; i < 5; i++ {
		lines, err = svc.AddProduct(ctx, "c1", product)
		require.NoError(t, err)
	}

	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestAddSoldOutProductIsNoop(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	soldOut := testProduct("p1", 38000, 0)
	soldOut.Status = models.ProductStatusSoldOut

	lines, err := svc.AddProduct(ctx, "c1", soldOut)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestSingleSubscriptionSlot(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.AddPlan(ctx, "c1", testPlan("plan-a", 45000))
	require.NoError(t, err)
	lines, err := svc.AddPlan(ctx, "c1", testPlan("plan-b", 65000))
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, "plan-b", lines[0].ID)
	assert.Equal(t, models.LineKindSubscription, lines[0].Kind)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestSubscriptionSlotKeepsProductLines(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, "c1", testProduct("p1", 38000, 10))
	require.NoError(t, err)
	_, err = svc.AddPlan(ctx, "c1", testPlan("plan-a", 45000))
	require.NoError(t, err)
	lines, err := svc.AddPlan(ctx, "c1", testPlan("plan-b", 65000))
	require.NoError(t, err)

	require.Len(t, lines, 2)
	assert.Equal(t, "p1", lines[0].ID)
	assert.Equal(t, "plan-b", lines[1].ID)
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, "c1", testProduct("p1", 38000, 10))
	require.NoError(t, err)

	_, err = svc.UpdateQuantity(ctx, "c1", "p1", 0)
	require.NoError(t, err)

	lines, err := svc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestUpdateQuantityIgnoredForSubscriptions(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.AddPlan(ctx, "c1", testPlan("plan-a", 45000))
	require.NoError(t, err)

	lines, err := svc.UpdateQuantity(ctx, "c1", "plan-a", 5)
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestSyncPricesRewritesInPlace(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.AddPlan(ctx, "c1", testPlan("plan-a", 45000))
	require.NoError(t, err)
	_, err = svc.AddProduct(ctx, "c1", testProduct("p1", 38000, 10))
	require.NoError(t, err)

	lines, err := svc.SyncPrices(ctx, "c1", []PriceUpdate{{ID: "plan-a", Price: 50000}})
	require.NoError(t, err)

	require.Len(t, lines, 2)
	for _, line := range lines {
		if line.ID == "plan-a" {
			assert.Equal(t, int64(50000), line.UnitPrice)
		} else {
			assert.Equal(t, int64(38000), line.UnitPrice)
		}
	}
}

func TestTotals(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	product := testProduct("p1", 38000, 10)
	_, err := svc.AddProduct(ctx, "c1", product)
	require.NoError(t, err)
	_, err = svc.AddProduct(ctx, "c1", product)
	require.NoError(t, err)
	lines, err := svc.AddPlan(ctx, "c1", testPlan("plan-a", 45000))
	require.NoError(t, err)

	assert.Equal(t, 3, TotalItems(lines))
	assert.Equal(t, int64(2*38000+45000), TotalPrice(lines))
}

func TestCartPersistsAcrossServiceInstances(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first := NewService(repo)
	_, err := first.AddProduct(ctx, "c1", testProduct("p1", 38000, 10))
	require.NoError(t, err)

	second := NewService(repo)
	lines, err := second.Get(ctx, "c1")
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].ID)
}

func TestClearEmptiesCart(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, "c1", testProduct("p1", 38000, 10))
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, "c1"))

	lines, err := svc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}
