package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeZeroStock(t *testing.T) {
	p := &Product{Status: ProductStatusActive, Stock: 0}
	p.Normalize()

	assert.Equal(t, ProductStatusSoldOut, p.Status)
	assert.False(t, p.IsPublished)
}

func TestNormalizePausedStaysPaused(t *testing.T) {
	p := &Product{Status: ProductStatusPaused, Stock: 0}
	p.Normalize()

	assert.Equal(t, ProductStatusPaused, p.Status)
	assert.False(t, p.IsPublished)
}

func TestNormalizeRestockReactivates(t *testing.T) {
	p := &Product{Status: ProductStatusSoldOut, Stock: 10}
	p.Normalize()

	assert.Equal(t, ProductStatusActive, p.Status)
	assert.True(t, p.IsPublished)
}

func TestNormalizeNegativeStockClamps(t *testing.T) {
	p := &Product{Status: ProductStatusActive, Stock: -3}
	p.Normalize()

	assert.Equal(t, 0, p.Stock)
	assert.Equal(t, ProductStatusSoldOut, p.Status)
}

func TestNormalizeDefaultsEmptyStatus(t *testing.T) {
	p := &Product{Stock: 5}
	p.Normalize()

	assert.Equal(t, ProductStatusActive, p.Status)
	assert.True(t, p.IsPublished)
}

func TestPurchasable(t *testing.T) {
	assert.True(t, (&Product{Status: ProductStatusActive, Stock: 1}).Purchasable())
	assert.False(t, (&Product{Status: ProductStatusSoldOut, Stock: 0}).Purchasable())
	assert.False(t, (&Product{Status: ProductStatusActive, Stock: 0}).Purchasable())
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []string{
		OrderStatusReceived, OrderStatusPreparing, OrderStatusOnTheWay,
		OrderStatusDelivered, OrderStatusCancelled,
	} {
		assert.True(t, ValidOrderStatus(s), s)
	}
	assert.False(t, ValidOrderStatus("SHIPPED"))
	assert.False(t, ValidOrderStatus(""))
}

func TestCartLineSubtotal(t *testing.T) {
	line := CartLine{UnitPrice: 38000, Quantity: 2}
	assert.Equal(t, int64(76000), line.Subtotal())
}
