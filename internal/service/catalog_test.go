package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/santia053/cafe-suroeste/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalogStore struct {
	products []models.Product
	plans    []models.SubscriptionPlan
	reads    int
	err      error
}

func (f *fakeCatalogStore) GetPublishedProducts(ctx context.Context) ([]models.Product, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func (f *fakeCatalogStore) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	for i := range f.products {
		if f.products[i].ID == id {
			return &f.products[i], nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeCatalogStore) GetPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	return f.plans, nil
}

type fakeCatalogCache struct {
	payload []byte
	sets    int
}

func (f *fakeCatalogCache) GetCachedCatalog(ctx context.Context) ([]byte, bool, error) {
	if f.payload == nil {
		return nil, false, nil
	}
	return f.payload, true, nil
}

func (f *fakeCatalogCache) CacheCatalog(ctx context.Context, payload []byte, ttl time.Duration) error {
	f.payload = payload
	f.sets++
	return nil
}

func TestPublishedProductsFillsCacheOnMiss(t *testing.T) {
	fake := &fakeCatalogStore{products: []models.Product{
		{ID: "p1", Name: "Jericó Tradicional", Price: 38000, Stock: 10, Status: models.ProductStatusActive},
	}}
	cache := &fakeCatalogCache{}
	svc := NewCatalogService(fake, cache, time.Second, time.Minute)

	products, err := svc.PublishedProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 1, fake.reads)
	assert.Equal(t, 1, cache.sets)

	// second read is served from cache
	products, err = svc.PublishedProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Jericó Tradicional", products[0].Name)
	assert.Equal(t, 1, fake.reads)
}

func TestPublishedProductsDiscardsCorruptCacheEntry(t *testing.T) {
	fake := &fakeCatalogStore{products: []models.Product{{ID: "p1", Name: "Lote"}}}
	cache := &fakeCatalogCache{payload: []byte("{not json")}
	svc := NewCatalogService(fake, cache, time.Second, time.Minute)

	products, err := svc.PublishedProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 1, fake.reads, "a corrupt cache entry must fall through to the store")
	assert.Equal(t, 1, cache.sets, "the corrupt entry must be overwritten with a fresh one")
}

func TestPublishedProductsWorksWithoutCache(t *testing.T) {
	fake := &fakeCatalogStore{products: []models.Product{{ID: "p1"}}}
	svc := NewCatalogService(fake, nil, time.Second, time.Minute)

	products, err := svc.PublishedProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestPublishedProductsStoreError(t *testing.T) {
	fake := &fakeCatalogStore{err: errors.New("connection refused")}
	svc := NewCatalogService(fake, nil, time.Second, time.Minute)

	_, err := svc.PublishedProducts(context.Background())
	assert.Error(t, err)
}

func TestCatalogProductByID(t *testing.T) {
	fake := &fakeCatalogStore{products: []models.Product{{ID: "p1", Name: "Lote"}}}
	svc := NewCatalogService(fake, nil, time.Second, time.Minute)

	product, err := svc.Product(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Lote", product.Name)

	_, err = svc.Product(context.Background(), "missing")
	assert.Error(t, err)
}
