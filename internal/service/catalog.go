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

// CatalogStore is the read surface the catalog needs.
type CatalogStore interface {
	GetPublishedProducts(ctx context.Context) ([]models.Product, error)
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	GetPlans(ctx context.Context) ([]models.SubscriptionPlan, error)
}

// CatalogCache is the cache-aside surface, satisfied by the Redis client.
// nil disables caching.
type CatalogCache interface {
	GetCachedCatalog(ctx context.Context) ([]byte, bool, error)
	CacheCatalog(ctx context.Context, payload []byte, ttl time.Duration) error
}

// CatalogService serves the published storefront catalog and the plan
// listing. Reads carry a fixed timeout so a slow store degrades to an
// error instead of a hang.
type CatalogService struct {
	store    CatalogStore
	cache    CatalogCache
	timeout  time.Duration
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCatalogService creates a catalog service
func NewCatalogService(catalogStore CatalogStore, cache CatalogCache, timeout, cacheTTL time.Duration) *CatalogService {
	return &CatalogService{
		store:    catalogStore,
		cache:    cache,
		timeout:  timeout,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// PublishedProducts returns the catalog, serving from cache when warm.
func (s *CatalogService) PublishedProducts(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.PublishedProducts")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.cache != nil {
		payload, ok, err := s.cache.GetCachedCatalog(ctx)
		if err != nil {
			s.logger.Warn("Catalog cache read failed, falling back to store", zap.Error(err))
		} else if ok {
			var products []models.Product
			if decodeErr := json.Unmarshal(payload, &products); decodeErr != nil {
				s.logger.Warn("Discarding undecodable catalog cache entry", zap.Error(decodeErr))
			} else {
				util.CatalogCacheHitsTotal.WithLabelValues("hit").Inc()
				return products, nil
			}
		}
		util.CatalogCacheHitsTotal.WithLabelValues("miss").Inc()
	}

	products, err := s.store.GetPublishedProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	if s.cache != nil {
		if payload, err := json.Marshal(products); err == nil {
			if err := s.cache.CacheCatalog(ctx, payload, s.cacheTTL); err != nil {
				s.logger.Warn("Failed to cache catalog", zap.Error(err))
			}
		}
	}

	return products, nil
}

// Product returns a single product by id
func (s *CatalogService) Product(ctx context.Context, id string) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.store.GetProductByID(ctx, id)
}

// Plans returns the subscription plans ordered by monthly price
func (s *CatalogService) Plans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	plans, err := s.store.GetPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load plans: %w", err)
	}
	return plans, nil
}
