package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	CheckoutFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	CheckoutPriceMismatchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_price_mismatch_total",
		Help: "Total number of checkouts aborted on stale plan prices",
	})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of checkout commits",
		Buckets: prometheus.DefBuckets,
	})

	StockDepletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_depleted_total",
		Help: "Total number of products driven to zero stock by purchases",
	})

	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Total number of cart mutations",
	}, []string{"op"})

	CartRejectedAddsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_rejected_adds_total",
		Help: "Total number of add-to-cart attempts on sold-out products",
	})

	SubscriptionsActivatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subscriptions_activated_total",
		Help: "Total number of subscriptions activated",
	})

	SubscriptionsCancelledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscriptions_cancelled_total",
		Help: "Total number of subscriptions cancelled",
	}, []string{"reason"})

	PlanUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plan_updates_total",
		Help: "Total number of atomic plan updates",
	})

	CatalogCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_hits_total",
		Help: "Catalog cache lookups by outcome",
	}, []string{"outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
