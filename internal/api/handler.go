package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/santia053/cafe-suroeste/internal/cart"
	"github.com/santia053/cafe-suroeste/internal/models"
	"github.com/santia053/cafe-suroeste/internal/service"
	"github.com/santia053/cafe-suroeste/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	catalog       *service.CatalogService
	carts         *cart.Service
	checkout      *service.CheckoutService
	subscriptions *service.SubscriptionService
	admin         *service.AdminService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *service.CatalogService,
	carts *cart.Service,
	checkout *service.CheckoutService,
	subscriptions *service.SubscriptionService,
	admin *service.AdminService,
) *Handler {
	return &Handler{
		catalog:       catalog,
		carts:         carts,
		checkout:      checkout,
		subscriptions: subscriptions,
		admin:         admin,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/catalog", h.listCatalog)
		v1.GET("/catalog/:id", h.getProduct)
		v1.GET("/plans", h.listPlans)

		v1.GET("/carts/:cartID", h.getCart)
		v1.POST("/carts/:cartID/products/:productID", h.addProductToCart)
		v1.POST("/carts/:cartID/plans/:planID", h.addPlanToCart)
		v1.PATCH("/carts/:cartID/items/:itemID", h.updateCartQuantity)
		v1.DELETE("/carts/:cartID/items/:itemID", h.removeCartItem)
		v1.DELETE("/carts/:cartID", h.clearCart)

		v1.POST("/checkout", h.doCheckout)

		v1.GET("/me/orders", h.getMyOrders)
		v1.GET("/me/subscription", h.getMySubscription)
		v1.POST("/subscriptions/:id/toggle-pause", h.togglePause)
		v1.DELETE("/subscriptions/:id", h.cancelSubscription)
		v1.POST("/subscriptions/upgrade", h.scheduleUpgrade)

		v1.POST("/pending-selection", h.stashSelection)
		v1.POST("/pending-selection/:token/claim", h.claimSelection)

		admin := v1.Group("/admin")
		{
			admin.GET("/products", h.adminListProducts)
			admin.POST("/products", h.adminSaveProduct)
			admin.DELETE("/products/:id", h.adminDeleteProduct)
			admin.GET("/orders", h.adminListOrders)
			admin.GET("/orders/:id", h.adminGetOrder)
			admin.PATCH("/orders/:id/status", h.adminUpdateOrderStatus)
			admin.PATCH("/orders/:id/payment", h.adminUpdatePaymentStatus)
			admin.GET("/subscriptions", h.adminListSubscriptions)
			admin.PUT("/plans/:id", h.adminUpdatePlan)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// currentUserID returns the opaque identity supplied by the auth layer,
// or nil for guests.
func currentUserID(c *gin.Context) *string {
	if id := c.GetHeader("X-User-ID"); id != "" {
		return &id
	}
	return nil
}

func (h *Handler) listCatalog(c *gin.Context) {
	products, err := h.catalog.PublishedProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load catalog",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.Product(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Product not found",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) listPlans(c *gin.Context) {
	plans, err := h.catalog.Plans(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load plans",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (h *Handler) getCart(c *gin.Context) {
	lines, err := h.carts.Get(c.Request.Context(), c.Param("cartID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load cart",
			"details": err.Error(),
		})
		return
	}
	h.cartResponse(c, lines)
}

func (h *Handler) addProductToCart(c *gin.Context) {
	product, err := h.catalog.Product(c.Request.Context(), c.Param("productID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Product not found",
			"details": err.Error(),
		})
		return
	}

	lines, err := h.carts.AddProduct(c.Request.Context(), c.Param("cartID"), product)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update cart",
			"details": err.Error(),
		})
		return
	}
	h.cartResponse(c, lines)
}

func (h *Handler) addPlanToCart(c *gin.Context) {
	plans, err := h.catalog.Plans(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load plans",
			"details": err.Error(),
		})
		return
	}

	planID := c.Param("planID")
	for i := range plans {
		if plans[i].ID == planID {
			lines, err := h.carts.AddPlan(c.Request.Context(), c.Param("cartID"), &plans[i])
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   "Failed to update cart",
					"details": err.Error(),
				})
				return
			}
			h.cartResponse(c, lines)
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
}

func (h *Handler) updateCartQuantity(c *gin.Context) {
	var req struct {
		Quantity *int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	lines, err := h.carts.UpdateQuantity(c.Request.Context(), c.Param("cartID"), c.Param("itemID"), *req.Quantity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update cart",
			"details": err.Error(),
		})
		return
	}
	h.cartResponse(c, lines)
}

func (h *Handler) removeCartItem(c *gin.Context) {
	lines, err := h.carts.RemoveItem(c.Request.Context(), c.Param("cartID"), c.Param("itemID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update cart",
			"details": err.Error(),
		})
		return
	}
	h.cartResponse(c, lines)
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), c.Param("cartID")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to clear cart",
			"details": err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) cartResponse(c *gin.Context, lines []models.CartLine) {
	if lines == nil {
		lines = []models.CartLine{}
	}
	c.JSON(http.StatusOK, gin.H{
		"lines":       lines,
		"total_items": cart.TotalItems(lines),
		"total_price": cart.TotalPrice(lines),
	})
}

func (h *Handler) doCheckout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if req.UserID == nil {
		req.UserID = currentUserID(c)
	}

	outcome, err := h.checkout.Checkout(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
			return
		}
		if errors.Is(err, service.ErrMissingCustomer) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A user or a guest email is required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to process order",
			"details": err.Error(),
		})
		return
	}

	status := http.StatusCreated
	if outcome.Status == service.CheckoutPricesChanged {
		status = http.StatusConflict
	}
	c.JSON(status, outcome)
}

func (h *Handler) getMyOrders(c *gin.Context) {
	userID := currentUserID(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user identity"})
		return
	}

	orders, err := h.checkout.OrderHistory(c.Request.Context(), *userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load orders",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getMySubscription(c *gin.Context) {
	userID := currentUserID(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user identity"})
		return
	}

	sub, err := h.subscriptions.ActiveSubscription(c.Request.Context(), *userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load subscription",
			"details": err.Error(),
		})
		return
	}
	if sub == nil {
		c.JSON(http.StatusOK, gin.H{"subscription": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

func (h *Handler) togglePause(c *gin.Context) {
	status, err := h.subscriptions.TogglePause(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Failed to toggle subscription",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *Handler) cancelSubscription(c *gin.Context) {
	if err := h.subscriptions.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to cancel subscription",
			"details": err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) scheduleUpgrade(c *gin.Context) {
	userID := currentUserID(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user identity"})
		return
	}

	var req struct {
		PlanID string `json:"plan_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	sub, err := h.subscriptions.ScheduleUpgrade(c.Request.Context(), *userID, req.PlanID)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Failed to schedule plan change",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

func (h *Handler) stashSelection(c *gin.Context) {
	var req struct {
		Token  string `json:"token" binding:"required"`
		PlanID string `json:"plan_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.subscriptions.StashSelection(c.Request.Context(), req.Token, req.PlanID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to park selection",
			"details": err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) claimSelection(c *gin.Context) {
	selection, ok, err := h.subscriptions.ClaimSelection(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to claim selection",
			"details": err.Error(),
		})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No pending selection"})
		return
	}
	c.JSON(http.StatusOK, selection)
}

func (h *Handler) adminListProducts(c *gin.Context) {
	products, err := h.admin.Products(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load products",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) adminSaveProduct(c *gin.Context) {
	var input service.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	product, err := h.admin.SaveProduct(c.Request.Context(), &input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save product",
			"details": err.Error(),
		})
		return
	}

	status := http.StatusOK
	if input.ID == "" {
		status = http.StatusCreated
	}
	c.JSON(status, product)
}

func (h *Handler) adminDeleteProduct(c *gin.Context) {
	if err := h.admin.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Failed to delete product",
			"details": err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) adminListOrders(c *gin.Context) {
	orders, err := h.admin.Orders(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load orders",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) adminGetOrder(c *gin.Context) {
	order, items, err := h.admin.Order(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Order not found",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}

func (h *Handler) adminUpdateOrderStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.admin.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to update order status",
			"details": err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) adminUpdatePaymentStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.admin.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to update payment status",
			"details": err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) adminListSubscriptions(c *gin.Context) {
	subs, err := h.admin.Subscriptions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load subscriptions",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

func (h *Handler) adminUpdatePlan(c *gin.Context) {
	var input service.PlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	plan, err := h.admin.UpdatePlan(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update plan",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, plan)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
