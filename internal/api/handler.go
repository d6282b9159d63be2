package api

import (
	"net/http"
	"strconv"
	"time"

	"ordersync/internal/repo"
	"ordersync/internal/stats"
	"ordersync/internal/util"
	"ordersync/internal/view"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the agent's read-only view of the synchronized order model:
// dashboard aggregates, the snapshot listing and the selected order.
type Handler struct {
	repository *repo.Repository
	selection  *view.Selection
	recentN    int
}

// NewHandler creates the agent HTTP handler.
func NewHandler(repository *repo.Repository, selection *view.Selection) *Handler {
	return &Handler{
		repository: repository,
		selection:  selection,
		recentN:    5,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/dashboard", h.dashboard)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/selected", h.selectedOrder)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	snap := h.repository.Snapshot()
	if snap.Generation == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "waiting for first snapshot"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"generation": snap.Generation,
	})
}

// dashboard recomputes the aggregates for the requested window on every call.
func (h *Handler) dashboard(c *gin.Context) {
	window, err := stats.ParseWindow(c.DefaultQuery("window", "day"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid window",
			"details": err.Error(),
		})
		return
	}

	snap := h.repository.Snapshot()
	resp := gin.H{
		"stats":        stats.Compute(snap, window, time.Now()),
		"recentOrders": view.RecentOrders(snap, h.recentN),
		"generation":   snap.Generation,
	}
	if selected, ok := h.selection.Current(); ok {
		resp["selectedOrder"] = selected
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listOrders(c *gin.Context) {
	snap := h.repository.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"orders":     snap.Sorted(),
		"generation": snap.Generation,
	})
}

func (h *Handler) selectedOrder(c *gin.Context) {
	selected, ok := h.selection.Current()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No order selected"})
		return
	}
	c.JSON(http.StatusOK, selected)
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
