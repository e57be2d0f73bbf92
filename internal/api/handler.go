package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"order-sync/internal/models"
	"order-sync/internal/service"
	"order-sync/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OrderEngine is the engine surface the HTTP layer exposes
type OrderEngine interface {
	CreateOrderOnce(ctx context.Context, idem service.IdempotencyStore, key string, fields map[string]any) (*models.InputOrder, bool, error)
	GetOrder(ctx context.Context, idInput string) (*models.OrderView, error)
	ListOrders(ctx context.Context) ([]models.Pesanan, error)
	ListInputOrders(ctx context.Context) ([]models.InputOrder, error)
	GetReferenceLink(ctx context.Context, idInput string) (string, error)
	UpdateColumn(ctx context.Context, table models.Table, idInput, column string, value any) error
	UpdateColumns(ctx context.Context, table models.Table, idInput string, values map[string]any) error
	DeleteOrder(ctx context.Context, idInput string) error
	RequestSync(ctx context.Context, idInput, reason string) error
	ResyncAll(ctx context.Context) (*service.ResyncResult, error)
	PromoteDueToday(ctx context.Context, today time.Time) (*service.PromoteResult, error)
	ListUrgent(ctx context.Context, day time.Time) ([]models.Urgent, error)
	References() map[string][]models.StaffMember
	Today() time.Time
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	engine      OrderEngine
	idempotency service.IdempotencyStore
	checks      map[string]Pinger
}

// NewHandler creates a new HTTP handler. idempotency may be nil.
func NewHandler(engine OrderEngine, idempotency service.IdempotencyStore, checks map[string]Pinger) *Handler {
	return &Handler{
		engine:      engine,
		idempotency: idempotency,
		checks:      checks,
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
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.DELETE("/orders/:id", h.deleteOrder)
		v1.PUT("/orders/:id/columns", h.updateColumn)
		v1.PATCH("/orders/:id/columns", h.updateColumns)
		v1.GET("/orders/:id/link", h.getReferenceLink)
		v1.POST("/orders/:id/sync", h.syncOrder)

		v1.GET("/input-orders", h.listInputOrders)
		v1.GET("/references", h.listReferences)

		v1.GET("/urgent", h.listUrgent)
		v1.POST("/urgent/promote", h.promoteUrgent)

		v1.POST("/resync", h.resyncAll)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createOrder handles order intake
func (h *Handler) createOrder(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, replayed, err := h.engine.CreateOrderOnce(c.Request.Context(), h.idempotency, c.GetHeader("Idempotency-Key"), fields)
	if err != nil {
		writeError(c, "Failed to create order", err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"id_input": order.IDInput,
		"order":    order,
		"replayed": replayed,
	})
}

// listOrders returns every table_pesanan row
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.engine.ListOrders(c.Request.Context())
	if err != nil {
		writeError(c, "Failed to list orders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getOrder returns the canonical order with its projections
func (h *Handler) getOrder(c *gin.Context) {
	view, err := h.engine.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "Failed to get order", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) deleteOrder(c *gin.Context) {
	id := c.Param("id")
	if err := h.engine.DeleteOrder(c.Request.Context(), id); err != nil {
		writeError(c, "Failed to delete order", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

type updateColumnRequest struct {
	Table  string `json:"table" binding:"required"`
	Column string `json:"column" binding:"required"`
	Value  any    `json:"value"`
}

// updateColumn edits one allow-listed column of a stage or aggregate table
func (h *Handler) updateColumn(c *gin.Context) {
	var req updateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	table, ok := models.ParseTable(req.Table)
	if !ok {
		// rejected by the engine with the offending name in the message
		table = models.Table(req.Table)
	}

	id := c.Param("id")
	if err := h.engine.UpdateColumn(c.Request.Context(), table, id, req.Column, req.Value); err != nil {
		writeError(c, "Failed to update column", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id_input": id,
		"table":    table.SQLName(),
		"column":   req.Column,
	})
}

type updateColumnsRequest struct {
	Table  string         `json:"table" binding:"required"`
	Values map[string]any `json:"values" binding:"required"`
}

// updateColumns edits several columns of one table in a single transaction
func (h *Handler) updateColumns(c *gin.Context) {
	var req updateColumnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	table, ok := models.ParseTable(req.Table)
	if !ok {
		table = models.Table(req.Table)
	}

	id := c.Param("id")
	if err := h.engine.UpdateColumns(c.Request.Context(), table, id, req.Values); err != nil {
		writeError(c, "Failed to update columns", err)
		return
	}

	columns := make([]string, 0, len(req.Values))
	for name := range req.Values {
		columns = append(columns, name)
	}
	sort.Strings(columns)
	c.JSON(http.StatusOK, gin.H{
		"id_input": id,
		"table":    table.SQLName(),
		"columns":  columns,
	})
}

func (h *Handler) getReferenceLink(c *gin.Context) {
	link, err := h.engine.GetReferenceLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "Failed to get reference link", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": link})
}

// syncOrder re-runs fan-out and propagation for one order
func (h *Handler) syncOrder(c *gin.Context) {
	id := c.Param("id")
	if err := h.engine.RequestSync(c.Request.Context(), id, "api"); err != nil {
		writeError(c, "Failed to sync order", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": id})
}

func (h *Handler) listInputOrders(c *gin.Context) {
	orders, err := h.engine.ListInputOrders(c.Request.Context())
	if err != nil {
		writeError(c, "Failed to list input orders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) listReferences(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.References())
}

// listUrgent returns urgent rows still relevant on ?date=, default today
func (h *Handler) listUrgent(c *gin.Context) {
	day, ok := h.parseDay(c, c.Query("date"))
	if !ok {
		return
	}
	rows, err := h.engine.ListUrgent(c.Request.Context(), day)
	if err != nil {
		writeError(c, "Failed to list urgent orders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": day.Format(models.DateLayout), "orders": rows})
}

type promoteRequest struct {
	Date string `json:"date"`
}

// promoteUrgent promotes the orders due on the given day, default today
func (h *Handler) promoteUrgent(c *gin.Context) {
	var req promoteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request body",
				"details": err.Error(),
			})
			return
		}
	}

	day, ok := h.parseDay(c, req.Date)
	if !ok {
		return
	}
	result, err := h.engine.PromoteDueToday(c.Request.Context(), day)
	if err != nil {
		writeError(c, "Failed to promote urgent orders", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) resyncAll(c *gin.Context) {
	result, err := h.engine.ResyncAll(c.Request.Context())
	if err != nil {
		writeError(c, "Failed to resync orders", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) parseDay(c *gin.Context, raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return h.engine.Today(), true
	}
	day, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid date",
			"details": "date must be YYYY-MM-DD",
		})
		return time.Time{}, false
	}
	return day, true
}

// writeError maps engine errors to status codes. Database detail stays in the logs.
func writeError(c *gin.Context, message string, err error) {
	var (
		ve *service.ValidationError
		ne *service.NotFoundError
		pe *service.InProgressError
		de *service.DatabaseError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": message, "details": ve.Error()})
	case errors.As(err, &ne):
		c.JSON(http.StatusNotFound, gin.H{"error": message, "details": ne.Error()})
	case errors.As(err, &pe):
		c.JSON(http.StatusConflict, gin.H{"error": message, "details": pe.Error()})
	case errors.As(err, &de):
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": de.PublicMessage()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": err.Error()})
	}
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
