package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/giovaniif/stock-records/domain/record"
	"github.com/giovaniif/stock-records/infra/logger"
	"github.com/giovaniif/stock-records/infra/metrics"
	"github.com/giovaniif/stock-records/infra/requestid"
	"github.com/giovaniif/stock-records/infra/tracing"
	"github.com/giovaniif/stock-records/protocols"
	"github.com/giovaniif/stock-records/use_cases/change"
	"github.com/giovaniif/stock-records/use_cases/lookup"
	"github.com/giovaniif/stock-records/use_cases/receive"
	"github.com/giovaniif/stock-records/use_cases/register"
	"github.com/giovaniif/stock-records/use_cases/release"
	"github.com/giovaniif/stock-records/use_cases/reorder"
	"github.com/giovaniif/stock-records/use_cases/reserve"
	"github.com/giovaniif/stock-records/use_cases/ship"
)

const idempotencyHeader = "Idempotency-Key"

type RegisterRequest struct {
	ProductId        string `json:"productId"`
	Location         string `json:"location"`
	OnHand           int32  `json:"onHand"`
	ReorderThreshold int32  `json:"reorderThreshold"`
	MaxCapacity      int32  `json:"maxCapacity"`
}

type AmountRequest struct {
	Amount *int32 `json:"amount" binding:"required"`
}

// HealthCheck is one dependency reported by GET /health.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Dependencies struct {
	Register    *register.Register
	Receive     *receive.Receive
	Reserve     *reserve.Reserve
	Release     *release.Release
	Ship        *ship.Ship
	Lookup      *lookup.Lookup
	Reorder     *reorder.Reorder
	Idempotency protocols.IdempotencyGateway
	HealthCheck []HealthCheck
	Logger      *zap.Logger
	Timeout     time.Duration
}

type mutation func(ctx context.Context, input change.Input) (record.Snapshot, error)

func NewRouter(deps Dependencies) *gin.Engine {
	h := &handlers{deps: deps, logger: logger.Named(deps.Logger, "http")}

	r := gin.New()
	r.Use(gin.Recovery(), requestid.Middleware, tracing.Middleware(), metrics.Middleware, h.accessLog)

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/", h.timeout)
	api.POST("/records", h.idempotent, h.register)
	api.GET("/records", h.list)
	api.GET("/records/:productId/:location", h.get)
	api.POST("/records/:productId/:location/add", h.idempotent, h.mutate("receive", deps.Receive.Receive))
	api.POST("/records/:productId/:location/reserve", h.idempotent, h.mutate("reserve", deps.Reserve.Reserve))
	api.POST("/records/:productId/:location/release", h.idempotent, h.mutate("release", deps.Release.Release))
	api.POST("/records/:productId/:location/ship", h.idempotent, h.mutate("ship", deps.Ship.Ship))
	api.GET("/reorder", h.reorder)

	return r
}

type handlers struct {
	deps   Dependencies
	logger *zap.Logger
}

func (h *handlers) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, protocols.ErrorBody{Error: err.Error(), Code: protocols.CodeInvalidArgument})
		return
	}
	out, err := h.deps.Register.Register(c.Request.Context(), register.Input{
		ProductID:        req.ProductId,
		Location:         req.Location,
		OnHand:           req.OnHand,
		ReorderThreshold: req.ReorderThreshold,
		MaxCapacity:      req.MaxCapacity,
	})
	metrics.ObserveOperation("register", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *handlers) mutate(name string, apply mutation) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AmountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, protocols.ErrorBody{Error: err.Error(), Code: protocols.CodeInvalidArgument})
			return
		}
		out, err := apply(c.Request.Context(), change.Input{
			ProductID: c.Param("productId"),
			Location:  c.Param("location"),
			Amount:    *req.Amount,
		})
		metrics.ObserveOperation(name, err)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func (h *handlers) get(c *gin.Context) {
	out, err := h.deps.Lookup.Get(c.Request.Context(), c.Param("productId"), c.Param("location"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) list(c *gin.Context) {
	out, err := h.deps.Lookup.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}

func (h *handlers) reorder(c *gin.Context) {
	out, err := h.deps.Reorder.Pending(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}

func (h *handlers) health(c *gin.Context) {
	status := "healthy"
	checks := gin.H{}
	for _, check := range h.deps.HealthCheck {
		if err := check.Ping(c.Request.Context()); err != nil {
			status = "degraded"
			checks[check.Name] = "down"
			continue
		}
		checks[check.Name] = "up"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "checks": checks})
}

func (h *handlers) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", requestid.FromContext(c.Request.Context())),
			zap.String("trace_id", tracing.TraceID(c.Request.Context())),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	c.JSON(status, protocols.ErrorBody{Error: err.Error(), Code: protocols.ErrorCode(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, record.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, record.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, record.ErrAlreadyExists), errors.Is(err, record.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, protocols.ErrRequestInFlight):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) timeout(c *gin.Context) {
	if h.deps.Timeout <= 0 {
		c.Next()
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.deps.Timeout)
	defer cancel()
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

// idempotent replays the stored response of a completed Idempotency-Key.
// Responses below 500 are stored. Anything else frees the key for a retry.
func (h *handlers) idempotent(c *gin.Context) {
	key := c.GetHeader(idempotencyHeader)
	if key == "" || h.deps.Idempotency == nil {
		c.Next()
		return
	}
	scoped := c.Request.Method + " " + c.Request.URL.Path + " " + key
	ctx := c.Request.Context()

	stored, err := h.deps.Idempotency.Begin(ctx, scoped)
	if err != nil {
		h.writeError(c, err)
		c.Abort()
		return
	}
	if stored != nil {
		c.Header("Idempotent-Replayed", "true")
		c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
		c.Abort()
		return
	}

	recorder := &bodyRecorder{ResponseWriter: c.Writer}
	c.Writer = recorder
	// A key whose response was not stored must not stay in processing,
	// including when a later handler panics.
	completed := false
	defer func() {
		if completed {
			return
		}
		if err := h.deps.Idempotency.Abort(context.WithoutCancel(ctx), scoped); err != nil {
			h.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
		}
	}()
	c.Next()

	status := recorder.Status()
	if status >= http.StatusInternalServerError {
		return
	}
	response := protocols.StoredResponse{Status: status, Body: recorder.body.Bytes()}
	if err := h.deps.Idempotency.Complete(context.WithoutCancel(ctx), scoped, response); err != nil {
		h.logger.Warn("failed to store idempotent response", zap.String("key", key), zap.Error(err))
		return
	}
	completed = true
}

func (h *handlers) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.logger.Info("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", requestid.FromContext(c.Request.Context())),
	)
}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
