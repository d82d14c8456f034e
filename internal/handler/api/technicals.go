package api

import (
	"net/http"

	models "DipWatch/internal/domain/models"
	domrepo "DipWatch/internal/domain/repository"
	icache "DipWatch/internal/service/cache"
	"DipWatch/internal/service/ratelimit"
	"DipWatch/internal/usecase"
	xhttp "DipWatch/pkg/http"
	xlogger "DipWatch/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TechnicalsHandler exposes the engine's indicator snapshots, trading
// signals, readiness, market snapshots, and cache administration over HTTP.
type TechnicalsHandler struct {
	logger    *xlogger.Logger
	engine    *usecase.TechnicalEngine
	snapshots domrepo.SnapshotSource
	cache     *icache.TTLCache
	archive   domrepo.TickArchive

	limiter      *ratelimit.Limiter
	limitRPS     float64
	limitBurst   float64
	limitEnabled bool
}

type HandlerOption func(*TechnicalsHandler)

// WithRateLimit enables per-client request limiting on the /api group.
func WithRateLimit(rps float64, burst int) HandlerOption {
	return func(h *TechnicalsHandler) {
		h.limitEnabled = rps > 0
		h.limitRPS = rps
		h.limitBurst = float64(burst)
		if h.limitBurst <= 0 {
			h.limitBurst = rps
		}
	}
}

// WithArchive adds the tick archive to the health check.
func WithArchive(a domrepo.TickArchive) HandlerOption {
	return func(h *TechnicalsHandler) { h.archive = a }
}

func NewTechnicalsHandler(logger *xlogger.Logger, engine *usecase.TechnicalEngine, snapshots domrepo.SnapshotSource, cache *icache.TTLCache, opts ...HandlerOption) *TechnicalsHandler {
	h := &TechnicalsHandler{
		logger:    logger,
		engine:    engine,
		snapshots: snapshots,
		cache:     cache,
		limiter:   ratelimit.New(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TechnicalsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	if h.limitEnabled {
		g.Use(h.rateLimit)
	}
	g.GET("/technicals", h.Technicals)
	g.GET("/signals", h.Signals)
	g.GET("/status", h.Status)
	g.GET("/market/snapshot", h.MarketSnapshot)
	g.GET("/cache/stats", h.CacheStats)
	g.POST("/cache/invalidate", h.CacheInvalidate)
}

func (h *TechnicalsHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.limiter.Allow(c.RealIP(), h.limitBurst, h.limitRPS) {
			return xhttp.DataResponse(c, http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded",
			})
		}
		return next(c)
	}
}

func (h *TechnicalsHandler) Technicals(c echo.Context) error {
	req := &models.TechnicalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.Interval)

	snap := h.engine.TechnicalSnapshot(req.Symbol, tf)
	if snap == nil {
		return h.notReady(c, req.Symbol)
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *TechnicalsHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.Interval)

	sig := h.engine.TradingSignals(req.Symbol, tf)
	if sig == nil {
		return h.notReady(c, req.Symbol)
	}
	return xhttp.SuccessResponse(c, sig)
}

func (h *TechnicalsHandler) Status(c echo.Context) error {
	req := &models.StatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.engine.Status(req.Symbol))
}

func (h *TechnicalsHandler) MarketSnapshot(c echo.Context) error {
	req := &models.SnapshotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap, err := h.snapshots.Snapshot(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("market snapshot error", xlogger.Error(err), xlogger.String("symbol", req.Symbol))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, snap)
}

func (h *TechnicalsHandler) CacheStats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.cache.GetStats())
}

func (h *TechnicalsHandler) CacheInvalidate(c echo.Context) error {
	req := &models.CacheInvalidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	removed := h.cache.InvalidateCategory(req.Category)
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"category": req.Category,
		"removed":  removed,
	})
}

func (h *TechnicalsHandler) Health(c echo.Context) error {
	status := map[string]string{"status": "ok"}
	if h.archive != nil {
		if err := h.archive.Health(c.Request().Context()); err != nil {
			status["status"] = "degraded"
			status["archive"] = err.Error()
			return xhttp.DataResponse(c, http.StatusServiceUnavailable, status)
		}
		status["archive"] = "ok"
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *TechnicalsHandler) notReady(c echo.Context, symbol string) error {
	return xhttp.DataResponse(c, http.StatusNotFound, map[string]interface{}{
		"error":  "series not ready",
		"status": h.engine.Status(symbol),
	})
}
