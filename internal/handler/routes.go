package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/fareengine/internal/enhanced"
	"github.com/dharmasatrya/fareengine/internal/events"
	"github.com/dharmasatrya/fareengine/internal/points"
)

// Register mounts the API under /api/v1 and the health check at /health.
func Register(e *echo.Echo, enh *enhanced.Orchestrator, engine *points.Engine, hub *events.Hub) {
	search := NewSearchHandler(enh, hub)
	pts := NewPointsHandler(engine)
	offers := NewCacheHandler(enh.Base().Cache())
	optimize := NewOptimizeHandler(enh)

	api := e.Group("/api/v1")
	api.POST("/searches", search.Search)
	api.POST("/searches/async", search.Start)
	api.GET("/searches/:id", search.Session)
	api.DELETE("/searches/:id", search.Cancel)
	api.GET("/searches/:id/progress", search.Progress)
	api.GET("/searches/:id/events", search.Events)
	api.GET("/searches/:id/filters", search.FilterOptions)
	api.GET("/searches/:id/analytics", search.Analytics)

	api.POST("/optimize/multi-city", optimize.MultiCity)
	api.POST("/optimize/positioning", optimize.Positioning)

	api.GET("/points/programs", pts.Programs)
	api.POST("/points/value", pts.Value)
	api.POST("/points/redemption", pts.Redemption)
	api.POST("/points/transfers", pts.Transfers)
	api.POST("/points/optimize", pts.OptimizePricing)

	api.GET("/cache/stats", offers.Stats)
	api.DELETE("/cache/routes/:origin/:destination", offers.InvalidateRoute)

	e.GET("/health", HealthHandler(enh.Base()))
}
