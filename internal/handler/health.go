package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/fareengine/internal/orchestrator"
)

// HealthHandler answers 503 only when the cache is unreachable; a degraded
// engine still serves searches.
func HealthHandler(o *orchestrator.Orchestrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		report := o.HealthCheck(c.Request().Context())
		status := http.StatusOK
		if report.Status == orchestrator.Unhealthy {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, report)
	}
}
