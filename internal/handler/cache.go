package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/fareengine/internal/cache"
)

type CacheHandler struct {
	cache *cache.OfferCache
}

func NewCacheHandler(c *cache.OfferCache) *CacheHandler {
	return &CacheHandler{cache: c}
}

func (h *CacheHandler) Stats(c echo.Context) error {
	stats, err := h.cache.Stats(c.Request().Context())
	if err != nil {
		return cacheError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// InvalidateRoute drops cached source responses for one route so the next
// search goes upstream.
func (h *CacheHandler) InvalidateRoute(c echo.Context) error {
	origin := strings.ToUpper(c.Param("origin"))
	destination := strings.ToUpper(c.Param("destination"))
	removed, err := h.cache.InvalidateRoute(c.Request().Context(), origin, destination)
	if err != nil {
		return cacheError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"origin":      origin,
		"destination": destination,
		"removed":     removed,
	})
}

func cacheError(c echo.Context, err error) error {
	return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Error:   "cache_error",
		Message: err.Error(),
		Code:    http.StatusServiceUnavailable,
	})
}
