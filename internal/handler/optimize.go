package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/fareengine/internal/enhanced"
	"github.com/dharmasatrya/fareengine/internal/optimizer"
)

type OptimizeHandler struct {
	enhanced *enhanced.Orchestrator
}

func NewOptimizeHandler(enh *enhanced.Orchestrator) *OptimizeHandler {
	return &OptimizeHandler{enhanced: enh}
}

// MultiCity searches each leg and returns the cheapest chain that respects
// the stay bounds. Legs with no compatible offer come back empty.
func (h *OptimizeHandler) MultiCity(c echo.Context) error {
	var req MultiCityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	trip, err := req.Trip()
	if err != nil {
		return validationError(c, err)
	}

	result, err := h.enhanced.OptimizeMultiCity(c.Request().Context(), trip, req.Sources, req.Options)
	if errors.Is(err, optimizer.ErrTooFewCities) || errors.Is(err, enhanced.ErrLegDates) {
		return validationError(c, err)
	}
	if err != nil {
		return searchError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Positioning lists cheaper ways to start the trip from a nearby airport.
func (h *OptimizeHandler) Positioning(c echo.Context) error {
	var req PositioningRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	criteria, err := req.Criteria()
	if err != nil {
		return validationError(c, err)
	}

	result, err := h.enhanced.FindPositioning(c.Request().Context(), criteria, req.MaxDetourMiles, req.Sources, req.Options)
	if err != nil {
		return searchError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func validationError(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
		Code:    http.StatusBadRequest,
	})
}
