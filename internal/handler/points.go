package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/fareengine/internal/points"
)

type PointsHandler struct {
	engine *points.Engine
}

func NewPointsHandler(engine *points.Engine) *PointsHandler {
	return &PointsHandler{engine: engine}
}

func (h *PointsHandler) Programs(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.Programs())
}

func (h *PointsHandler) Value(c echo.Context) error {
	var req ValueRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	v, ok := h.engine.ValuePoints(req.Points, req.ProgramID)
	if !ok {
		return unknownProgram(c, req.ProgramID)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *PointsHandler) Redemption(c echo.Context) error {
	var req RedemptionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	r, err := h.engine.AnalyzeRedemption(req.Points, req.CashValue, req.ProgramID)
	if errors.Is(err, points.ErrUnknownProgram) {
		return unknownProgram(c, req.ProgramID)
	}
	if err != nil {
		return badRequest(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Transfers lists the ways the supplied balances can fund an award in the
// target program, cheapest first.
func (h *PointsHandler) Transfers(c echo.Context) error {
	var req TransfersRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	if _, ok := h.engine.Program(req.TargetProgram); !ok {
		return unknownProgram(c, req.TargetProgram)
	}
	transfers := h.engine.FindTransferOpportunities(req.TargetProgram, req.PointsNeeded, req.Balances)
	if transfers == nil {
		transfers = []points.Transfer{}
	}
	return c.JSON(http.StatusOK, transfers)
}

func (h *PointsHandler) OptimizePricing(c echo.Context) error {
	var req OptimizePricingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	return c.JSON(http.StatusOK, h.engine.OptimizePricing(req.Pricing, req.Balances))
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: "Failed to parse request body: " + err.Error(),
		Code:    http.StatusBadRequest,
	})
}

func unknownProgram(c echo.Context, id string) error {
	return c.JSON(http.StatusNotFound, ErrorResponse{
		Error:   "unknown_program",
		Message: "unknown loyalty program: " + id,
		Code:    http.StatusNotFound,
	})
}
