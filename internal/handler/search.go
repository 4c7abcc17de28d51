package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/fareengine/internal/enhanced"
	"github.com/dharmasatrya/fareengine/internal/events"
	"github.com/dharmasatrya/fareengine/internal/models"
	"github.com/dharmasatrya/fareengine/internal/orchestrator"
	"github.com/dharmasatrya/fareengine/internal/session"
)

type SearchHandler struct {
	enhanced *enhanced.Orchestrator
	base     *orchestrator.Orchestrator
	hub      *events.Hub
}

func NewSearchHandler(enh *enhanced.Orchestrator, hub *events.Hub) *SearchHandler {
	return &SearchHandler{
		enhanced: enh,
		base:     enh.Base(),
		hub:      hub,
	}
}

// Search runs a full search, with optional filtering and optimization, and
// returns once every source has answered or timed out.
func (h *SearchHandler) Search(c echo.Context) error {
	req, criteria, bad := bindSearch(c)
	if bad != nil {
		return c.JSON(bad.Code, bad)
	}

	result, err := h.enhanced.Search(c.Request().Context(), criteria, req.Sources, req.EnhancedOptions())
	if err != nil {
		return searchError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Start begins a search in the background and returns its session id.
func (h *SearchHandler) Start(c echo.Context) error {
	req, criteria, bad := bindSearch(c)
	if bad != nil {
		return c.JSON(bad.Code, bad)
	}

	id, err := h.base.StartSearch(c.Request().Context(), criteria, req.Sources, req.Options)
	if err != nil {
		return searchError(c, err)
	}
	return c.JSON(http.StatusAccepted, StartSearchResponse{
		SessionID: id,
		Status:    string(models.StatusSearching),
	})
}

// Progress reports a running search, or the stored status of a finished one.
func (h *SearchHandler) Progress(c echo.Context) error {
	id := c.Param("id")
	if progress, ok := h.base.GetProgress(id); ok {
		return c.JSON(http.StatusOK, progress)
	}

	sess, err := h.base.Session(c.Request().Context(), id)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, finishedProgress(sess))
}

func (h *SearchHandler) Session(c echo.Context) error {
	sess, err := h.base.Session(c.Request().Context(), c.Param("id"))
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *SearchHandler) Cancel(c echo.Context) error {
	id := c.Param("id")
	if h.base.Cancel(c.Request().Context(), id) {
		return c.JSON(http.StatusOK, map[string]any{"session_id": id, "cancelled": true})
	}
	return c.JSON(http.StatusConflict, ErrorResponse{
		Error:   "not_cancellable",
		Message: "search is not running",
		Code:    http.StatusConflict,
	})
}

// FilterOptions lists the filter values present in a session's offers along
// with suggested filters for its criteria.
func (h *SearchHandler) FilterOptions(c echo.Context) error {
	sess, err := h.base.Session(c.Request().Context(), c.Param("id"))
	if err != nil {
		return sessionError(c, err)
	}
	pipeline := h.enhanced.Pipeline()
	return c.JSON(http.StatusOK, FilterOptionsResponse{
		SessionID:       sess.ID,
		Options:         pipeline.AvailableOptions(sess.Offers),
		Recommendations: pipeline.Recommend(sess.Criteria, sess.Offers),
	})
}

func (h *SearchHandler) Analytics(c echo.Context) error {
	a, ok := h.enhanced.Analytics(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "no analytics recorded for this search",
			Code:    http.StatusNotFound,
		})
	}
	return c.JSON(http.StatusOK, a)
}

func bindSearch(c echo.Context) (SearchRequest, models.SearchCriteria, *ErrorResponse) {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return req, models.SearchCriteria{}, &ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		}
	}

	criteria, err := req.Criteria()
	if err != nil {
		return req, criteria, &ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		}
	}
	return req, criteria, nil
}

func searchError(c echo.Context, err error) error {
	var verr models.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: verr.Error(),
			Code:    http.StatusBadRequest,
		})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "search_error",
		Message: "Failed to search fares: " + err.Error(),
		Code:    http.StatusInternalServerError,
	})
}

func sessionError(c echo.Context, err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "search session not found",
			Code:    http.StatusNotFound,
		})
	}
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "session_error",
		Message: err.Error(),
		Code:    http.StatusInternalServerError,
	})
}

func finishedProgress(sess *models.SearchSession) models.SearchProgress {
	p := models.SearchProgress{
		SessionID: sess.ID,
		Status:    sess.Status,
		StartedAt: sess.CreatedAt,
	}
	if sess.Status.IsTerminal() {
		p.Completion = 1
	}
	return p
}
