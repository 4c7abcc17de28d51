package handler

import (
	"strings"
	"time"

	"github.com/dharmasatrya/fareengine/internal/enhanced"
	"github.com/dharmasatrya/fareengine/internal/filters"
	"github.com/dharmasatrya/fareengine/internal/models"
	"github.com/dharmasatrya/fareengine/internal/optimizer"
	"github.com/dharmasatrya/fareengine/internal/orchestrator"
	"github.com/dharmasatrya/fareengine/internal/points"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// SearchRequest is the wire form of a search. Dates are YYYY-MM-DD.
type SearchRequest struct {
	Origin        string            `json:"origin"`
	Destination   string            `json:"destination"`
	DepartureDate string            `json:"departure_date"`
	ReturnDate    *string           `json:"return_date,omitempty"`
	Passengers    models.Passengers `json:"passengers"`
	CabinClass    string            `json:"cabin_class"`
	FlexibleDates bool              `json:"flexible_dates"`
	Sources       []string          `json:"sources,omitempty"`

	orchestrator.Options
	Filters      *filters.FilterSet `json:"filters,omitempty"`
	Optimize     bool               `json:"optimize,omitempty"`
	Optimization optimizer.Options  `json:"optimization"`
}

// Criteria converts the request. Empty dates are left zero so criteria
// validation reports them.
func (r SearchRequest) Criteria() (models.SearchCriteria, error) {
	c := models.SearchCriteria{
		Origin:        r.Origin,
		Destination:   r.Destination,
		Passengers:    r.Passengers,
		CabinClass:    models.CabinClass(r.CabinClass),
		FlexibleDates: r.FlexibleDates,
	}
	if strings.TrimSpace(r.DepartureDate) != "" {
		d, err := models.ParseDate(r.DepartureDate)
		if err != nil {
			return c, err
		}
		c.DepartureDate = d
	}
	if r.ReturnDate != nil && strings.TrimSpace(*r.ReturnDate) != "" {
		d, err := models.ParseDate(*r.ReturnDate)
		if err != nil {
			return c, err
		}
		c.ReturnDate = &d
	}
	return c, nil
}

func (r SearchRequest) EnhancedOptions() enhanced.Options {
	return enhanced.Options{
		Search:       r.Options,
		Filters:      r.Filters,
		Optimize:     r.Optimize,
		Optimization: r.Optimization,
	}
}

type StartSearchResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type FilterOptionsResponse struct {
	SessionID       string                   `json:"session_id"`
	Options         filters.Options          `json:"options"`
	Recommendations []filters.Recommendation `json:"recommendations"`
}

type ValueRequest struct {
	ProgramID string `json:"program_id"`
	Points    int    `json:"points"`
}

type RedemptionRequest struct {
	ProgramID string  `json:"program_id"`
	Points    int     `json:"points"`
	CashValue float64 `json:"cash_value"`
}

type TransfersRequest struct {
	TargetProgram string           `json:"target_program"`
	PointsNeeded  int              `json:"points_needed"`
	Balances      []points.Balance `json:"balances"`
}

type OptimizePricingRequest struct {
	Pricing  models.Pricing   `json:"pricing"`
	Balances []points.Balance `json:"balances"`
}

// StayRequest bounds a stay in minutes. A zero maximum means unbounded.
type StayRequest struct {
	MinMinutes int `json:"min_minutes"`
	MaxMinutes int `json:"max_minutes"`
}

func (s StayRequest) Stay() optimizer.Stay {
	return optimizer.Stay{
		Min: time.Duration(s.MinMinutes) * time.Minute,
		Max: time.Duration(s.MaxMinutes) * time.Minute,
	}
}

// MultiCityRequest has one YYYY-MM-DD date per leg.
type MultiCityRequest struct {
	Cities        []string          `json:"cities"`
	Dates         []string          `json:"dates"`
	Passengers    models.Passengers `json:"passengers"`
	CabinClass    string            `json:"cabin_class"`
	FlexibleDates bool              `json:"flexible_dates"`
	Stays         []StayRequest     `json:"stays,omitempty"`
	DefaultStay   StayRequest       `json:"default_stay"`
	Sources       []string          `json:"sources,omitempty"`

	orchestrator.Options
}

func (r MultiCityRequest) Trip() (enhanced.MultiCityRequest, error) {
	trip := enhanced.MultiCityRequest{
		Cities:        r.Cities,
		Passengers:    r.Passengers,
		CabinClass:    models.CabinClass(r.CabinClass),
		FlexibleDates: r.FlexibleDates,
		DefaultStay:   r.DefaultStay.Stay(),
	}
	for _, raw := range r.Dates {
		d, err := models.ParseDate(raw)
		if err != nil {
			return trip, err
		}
		trip.Dates = append(trip.Dates, d)
	}
	for _, s := range r.Stays {
		trip.Stays = append(trip.Stays, s.Stay())
	}
	return trip, nil
}

type PositioningRequest struct {
	SearchRequest
	MaxDetourMiles float64 `json:"max_detour_miles"`
}
