package enhanced

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dharmasatrya/fareengine/internal/airports"
	"github.com/dharmasatrya/fareengine/internal/models"
	"github.com/dharmasatrya/fareengine/internal/optimizer"
	"github.com/dharmasatrya/fareengine/internal/orchestrator"
)

var ErrLegDates = errors.New("multi-city route needs one departure date per leg")

// MultiCityRequest describes a trip through Cities in order. Dates[i] is the
// day searched for the leg from Cities[i] to Cities[i+1].
type MultiCityRequest struct {
	Cities        []string          `json:"cities"`
	Dates         []time.Time       `json:"dates"`
	Passengers    models.Passengers `json:"passengers"`
	CabinClass    models.CabinClass `json:"cabin_class"`
	FlexibleDates bool              `json:"flexible_dates"`
	Stays         []optimizer.Stay  `json:"stays,omitempty"`
	DefaultStay   optimizer.Stay    `json:"default_stay"`
}

type MultiCityResult struct {
	SessionIDs []string                 `json:"session_ids"`
	Route      optimizer.OptimizedRoute `json:"route"`
	Errors     []models.SourceError     `json:"errors,omitempty"`
}

type PositioningResult struct {
	SessionIDs  []string                          `json:"session_ids"`
	Suggestions []optimizer.PositioningSuggestion `json:"suggestions"`
	Errors      []models.SourceError              `json:"errors,omitempty"`
}

// OptimizeMultiCity searches every leg of the trip and picks the cheapest
// chain of offers that respects the stay bounds.
func (o *Orchestrator) OptimizeMultiCity(ctx context.Context, req MultiCityRequest, sourceIDs []string, opts orchestrator.Options) (*MultiCityResult, error) {
	if len(req.Cities) < 3 {
		return nil, optimizer.ErrTooFewCities
	}
	if len(req.Dates) != len(req.Cities)-1 {
		return nil, ErrLegDates
	}

	legs := make([]models.SearchCriteria, len(req.Dates))
	for i, date := range req.Dates {
		legs[i] = models.SearchCriteria{
			Origin:        req.Cities[i],
			Destination:   req.Cities[i+1],
			DepartureDate: date,
			Passengers:    req.Passengers,
			CabinClass:    req.CabinClass,
			FlexibleDates: req.FlexibleDates,
		}
	}

	pooled, err := o.searchAll(ctx, legs, sourceIDs, opts)
	if err != nil {
		return nil, err
	}

	route, err := o.optimizer.OptimizeMultiCityRoute(optimizer.MultiCityCriteria{
		Cities:        req.Cities,
		DepartureDate: req.Dates[0],
		Stays:         req.Stays,
		DefaultStay:   req.DefaultStay,
	}, pooled.offers)
	if err != nil {
		return nil, err
	}

	o.logger.Info().
		Strs("cities", req.Cities).
		Int("offers", len(pooled.offers)).
		Float64("total_cost", route.TotalCost).
		Msg("multi-city route optimized")
	return &MultiCityResult{SessionIDs: pooled.sessions, Route: route, Errors: pooled.errors}, nil
}

// FindPositioning searches the requested route along with feeder and main
// legs through every airport within maxDetourMiles of the origin.
func (o *Orchestrator) FindPositioning(ctx context.Context, criteria models.SearchCriteria, maxDetourMiles float64, sourceIDs []string, opts orchestrator.Options) (*PositioningResult, error) {
	if maxDetourMiles <= 0 {
		maxDetourMiles = optimizer.DefaultMaxDetourMiles
	}
	c := criteria.Normalize()
	c.ReturnDate = nil
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search criteria: %w", err)
	}

	searches := []models.SearchCriteria{c}
	for _, alt := range airports.Nearby(c.Origin, maxDetourMiles) {
		if strings.EqualFold(alt.Code, c.Destination) {
			continue
		}
		feeder, main := c, c
		feeder.Destination = alt.Code
		main.Origin = alt.Code
		searches = append(searches, feeder, main)
	}

	pooled, err := o.searchAll(ctx, searches, sourceIDs, opts)
	if err != nil {
		return nil, err
	}

	suggestions := o.optimizer.FindPositioningFlights(c, pooled.offers, maxDetourMiles)
	if suggestions == nil {
		suggestions = []optimizer.PositioningSuggestion{}
	}
	return &PositioningResult{SessionIDs: pooled.sessions, Suggestions: suggestions, Errors: pooled.errors}, nil
}

type pooledSearch struct {
	sessions []string
	offers   []models.Offer
	errors   []models.SourceError
}

// searchAll runs the base searches concurrently. Offers of searches that did
// not complete are left out.
func (o *Orchestrator) searchAll(ctx context.Context, searches []models.SearchCriteria, sourceIDs []string, opts orchestrator.Options) (pooledSearch, error) {
	results := make([]*orchestrator.Result, len(searches))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range searches {
		g.Go(func() error {
			res, err := o.base.Search(gctx, c, sourceIDs, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return pooledSearch{}, err
	}

	var out pooledSearch
	for _, res := range results {
		out.sessions = append(out.sessions, res.SessionID)
		out.errors = append(out.errors, res.Errors...)
		if res.Status == models.StatusCompleted {
			out.offers = append(out.offers, models.CloneOffers(res.Offers)...)
		}
	}
	return out, nil
}
