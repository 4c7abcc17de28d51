package models

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

type CabinClass string

const (
	CabinEconomy        CabinClass = "economy"
	CabinPremiumEconomy CabinClass = "premium_economy"
	CabinBusiness       CabinClass = "business"
	CabinFirst          CabinClass = "first"
)

func (c CabinClass) Valid() bool {
	switch c {
	case CabinEconomy, CabinPremiumEconomy, CabinBusiness, CabinFirst:
		return true
	}
	return false
}

// Premium reports whether the cabin usually comes with lie-flat seating.
func (c CabinClass) Premium() bool {
	return c == CabinBusiness || c == CabinFirst
}

const MaxPassengers = 9

type Passengers struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

func (p Passengers) Total() int {
	return p.Adults + p.Children + p.Infants
}

// SearchCriteria is immutable once a search starts; stages receive it by value.
type SearchCriteria struct {
	Origin        string     `json:"origin"`
	Destination   string     `json:"destination"`
	DepartureDate time.Time  `json:"departure_date"`
	ReturnDate    *time.Time `json:"return_date,omitempty"`
	Passengers    Passengers `json:"passengers"`
	CabinClass    CabinClass `json:"cabin_class"`
	FlexibleDates bool       `json:"flexible_dates"`
}

// Normalize returns a copy with upper-cased airport codes, a lower-cased cabin
// class (economy when empty) and dates truncated to midnight UTC.
func (c SearchCriteria) Normalize() SearchCriteria {
	n := c
	n.Origin = strings.ToUpper(strings.TrimSpace(c.Origin))
	n.Destination = strings.ToUpper(strings.TrimSpace(c.Destination))
	n.CabinClass = CabinClass(strings.ToLower(strings.TrimSpace(string(c.CabinClass))))
	if n.CabinClass == "" {
		n.CabinClass = CabinEconomy
	}
	n.DepartureDate = dateOnly(c.DepartureDate)
	if c.ReturnDate != nil {
		r := dateOnly(*c.ReturnDate)
		n.ReturnDate = &r
	}
	return n
}

func (c SearchCriteria) IsRoundTrip() bool {
	return c.ReturnDate != nil
}

func (c SearchCriteria) Validate() error {
	if c.Origin == "" {
		return ErrMissingOrigin
	}
	if c.Destination == "" {
		return ErrMissingDestination
	}
	if !isAirportCode(c.Origin) || !isAirportCode(c.Destination) {
		return ErrInvalidAirportCode
	}
	if strings.EqualFold(c.Origin, c.Destination) {
		return ErrSameOriginDestination
	}
	if c.DepartureDate.IsZero() {
		return ErrMissingDepartureDate
	}
	if c.ReturnDate != nil && dateOnly(*c.ReturnDate).Before(dateOnly(c.DepartureDate)) {
		return ErrReturnBeforeDeparture
	}
	if c.Passengers.Adults < 1 {
		return ErrNoAdults
	}
	if c.Passengers.Children < 0 || c.Passengers.Infants < 0 {
		return ErrNegativePassengers
	}
	if c.Passengers.Infants > c.Passengers.Adults {
		return ErrTooManyInfants
	}
	if c.Passengers.Total() > MaxPassengers {
		return ErrTooManyPassengers
	}
	if c.CabinClass != "" && !CabinClass(strings.ToLower(string(c.CabinClass))).Valid() {
		return ErrInvalidCabinClass
	}
	return nil
}

func isAirportCode(code string) bool {
	code = strings.TrimSpace(code)
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD and full RFC 3339 timestamps.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return dateOnly(t), nil
}

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrMissingOrigin         ValidationError = "origin is required"
	ErrMissingDestination    ValidationError = "destination is required"
	ErrMissingDepartureDate  ValidationError = "departure_date is required"
	ErrInvalidAirportCode    ValidationError = "airport codes must be three letters"
	ErrSameOriginDestination ValidationError = "origin and destination must differ"
	ErrReturnBeforeDeparture ValidationError = "return_date must not be before departure_date"
	ErrNoAdults              ValidationError = "at least one adult passenger is required"
	ErrNegativePassengers    ValidationError = "passenger counts must not be negative"
	ErrTooManyInfants        ValidationError = "each infant must travel with an adult"
	ErrTooManyPassengers     ValidationError = "at most 9 passengers per search"
	ErrInvalidCabinClass     ValidationError = "cabin_class must be economy, premium_economy, business or first"
	ErrInvalidDate           ValidationError = "dates must be formatted as YYYY-MM-DD"
)
