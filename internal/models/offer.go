package models

import (
	"math"
	"strings"
	"time"
)

type RouteSegment struct {
	Carrier         string    `json:"carrier"`
	FlightNumber    string    `json:"flight_number"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	Departure       time.Time `json:"departure"`
	Arrival         time.Time `json:"arrival"`
	DurationMinutes int       `json:"duration_minutes"`
	Aircraft        string    `json:"aircraft,omitempty"`
}

type PointsOption struct {
	ProgramID      string  `json:"program_id"`
	PointsRequired int     `json:"points_required"`
	CashCopay      float64 `json:"cash_copay,omitempty"`
	BestValue      bool    `json:"best_value"`
}

type Pricing struct {
	CashPrice     float64        `json:"cash_price"`
	Taxes         float64        `json:"taxes"`
	Fees          float64        `json:"fees"`
	TotalPrice    float64        `json:"total_price"`
	Currency      string         `json:"currency"`
	PointsOptions []PointsOption `json:"points_options,omitempty"`
}

// NewPricing keeps TotalPrice equal to CashPrice + Taxes + Fees.
func NewPricing(cash, taxes, fees float64, currency string) Pricing {
	return Pricing{
		CashPrice:  cash,
		Taxes:      taxes,
		Fees:       fees,
		TotalPrice: cash + taxes + fees,
		Currency:   currency,
	}
}

func (p Pricing) Valid() bool {
	return math.Abs(p.TotalPrice-(p.CashPrice+p.Taxes+p.Fees)) < 0.005
}

type Availability struct {
	Seats        int    `json:"seats"`
	BookingClass string `json:"booking_class"`
}

type Offer struct {
	ID              string         `json:"id"`
	Source          string         `json:"source"`
	Carrier         string         `json:"carrier"`
	Segments        []RouteSegment `json:"segments"`
	Pricing         Pricing        `json:"pricing"`
	Availability    Availability   `json:"availability"`
	TotalDuration   int            `json:"total_duration_minutes"`
	LayoverCount    int            `json:"layover_count"`
	LayoverDuration *int           `json:"layover_duration_minutes,omitempty"`
}

type Layover struct {
	Airport string `json:"airport"`
	Minutes int    `json:"minutes"`
}

// WithDerivedFields fills TotalDuration, LayoverCount and LayoverDuration from
// the segment timestamps.
func (o Offer) WithDerivedFields() Offer {
	if len(o.Segments) == 0 {
		return o
	}
	o.TotalDuration = int(o.ArrivalTime().Sub(o.DepartureTime()).Minutes())
	layovers := o.Layovers()
	o.LayoverCount = len(layovers)
	o.LayoverDuration = nil
	if len(layovers) > 0 {
		total := 0
		for _, l := range layovers {
			total += l.Minutes
		}
		o.LayoverDuration = &total
	}
	return o
}

func (o Offer) Origin() string {
	if len(o.Segments) == 0 {
		return ""
	}
	return o.Segments[0].Origin
}

func (o Offer) Destination() string {
	if len(o.Segments) == 0 {
		return ""
	}
	return o.Segments[len(o.Segments)-1].Destination
}

func (o Offer) DepartureTime() time.Time {
	if len(o.Segments) == 0 {
		return time.Time{}
	}
	return o.Segments[0].Departure
}

func (o Offer) ArrivalTime() time.Time {
	if len(o.Segments) == 0 {
		return time.Time{}
	}
	return o.Segments[len(o.Segments)-1].Arrival
}

func (o Offer) IsDirect() bool {
	return len(o.Segments) == 1
}

// Serves reports whether the offer flies from origin to destination.
func (o Offer) Serves(origin, destination string) bool {
	return strings.EqualFold(o.Origin(), origin) && strings.EqualFold(o.Destination(), destination)
}

// Layovers are the arrival-to-next-departure gaps between consecutive segments.
func (o Offer) Layovers() []Layover {
	if len(o.Segments) < 2 {
		return nil
	}
	out := make([]Layover, 0, len(o.Segments)-1)
	for i := 0; i < len(o.Segments)-1; i++ {
		gap := o.Segments[i+1].Departure.Sub(o.Segments[i].Arrival)
		out = append(out, Layover{
			Airport: o.Segments[i].Destination,
			Minutes: int(gap.Minutes()),
		})
	}
	return out
}

func (o Offer) HasAwardSpace() bool {
	for _, p := range o.Pricing.PointsOptions {
		if p.PointsRequired > 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so later stages can never alias session data.
func (o Offer) Clone() Offer {
	c := o
	if o.Segments != nil {
		c.Segments = append([]RouteSegment(nil), o.Segments...)
	}
	if o.Pricing.PointsOptions != nil {
		c.Pricing.PointsOptions = append([]PointsOption(nil), o.Pricing.PointsOptions...)
	}
	if o.LayoverDuration != nil {
		d := *o.LayoverDuration
		c.LayoverDuration = &d
	}
	return c
}

func CloneOffers(offers []Offer) []Offer {
	if offers == nil {
		return nil
	}
	out := make([]Offer, len(offers))
	for i, o := range offers {
		out[i] = o.Clone()
	}
	return out
}

// ItineraryKey identifies the physical flights behind an offer, regardless of
// which source sold it.
func (o Offer) ItineraryKey() string {
	var b strings.Builder
	for i, s := range o.Segments {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strings.ToUpper(s.Carrier))
		b.WriteString(strings.ToUpper(s.FlightNumber))
		b.WriteByte('@')
		b.WriteString(s.Departure.UTC().Format(time.RFC3339))
	}
	return b.String()
}
