package sources

import (
	"context"
	"errors"

	"github.com/dharmasatrya/fareengine/internal/models"
)

// Source is one upstream fare provider.
type Source interface {
	Name() string
	Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Offer, error)
}

type Capability string

const (
	CapOneWay    Capability = "one_way"
	CapRoundTrip Capability = "round_trip"
	CapAward     Capability = "award"
)

// Capable is implemented by sources that only serve part of the search space.
// Sources that do not implement it are assumed to support everything.
type Capable interface {
	Capabilities() []Capability
}

func Supports(s Source, c Capability) bool {
	capable, ok := s.(Capable)
	if !ok {
		return true
	}
	for _, have := range capable.Capabilities() {
		if have == c {
			return true
		}
	}
	return false
}

var (
	ErrUnavailable      = errors.New("upstream unavailable")
	ErrNotRegistered    = errors.New("source not registered")
	ErrDuplicateSource  = errors.New("source already registered")
	ErrUnsupportedQuery = errors.New("source does not support this search")
)

type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return e.Source + ": " + e.Err.Error()
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func NewSourceError(source string, err error) *SourceError {
	return &SourceError{
		Source: source,
		Err:    err,
	}
}
