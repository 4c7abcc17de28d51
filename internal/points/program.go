// Package points values loyalty points in cash and finds the cheapest way to
// fund an award with the balances a traveler holds.
package points

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownProgram = errors.New("unknown loyalty program")
	ErrInvalidRate    = errors.New("valuation rate must be positive")
	ErrInvalidProgram = errors.New("invalid loyalty program")
)

type ProgramType string

const (
	Airline    ProgramType = "airline"
	CreditCard ProgramType = "credit_card"
	Hotel      ProgramType = "hotel"
)

type TransferPartner struct {
	ProgramID string `yaml:"program" json:"program_id"`
	// Ratio is target points received per source point.
	Ratio           float64 `yaml:"ratio" json:"ratio"`
	MinimumTransfer int     `yaml:"minimum" json:"minimum_transfer"`
	// MaximumTransfer of zero means uncapped.
	MaximumTransfer int  `yaml:"maximum" json:"maximum_transfer,omitempty"`
	FeeCents        int  `yaml:"fee_cents" json:"fee_cents"`
	Active          bool `yaml:"active" json:"active"`
}

type Program struct {
	ID   string      `yaml:"id" json:"id"`
	Name string      `yaml:"name" json:"name"`
	Type ProgramType `yaml:"type" json:"type"`
	// ValuationRate is in cents per point.
	ValuationRate float64           `yaml:"rate" json:"valuation_rate"`
	Partners      []TransferPartner `yaml:"partners" json:"partners,omitempty"`
}

func (p Program) validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidProgram)
	}
	if p.ValuationRate <= 0 {
		return fmt.Errorf("program %s: %w", p.ID, ErrInvalidRate)
	}
	switch p.Type {
	case Airline, CreditCard, Hotel:
	default:
		return fmt.Errorf("%w: program %s has type %q", ErrInvalidProgram, p.ID, p.Type)
	}
	for _, partner := range p.Partners {
		if partner.Ratio <= 0 {
			return fmt.Errorf("%w: program %s partner %s has ratio %v", ErrInvalidProgram, p.ID, partner.ProgramID, partner.Ratio)
		}
	}
	return nil
}

// partner returns the transfer partner listing target, active or not.
func (p Program) partner(target string) (TransferPartner, bool) {
	for _, tp := range p.Partners {
		if strings.EqualFold(tp.ProgramID, target) {
			return tp, true
		}
	}
	return TransferPartner{}, false
}

type Balance struct {
	ProgramID string `json:"program_id"`
	Points    int    `json:"points"`
}

type catalogFile struct {
	Version  string    `yaml:"version"`
	Programs []Program `yaml:"programs"`
}

//go:embed catalog.yaml
var embeddedCatalog []byte

// LoadCatalog parses a YAML program list.
func LoadCatalog(r io.Reader) ([]Program, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode program catalog: %w", err)
	}
	if f.Version == "" {
		return nil, errors.New("program catalog version is required")
	}
	for _, p := range f.Programs {
		if err := p.validate(); err != nil {
			return nil, err
		}
	}
	return f.Programs, nil
}

// DefaultPrograms returns the programs compiled into the binary.
func DefaultPrograms() []Program {
	programs, err := LoadCatalog(bytes.NewReader(embeddedCatalog))
	if err != nil {
		panic(fmt.Sprintf("points: embedded catalog: %v", err))
	}
	return programs
}
