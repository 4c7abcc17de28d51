package filters

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Capability string

const (
	CapWiFi          Capability = "wifi"
	CapLieFlat       Capability = "lie_flat"
	CapFuelEfficient Capability = "fuel_efficient"
)

type Alliance string

const (
	StarAlliance Alliance = "star_alliance"
	Oneworld     Alliance = "oneworld"
	SkyTeam      Alliance = "skyteam"
)

type AircraftCapabilities struct {
	WiFi          bool `yaml:"wifi" json:"wifi"`
	LieFlat       bool `yaml:"lie_flat" json:"lie_flat"`
	FuelEfficient bool `yaml:"fuel_efficient" json:"fuel_efficient"`
}

func (a AircraftCapabilities) Has(c Capability) bool {
	switch c {
	case CapWiFi:
		return a.WiFi
	case CapLieFlat:
		return a.LieFlat
	case CapFuelEfficient:
		return a.FuelEfficient
	}
	return false
}

// Catalog maps aircraft types to cabin capabilities and carriers to
// alliances.
type Catalog struct {
	Version   string                          `yaml:"version"`
	Aircraft  map[string]AircraftCapabilities `yaml:"aircraft"`
	Alliances map[Alliance][]string           `yaml:"alliances"`

	carrierAlliance map[string]Alliance
}

//go:embed catalog.yaml
var embeddedCatalog []byte

var defaultCatalog = mustLoadCatalog(embeddedCatalog)

func mustLoadCatalog(raw []byte) *Catalog {
	c, err := LoadCatalog(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("filters: embedded catalog: %v", err))
	}
	return c
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// LoadCatalog parses a YAML catalog. A carrier may belong to one alliance only.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if c.Version == "" {
		return nil, errors.New("catalog version is required")
	}

	aircraft := make(map[string]AircraftCapabilities, len(c.Aircraft))
	for code, caps := range c.Aircraft {
		aircraft[strings.ToUpper(code)] = caps
	}
	c.Aircraft = aircraft

	c.carrierAlliance = make(map[string]Alliance)
	for alliance, carriers := range c.Alliances {
		for _, carrier := range carriers {
			carrier = strings.ToUpper(carrier)
			if prev, dup := c.carrierAlliance[carrier]; dup && prev != alliance {
				return nil, fmt.Errorf("carrier %s listed in both %s and %s", carrier, prev, alliance)
			}
			c.carrierAlliance[carrier] = alliance
		}
	}
	return &c, nil
}

// HasCapability is false for aircraft types the catalog does not list.
func (c *Catalog) HasCapability(aircraft string, capability Capability) bool {
	caps, ok := c.Aircraft[strings.ToUpper(aircraft)]
	return ok && caps.Has(capability)
}

func (c *Catalog) AllianceOf(carrier string) (Alliance, bool) {
	a, ok := c.carrierAlliance[strings.ToUpper(carrier)]
	return a, ok
}

func (c *Catalog) AllianceNames() []string {
	out := make([]string, 0, len(c.Alliances))
	for a := range c.Alliances {
		out = append(out, string(a))
	}
	sort.Strings(out)
	return out
}
