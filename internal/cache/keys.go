package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/dharmasatrya/fareengine/internal/models"
)

const (
	sourcePrefix   = "fare:source:"
	enhancedPrefix = "fare:enhanced:"

	SourcePattern   = sourcePrefix + "*"
	EnhancedPattern = enhancedPrefix + "*"
)

// SourceKey derives the per-source cache key. Only the date part of the
// travel dates takes part, so two searches that differ in time of day share
// an entry.
func SourceKey(source string, criteria models.SearchCriteria) string {
	c := criteria.Normalize()

	keyData := struct {
		Source        string
		Origin        string
		Destination   string
		DepartureDate string
		ReturnDate    string
		Adults        int
		Children      int
		Infants       int
		CabinClass    string
		Flexible      bool
	}{
		Source:        strings.ToLower(source),
		Origin:        c.Origin,
		Destination:   c.Destination,
		DepartureDate: c.DepartureDate.Format(models.DateLayout),
		Adults:        c.Passengers.Adults,
		Children:      c.Passengers.Children,
		Infants:       c.Passengers.Infants,
		CabinClass:    string(c.CabinClass),
		Flexible:      c.FlexibleDates,
	}

	if c.ReturnDate != nil {
		keyData.ReturnDate = c.ReturnDate.Format(models.DateLayout)
	}

	return sourcePrefix + keyData.Source + ":" + hashJSON(keyData)
}

// EnhancedKey derives a key in the enhanced-result namespace from any
// JSON-encodable description of the request.
func EnhancedKey(parts any) string {
	return enhancedPrefix + hashJSON(parts)
}

func hashJSON(v any) string {
	data, _ := json.Marshal(v)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
