package ranking

import (
	"math"

	"github.com/dharmasatrya/fareengine/internal/models"
)

// Weights blend the normalized price, duration and stop penalties into one
// best-value score.
type Weights struct {
	Price    float64
	Duration float64
	Stops    float64
}

var DefaultWeights = Weights{Price: 0.5, Duration: 0.3, Stops: 0.2}

// stopPenalty is charged per layover before weighting.
const stopPenalty = 15

// Scores returns best-value scores keyed by offer id. Lower is better.
func Scores(offers []models.Offer) map[string]float64 {
	scores := make(map[string]float64, len(offers))
	maxPrice, maxDuration := bounds(offers)
	for _, o := range offers {
		scores[o.ID] = DefaultWeights.score(o, maxPrice, maxDuration)
	}
	return scores
}

// CalculateBestValue scores one offer against the most expensive and longest
// offers of its result set.
func CalculateBestValue(offer models.Offer, maxPrice, maxDuration float64) float64 {
	return DefaultWeights.score(offer, maxPrice, maxDuration)
}

func (w Weights) score(o models.Offer, maxPrice, maxDuration float64) float64 {
	var price, duration float64
	if maxPrice > 0 {
		price = o.Pricing.TotalPrice / maxPrice * 100
	}
	if maxDuration > 0 {
		duration = float64(o.TotalDuration) / maxDuration * 100
	}
	stops := float64(o.LayoverCount * stopPenalty)

	s := price*w.Price + duration*w.Duration + stops*w.Stops
	return math.Round(s*100) / 100
}

func bounds(offers []models.Offer) (maxPrice, maxDuration float64) {
	for _, o := range offers {
		maxPrice = math.Max(maxPrice, o.Pricing.TotalPrice)
		maxDuration = math.Max(maxDuration, float64(o.TotalDuration))
	}
	return maxPrice, maxDuration
}
