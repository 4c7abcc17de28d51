package orchestrator

import "github.com/dharmasatrya/fareengine/internal/models"

// dedupe applies the policy and reports how many offers it dropped. The
// first position of each itinerary is kept and holds the cheapest offer.
func dedupe(offers []models.Offer, policy DedupPolicy) ([]models.Offer, int) {
	if policy != DedupByItinerary {
		return offers, 0
	}

	index := make(map[string]int, len(offers))
	out := make([]models.Offer, 0, len(offers))
	for _, o := range offers {
		key := o.ItineraryKey()
		if i, seen := index[key]; seen {
			if o.Pricing.TotalPrice < out[i].Pricing.TotalPrice {
				out[i] = o
			}
			continue
		}
		index[key] = len(out)
		out = append(out, o)
	}
	return out, len(offers) - len(out)
}
