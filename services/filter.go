package services

import "github.com/sadikovi/pulsar/models"

// Filter selects the active offer subset for a search. A zero filter keeps
// everything; the input slice is never modified.
func Filter(offers []*models.Offer, f models.OfferFilter) []*models.Offer {
	if f == (models.OfferFilter{}) {
		return offers
	}
	result := make([]*models.Offer, 0, len(offers))
	for _, o := range offers {
		if f.Matches(o) {
			result = append(result, o)
		}
	}
	return result
}
