// Package pricing establishes offer values for classification. The engine
// never looks inside: it consumes the value an Estimator produced and the
// midpoint used as the default reference price of a search.
package pricing

import (
	"math"

	"github.com/sadikovi/pulsar/models"
)

// Estimator values a listing from its raw properties. MidPoint is the
// estimator's center of the market it was fitted on; it serves as the
// reference price when a search does not supply one.
type Estimator interface {
	EstimateValue(price float64, bedrooms int, bathrooms float64) float64
	MidPoint() float64
}

// Passthrough takes the listed price as the value.
type Passthrough struct {
	mid float64
}

// NewPassthrough fits the midpoint on the offers' listed prices.
func NewPassthrough(offers []*models.Offer) *Passthrough {
	return &Passthrough{mid: meanPrice(offers)}
}

func (p *Passthrough) EstimateValue(price float64, _ int, _ float64) float64 {
	if price <= 0 {
		return 0
	}
	return round2(price)
}

func (p *Passthrough) MidPoint() float64 {
	return p.mid
}

// Adaptive blends the listed price with a comparable baseline: the mean
// price of offers with the same bedroom count, nudged 2.5% per bathroom
// beyond the first. Unseen bedroom counts fall back to the overall mean.
type Adaptive struct {
	mid        float64
	perBedroom map[int]float64
}

// NewAdaptive fits the estimator on a dataset's offers.
func NewAdaptive(offers []*models.Offer) *Adaptive {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, o := range offers {
		if o.Properties.Price <= 0 {
			continue
		}
		b := o.Properties.Bedrooms
		sums[b] += o.Properties.Price
		counts[b]++
	}
	perBedroom := make(map[int]float64, len(sums))
	for b, sum := range sums {
		perBedroom[b] = sum / float64(counts[b])
	}
	return &Adaptive{mid: meanPrice(offers), perBedroom: perBedroom}
}

func (a *Adaptive) EstimateValue(price float64, bedrooms int, bathrooms float64) float64 {
	if price <= 0 {
		return 0
	}
	baseline, ok := a.perBedroom[bedrooms]
	if !ok || baseline <= 0 {
		baseline = a.mid
	}
	if baseline <= 0 {
		return round2(price)
	}
	if bathrooms > 1 {
		baseline *= 1 + 0.025*(bathrooms-1)
	}
	return round2((price + baseline) / 2)
}

func (a *Adaptive) MidPoint() float64 {
	return a.mid
}

// Apply fills missing offer values through the estimator, leaving explicit
// dataset values alone. Offers the estimator cannot value keep a zero value
// and will be excluded at classification time. Returns how many values were
// filled.
func Apply(offers []*models.Offer, est Estimator) int {
	filled := 0
	for _, o := range offers {
		if o.Value > 0 {
			continue
		}
		p := o.Properties
		if v := est.EstimateValue(p.Price, p.Bedrooms, p.Bathrooms); v > 0 {
			o.Value = v
			filled++
		}
	}
	return filled
}

// meanPrice averages the positive listed prices; zero when there are none.
func meanPrice(offers []*models.Offer) float64 {
	sum, n := 0.0, 0
	for _, o := range offers {
		if o.Properties.Price > 0 {
			sum += o.Properties.Price
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
