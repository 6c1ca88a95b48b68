package engine

import (
	"fmt"
	"math"

	"github.com/BurntSushi/toml"

	"github.com/sadikovi/pulsar/models"
)

// BandWeights order bands for reports and scoring. Higher weight means more
// acceptable; defaults follow the classic 900/500/100 ladder.
type BandWeights struct {
	Acceptable   int `toml:"acceptable"`
	Considerable int `toml:"considerable"`
	Expensive    int `toml:"expensive"`
}

// Policy is the threshold table that turns the ratio value/reference into a
// priority band. Thresholds are ratios, so the same policy works at any
// price point. Classification call sites never look inside: swapping the
// policy swaps the banding.
type Policy struct {
	// AcceptableMax is the inclusive upper ratio for band A. Anything at or
	// below the reference is always acceptable.
	AcceptableMax float64 `toml:"acceptable_max"`
	// ConsiderableMax is the exclusive upper ratio for band B; at or above
	// it the offer is expensive.
	ConsiderableMax float64 `toml:"considerable_max"`

	Weights BandWeights `toml:"weights"`
}

// DefaultPolicy bands offers at most 5% over the reference as acceptable and
// under 10% over as considerable.
func DefaultPolicy() Policy {
	return Policy{
		AcceptableMax:   1.05,
		ConsiderableMax: 1.10,
		Weights:         BandWeights{Acceptable: 900, Considerable: 500, Expensive: 100},
	}
}

// LoadPolicy reads a policy table from a TOML file. Omitted weights fall
// back to the defaults; thresholds must be present and well formed.
func LoadPolicy(path string) (Policy, error) {
	policy := Policy{Weights: DefaultPolicy().Weights}
	if _, err := toml.DecodeFile(path, &policy); err != nil {
		return Policy{}, fmt.Errorf("loading policy %s: %w", path, err)
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return policy, nil
}

// Validate rejects threshold tables that could not classify every value into
// exactly one band.
func (p Policy) Validate() error {
	if math.IsNaN(p.AcceptableMax) || math.IsNaN(p.ConsiderableMax) {
		return fmt.Errorf("thresholds must be numbers")
	}
	if p.AcceptableMax <= 0 {
		return fmt.Errorf("acceptable_max must be positive, got %v", p.AcceptableMax)
	}
	if p.ConsiderableMax <= p.AcceptableMax {
		return fmt.Errorf("considerable_max %v must exceed acceptable_max %v",
			p.ConsiderableMax, p.AcceptableMax)
	}
	if p.Weights.Acceptable <= p.Weights.Considerable || p.Weights.Considerable <= p.Weights.Expensive {
		return fmt.Errorf("weights must strictly descend from acceptable to expensive")
	}
	if p.Weights.Expensive <= 0 {
		return fmt.Errorf("weights must be positive")
	}
	return nil
}

// BandFor maps a value/reference ratio to its band. Total over all finite
// non-negative ratios.
func (p Policy) BandFor(ratio float64) models.Band {
	switch {
	case ratio <= p.AcceptableMax:
		return models.BandA
	case ratio < p.ConsiderableMax:
		return models.BandB
	default:
		return models.BandC
	}
}

// WeightOf returns the scoring weight of a band.
func (p Policy) WeightOf(b models.Band) int {
	switch b {
	case models.BandA:
		return p.Weights.Acceptable
	case models.BandB:
		return p.Weights.Considerable
	default:
		return p.Weights.Expensive
	}
}
