package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/sadikovi/pulsar/models"
)

// ErrUnclassifiable marks an offer value that no band can hold: missing,
// non-numeric, or non-positive. The offer is excluded from aggregation and
// counted; the batch continues.
var ErrUnclassifiable = errors.New("offer value cannot be classified")

// ErrBadReference rejects a reference price that is not a positive number.
var ErrBadReference = errors.New("reference price must be a positive number")

// Classifier binds a policy to the reference price of one search. It is
// deterministic: the same value always lands in the same band.
type Classifier struct {
	policy    Policy
	reference float64
}

// NewClassifier validates the policy and reference before any offer is
// classified.
func NewClassifier(policy Policy, reference float64) (*Classifier, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(reference) || math.IsInf(reference, 0) || reference <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrBadReference, reference)
	}
	return &Classifier{policy: policy, reference: reference}, nil
}

// Reference returns the reference price the classifier was built for.
func (c *Classifier) Reference() float64 {
	return c.reference
}

// Policy returns the active threshold table.
func (c *Classifier) Policy() Policy {
	return c.policy
}

// Classify maps an offer value to exactly one band, or reports it
// unclassifiable.
func (c *Classifier) Classify(value float64) (models.Band, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return models.BandA, fmt.Errorf("%w: %v", ErrUnclassifiable, value)
	}
	return c.policy.BandFor(value / c.reference), nil
}

// ClassifyOffer classifies the offer's established value.
func (c *Classifier) ClassifyOffer(o *models.Offer) (models.Band, error) {
	band, err := c.Classify(o.Value)
	if err != nil {
		return band, fmt.Errorf("offer %s: %w", o.ID, err)
	}
	return band, nil
}
