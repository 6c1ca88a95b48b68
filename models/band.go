package models

import "fmt"

// Band is the priority group an offer value falls into relative to the
// reference price of a search.
type Band int

const (
	// BandA marks acceptable offers, at or near the reference price.
	BandA Band = iota
	// BandB marks considerable offers, moderately above the reference.
	BandB
	// BandC marks expensive offers, well above the reference.
	BandC
)

func (b Band) String() string {
	switch b {
	case BandA:
		return "A"
	case BandB:
		return "B"
	case BandC:
		return "C"
	}
	return fmt.Sprintf("Band(%d)", int(b))
}

// MarshalText serializes a band as its group letter.
func (b Band) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText parses a group letter back into a Band.
func (b *Band) UnmarshalText(text []byte) error {
	parsed, err := ParseBand(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBand maps a group letter to a Band.
func ParseBand(s string) (Band, error) {
	switch s {
	case "A", "a":
		return BandA, nil
	case "B", "b":
		return BandB, nil
	case "C", "c":
		return BandC, nil
	}
	return BandA, fmt.Errorf("unknown priority band %q", s)
}

// PrioritySummary counts the offers in each band beneath a region. A zero
// summary is meaningful: it states there are no classified offers, not that
// the counts are unknown.
type PrioritySummary struct {
	Acceptable   int `json:"A"`
	Considerable int `json:"B"`
	Expensive    int `json:"C"`
}

// Total returns the number of classified offers covered by the summary.
func (p PrioritySummary) Total() int {
	return p.Acceptable + p.Considerable + p.Expensive
}

// Add increments the count for the given band.
func (p *PrioritySummary) Add(b Band) {
	switch b {
	case BandA:
		p.Acceptable++
	case BandB:
		p.Considerable++
	case BandC:
		p.Expensive++
	}
}

// Merge adds another summary element-wise.
func (p *PrioritySummary) Merge(other PrioritySummary) {
	p.Acceptable += other.Acceptable
	p.Considerable += other.Considerable
	p.Expensive += other.Expensive
}

// Dominant returns the band with the largest count. Ties resolve toward the
// more acceptable band.
func (p PrioritySummary) Dominant() Band {
	best, count := BandA, p.Acceptable
	if p.Considerable > count {
		best, count = BandB, p.Considerable
	}
	if p.Expensive > count {
		best = BandC
	}
	return best
}
