package models

import "time"

// RawOffer holds unprocessed scraped data directly from the browser,
// before any cleaning or transformation.
type RawOffer struct {
	Name        string
	RawPrice    string
	RawBeds     string
	RawBaths    string
	Location    string
	Thumbnail   string
	Link        string
	Description string
	ScrapedAt   time.Time
	Source      string
}

// OfferProperties are the raw attributes of a listing as presented to the
// map client. Link is optional.
type OfferProperties struct {
	Price     float64 `json:"price"`
	Bedrooms  int     `json:"bedrooms"`
	Bathrooms float64 `json:"bathrooms"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Link      string  `json:"link,omitempty"`
}

// Offer is a cleaned property listing attached to a target region. Value is
// the estimated worth used for classification; zero means no value has been
// established and the offer will be excluded from summaries.
type Offer struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Desc       string          `json:"desc,omitempty"`
	Properties OfferProperties `json:"properties"`
	Target     string          `json:"target"`
	Value      float64         `json:"value,omitempty"`
}

// OfferFilter selects the active offer subset for a search. Zero fields are
// unconstrained.
type OfferFilter struct {
	MinPrice float64 `json:"min_price,omitempty"`
	MaxPrice float64 `json:"max_price,omitempty"`
	Bedrooms int     `json:"bedrooms,omitempty"`
	MaxValue float64 `json:"max_value,omitempty"`
}

// Matches reports whether the offer passes every constraint set on the
// filter.
func (f OfferFilter) Matches(o *Offer) bool {
	if f.MinPrice > 0 && o.Properties.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && o.Properties.Price > f.MaxPrice {
		return false
	}
	if f.Bedrooms > 0 && o.Properties.Bedrooms != f.Bedrooms {
		return false
	}
	if f.MaxValue > 0 && o.Value > f.MaxValue {
		return false
	}
	return true
}
