package models

import "time"

// Dataset describes one ingested collection of regions and offers.
type Dataset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Desc      string    `json:"desc,omitempty"`
	Source    string    `json:"source,omitempty"`
	Regions   int       `json:"regions,omitempty"`
	Offers    int       `json:"offers,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Bundle is the unit exchanged between loader, stores, and the engine: a
// dataset descriptor plus its flat region records and offers.
type Bundle struct {
	Dataset Dataset        `json:"dataset"`
	Records []RegionRecord `json:"regions"`
	Offers  []*Offer       `json:"offers"`
}
