package models

// RegionStat summarizes one top-level region for reporting: its classified
// offer count, band breakdown, and weighted priority score.
type RegionStat struct {
	ID      string
	Name    string
	Offers  int
	Score   float64
	Summary PrioritySummary
}

// Report holds the computed insights over one dataset at a reference price.
type Report struct {
	Dataset        string
	ReferencePrice float64
	TotalOffers    int
	Classified     int
	Excluded       int
	Bands          PrioritySummary
	AveragePrice   float64
	MinPrice       float64
	MaxPrice       float64
	MostExpensive  *Offer
	TopRegions     []RegionStat
}
