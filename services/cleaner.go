package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/sadikovi/pulsar/models"
	"github.com/sadikovi/pulsar/utils"
)

var (
	// priceRegexp captures numeric price values
	priceRegexp = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)
	// nightsRegexp captures "X nights" or "X night" patterns
	nightsRegexp = regexp.MustCompile(`(\d+)\s*nights?`)
	// bedsRegexp captures "X bed/beds/bedrooms" counts
	bedsRegexp = regexp.MustCompile(`(\d+)\s*(?:bedrooms?|beds?)\b`)
	// bathsRegexp captures "X bath/baths/bathrooms" counts, halves included
	bathsRegexp = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:bathrooms?|baths?)\b`)
	// idRegexp captures the trailing numeric id of a listing URL
	idRegexp = regexp.MustCompile(`(\d+)\D*$`)
)

// Cleaner transforms RawOffers into clean, validated Offers targeted at
// regions.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean processes raw captures into offers: it drops records without a link
// or a parseable price, dedupes by link, and targets each offer at the leaf
// region the index resolves for its location.
func (c *Cleaner) Clean(raw []*models.RawOffer, regions *RegionIndex) []*models.Offer {
	seen := make(map[string]struct{})
	result := make([]*models.Offer, 0, len(raw))

	for _, r := range raw {
		link := strings.TrimSpace(r.Link)
		if link == "" {
			c.logger.Warn("[cleaner] Dropping offer with empty link: %s", r.Name)
			continue
		}
		if _, dup := seen[link]; dup {
			c.logger.Debug("[cleaner] Duplicate link skipped: %s", link)
			continue
		}
		seen[link] = struct{}{}

		price := c.parsePrice(r.RawPrice)
		if price <= 0 {
			c.logger.Warn("[cleaner] Dropping offer without a parseable price: %s", link)
			continue
		}

		offer := &models.Offer{
			ID:   offerID(link, len(result)),
			Name: normaliseText(r.Name),
			Desc: normaliseText(r.Description),
			Properties: models.OfferProperties{
				Price:     price,
				Bedrooms:  c.parseBedrooms(r.RawBeds),
				Bathrooms: c.parseBathrooms(r.RawBaths),
				Thumbnail: strings.TrimSpace(r.Thumbnail),
				Link:      link,
			},
			Target: regions.Target(r.Location),
		}
		result = append(result, offer)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d offers (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

// parsePrice extracts price and converts multi-night prices to per-night rate.
// Examples:
//
//	"$150 night" → 150
//	"$450 for 3 nights" → 150 (450/3)
func (c *Cleaner) parsePrice(raw string) float64 {
	raw = strings.ToLower(raw)

	cleaned := strings.ReplaceAll(raw, ",", "")
	match := priceRegexp.FindString(cleaned)
	if match == "" {
		return 0
	}

	totalPrice, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}

	nightsMatch := nightsRegexp.FindStringSubmatch(raw)
	if len(nightsMatch) >= 2 {
		nights, err := strconv.Atoi(nightsMatch[1])
		if err == nil && nights > 1 {
			perNightPrice := totalPrice / float64(nights)
			c.logger.Debug("[cleaner] Multi-night price detected: $%.2f for %d nights = $%.2f/night",
				totalPrice, nights, perNightPrice)
			return perNightPrice
		}
	}

	return totalPrice
}

// parseBedrooms extracts a bedroom count from strings like "2 beds" or
// "Studio · 1 bedroom".
func (c *Cleaner) parseBedrooms(raw string) int {
	match := bedsRegexp.FindStringSubmatch(strings.ToLower(raw))
	if len(match) < 2 {
		return 0
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseBathrooms extracts a bathroom count, allowing halves ("1.5 baths").
func (c *Cleaner) parseBathrooms(raw string) float64 {
	match := bathsRegexp.FindStringSubmatch(strings.ToLower(raw))
	if len(match) < 2 {
		return 0
	}
	val, err := strconv.ParseFloat(match[1], 64)
	if err != nil || val < 0 {
		return 0
	}
	return val
}

// offerID derives a stable id from the listing URL's trailing numeric id,
// falling back to a positional id.
func offerID(link string, position int) string {
	if match := idRegexp.FindStringSubmatch(link); len(match) >= 2 {
		return "offer-" + match[1]
	}
	return "offer-" + strconv.Itoa(position+1)
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
