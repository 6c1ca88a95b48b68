package services

import (
	"strconv"
	"strings"

	"github.com/sadikovi/pulsar/models"
)

// UnlocatedID is the region adopting offers whose location could not be
// parsed. It is created on first use, so such offers are never orphaned.
const UnlocatedID = "unlocated"

// RegionIndex builds the region hierarchy from scraped location strings.
// "Sukhumvit, Bangkok, Thailand" yields country > city > area records with
// stable slug ids; repeated locations reuse the same chain.
type RegionIndex struct {
	records []models.RegionRecord
	byPath  map[string]string
	used    map[string]bool
}

// NewRegionIndex creates an empty index.
func NewRegionIndex() *RegionIndex {
	return &RegionIndex{
		byPath: make(map[string]string),
		used:   make(map[string]bool),
	}
}

// Target resolves a location to its leaf region id, creating the chain of
// region records on first sight. Empty or unparseable locations land in the
// shared unlocated region.
func (x *RegionIndex) Target(location string) string {
	parts := splitLocation(location)
	if len(parts) == 0 {
		return x.ensure("|"+UnlocatedID, UnlocatedID, "Unlocated", "")
	}

	// The scraped form is most-specific first; the hierarchy wants the
	// country on top.
	parent := ""
	path := ""
	for i := len(parts) - 1; i >= 0; i-- {
		name := parts[i]
		path += "|" + strings.ToLower(name)
		parent = x.ensure(path, Slugify(name), name, parent)
	}
	return parent
}

// Records returns every region record created so far, parents before
// children.
func (x *RegionIndex) Records() []models.RegionRecord {
	return x.records
}

// Len returns the number of regions created.
func (x *RegionIndex) Len() int {
	return len(x.records)
}

func (x *RegionIndex) ensure(path, id, name, parent string) string {
	if existing, ok := x.byPath[path]; ok {
		return existing
	}
	// Different paths can slugify identically; suffix until free.
	base := id
	for n := 2; x.used[id]; n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	x.used[id] = true
	x.byPath[path] = id
	x.records = append(x.records, models.RegionRecord{ID: id, Name: name, Parent: parent})
	return id
}

func splitLocation(location string) []string {
	var parts []string
	for _, p := range strings.Split(location, ",") {
		p = normaliseText(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Slugify lowercases and hyphenates a name into an id. Names with no usable
// characters fall back to a generic slug and rely on suffixing.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	s := strings.Trim(b.String(), "-")
	if s == "" {
		return "region"
	}
	return s
}
