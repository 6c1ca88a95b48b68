package loader

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sadikovi/pulsar/models"
)

// JSONLoader reads the JSON dataset format:
//
//	{
//	  "id": "bangkok-2026", "name": "Bangkok condos", "desc": "...",
//	  "regions": [...],
//	  "offers":  [{"id": "...", "properties": {...}, "target": "...", ...}]
//	}
//
// Regions come in two shapes, freely mixed: flat records carrying a parent
// id, and nested records carrying children. Both normalize to flat records;
// the engine builds the tree.
type JSONLoader struct{}

// NewJSONLoader returns a JSON dataset loader.
func NewJSONLoader() *JSONLoader {
	return &JSONLoader{}
}

type document struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Desc    string          `json:"desc"`
	Source  string          `json:"source"`
	Regions []regionEntry   `json:"regions"`
	Offers  []*models.Offer `json:"offers"`
}

type regionEntry struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Desc     string        `json:"desc"`
	Parent   string        `json:"parent"`
	Children []regionEntry `json:"children"`
}

// Load parses and validates one dataset document. Structural integrity
// problems (no regions, empty ids, duplicate offer ids, targetless offers)
// are fatal here, before the engine ever sees the data.
func (l *JSONLoader) Load(r io.Reader) (*models.Bundle, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}

	records, err := flattenRegions(doc.Regions)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset %q has no regions", doc.ID)
	}

	seen := make(map[string]struct{}, len(doc.Offers))
	for _, o := range doc.Offers {
		if o.ID == "" {
			return nil, fmt.Errorf("offer %q has an empty id", o.Name)
		}
		if _, dup := seen[o.ID]; dup {
			return nil, fmt.Errorf("duplicate offer id %q", o.ID)
		}
		seen[o.ID] = struct{}{}
		if o.Target == "" {
			return nil, fmt.Errorf("offer %q has no target region", o.ID)
		}
	}

	name := doc.Name
	if name == "" {
		name = doc.ID
	}
	return &models.Bundle{
		Dataset: models.Dataset{
			ID:      doc.ID,
			Name:    name,
			Desc:    doc.Desc,
			Source:  doc.Source,
			Regions: len(records),
			Offers:  len(doc.Offers),
		},
		Records: records,
		Offers:  doc.Offers,
	}, nil
}

// flattenRegions normalizes both region shapes to flat records. A nested
// child's parent is the enclosing entry regardless of any parent field it
// carries.
func flattenRegions(entries []regionEntry) ([]models.RegionRecord, error) {
	var records []models.RegionRecord
	var walk func(e regionEntry, parent string) error
	walk = func(e regionEntry, parent string) error {
		if e.ID == "" {
			return fmt.Errorf("region %q has an empty id", e.Name)
		}
		records = append(records, models.RegionRecord{
			ID:     e.ID,
			Name:   e.Name,
			Desc:   e.Desc,
			Parent: parent,
		})
		for _, child := range e.Children {
			if err := walk(child, e.ID); err != nil {
				return err
			}
		}
		return nil
	}
	for _, e := range entries {
		if err := walk(e, e.Parent); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// LoadFile loads a dataset document from disk. A missing dataset id falls
// back to the file name.
func LoadFile(path string) (*models.Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	bundle, err := NewJSONLoader().Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if bundle.Dataset.ID == "" {
		base := filepath.Base(path)
		bundle.Dataset.ID = strings.TrimSuffix(base, filepath.Ext(base))
		if bundle.Dataset.Name == "" {
			bundle.Dataset.Name = bundle.Dataset.ID
		}
	}
	return bundle, nil
}
