package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/sadikovi/pulsar/models"
)

// CSVWriter exports cleaned offers to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	// Write header
	if err := w.Write([]string{
		"id", "name", "price", "bedrooms", "bathrooms", "target", "value", "link",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteOffers appends one row per offer.
func (c *CSVWriter) WriteOffers(offers []*models.Offer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, o := range offers {
		row := []string{
			o.ID,
			o.Name,
			strconv.FormatFloat(o.Properties.Price, 'f', 2, 64),
			strconv.Itoa(o.Properties.Bedrooms),
			strconv.FormatFloat(o.Properties.Bathrooms, 'f', 1, 64),
			o.Target,
			strconv.FormatFloat(o.Value, 'f', 2, 64),
			o.Properties.Link,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
