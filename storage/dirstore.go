package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sadikovi/pulsar/loader"
	"github.com/sadikovi/pulsar/models"
	"github.com/sadikovi/pulsar/utils"
)

// ErrNotFound reports that no dataset with the requested id exists in the
// store.
var ErrNotFound = errors.New("dataset not found")

// DirStore keeps one JSON document per dataset under a data directory. It is
// the default backend: drop files in, they show up in the catalog.
type DirStore struct {
	dir    string
	logger *utils.Logger
}

// NewDirStore creates the data directory if needed and returns the store.
func NewDirStore(dir string, logger *utils.Logger) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("dirstore: create data dir: %w", err)
	}
	return &DirStore{dir: dir, logger: logger}, nil
}

func (s *DirStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// SaveBundle writes the dataset document, replacing any previous version.
func (s *DirStore) SaveBundle(ctx context.Context, bundle *models.Bundle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bundle.Dataset.ID == "" {
		return fmt.Errorf("dirstore: bundle has no dataset id")
	}

	doc := map[string]interface{}{
		"id":      bundle.Dataset.ID,
		"name":    bundle.Dataset.Name,
		"desc":    bundle.Dataset.Desc,
		"source":  bundle.Dataset.Source,
		"regions": bundle.Records,
		"offers":  bundle.Offers,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("dirstore: encode dataset %q: %w", bundle.Dataset.ID, err)
	}

	// Write to a temp file first so readers never see a torn document.
	tmp, err := os.CreateTemp(s.dir, bundle.Dataset.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("dirstore: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("dirstore: write dataset %q: %w", bundle.Dataset.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("dirstore: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(bundle.Dataset.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("dirstore: replace dataset %q: %w", bundle.Dataset.ID, err)
	}
	return nil
}

// LoadBundle reads and validates one dataset document.
func (s *DirStore) LoadBundle(ctx context.Context, id string) (*models.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bundle, err := loader.LoadFile(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("dirstore: %q: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return bundle, nil
}

// ListDatasets scans the data directory and parses every *.json document
// concurrently. Unparseable files are logged and skipped so one bad drop
// does not hide the rest of the catalog.
func (s *DirStore) ListDatasets(ctx context.Context) ([]models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("dirstore: scan data dir: %w", err)
	}

	var (
		mu       sync.Mutex
		datasets []models.Dataset
	)
	pool := utils.NewWorkerPool(4, 0)
	for _, p := range paths {
		path := p
		pool.Submit(func() {
			bundle, err := loader.LoadFile(path)
			if err != nil {
				s.logger.Warn("Skipping unreadable dataset %s: %v", filepath.Base(path), err)
				return
			}
			if fi, err := os.Stat(path); err == nil && bundle.Dataset.CreatedAt.IsZero() {
				bundle.Dataset.CreatedAt = fi.ModTime().UTC()
			}
			mu.Lock()
			datasets = append(datasets, bundle.Dataset)
			mu.Unlock()
		})
	}
	pool.Wait()

	sort.Slice(datasets, func(i, j int) bool {
		return strings.ToLower(datasets[i].ID) < strings.ToLower(datasets[j].ID)
	})
	return datasets, nil
}

// Close is a no-op; the store holds no open handles between calls.
func (s *DirStore) Close() error {
	return nil
}
