// Package loader parses dataset documents into bundles the engine and the
// stores exchange. A document carries the dataset descriptor, its region
// hierarchy, and its offers.
package loader

import (
	"io"

	"github.com/sadikovi/pulsar/models"
)

// Loader parses one dataset document.
type Loader interface {
	Load(r io.Reader) (*models.Bundle, error)
}
