package storage

import (
	"context"

	"github.com/sadikovi/pulsar/models"
)

// BundleStore is the interface any dataset backend must satisfy.
type BundleStore interface {
	SaveBundle(ctx context.Context, bundle *models.Bundle) error
	LoadBundle(ctx context.Context, id string) (*models.Bundle, error)
	ListDatasets(ctx context.Context) ([]models.Dataset, error)
	Close() error
}

// OfferExporter is the interface for exporting cleaned offers.
type OfferExporter interface {
	WriteOffers(offers []*models.Offer) error
	Close() error
}
