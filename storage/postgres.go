package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/sadikovi/pulsar/models"
	"github.com/sadikovi/pulsar/utils"
)

// PostgresStore persists datasets to PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, waits for the server to
// accept pings, runs schema migrations, and returns a ready-to-use store.
func NewPostgresStore(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 2 * time.Second, Logger: logger}
	if err := retry.Do(ctx, "postgres ping", func() error {
		return db.PingContext(ctx)
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS datasets (
			id          TEXT PRIMARY KEY,
			name        TEXT        NOT NULL,
			description TEXT        NOT NULL DEFAULT '',
			source      TEXT        NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS regions (
			dataset_id  TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
			id          TEXT NOT NULL,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			parent      TEXT NOT NULL DEFAULT '',
			position    INT  NOT NULL DEFAULT 0,
			PRIMARY KEY (dataset_id, id)
		);

		CREATE TABLE IF NOT EXISTS offers (
			dataset_id  TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
			id          TEXT NOT NULL,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price       NUMERIC(12,2) NOT NULL DEFAULT 0,
			bedrooms    INT           NOT NULL DEFAULT 0,
			bathrooms   NUMERIC(4,1)  NOT NULL DEFAULT 0,
			thumbnail   TEXT NOT NULL DEFAULT '',
			link        TEXT NOT NULL DEFAULT '',
			target      TEXT NOT NULL,
			value       NUMERIC(12,2) NOT NULL DEFAULT 0,
			PRIMARY KEY (dataset_id, id)
		);

		CREATE INDEX IF NOT EXISTS idx_regions_dataset ON regions(dataset_id);
		CREATE INDEX IF NOT EXISTS idx_offers_dataset  ON offers(dataset_id);
		CREATE INDEX IF NOT EXISTS idx_offers_target   ON offers(dataset_id, target);
		CREATE INDEX IF NOT EXISTS idx_offers_price    ON offers(price);
	`)
	return err
}

// SaveBundle replaces the stored dataset wholesale: the descriptor row is
// upserted and the regions and offers are rewritten.
func (ps *PostgresStore) SaveBundle(ctx context.Context, bundle *models.Bundle) error {
	if bundle.Dataset.ID == "" {
		return fmt.Errorf("postgres: bundle has no dataset id")
	}
	createdAt := bundle.Dataset.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO datasets (id, name, description, source, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description, source = EXCLUDED.source
	`, bundle.Dataset.ID, bundle.Dataset.Name, bundle.Dataset.Desc, bundle.Dataset.Source, createdAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert dataset: %w", err)
	}

	for _, table := range []string{"regions", "offers"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE dataset_id = $1", bundle.Dataset.ID); err != nil {
			return fmt.Errorf("postgres: clear %s: %w", table, err)
		}
	}

	if err := ps.insertRegions(ctx, tx, bundle.Dataset.ID, bundle.Records); err != nil {
		return err
	}
	if err := ps.insertOffers(ctx, tx, bundle.Dataset.ID, bundle.Offers); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (ps *PostgresStore) insertRegions(ctx context.Context, tx *sql.Tx, datasetID string, records []models.RegionRecord) error {
	const batchSize = 50
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[i:end]

		valueStrings := make([]string, 0, len(batch))
		valueArgs := make([]interface{}, 0, len(batch)*6)
		for idx, r := range batch {
			base := idx * 6
			valueStrings = append(valueStrings,
				fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)",
					base+1, base+2, base+3, base+4, base+5, base+6))
			valueArgs = append(valueArgs, datasetID, r.ID, r.Name, r.Desc, r.Parent, i+idx)
		}

		query := fmt.Sprintf(`
			INSERT INTO regions (dataset_id, id, name, description, parent, position)
			VALUES %s
			ON CONFLICT (dataset_id, id) DO NOTHING
		`, strings.Join(valueStrings, ","))

		if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
			return fmt.Errorf("postgres: insert regions: %w", err)
		}
	}
	return nil
}

func (ps *PostgresStore) insertOffers(ctx context.Context, tx *sql.Tx, datasetID string, offers []*models.Offer) error {
	const batchSize = 50
	for i := 0; i < len(offers); i += batchSize {
		end := i + batchSize
		if end > len(offers) {
			end = len(offers)
		}
		batch := offers[i:end]

		valueStrings := make([]string, 0, len(batch))
		valueArgs := make([]interface{}, 0, len(batch)*11)
		for idx, o := range batch {
			base := idx * 11
			valueStrings = append(valueStrings,
				fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
					base+1, base+2, base+3, base+4, base+5, base+6,
					base+7, base+8, base+9, base+10, base+11))
			valueArgs = append(valueArgs,
				datasetID, o.ID, o.Name, o.Desc,
				o.Properties.Price, o.Properties.Bedrooms, o.Properties.Bathrooms,
				o.Properties.Thumbnail, o.Properties.Link,
				o.Target, o.Value)
		}

		query := fmt.Sprintf(`
			INSERT INTO offers (dataset_id, id, name, description, price, bedrooms, bathrooms, thumbnail, link, target, value)
			VALUES %s
			ON CONFLICT (dataset_id, id) DO NOTHING
		`, strings.Join(valueStrings, ","))

		if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
			return fmt.Errorf("postgres: insert offers: %w", err)
		}
	}
	return nil
}

// LoadBundle reassembles one dataset from its three tables.
func (ps *PostgresStore) LoadBundle(ctx context.Context, id string) (*models.Bundle, error) {
	bundle := &models.Bundle{}
	err := ps.db.QueryRowContext(ctx, `
		SELECT id, name, description, source, created_at
		FROM datasets WHERE id = $1
	`, id).Scan(
		&bundle.Dataset.ID, &bundle.Dataset.Name, &bundle.Dataset.Desc,
		&bundle.Dataset.Source, &bundle.Dataset.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("postgres: %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: load dataset: %w", err)
	}

	rows, err := ps.db.QueryContext(ctx, `
		SELECT id, name, description, parent
		FROM regions WHERE dataset_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: load regions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r models.RegionRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Desc, &r.Parent); err != nil {
			return nil, fmt.Errorf("postgres: scan region: %w", err)
		}
		bundle.Records = append(bundle.Records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load regions: %w", err)
	}

	offerRows, err := ps.db.QueryContext(ctx, `
		SELECT id, name, description, price, bedrooms, bathrooms, thumbnail, link, target, value
		FROM offers WHERE dataset_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: load offers: %w", err)
	}
	defer offerRows.Close()
	for offerRows.Next() {
		o := &models.Offer{}
		if err := offerRows.Scan(
			&o.ID, &o.Name, &o.Desc,
			&o.Properties.Price, &o.Properties.Bedrooms, &o.Properties.Bathrooms,
			&o.Properties.Thumbnail, &o.Properties.Link,
			&o.Target, &o.Value,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan offer: %w", err)
		}
		bundle.Offers = append(bundle.Offers, o)
	}
	if err := offerRows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load offers: %w", err)
	}

	bundle.Dataset.Regions = len(bundle.Records)
	bundle.Dataset.Offers = len(bundle.Offers)
	return bundle, nil
}

// ListDatasets returns the catalog with region and offer counts.
func (ps *PostgresStore) ListDatasets(ctx context.Context) ([]models.Dataset, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT d.id, d.name, d.description, d.source, d.created_at,
		       (SELECT COUNT(*) FROM regions r WHERE r.dataset_id = d.id),
		       (SELECT COUNT(*) FROM offers o WHERE o.dataset_id = d.id)
		FROM datasets d
		ORDER BY d.id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list datasets: %w", err)
	}
	defer rows.Close()

	var datasets []models.Dataset
	for rows.Next() {
		var d models.Dataset
		if err := rows.Scan(&d.ID, &d.Name, &d.Desc, &d.Source, &d.CreatedAt, &d.Regions, &d.Offers); err != nil {
			return nil, fmt.Errorf("postgres: scan dataset: %w", err)
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
