package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadikovi/pulsar/models"
	"github.com/sadikovi/pulsar/pricing"
	"github.com/sadikovi/pulsar/scraper/airbnb"
	"github.com/sadikovi/pulsar/services"
	"github.com/sadikovi/pulsar/storage"
)

func ingestCmd() *cobra.Command {
	var (
		datasetID   string
		datasetName string
		datasetDesc string
		pages       int
		noCSV       bool
	)

	cmd := &cobra.Command{
		Use:   "ingest [query]",
		Short: "Scrape offers for a location and store them as a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if pages > 0 {
				cfg.PagesToScrape = pages
			}

			logger.Info("=== pulsar ingest starting ===")
			logger.Info("Config — pages: %d | offers/page: %d | concurrency: %d | rate: %dms",
				cfg.PagesToScrape, cfg.OffersPerPage, cfg.MaxConcurrency, cfg.RateLimitMs)

			scraper := airbnb.New(cfg, logger)
			raw, err := scraper.Scrape(ctx, query)
			if err != nil {
				logger.Error("Scrape failed: %v", err)
			}
			if len(raw) == 0 {
				return fmt.Errorf("no offers were scraped for %q", query)
			}

			regions := services.NewRegionIndex()
			cleaner := services.NewCleaner(logger)
			offers := cleaner.Clean(raw, regions)
			if len(offers) == 0 {
				return fmt.Errorf("all offers were dropped during cleaning")
			}

			var est pricing.Estimator
			if cfg.AdaptivePricing {
				est = pricing.NewAdaptive(offers)
			} else {
				est = pricing.NewPassthrough(offers)
			}
			valued := pricing.Apply(offers, est)
			logger.Info("Cleaned dataset: %d offers (%d valued)", len(offers), valued)

			if datasetID == "" {
				datasetID = services.Slugify(query)
			}
			if datasetName == "" {
				datasetName = query
			}

			bundle := &models.Bundle{
				Dataset: models.Dataset{
					ID:        datasetID,
					Name:      datasetName,
					Desc:      datasetDesc,
					Source:    "airbnb",
					Regions:   regions.Len(),
					Offers:    len(offers),
					CreatedAt: time.Now().UTC(),
				},
				Records: regions.Records(),
				Offers:  offers,
			}

			store, err := openStore(ctx)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			if err := store.SaveBundle(ctx, bundle); err != nil {
				return fmt.Errorf("save dataset %q: %w", datasetID, err)
			}
			logger.Info("Dataset %q stored (%d regions, %d offers)", datasetID, regions.Len(), len(offers))

			if !noCSV {
				w, err := storage.NewCSVWriter(cfg.CSVOutputPath)
				if err != nil {
					logger.Warn("CSV export skipped: %v", err)
				} else {
					if err := w.WriteOffers(offers); err != nil {
						logger.Warn("CSV export failed: %v", err)
					} else {
						logger.Info("Offers exported to %s", cfg.CSVOutputPath)
					}
					w.Close()
				}
			}

			if err := printReport(bundle, 0); err != nil {
				logger.Warn("Report skipped: %v", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetID, "id", "", "Dataset id (default: slug of the query)")
	cmd.Flags().StringVar(&datasetName, "name", "", "Dataset display name (default: the query)")
	cmd.Flags().StringVar(&datasetDesc, "desc", "", "Dataset description")
	cmd.Flags().IntVar(&pages, "pages", 0, "Pages to scrape (overrides PAGES_TO_SCRAPE)")
	cmd.Flags().BoolVar(&noCSV, "no-csv", false, "Skip the CSV export")
	return cmd
}
