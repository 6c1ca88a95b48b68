package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadikovi/pulsar/engine"
	"github.com/sadikovi/pulsar/models"
	"github.com/sadikovi/pulsar/pricing"
	"github.com/sadikovi/pulsar/services"
)

func reportCmd() *cobra.Command {
	var reference float64

	cmd := &cobra.Command{
		Use:   "report [dataset-id]",
		Short: "Print the priority breakdown for a stored dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			store, err := openStore(ctx)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			bundle, err := store.LoadBundle(ctx, args[0])
			if err != nil {
				return fmt.Errorf("load dataset %q: %w", args[0], err)
			}

			return printReport(bundle, reference)
		},
	}

	cmd.Flags().Float64Var(&reference, "reference", 0, "Reference price (default: dataset mid point)")
	return cmd
}

// printReport classifies a bundle at the given reference price (mid point
// when zero) and prints the insight report.
func printReport(bundle *models.Bundle, reference float64) error {
	if reference <= 0 {
		reference = pricing.NewPassthrough(bundle.Offers).MidPoint()
	}

	policy, err := loadPolicy()
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	sess, err := engine.NewSession(bundle.Records, bundle.Offers, engine.Options{
		ReferencePrice: reference,
		Policy:         policy,
	})
	if err != nil {
		if errors.Is(err, engine.ErrBadReference) {
			return fmt.Errorf("no usable reference price for %q; pass --reference", bundle.Dataset.ID)
		}
		return err
	}

	svc := services.NewInsightService(logger)
	svc.Print(svc.Generate(bundle, sess))
	return nil
}
