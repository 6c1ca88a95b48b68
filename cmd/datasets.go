package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func datasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"ls"},
		Short:   "List stored datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			store, err := openStore(ctx)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			list, err := store.ListDatasets(ctx)
			if err != nil {
				return fmt.Errorf("list datasets: %w", err)
			}
			if len(list) == 0 {
				fmt.Println("No datasets stored yet. Run `pulsar ingest` first.")
				return nil
			}

			fmt.Printf("\n  %-20s %-24s %8s %8s  %s\n", "ID", "NAME", "REGIONS", "OFFERS", "CREATED")
			for _, d := range list {
				created := ""
				if !d.CreatedAt.IsZero() {
					created = d.CreatedAt.Format("2006-01-02 15:04")
				}
				fmt.Printf("  %-20.20s %-24.24s %8d %8d  %s\n", d.ID, d.Name, d.Regions, d.Offers, created)
			}
			fmt.Println()
			return nil
		},
	}
}
