package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/salesiq/internal/progress"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the semantic order index used by the retrieval fallback",
	Long:  `Fetches the dataset and embeds every order into the retrieval index. The build is skipped when the dataset has not changed since the last run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if a.index == nil {
			return fmt.Errorf("retrieval is disabled; set retrieval.enabled and embedding_provider in %s", cfgFile)
		}

		snap, err := a.data.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("fetching dataset: %w", err)
		}

		rebuilt, err := a.index.Build(ctx, snap, progress.NewReporter("Indexing orders"))
		if err != nil {
			return err
		}
		if !rebuilt {
			fmt.Printf("Index is up to date (%d orders).\n", a.index.Count())
			return nil
		}
		fmt.Printf("Indexed %d orders into %s\n", a.index.Count(), a.cfg.Retrieval.Dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
