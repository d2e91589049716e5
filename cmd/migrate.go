package cmd

import (
	"context"

	"github.com/ngmihq/ngmi/internal/jobs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		lg := mustLogger()
		config := mustConfig(lg)

		st := openStore(ctx, lg, config)
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			lg.Fatal("applying the schema", zap.Error(err))
		}

		lg.Info("schema is up to date")

		if seed, _ := cmd.Flags().GetBool("seed"); !seed {
			return
		}

		corpus := jobs.NewCorpus(st, newVocabulary(lg, config), lg)

		added, err := corpus.Seed(ctx)
		if err != nil {
			lg.Fatal("seeding sample jobs", zap.Error(err))
		}

		lg.Info("seeded sample jobs", zap.Int("count", added))
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("seed", false, "insert the sample job postings when the corpus is empty")
}
