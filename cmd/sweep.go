package cmd

import (
	"context"

	"github.com/ngmihq/ngmi/internal/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Fail pending applications stuck longer than the cutoff",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		lg := mustLogger()
		config := mustConfig(lg)

		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			olderThan = config.Pipeline.StaleAfter
		}

		st := openStore(ctx, lg, config)
		defer st.Close()

		publisher := newPublisher(lg, config)
		defer publisher.Close()

		n, err := pipeline.SweepStale(ctx, st, publisher, lg, olderThan)
		if err != nil {
			lg.Fatal("sweeping stale applications", zap.Error(err))
		}

		lg.Info("sweep finished",
			zap.Int("failed", n),
			zap.Duration("older_than", olderThan),
		)
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().Duration("older-than", 0, "age after which a pending application counts as stale (default: pipeline.stale-after)")
}
