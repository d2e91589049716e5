package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var applicationsCmd = &cobra.Command{
	Use:   "applications",
	Short: "List a user's applications with their scores",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		lg := mustLogger()
		config := mustConfig(lg)

		userID, _ := cmd.Flags().GetInt64("user")

		st := openStore(ctx, lg, config)
		defer st.Close()

		rows, err := st.ListApplications(ctx, userID)
		if err != nil {
			lg.Fatal("listing applications", zap.Error(err))
		}

		fmt.Print(renderApplications(rows))
	},
}

func init() {
	rootCmd.AddCommand(applicationsCmd)

	applicationsCmd.Flags().Int64("user", 1, "user id")
}
