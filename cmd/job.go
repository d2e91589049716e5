package cmd

import (
	"context"
	"fmt"

	"github.com/ngmihq/ngmi/internal/jobs"
	"github.com/ngmihq/ngmi/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Manage job postings",
}

var jobAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a job posting from a URL or from flags",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		lg := mustLogger()
		config := mustConfig(lg)

		url, _ := cmd.Flags().GetString("url")
		title, _ := cmd.Flags().GetString("title")
		company, _ := cmd.Flags().GetString("company")
		description, _ := cmd.Flags().GetString("description")

		st := openStore(ctx, lg, config)
		defer st.Close()

		corpus := jobs.NewCorpus(st, newVocabulary(lg, config), lg)

		var (
			job *store.Job
			err error
		)
		switch {
		case url != "":
			ingester := jobs.NewIngester(corpus, newGenerator(ctx, lg, config), lg)
			job, err = ingester.FromURL(ctx, url)
		case title != "" || description != "":
			job, err = corpus.Add(ctx, title, company, description)
		default:
			lg.Fatal("either --url or --title with --description is required")
		}
		if err != nil {
			lg.Fatal("adding the job", zap.Error(err))
		}

		fmt.Println(renderJob(job))
	},
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List job postings",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		lg := mustLogger()
		config := mustConfig(lg)

		st := openStore(ctx, lg, config)
		defer st.Close()

		available, err := jobs.NewCorpus(st, nil, lg).ListJobs(ctx)
		if err != nil {
			lg.Fatal("listing jobs", zap.Error(err))
		}

		fmt.Print(renderJobs(available))
	},
}

var jobShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a job posting",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		lg := mustLogger()
		config := mustConfig(lg)

		id := parseID(lg, args[0])

		st := openStore(ctx, lg, config)
		defer st.Close()

		job, err := jobs.NewCorpus(st, nil, lg).GetJob(ctx, id)
		if err != nil {
			lg.Fatal("loading the job", zap.Error(err))
		}
		if job == nil {
			lg.Fatal("job not found", zap.Int64("job_id", id))
		}

		fmt.Println(renderJob(job))
		fmt.Print(renderJobDescription(job))
	},
}

func init() {
	rootCmd.AddCommand(jobCmd)
	jobCmd.AddCommand(jobAddCmd, jobListCmd, jobShowCmd)

	jobAddCmd.Flags().String("url", "", "fetch the posting from this URL and extract its details")
	jobAddCmd.Flags().String("title", "", "job title")
	jobAddCmd.Flags().String("company", "", "company name")
	jobAddCmd.Flags().String("description", "", "job description")
}
