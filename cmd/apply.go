package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ngmihq/ngmi/internal/jobs"
	"github.com/ngmihq/ngmi/internal/pipeline"
	"github.com/ngmihq/ngmi/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a resume to a job and get the NGMI verdict",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		lg := mustLogger()
		config := mustConfig(lg)

		userID, _ := cmd.Flags().GetInt64("user")
		jobID, _ := cmd.Flags().GetInt64("job")
		resumeID, _ := cmd.Flags().GetInt64("resume")

		st := openStore(ctx, lg, config)
		defer st.Close()

		corpus := jobs.NewCorpus(st, nil, lg)

		if jobID == 0 {
			jobID = chooseJob(ctx, lg, corpus)
		}
		if resumeID == 0 {
			resumeID = chooseResume(ctx, lg, st, userID)
		}

		publisher := newPublisher(lg, config)
		defer publisher.Close()

		orchestrator := pipeline.New(st, corpus, newEvaluator(ctx, lg, config), publisher, pendingPolicy(config), lg)

		app, err := orchestrator.Apply(ctx, userID, jobID, resumeID)
		switch {
		case errors.Is(err, pipeline.ErrInvalidResume):
			lg.Fatal("cannot apply", zap.Error(err), zap.Int64("resume_id", resumeID))
		case errors.Is(err, pipeline.ErrJobNotFound):
			lg.Fatal("cannot apply", zap.Error(err), zap.Int64("job_id", jobID))
		case errors.Is(err, pipeline.ErrAlreadyInProgress):
			fields := []zap.Field{zap.Error(err)}
			if pending, findErr := st.FindPendingApplication(ctx, userID, jobID, resumeID); findErr == nil && pending != nil {
				fields = append(fields,
					zap.Int64("application_id", pending.ID),
					zap.String("hint", "wait for it to finish or run 'ngmi sweep' if it looks stuck"),
				)
			}
			lg.Fatal("cannot apply", fields...)
		case err != nil:
			// Terminal failure: the application exists in its failed
			// state and the triple is free for another attempt.
			if app != nil {
				fmt.Println(renderVerdict(app))
			}
			lg.Fatal("evaluation failed", zap.Error(err))
		}

		fmt.Println(renderVerdict(app))
	},
}

func chooseJob(ctx context.Context, lg *zap.Logger, corpus *jobs.Corpus) int64 {
	available, err := corpus.ListJobs(ctx)
	if err != nil {
		lg.Fatal("listing jobs", zap.Error(err))
	}
	if len(available) == 0 {
		lg.Fatal("no jobs to apply to",
			zap.String("hint", "run 'ngmi migrate --seed' or 'ngmi job add'"),
		)
	}

	items := make([]string, 0, len(available))
	for _, j := range available {
		items = append(items, jobLabel(j.ID, j.Title, j.Company))
	}

	prompt := promptui.Select{
		Label: "Choose a job and press ENTER",
		Items: items,
	}

	_, selected, err := prompt.Run()
	if err != nil {
		lg.Fatal("exiting", zap.Error(err))
	}

	return parseSelectedID(lg, selected)
}

func chooseResume(ctx context.Context, lg *zap.Logger, st *store.Store, userID int64) int64 {
	resumes, err := st.ListResumes(ctx, userID)
	if err != nil {
		lg.Fatal("listing resumes", zap.Error(err))
	}

	// Failed uploads cannot back an application, so they are not offered.
	items := make([]string, 0, len(resumes))
	for _, r := range resumes {
		if r.Status != store.ResumeExtracted {
			continue
		}
		items = append(items, fmt.Sprintf("%d %s", r.ID, r.FileName))
	}
	if len(items) == 0 {
		lg.Fatal("no usable resumes",
			zap.String("hint", "run 'ngmi resume upload <file.pdf>' first"),
		)
	}

	prompt := promptui.Select{
		Label: "Choose a resume and press ENTER",
		Items: items,
	}

	_, selected, err := prompt.Run()
	if err != nil {
		lg.Fatal("exiting", zap.Error(err))
	}

	return parseSelectedID(lg, selected)
}

func parseSelectedID(lg *zap.Logger, selected string) int64 {
	id, err := strconv.ParseInt(strings.Split(selected, " ")[0], 10, 64)
	if err != nil {
		lg.Fatal("parsing the selection", zap.String("selected", selected), zap.Error(err))
	}
	return id
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().Int64("user", 1, "user id applying")
	applyCmd.Flags().Int64("job", 0, "job id to apply to; prompts when omitted")
	applyCmd.Flags().Int64("resume", 0, "resume id to apply with; prompts when omitted")
}
