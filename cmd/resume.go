package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ngmihq/ngmi/internal/store"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Manage uploaded resumes",
}

var resumeUploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Upload a resume and extract its skills",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		lg := mustLogger()
		config := mustConfig(lg)

		userID, _ := cmd.Flags().GetInt64("user")

		path := args[0]
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			lg.Fatal("only PDF files are supported", zap.String("file", path))
		}

		data, err := os.ReadFile(path)
		if err != nil {
			lg.Fatal("reading the resume file", zap.Error(err))
		}

		st := openStore(ctx, lg, config)
		defer st.Close()

		text, skills, extractErr := newExtractor(lg, config).Extract(data)
		if extractErr != nil {
			// The failed row keeps the upload visible in listings; its
			// bytes are not stored.
			resume, err := st.CreateResume(ctx, store.CreateResumeParams{
				UserID:   userID,
				FileName: filepath.Base(path),
				Status:   store.ResumeFailed,
			})
			if err != nil {
				lg.Fatal("recording the failed upload", zap.Error(err))
			}

			lg.Fatal("extracting the resume",
				zap.Error(extractErr),
				zap.Int64("resume_id", resume.ID),
			)
		}

		docs := newDocstore(ctx, lg, config)

		key := uuid.NewString() + ".pdf"
		if err := docs.Put(ctx, key, data); err != nil {
			lg.Fatal("storing the resume file", zap.Error(err))
		}

		resume, err := st.CreateResume(ctx, store.CreateResumeParams{
			UserID:    userID,
			FileName:  filepath.Base(path),
			ObjectKey: key,
			RawText:   text,
			Status:    store.ResumeExtracted,
			Skills:    skills,
		})
		if err != nil {
			lg.Fatal("saving the resume", zap.Error(err))
		}

		lg.Info("resume uploaded",
			zap.Int64("resume_id", resume.ID),
			zap.Int("skills", len(resume.Skills)),
		)

		fmt.Println(renderResume(resume))
	},
}

var resumeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded resumes",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		lg := mustLogger()
		config := mustConfig(lg)

		userID, _ := cmd.Flags().GetInt64("user")

		st := openStore(ctx, lg, config)
		defer st.Close()

		resumes, err := st.ListResumes(ctx, userID)
		if err != nil {
			lg.Fatal("listing resumes", zap.Error(err))
		}

		fmt.Print(renderResumes(resumes))
	},
}

var resumeShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a resume's extracted text and skills",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		lg := mustLogger()
		config := mustConfig(lg)

		userID, _ := cmd.Flags().GetInt64("user")
		id := parseID(lg, args[0])

		st := openStore(ctx, lg, config)
		defer st.Close()

		resume := mustOwnResume(ctx, lg, st, userID, id)

		fmt.Println(renderResume(resume))
		fmt.Print(renderResumeText(resume))
	},
}

var resumeDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a resume and its stored file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		lg := mustLogger()
		config := mustConfig(lg)

		userID, _ := cmd.Flags().GetInt64("user")
		id := parseID(lg, args[0])

		st := openStore(ctx, lg, config)
		defer st.Close()

		resume := mustOwnResume(ctx, lg, st, userID, id)

		if err := st.DeleteResume(ctx, userID, id); err != nil {
			if errors.Is(err, store.ErrResumeInUse) {
				lg.Fatal("cannot delete the resume",
					zap.Error(err),
					zap.String("hint", "wait for the pending application to finish or run 'ngmi sweep'"),
				)
			}
			lg.Fatal("deleting the resume", zap.Error(err))
		}

		if resume.ObjectKey != "" {
			docs := newDocstore(ctx, lg, config)
			if err := docs.Delete(ctx, resume.ObjectKey); err != nil {
				// The row is already gone; the orphaned object is only
				// worth a warning.
				lg.Warn("deleting the stored file",
					zap.Error(err),
					zap.String("object_key", resume.ObjectKey),
				)
			}
		}

		lg.Info("resume deleted", zap.Int64("resume_id", id))
	},
}

func parseID(lg *zap.Logger, raw string) int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		lg.Fatal("parsing the id", zap.String("argument", raw), zap.Error(err))
	}
	return id
}

// mustOwnResume loads a resume and dies unless it belongs to the user.
// Resumes of other users look exactly like missing ones.
func mustOwnResume(ctx context.Context, lg *zap.Logger, st *store.Store, userID, id int64) *store.Resume {
	resume, err := st.GetResume(ctx, id)
	if err != nil {
		lg.Fatal("loading the resume", zap.Error(err))
	}
	if resume == nil || resume.UserID != userID {
		lg.Fatal("resume not found", zap.Int64("resume_id", id), zap.Int64("user_id", userID))
	}
	return resume
}

func init() {
	rootCmd.AddCommand(resumeCmd)
	resumeCmd.AddCommand(resumeUploadCmd, resumeListCmd, resumeShowCmd, resumeDeleteCmd)

	resumeCmd.PersistentFlags().Int64("user", 1, "user id owning the resumes")
}
