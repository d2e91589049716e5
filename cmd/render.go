package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/ngmihq/ngmi/internal/ai"
	"github.com/ngmihq/ngmi/internal/logger"
	"github.com/ngmihq/ngmi/internal/store"

	"github.com/charmbracelet/lipgloss"
)

const resumePreviewLength = 600

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	scoreStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// jobLabel starts with the bare id so promptui selections can be parsed
// back by splitting on the first space.
func jobLabel(id int64, title, company string) string {
	if company == "" {
		return fmt.Sprintf("%d %s", id, title)
	}
	return fmt.Sprintf("%d %s / %s", id, title, company)
}

func skillLine(skills []string) string {
	if len(skills) == 0 {
		return mutedStyle.Render("none detected")
	}
	return strings.Join(skills, ", ")
}

func renderVerdict(app *store.Application) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("NGMI verdict") + "\n")

	if !app.Score.Valid {
		b.WriteString(mutedStyle.Render("status: "+string(app.Status)) + "\n")
		return b.String()
	}

	b.WriteString(scoreStyle.Render(fmt.Sprintf("%.1f / 100", app.Score.Float64)))
	b.WriteString(mutedStyle.Render(fmt.Sprintf(" (%s)", ai.Band(app.Score.Float64))) + "\n")

	if app.Comment.Valid && app.Comment.String != "" {
		b.WriteString(app.Comment.String + "\n")
	}
	if app.Feedback.Valid && app.Feedback.String != "" {
		b.WriteString("\n" + labelStyle.Render("Feedback") + "\n")
		b.WriteString(app.Feedback.String + "\n")
	}

	return b.String()
}

func renderResume(r *store.Resume) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Resume #%d", r.ID)) + "\n")
	b.WriteString(labelStyle.Render("File: ") + r.FileName + "\n")
	b.WriteString(labelStyle.Render("Status: ") + string(r.Status) + "\n")
	b.WriteString(labelStyle.Render("Uploaded: ") + r.UploadedAt.Format(time.RFC3339) + "\n")
	b.WriteString(labelStyle.Render("Skills: ") + skillLine(r.Skills) + "\n")

	return b.String()
}

func renderResumeText(r *store.Resume) string {
	preview := logger.TruncateForLog(r.RawText, resumePreviewLength)
	if preview == "" {
		preview = mutedStyle.Render("(no extracted text)")
	}
	return labelStyle.Render("Extracted text") + "\n" + preview + "\n"
}

func renderResumes(resumes []store.Resume) string {
	if len(resumes) == 0 {
		return mutedStyle.Render("no resumes uploaded yet") + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Resumes") + "\n")
	for _, r := range resumes {
		b.WriteString(fmt.Sprintf("#%d %s", r.ID, r.FileName))
		if r.Status != store.ResumeExtracted {
			b.WriteString(" " + mutedStyle.Render(string(r.Status)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderJob(j *store.Job) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Job #%d", j.ID)) + "\n")
	b.WriteString(labelStyle.Render("Title: ") + j.Title + "\n")
	if j.Company != "" {
		b.WriteString(labelStyle.Render("Company: ") + j.Company + "\n")
	}
	b.WriteString(labelStyle.Render("Required skills: ") + skillLine(j.RequiredSkills) + "\n")

	return b.String()
}

func renderJobDescription(j *store.Job) string {
	return labelStyle.Render("Description") + "\n" + j.Description + "\n"
}

func renderJobs(jobs []store.Job) string {
	if len(jobs) == 0 {
		return mutedStyle.Render("no jobs yet, run 'ngmi migrate --seed' or 'ngmi job add'") + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Jobs") + "\n")
	for _, j := range jobs {
		b.WriteString("#" + jobLabel(j.ID, j.Title, j.Company) + "\n")
	}
	return b.String()
}

func renderApplications(rows []store.ApplicationRow) string {
	if len(rows) == 0 {
		return mutedStyle.Render("no applications yet") + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Applications") + "\n")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("#%d %s", row.ID, row.JobTitle))
		if row.JobCompany != "" {
			b.WriteString(" / " + row.JobCompany)
		}
		b.WriteString("\n  ")

		if row.Score.Valid {
			b.WriteString(scoreStyle.Render(fmt.Sprintf("%.1f", row.Score.Float64)))
			b.WriteString(mutedStyle.Render(fmt.Sprintf(" (%s)", ai.Band(row.Score.Float64))))
		} else {
			b.WriteString(mutedStyle.Render(string(row.Status)))
		}
		if row.Comment.Valid && row.Comment.String != "" {
			b.WriteString(" " + row.Comment.String)
		}
		b.WriteString("\n")
	}
	return b.String()
}
