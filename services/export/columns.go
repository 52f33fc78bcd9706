// Package export renders a user's jobs as CSV, XLSX or PDF documents.
package export

import (
	"time"

	"job-tracker-backend/models/jobs"
	"job-tracker-backend/services/storage"
)

// Columns is the header shared by the tabular formats.
var Columns = []string{
	"Company",
	"Role",
	"Location",
	"Job URL",
	"Source",
	"Budget",
	"Applied Date",
	"Status",
	"Description",
	"JD File",
	"Comments",
	"Created At",
	"Updated At",
}

const timestampLayout = "2006-01-02 15:04:05"

func row(j jobs.Job) []string {
	jd := ""
	if j.JDFilename != "" {
		jd = storage.DisplayName(j.JDFilename)
	}
	return []string{
		j.Company,
		j.Role,
		j.Location,
		j.JobURL,
		j.Source,
		j.Budget,
		j.AppliedOn(),
		j.Status,
		j.Description,
		jd,
		j.Comments,
		formatTime(j.CreatedAt),
		formatTime(j.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}
