package jobs

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"job-tracker-backend/models/jobs"
)

// ErrValidation marks input rejected before reaching the database.
var ErrValidation = errors.New("invalid job")

// Input carries the user-editable fields of a job as submitted.
type Input struct {
	Company     string `json:"company"`
	Role        string `json:"role"`
	Location    string `json:"location"`
	JobURL      string `json:"job_url"`
	Source      string `json:"source"`
	Budget      string `json:"budget"`
	AppliedDate string `json:"applied_date"` // YYYY-MM-DD or empty
	Status      string `json:"status"`
	Description string `json:"description"`
	Comments    string `json:"comments"`
	// JDFilename is the attachment key. Empty keeps the current attachment
	// on Replace.
	JDFilename string `json:"-"`
}

// InputFromJob returns the editable fields of j, for prefilling forms.
func InputFromJob(j *jobs.Job) Input {
	return Input{
		Company:     j.Company,
		Role:        j.Role,
		Location:    j.Location,
		JobURL:      j.JobURL,
		Source:      j.Source,
		Budget:      j.Budget,
		AppliedDate: j.AppliedOn(),
		Status:      j.Status,
		Description: j.Description,
		Comments:    j.Comments,
		JDFilename:  j.JDFilename,
	}
}

type fields struct {
	Input
	appliedDate *time.Time
}

// Validate reports the first problem with the input.
func (in Input) Validate() error {
	_, err := in.normalize()
	return err
}

func (in Input) normalize() (fields, error) {
	in.Company = strings.TrimSpace(in.Company)
	in.Role = strings.TrimSpace(in.Role)
	in.Status = strings.TrimSpace(in.Status)
	in.Location = strings.TrimSpace(in.Location)
	in.JobURL = strings.TrimSpace(in.JobURL)
	in.Source = strings.TrimSpace(in.Source)
	in.Budget = strings.TrimSpace(in.Budget)
	in.AppliedDate = strings.TrimSpace(in.AppliedDate)

	switch {
	case in.Company == "":
		return fields{}, invalid("company is required")
	case in.Role == "":
		return fields{}, invalid("role is required")
	case in.Status == "":
		return fields{}, invalid("status is required")
	}
	if err := validStatus(in.Status); err != nil {
		return fields{}, err
	}

	f := fields{Input: in}
	if in.AppliedDate != "" {
		d, err := time.ParseInLocation(jobs.DateLayout, in.AppliedDate, time.UTC)
		if err != nil {
			return fields{}, invalid("applied date must be a date like 2024-01-31")
		}
		f.appliedDate = &d
	}
	return f, nil
}

func validStatus(status string) error {
	if !jobs.IsStage(status) {
		return invalid("unknown status " + status)
	}
	return nil
}

func invalid(msg string) error {
	return errors.Mark(errors.New(msg), ErrValidation)
}
