package jobs

import "time"

// Job is one tracked application, always owned by exactly one user.
type Job struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index;not null" json:"user_id"`
	Company     string     `gorm:"not null" json:"company"`
	Role        string     `gorm:"not null" json:"role"`
	Location    string     `json:"location,omitempty"`
	JobURL      string     `gorm:"column:job_url" json:"job_url,omitempty"`
	Source      string     `json:"source,omitempty"`
	Budget      string     `json:"budget,omitempty"` // free text, e.g. "18-22 LPA"
	AppliedDate *time.Time `gorm:"type:date" json:"applied_date,omitempty"`
	Status      string     `gorm:"index" json:"status"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	JDFilename  string     `gorm:"column:jd_filename" json:"jd_filename,omitempty"`
	Comments    string     `gorm:"type:text" json:"comments,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DateLayout is the calendar date format accepted and rendered for
// AppliedDate.
const DateLayout = "2006-01-02"

// AppliedOn renders AppliedDate or "" when unset.
func (j Job) AppliedOn() string {
	if j.AppliedDate == nil {
		return ""
	}
	return j.AppliedDate.Format(DateLayout)
}

// Pipeline stages in hiring order.
const (
	StatusApplied             = "Applied"
	StatusShortlisted         = "Shortlisted"
	StatusOnlineAssessment    = "Online Assessment"
	StatusTechnicalInterview  = "Technical Interview"
	StatusManagerialInterview = "Managerial Interview"
	StatusHRInterview         = "HR Interview"
	StatusOfferReceived       = "Offer Received"
	StatusOfferAccepted       = "Offer Accepted"
	StatusJoined              = "Joined"
)

// Stages lists the canonical pipeline in order.
var Stages = []string{
	StatusApplied,
	StatusShortlisted,
	StatusOnlineAssessment,
	StatusTechnicalInterview,
	StatusManagerialInterview,
	StatusHRInterview,
	StatusOfferReceived,
	StatusOfferAccepted,
	StatusJoined,
}

// IsStage reports whether s is one of the canonical stages.
func IsStage(s string) bool {
	for _, stage := range Stages {
		if stage == s {
			return true
		}
	}
	return false
}
