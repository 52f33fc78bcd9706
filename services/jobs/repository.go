// Package jobs is the owner-scoped job repository. Every query filters on the
// caller's user id, so a job is invisible to everyone but its owner.
package jobs

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"job-tracker-backend/models/jobs"
)

// Durable runs a local mutation followed by a remote push.
type Durable interface {
	Write(ctx context.Context, fn func() error) error
}

type Repository struct {
	db      *gorm.DB
	durable Durable
	now     func() time.Time
}

func NewRepository(db *gorm.DB, durable Durable) *Repository {
	return &Repository{db: db, durable: durable, now: time.Now}
}

// List returns the owner's jobs, newest first.
func (r *Repository) List(ctx context.Context, ownerID uint) ([]jobs.Job, error) {
	var out []jobs.Job
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}
	return out, nil
}

// Get returns nil when the job does not exist or belongs to someone else.
func (r *Repository) Get(ctx context.Context, ownerID, id uint) (*jobs.Job, error) {
	return r.first(r.db.WithContext(ctx), "id = ? AND user_id = ?", id, ownerID)
}

// GetByAttachment finds the owner's job holding the attachment key.
func (r *Repository) GetByAttachment(ctx context.Context, ownerID uint, key string) (*jobs.Job, error) {
	if key == "" {
		return nil, nil
	}
	return r.first(r.db.WithContext(ctx), "jd_filename = ? AND user_id = ?", key, ownerID)
}

// Create validates in and inserts a job owned by ownerID.
func (r *Repository) Create(ctx context.Context, ownerID uint, in Input) (*jobs.Job, error) {
	f, err := in.normalize()
	if err != nil {
		return nil, err
	}
	now := r.timestamp()
	job := &jobs.Job{
		UserID:      ownerID,
		Company:     f.Company,
		Role:        f.Role,
		Location:    f.Location,
		JobURL:      f.JobURL,
		Source:      f.Source,
		Budget:      f.Budget,
		AppliedDate: f.appliedDate,
		Status:      f.Status,
		Description: f.Description,
		JDFilename:  f.JDFilename,
		Comments:    f.Comments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = r.durable.Write(ctx, func() error {
		return errors.Wrap(r.db.WithContext(ctx).Create(job).Error, "create job")
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateStatus changes only status and updated_at. It reports false without
// error when the job is missing or not owned.
func (r *Repository) UpdateStatus(ctx context.Context, ownerID, id uint, status string) (bool, error) {
	status = strings.TrimSpace(status)
	if err := validStatus(status); err != nil {
		return false, err
	}
	return r.mutate(ctx, ownerID, id, func(tx *gorm.DB, current *jobs.Job) error {
		return tx.Model(&jobs.Job{}).
			Where("id = ? AND user_id = ?", id, ownerID).
			Updates(map[string]interface{}{
				"status":     status,
				"updated_at": r.nextUpdate(current.UpdatedAt),
			}).Error
	})
}

// Replace overwrites every editable field. The attachment is kept unless in
// names a new one.
func (r *Repository) Replace(ctx context.Context, ownerID, id uint, in Input) (bool, error) {
	f, err := in.normalize()
	if err != nil {
		return false, err
	}
	return r.mutate(ctx, ownerID, id, func(tx *gorm.DB, current *jobs.Job) error {
		updates := map[string]interface{}{
			"company":      f.Company,
			"role":         f.Role,
			"location":     f.Location,
			"job_url":      f.JobURL,
			"source":       f.Source,
			"budget":       f.Budget,
			"applied_date": f.appliedDate,
			"status":       f.Status,
			"description":  f.Description,
			"comments":     f.Comments,
			"updated_at":   r.nextUpdate(current.UpdatedAt),
		}
		if f.JDFilename != "" {
			updates["jd_filename"] = f.JDFilename
		}
		return tx.Model(&jobs.Job{}).Where("id = ? AND user_id = ?", id, ownerID).Updates(updates).Error
	})
}

// Delete removes the job permanently and returns the deleted row so the
// caller can drop its attachment. It returns nil without error when nothing
// matched.
func (r *Repository) Delete(ctx context.Context, ownerID, id uint) (*jobs.Job, error) {
	var deleted *jobs.Job
	err := r.durable.Write(ctx, func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			current, err := r.first(tx, "id = ? AND user_id = ?", id, ownerID)
			if err != nil || current == nil {
				return err
			}
			if err := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&jobs.Job{}).Error; err != nil {
				return errors.Wrap(err, "delete job")
			}
			deleted = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// Stats counts the owner's jobs per status.
func (r *Repository) Stats(ctx context.Context, ownerID uint) (map[string]int, error) {
	var rows []struct {
		Status string
		Count  int
	}
	err := r.db.WithContext(ctx).Model(&jobs.Job{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", ownerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "job stats")
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// mutate loads the owned row and applies fn in one transaction under the
// durable writer. A missing row is a no-op and skips fn.
func (r *Repository) mutate(ctx context.Context, ownerID, id uint, fn func(tx *gorm.DB, current *jobs.Job) error) (bool, error) {
	found := false
	err := r.durable.Write(ctx, func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			current, err := r.first(tx, "id = ? AND user_id = ?", id, ownerID)
			if err != nil || current == nil {
				return err
			}
			if err := fn(tx, current); err != nil {
				return errors.Wrap(err, "update job")
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (r *Repository) first(db *gorm.DB, query string, args ...interface{}) (*jobs.Job, error) {
	var job jobs.Job
	err := db.Where(query, args...).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find job")
	}
	return &job, nil
}

func (r *Repository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

// nextUpdate keeps updated_at strictly increasing even when the clock does
// not advance between writes.
func (r *Repository) nextUpdate(prev time.Time) time.Time {
	now := r.timestamp()
	if !now.After(prev) {
		return prev.UTC().Add(time.Microsecond)
	}
	return now
}
