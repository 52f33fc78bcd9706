// Package jobs serves the dashboard and the per-job pages.
package jobs

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"job-tracker-backend/controllers/middleware"
	"job-tracker-backend/logger"
	"job-tracker-backend/models/jobs"
	jobsvc "job-tracker-backend/services/jobs"
	"job-tracker-backend/services/storage"
	"job-tracker-backend/views"
)

// Store is the owner-scoped job repository.
type Store interface {
	List(ctx context.Context, ownerID uint) ([]jobs.Job, error)
	Get(ctx context.Context, ownerID, id uint) (*jobs.Job, error)
	GetByAttachment(ctx context.Context, ownerID uint, key string) (*jobs.Job, error)
	Create(ctx context.Context, ownerID uint, in jobsvc.Input) (*jobs.Job, error)
	UpdateStatus(ctx context.Context, ownerID, id uint, status string) (bool, error)
	Replace(ctx context.Context, ownerID, id uint, in jobsvc.Input) (bool, error)
	Delete(ctx context.Context, ownerID, id uint) (*jobs.Job, error)
	Stats(ctx context.Context, ownerID uint) (map[string]int, error)
}

// Files stores job-description attachments.
type Files interface {
	Save(ctx context.Context, userID uint, filename string, r io.Reader) (string, error)
	Open(ctx context.Context, key string) (*os.File, error)
	Delete(ctx context.Context, key string) error
}

// Flasher carries one-shot messages across a redirect.
type Flasher interface {
	AddFlash(w http.ResponseWriter, r *http.Request, msg string) error
	Flashes(w http.ResponseWriter, r *http.Request) []string
}

type Handler struct {
	store     Store
	files     Files
	flash     Flasher
	views     *views.Renderer
	maxUpload int64
}

func NewHandler(store Store, files Files, flash Flasher, renderer *views.Renderer, maxUpload int64) *Handler {
	return &Handler{store: store, files: files, flash: flash, views: renderer, maxUpload: maxUpload}
}

func log() *zap.SugaredLogger { return logger.Named("jobs") }

func (h *Handler) base(w http.ResponseWriter, r *http.Request, title string) views.Base {
	b := views.Base{Title: title, Flashes: h.flash.Flashes(w, r)}
	if u := middleware.User(r.Context()); u != nil {
		b.Username = u.Username
	}
	return b
}

// Dashboard lists the user's jobs with per-status counts.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, http.StatusOK, jobsvc.Input{Status: jobs.StatusApplied}, "")
}

func (h *Handler) renderDashboard(w http.ResponseWriter, r *http.Request, status int, form jobsvc.Input, formErr string) {
	owner := middleware.UserID(r.Context())
	list, err := h.store.List(r.Context(), owner)
	if err != nil {
		h.serverError(w, "list jobs", err)
		return
	}
	stats, err := h.store.Stats(r.Context(), owner)
	if err != nil {
		h.serverError(w, "job stats", err)
		return
	}
	page := views.DashboardPage{
		Base:   h.base(w, r, "Dashboard"),
		Jobs:   list,
		Stats:  stats,
		Stages: jobs.Stages,
		Form:   form,
	}
	page.Error = formErr
	h.views.Render(w, status, "index.html", page)
}

// Add creates a job from the dashboard form, with an optional jd_file.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	owner := middleware.UserID(r.Context())
	if !h.parseForm(w, r) {
		return
	}
	in := formInput(r)
	if err := in.Validate(); err != nil {
		h.renderDashboard(w, r, http.StatusBadRequest, in, views.ErrorText(err))
		return
	}

	key, err := h.saveUpload(r, owner)
	if err != nil {
		h.writeError(w, r, "save attachment", err)
		return
	}
	in.JDFilename = key

	job, err := h.store.Create(r.Context(), owner, in)
	if err != nil {
		h.dropUncommitted(r.Context(), key, err)
		if errors.Is(err, jobsvc.ErrValidation) {
			h.renderDashboard(w, r, http.StatusBadRequest, in, views.ErrorText(err))
			return
		}
		h.writeError(w, r, "create job", err)
		return
	}

	log().Infow("job created", logger.FieldUserID, owner, logger.FieldJobID, job.ID)
	_ = h.flash.AddFlash(w, r, fmt.Sprintf("Added %s · %s.", job.Company, job.Role))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// UpdateStatus changes only the status of a job. A next=detail form value
// returns to the job page instead of the dashboard.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	owner := middleware.UserID(r.Context())
	id, ok := jobID(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	found, err := h.store.UpdateStatus(r.Context(), owner, id, r.PostFormValue("status"))
	switch {
	case errors.Is(err, jobsvc.ErrValidation):
		_ = h.flash.AddFlash(w, r, views.ErrorText(err))
	case err != nil:
		h.writeError(w, r, "update status", err)
		return
	case !found:
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	default:
		log().Infow("job status updated", logger.FieldUserID, owner, logger.FieldJobID, id)
	}

	if r.PostFormValue("next") == "detail" {
		http.Redirect(w, r, fmt.Sprintf("/job/%d", id), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Detail shows every field of one job.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	job, ok := h.owned(w, r)
	if !ok {
		return
	}
	h.views.Render(w, http.StatusOK, "job.html", views.JobPage{
		Base:   h.base(w, r, job.Company),
		Job:    job,
		Stages: jobs.Stages,
	})
}

// EditForm shows the edit form prefilled from the job.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	job, ok := h.owned(w, r)
	if !ok {
		return
	}
	h.renderEdit(w, r, http.StatusOK, job, jobsvc.InputFromJob(job), "")
}

func (h *Handler) renderEdit(w http.ResponseWriter, r *http.Request, status int, job *jobs.Job, form jobsvc.Input, formErr string) {
	page := views.EditPage{
		Base:   h.base(w, r, "Edit "+job.Company),
		Job:    job,
		Form:   form,
		Stages: jobs.Stages,
	}
	page.Error = formErr
	h.views.Render(w, status, "edit.html", page)
}

// Edit replaces all editable fields. A new jd_file replaces the old
// attachment, which is then removed.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	owner := middleware.UserID(r.Context())
	job, ok := h.owned(w, r)
	if !ok {
		return
	}
	if !h.parseForm(w, r) {
		return
	}
	in := formInput(r)
	if err := in.Validate(); err != nil {
		h.renderEdit(w, r, http.StatusBadRequest, job, in, views.ErrorText(err))
		return
	}

	key, err := h.saveUpload(r, owner)
	if err != nil {
		h.writeError(w, r, "save attachment", err)
		return
	}
	in.JDFilename = key

	found, err := h.store.Replace(r.Context(), owner, job.ID, in)
	if err != nil {
		// On a failed push the old attachment stays too: the last pushed
		// snapshot still names it.
		h.dropUncommitted(r.Context(), key, err)
		if errors.Is(err, jobsvc.ErrValidation) {
			h.renderEdit(w, r, http.StatusBadRequest, job, in, views.ErrorText(err))
			return
		}
		h.writeError(w, r, "edit job", err)
		return
	}
	if !found {
		h.dropAttachment(r.Context(), key)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if key != "" && job.JDFilename != "" && job.JDFilename != key {
		h.dropAttachment(r.Context(), job.JDFilename)
	}

	log().Infow("job edited", logger.FieldUserID, owner, logger.FieldJobID, job.ID)
	http.Redirect(w, r, fmt.Sprintf("/job/%d", job.ID), http.StatusSeeOther)
}

// Delete removes the job and, best effort, its attachment.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner := middleware.UserID(r.Context())
	id, ok := jobID(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	deleted, err := h.store.Delete(r.Context(), owner, id)
	if err != nil {
		h.writeError(w, r, "delete job", err)
		return
	}
	if deleted != nil {
		h.dropAttachment(r.Context(), deleted.JDFilename)
		log().Infow("job deleted", logger.FieldUserID, owner, logger.FieldJobID, id)
		_ = h.flash.AddFlash(w, r, fmt.Sprintf("Deleted %s · %s.", deleted.Company, deleted.Role))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// DownloadJobAttachment serves the attachment of a job owned by the caller.
func (h *Handler) DownloadJobAttachment(w http.ResponseWriter, r *http.Request) {
	owner := middleware.UserID(r.Context())
	id, ok := jobID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	job, err := h.store.Get(r.Context(), owner, id)
	if err != nil {
		h.serverError(w, "load job", err)
		return
	}
	h.serveAttachment(w, r, job)
}

// LegacyDownload resolves /jd/{filename...} through the caller's jobs.
func (h *Handler) LegacyDownload(w http.ResponseWriter, r *http.Request) {
	owner := middleware.UserID(r.Context())
	job, err := h.store.GetByAttachment(r.Context(), owner, r.PathValue("filename"))
	if err != nil {
		h.serverError(w, "load job", err)
		return
	}
	h.serveAttachment(w, r, job)
}

func (h *Handler) serveAttachment(w http.ResponseWriter, r *http.Request, job *jobs.Job) {
	if job == nil || job.JDFilename == "" {
		http.NotFound(w, r)
		return
	}
	f, err := h.files.Open(r.Context(), job.JDFilename)
	if errors.Is(err, storage.ErrAttachmentNotFound) {
		log().Warnw("attachment missing", logger.FieldJobID, job.ID, logger.FieldKey, job.JDFilename)
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, "open attachment", err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.serverError(w, "stat attachment", err)
		return
	}
	name := storage.DisplayName(job.JDFilename)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// owned loads the job named in the path, redirecting home when the caller
// does not own it.
func (h *Handler) owned(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	id, ok := jobID(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, false
	}
	job, err := h.store.Get(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		h.serverError(w, "load job", err)
		return nil, false
	}
	if job == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, false
	}
	return job, true
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	err := r.ParseMultipartForm(h.maxUpload)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
		return false
	}
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return false
	}
	return true
}

// saveUpload stores the jd_file part, if any, and returns its key.
func (h *Handler) saveUpload(r *http.Request, owner uint) (string, error) {
	file, header, err := r.FormFile("jd_file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "read jd_file")
	}
	defer file.Close()
	if header.Filename == "" || header.Size == 0 {
		return "", nil
	}
	return h.saveFile(r.Context(), owner, header, file)
}

func (h *Handler) saveFile(ctx context.Context, owner uint, header *multipart.FileHeader, file multipart.File) (string, error) {
	key, err := h.files.Save(ctx, owner, header.Filename, file)
	if err != nil {
		return "", err
	}
	log().Infow("attachment stored", logger.FieldUserID, owner, logger.FieldKey, key, logger.FieldSize, header.Size)
	return key, nil
}

// dropUncommitted removes a freshly stored attachment after a failed write.
// A push failure means the row already committed locally and still names
// key, so the attachment is kept.
func (h *Handler) dropUncommitted(ctx context.Context, key string, err error) {
	if errors.Is(err, storage.ErrPushFailed) {
		return
	}
	h.dropAttachment(ctx, key)
}

func (h *Handler) dropAttachment(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := h.files.Delete(ctx, key); err != nil {
		log().Warnw("delete attachment", logger.FieldKey, key, logger.FieldError, err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, storage.ErrPushFailed) {
		log().Errorw(op+": could not save changes", logger.FieldUserID, middleware.UserID(r.Context()), logger.FieldError, err)
		http.Error(w, "could not save changes", http.StatusInternalServerError)
		return
	}
	h.serverError(w, op, err)
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	log().Errorw(op, logger.FieldError, err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func formInput(r *http.Request) jobsvc.Input {
	return jobsvc.Input{
		Company:     r.PostFormValue("company"),
		Role:        r.PostFormValue("role"),
		Location:    r.PostFormValue("location"),
		JobURL:      r.PostFormValue("job_url"),
		Source:      r.PostFormValue("source"),
		Budget:      r.PostFormValue("budget"),
		AppliedDate: r.PostFormValue("applied_date"),
		Status:      r.PostFormValue("status"),
		Description: r.PostFormValue("description"),
		Comments:    r.PostFormValue("comments"),
	}
}

func jobID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("job_id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
