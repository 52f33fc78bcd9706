// Package export serves the user's jobs as downloadable files.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"job-tracker-backend/controllers/middleware"
	"job-tracker-backend/logger"
	"job-tracker-backend/models/jobs"
	exportsvc "job-tracker-backend/services/export"
)

// Lister returns the owner's jobs, newest first.
type Lister interface {
	List(ctx context.Context, ownerID uint) ([]jobs.Job, error)
}

type format struct {
	contentType string
	ext         string
	write       func(io.Writer, []jobs.Job) error
}

var formats = map[string]format{
	"xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", exportsvc.WriteXLSX},
	"pdf":  {"application/pdf", "pdf", exportsvc.WritePDF},
	"csv":  {"text/csv; charset=utf-8", "csv", exportsvc.WriteCSV},
}

type Handler struct {
	jobs Lister
	now  func() time.Time
}

func NewHandler(jobs Lister) *Handler {
	return &Handler{jobs: jobs, now: time.Now}
}

// Export renders /export/{format}. The file is built in memory so a
// failure never leaves a truncated download.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("format")
	f, ok := formats[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	owner := middleware.UserID(r.Context())
	list, err := h.jobs.List(r.Context(), owner)
	if err != nil {
		logger.Named("export").Errorw("list jobs", logger.FieldUserID, owner, logger.FieldError, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := f.write(&buf, list); err != nil {
		logger.Named("export").Errorw("render export", "format", name, logger.FieldUserID, owner, logger.FieldError, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("jobs-%s.%s", h.now().UTC().Format("20060102"), f.ext)
	w.Header().Set("Content-Type", f.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
