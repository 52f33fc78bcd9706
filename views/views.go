// Package views renders the server-side HTML pages.
package views

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"job-tracker-backend/logger"
	"job-tracker-backend/models/jobs"
	"job-tracker-backend/models/users"
	jobsvc "job-tracker-backend/services/jobs"
	"job-tracker-backend/services/storage"
)

//go:embed templates/*.html
var files embed.FS

// Base is shared by every page.
type Base struct {
	Title    string
	Username string // logged-in user, empty on auth pages
	Flashes  []string
	Error    string
}

type AuthPage struct {
	Base
	Form struct{ Username string }
}

type DashboardPage struct {
	Base
	Jobs   []jobs.Job
	Stats  map[string]int
	Stages []string
	Form   jobsvc.Input
}

type JobPage struct {
	Base
	Job    *jobs.Job
	Stages []string
}

type EditPage struct {
	Base
	Job    *jobs.Job
	Form   jobsvc.Input
	Stages []string
}

type AccountPage struct {
	Base
	User *users.User
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"attachmentName": storage.DisplayName,
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04:05.000000")
	},
	"count": func(stats map[string]int, stage string) int { return stats[stage] },
}

func New() (*Renderer, error) {
	names, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "list templates")
	}
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, name := range names {
		if name == "templates/layout.html" {
			continue
		}
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(files, "templates/layout.html", name)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", name)
		}
		r.pages[name[len("templates/"):]] = t
	}
	return r, nil
}

// Render executes page into a buffer first so a template failure never
// produces a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data interface{}) {
	t, ok := r.pages[page]
	if !ok {
		logger.Named("views").Errorw("unknown page", "page", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		logger.Named("views").Errorw("render failed", "page", page, logger.FieldError, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// ErrorText turns the innermost cause of a validation error into a sentence
// for an inline form message.
func ErrorText(err error) string {
	msg := errors.UnwrapAll(err).Error()
	if msg == "" {
		return "Invalid input."
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
