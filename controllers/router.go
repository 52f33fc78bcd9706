// Package controllers wires the HTTP handlers into one router.
package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"job-tracker-backend/controllers/api"
	"job-tracker-backend/controllers/authentication"
	"job-tracker-backend/controllers/export"
	"job-tracker-backend/controllers/httpCors"
	"job-tracker-backend/controllers/jobs"
	"job-tracker-backend/controllers/middleware"
	jobsvc "job-tracker-backend/services/jobs"
	"job-tracker-backend/services/sessions"
	"job-tracker-backend/services/storage"
	userssvc "job-tracker-backend/services/users"
	"job-tracker-backend/views"
)

// Deps is everything the router needs, built once in main.
type Deps struct {
	Sessions    *sessions.Manager
	Users       *userssvc.Repository
	Jobs        *jobsvc.Repository
	Attachments *storage.Attachments
	Views       *views.Renderer
	Registry    *prometheus.Registry

	JWTSecret    string
	CORSOrigins  []string
	MaxUploadMB  int64
	LoginLimiter *authentication.Limiter
	// TrustProxy keys the login limiter on X-Forwarded-For. Set it only
	// when a proxy in front of the server overwrites that header.
	TrustProxy   bool
}

// NewRouter registers every route and wraps the result in request logging.
func NewRouter(d Deps) http.Handler {
	limiter := d.LoginLimiter
	if limiter == nil {
		limiter = authentication.NewLimiter(2*time.Second, 5)
	}
	maxUpload := d.MaxUploadMB << 20
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}

	auth := authentication.NewHandler(d.Users, d.Sessions, d.Views, limiter, d.TrustProxy)
	jobsHandler := jobs.NewHandler(d.Jobs, d.Attachments, d.Sessions, d.Views, maxUpload)
	exportHandler := export.NewHandler(d.Jobs)
	apiHandler := api.NewHandler(d.Users, d.Jobs, d.JWTSecret)

	requireUser := middleware.RequireUser(d.Sessions, d.Users)
	protect := func(h http.HandlerFunc) http.Handler { return requireUser(h) }

	mux := http.NewServeMux()

	mux.HandleFunc("GET /login", auth.LoginForm)
	mux.HandleFunc("POST /login", auth.Login)
	mux.HandleFunc("GET /register", auth.RegisterForm)
	mux.HandleFunc("POST /register", auth.Register)
	mux.HandleFunc("GET /logout", auth.Logout)
	mux.HandleFunc("GET /forgot-password", auth.ForgotPassword)

	mux.Handle("GET /account", protect(auth.Profile))
	mux.Handle("POST /account/password", protect(auth.ChangePassword))

	mux.Handle("GET /{$}", protect(jobsHandler.Dashboard))
	mux.Handle("POST /add", protect(jobsHandler.Add))
	mux.Handle("POST /update-status/{job_id}", protect(jobsHandler.UpdateStatus))
	mux.Handle("GET /job/{job_id}", protect(jobsHandler.Detail))
	mux.Handle("GET /job/{job_id}/edit", protect(jobsHandler.EditForm))
	mux.Handle("POST /job/{job_id}/edit", protect(jobsHandler.Edit))
	mux.Handle("POST /delete/{job_id}", protect(jobsHandler.Delete))
	mux.Handle("GET /job/{job_id}/jd", protect(jobsHandler.DownloadJobAttachment))
	mux.Handle("GET /jd/{filename...}", protect(jobsHandler.LegacyDownload))
	mux.Handle("GET /export/{format}", protect(exportHandler.Export))

	mux.HandleFunc("GET /health", health)
	if d.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/token", apiHandler.Token)
	apiMux.Handle("GET /api/jobs", apiHandler.RequireToken(http.HandlerFunc(apiHandler.ListJobs)))
	apiMux.Handle("POST /api/jobs", apiHandler.RequireToken(http.HandlerFunc(apiHandler.CreateJob)))
	mux.Handle("/api/", httpCors.CorsSettings(d.CORSOrigins).Handler(apiMux))

	return middleware.Logging(mux)
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
