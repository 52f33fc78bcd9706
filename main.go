package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"job-tracker-backend/config"
	"job-tracker-backend/controllers"
	"job-tracker-backend/logger"
	jobsvc "job-tracker-backend/services/jobs"
	"job-tracker-backend/services/sessions"
	"job-tracker-backend/services/storage"
	userssvc "job-tracker-backend/services/users"
	"job-tracker-backend/views"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, generated, err := config.Load()
	if err != nil {
		_ = logger.Initialize(false)
		logger.Logger.Fatalw("load config", logger.FieldError, err)
	}
	if err := logger.Initialize(cfg.IsProduction()); err != nil {
		panic(err)
	}
	defer logger.Cleanup()
	log := logger.Named("main")
	if generated {
		log.Warn("SESSION_SECRET not set; using a random secret, sessions end on restart")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := storage.NewMetrics(reg)

	ctx := context.Background()
	var remote storage.Remote
	if bucket := cfg.Bucket(); bucket != "" {
		gcs, err := storage.NewGCSRemote(ctx, bucket)
		if err != nil {
			log.Warnw("remote store unavailable, running local-only", logger.FieldBucket, bucket, logger.FieldError, err)
		} else {
			remote = gcs
		}
	}

	syncer := storage.NewSyncer(remote, storage.SyncerConfig{
		DBPath:  cfg.DBPath,
		Timeout: cfg.RemoteTimeout,
		Metrics: metrics,
	})
	if err := syncer.Restore(ctx); err != nil {
		log.Fatalw("restore database", logger.FieldError, err)
	}

	db, err := config.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalw("open database", logger.FieldError, err)
	}

	sessionManager, err := sessions.New(sessions.Options{
		Secret: cfg.SessionSecret,
		MaxAge: cfg.SessionMaxAge,
		Secure: cfg.CookieSecure,
	})
	if err != nil {
		log.Fatalw("session store", logger.FieldError, err)
	}
	renderer, err := views.New()
	if err != nil {
		log.Fatalw("parse templates", logger.FieldError, err)
	}

	router := controllers.NewRouter(controllers.Deps{
		Sessions:    sessionManager,
		Users:       userssvc.NewRepository(db, syncer),
		Jobs:        jobsvc.NewRepository(db, syncer),
		Attachments: storage.NewAttachments(remote, cfg.UploadDir, cfg.RemoteTimeout, metrics),
		Views:       renderer,
		Registry:    reg,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSAllowedOrigins,
		MaxUploadMB: cfg.MaxUploadMB,
		TrustProxy:  cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", srv.Addr, "remote", syncer.Enabled())
		errc <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		log.Infow("shutting down", "signal", sig.String())
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			log.Errorw("server stopped", logger.FieldError, err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("shutdown", logger.FieldError, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
