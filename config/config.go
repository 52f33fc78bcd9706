package config

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
)

// Config holds every environment-driven setting of the tracker.
type Config struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	DBPath    string `env:"DB_PATH" envDefault:"/tmp/jobs.db"`
	UploadDir string `env:"UPLOAD_DIR" envDefault:"/tmp/jd_files"`
	// MaxUploadMB caps a single multipart request.
	MaxUploadMB int64 `env:"MAX_UPLOAD_MB" envDefault:"10"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"168h"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"false"`
	JWTSecret     string        `env:"JWT_SECRET"`

	BucketName    string        `env:"BUCKET_NAME"`
	ProjectID     string        `env:"GOOGLE_CLOUD_PROJECT"`
	GCPProject    string        `env:"GCP_PROJECT"`
	LegacyProject string        `env:"PROJECT_ID"`
	RemoteTimeout time.Duration `env:"REMOTE_TIMEOUT" envDefault:"15s"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// TrustProxy honours X-Forwarded-For from a fronting load balancer.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`
}

// Load parses the environment and fills derived defaults. Outside production
// a missing session secret is replaced by a random one; generated reports
// whether that happened so the caller can warn about it.
func Load() (cfg Config, generated bool, err error) {
	if err := env.Parse(&cfg); err != nil {
		return cfg, false, errors.Wrap(err, "parse environment")
	}
	if cfg.SessionSecret == "" {
		if cfg.IsProduction() {
			return cfg, false, errors.New("SESSION_SECRET must be set in production")
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return cfg, false, errors.Wrap(err, "generate session secret")
		}
		cfg.SessionSecret = hex.EncodeToString(buf)
		generated = true
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = cfg.SessionSecret
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 10
	}
	return cfg, generated, nil
}

func (c Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "production", "prod":
		return true
	}
	return false
}

// Project returns the first configured cloud project id.
func (c Config) Project() string {
	for _, p := range []string{c.ProjectID, c.GCPProject, c.LegacyProject} {
		if p != "" {
			return p
		}
	}
	return ""
}

// Bucket resolves the bucket holding the database mirror and attachments.
// An empty result means local-only persistence.
func (c Config) Bucket() string {
	if c.BucketName != "" {
		return c.BucketName
	}
	if p := c.Project(); p != "" {
		return "jobtracker-data-" + p
	}
	return ""
}
