// Package api is the JSON surface used by the browser extension: a token
// endpoint and bearer-authenticated job listing and creation.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dgrijalva/jwt-go"

	"job-tracker-backend/controllers/middleware"
	"job-tracker-backend/logger"
	"job-tracker-backend/models/jobs"
	"job-tracker-backend/models/users"
	jobsvc "job-tracker-backend/services/jobs"
	"job-tracker-backend/services/storage"
	userssvc "job-tracker-backend/services/users"
)

// TokenTTL is the lifetime of an issued API token.
const TokenTTL = 24 * time.Hour

type Claims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	jwt.StandardClaims
}

// Accounts authenticates API callers.
type Accounts interface {
	Authenticate(ctx context.Context, username, password string) (*users.User, error)
	ByID(ctx context.Context, id uint) (*users.User, error)
}

// Jobs is the subset of the job repository the API exposes.
type Jobs interface {
	List(ctx context.Context, ownerID uint) ([]jobs.Job, error)
	Create(ctx context.Context, ownerID uint, in jobsvc.Input) (*jobs.Job, error)
}

type Handler struct {
	accounts Accounts
	jobs     Jobs
	key      []byte
	now      func() time.Time
}

func NewHandler(accounts Accounts, jobs Jobs, secret string) *Handler {
	return &Handler{accounts: accounts, jobs: jobs, key: []byte(secret), now: time.Now}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Token exchanges a username and password for a signed token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid request body"})
		return
	}
	user, err := h.accounts.Authenticate(r.Context(), in.Username, in.Password)
	if errors.Is(err, userssvc.ErrInvalidCredentials) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{"invalid username or password"})
		return
	}
	if err != nil {
		logger.Named("api").Errorw("authenticate", logger.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal server error"})
		return
	}

	token, expires, err := h.issue(user)
	if err != nil {
		logger.Named("api").Errorw("sign token", logger.FieldUserID, user.ID, logger.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal server error"})
		return
	}
	logger.Named("api").Infow("token issued", logger.FieldUserID, user.ID)
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: expires})
}

func (h *Handler) issue(user *users.User) (string, time.Time, error) {
	now := h.now()
	expires := now.Add(TokenTTL).UTC().Truncate(time.Second)
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: expires.Unix(),
			Subject:   user.Username,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.key)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return signed, expires, nil
}

// parse verifies the signature, the algorithm and the expiry.
func (h *Handler) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf("unexpected signing method %v", t.Header["alg"])
		}
		return h.key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// RequireToken authenticates the request from its Bearer token.
func (h *Handler) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, errorResponse{"authorization header required"})
			return
		}
		claims, err := h.parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{"invalid token"})
			return
		}
		user, err := h.accounts.ByID(r.Context(), claims.UserID)
		if err != nil {
			logger.Named("api").Errorw("load token user", logger.FieldUserID, claims.UserID, logger.FieldError, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{"internal server error"})
			return
		}
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{"invalid token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), user)))
	})
}

// ListJobs returns the caller's jobs, newest first.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	owner := middleware.UserID(r.Context())
	list, err := h.jobs.List(r.Context(), owner)
	if err != nil {
		logger.Named("api").Errorw("list jobs", logger.FieldUserID, owner, logger.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal server error"})
		return
	}
	if list == nil {
		list = []jobs.Job{}
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateJob saves a posting sent by the extension. Status defaults to
// Applied.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	owner := middleware.UserID(r.Context())
	var in jobsvc.Input
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid request body"})
		return
	}
	if strings.TrimSpace(in.Status) == "" {
		in.Status = jobs.StatusApplied
	}
	in.JDFilename = ""

	job, err := h.jobs.Create(r.Context(), owner, in)
	switch {
	case errors.Is(err, jobsvc.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{errors.UnwrapAll(err).Error()})
		return
	case errors.Is(err, storage.ErrPushFailed):
		logger.Named("api").Errorw("create job: could not save changes", logger.FieldUserID, owner, logger.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{"could not save changes"})
		return
	case err != nil:
		logger.Named("api").Errorw("create job", logger.FieldUserID, owner, logger.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal server error"})
		return
	}
	logger.Named("api").Infow("job created", logger.FieldUserID, owner, logger.FieldJobID, job.ID)
	writeJSON(w, http.StatusCreated, job)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Named("api").Warnw("encode response", logger.FieldError, err)
	}
}
