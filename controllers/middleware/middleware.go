// Package middleware holds the cross-cutting HTTP wrappers: session
// authentication and request logging.
package middleware

import (
	"context"
	"net/http"

	"github.com/felixge/httpsnoop"

	"job-tracker-backend/logger"
	"job-tracker-backend/models/users"
)

// LoginPath is where unauthenticated callers are sent.
const LoginPath = "/login"

// SessionResolver maps a request to the user id of its session.
type SessionResolver interface {
	Resolve(r *http.Request) (uint, bool)
	Clear(w http.ResponseWriter, r *http.Request) error
}

// UserFinder loads a user by id, returning nil when absent.
type UserFinder interface {
	ByID(ctx context.Context, id uint) (*users.User, error)
}

type ctxKey struct{}

// WithUser stores the authenticated user on ctx.
func WithUser(ctx context.Context, u *users.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// User returns the authenticated user stored by RequireUser.
func User(ctx context.Context) *users.User {
	u, _ := ctx.Value(ctxKey{}).(*users.User)
	return u
}

// UserID returns the authenticated user's id, or 0.
func UserID(ctx context.Context) uint {
	if u := User(ctx); u != nil {
		return u.ID
	}
	return 0
}

// RequireUser redirects callers without a valid session to the login page.
// A session naming a user that no longer exists is cleared.
func RequireUser(sessions SessionResolver, finder UserFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := sessions.Resolve(r)
			if !ok {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			user, err := finder.ByID(r.Context(), id)
			if err != nil {
				logger.Named("http").Errorw("load session user", logger.FieldUserID, id, logger.FieldError, err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if user == nil {
				_ = sessions.Clear(w, r)
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// Logging records method, path, status and latency of every request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		logger.Named("http").Infow("request",
			logger.FieldMethod, r.Method,
			logger.FieldPath, r.URL.Path,
			logger.FieldStatus, m.Code,
			logger.FieldDurationMS, m.Duration.Milliseconds(),
			logger.FieldSize, m.Written,
		)
	})
}
