package authentication

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"

	"job-tracker-backend/logger"
	"job-tracker-backend/models/users"
	userssvc "job-tracker-backend/services/users"
	"job-tracker-backend/views"
)

// Accounts is the user store used by the auth handlers.
type Accounts interface {
	Register(ctx context.Context, username, password string) (*users.User, error)
	Authenticate(ctx context.Context, username, password string) (*users.User, error)
	ChangePassword(ctx context.Context, id uint, current, next string) error
}

// Sessions issues and clears login sessions.
type Sessions interface {
	Login(w http.ResponseWriter, r *http.Request, userID uint) error
	Resolve(r *http.Request) (uint, bool)
	Clear(w http.ResponseWriter, r *http.Request) error
	AddFlash(w http.ResponseWriter, r *http.Request, msg string) error
	Flashes(w http.ResponseWriter, r *http.Request) []string
}

type Handler struct {
	accounts Accounts
	sessions Sessions
	views    *views.Renderer
	limiter  *Limiter

	// trustProxy honours X-Forwarded-For when keying the limiter.
	trustProxy bool
}

func NewHandler(accounts Accounts, sessions Sessions, renderer *views.Renderer, limiter *Limiter, trustProxy bool) *Handler {
	return &Handler{accounts: accounts, sessions: sessions, views: renderer, limiter: limiter, trustProxy: trustProxy}
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request, title string) views.AuthPage {
	var p views.AuthPage
	p.Title = title
	p.Flashes = h.sessions.Flashes(w, r)
	return p
}

// LoginForm renders the login page, or sends logged-in users home.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.Resolve(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.views.Render(w, http.StatusOK, "login.html", h.page(w, r, "Log in"))
}

// Login checks the credentials and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	p := h.page(w, r, "Log in")
	p.Form.Username = username

	if !h.limiter.Allow(ClientIP(r, h.trustProxy)) {
		p.Error = "Too many login attempts. Please wait a moment and try again."
		h.views.Render(w, http.StatusTooManyRequests, "login.html", p)
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), username, password)
	if errors.Is(err, userssvc.ErrInvalidCredentials) {
		p.Error = "Invalid username or password."
		h.views.Render(w, http.StatusUnauthorized, "login.html", p)
		return
	}
	if err != nil {
		logger.Named("auth").Errorw("login failed", logger.FieldError, err)
		p.Error = "Something went wrong. Please try again."
		h.views.Render(w, http.StatusInternalServerError, "login.html", p)
		return
	}

	if err := h.sessions.Login(w, r, user.ID); err != nil {
		logger.Named("auth").Errorw("start session", logger.FieldUserID, user.ID, logger.FieldError, err)
		p.Error = "Something went wrong. Please try again."
		h.views.Render(w, http.StatusInternalServerError, "login.html", p)
		return
	}
	logger.Named("auth").Infow("user logged in", logger.FieldUserID, user.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, http.StatusOK, "register.html", h.page(w, r, "Register"))
}

// Register creates the account and sends the user to the login page.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := h.accounts.Register(r.Context(), username, password)
	if err != nil {
		p := h.page(w, r, "Register")
		p.Form.Username = username
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, userssvc.ErrDuplicateUsername):
			status = http.StatusConflict
			p.Error = "Username already exists."
		case errors.Is(err, userssvc.ErrValidation):
			status = http.StatusBadRequest
			p.Error = views.ErrorText(err)
		default:
			logger.Named("auth").Errorw("registration failed", logger.FieldError, err)
			p.Error = "Could not save your account. Please try again."
		}
		h.views.Render(w, status, "register.html", p)
		return
	}

	logger.Named("auth").Infow("user registered", logger.FieldUserID, user.ID)
	_ = h.sessions.AddFlash(w, r, "Registration successful. Please log in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Logout clears the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		logger.Named("auth").Warnw("clear session", logger.FieldError, err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, http.StatusOK, "forgot_password.html", h.page(w, r, "Forgot password"))
}
