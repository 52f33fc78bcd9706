package authentication

import (
	"net/http"

	"job-tracker-backend/controllers/middleware"
	"job-tracker-backend/views"
)

// Profile shows the logged-in account and the password form.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	h.renderAccount(w, r, http.StatusOK, "")
}

func (h *Handler) renderAccount(w http.ResponseWriter, r *http.Request, status int, formErr string) {
	user := middleware.User(r.Context())
	page := views.AccountPage{User: user}
	page.Title = "Account"
	page.Username = user.Username
	page.Flashes = h.sessions.Flashes(w, r)
	page.Error = formErr
	h.views.Render(w, status, "account.html", page)
}
