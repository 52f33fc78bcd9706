package authentication

import (
	"net/http"

	"github.com/cockroachdb/errors"

	"job-tracker-backend/controllers/middleware"
	"job-tracker-backend/logger"
	userssvc "job-tracker-backend/services/users"
	"job-tracker-backend/views"
)

// ChangePassword checks the current password and stores the new one.
// Existing sessions stay valid.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.User(r.Context())
	current := r.PostFormValue("current_password")
	next := r.PostFormValue("new_password")

	if next != r.PostFormValue("confirm_password") {
		h.renderAccount(w, r, http.StatusBadRequest, "New passwords do not match.")
		return
	}

	err := h.accounts.ChangePassword(r.Context(), user.ID, current, next)
	switch {
	case errors.Is(err, userssvc.ErrInvalidCredentials):
		h.renderAccount(w, r, http.StatusUnauthorized, "Current password is incorrect.")
		return
	case errors.Is(err, userssvc.ErrValidation):
		h.renderAccount(w, r, http.StatusBadRequest, views.ErrorText(err))
		return
	case err != nil:
		logger.Named("auth").Errorw("change password", logger.FieldUserID, user.ID, logger.FieldError, err)
		h.renderAccount(w, r, http.StatusInternalServerError, "Could not save your new password. Please try again.")
		return
	}

	logger.Named("auth").Infow("password changed", logger.FieldUserID, user.ID)
	_ = h.sessions.AddFlash(w, r, "Password changed.")
	http.Redirect(w, r, "/account", http.StatusSeeOther)
}
