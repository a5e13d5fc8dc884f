package v1

import (
	"errors"
	"net/http"

	"krume-backend/internal/domain"
	"krume-backend/pkg/logger"
	"krume-backend/pkg/utils"

	"github.com/goccy/go-json"
)

func respond(w http.ResponseWriter, status int, message string, data interface{}) {
	utils.WriteJSON(w, status, domain.Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func respondPage(w http.ResponseWriter, data interface{}, page domain.Pagination) {
	utils.WriteJSON(w, http.StatusOK, domain.Response{
		Success: true,
		Data:    data,
		Meta:    page,
	})
}

// fail maps an AppError to its status. Anything else is logged and reported as a 500
// without its message.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		utils.WriteError(w, statusOf(appErr.Kind), appErr.Message)
		return
	}
	logger.WithContext(r.Context()).Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Request failed")
	utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
}

func statusOf(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindValidation, domain.KindStateConflict, domain.KindInsufficientStock:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewValidationError("invalid request body")
	}
	return nil
}

func currentUser(r *http.Request) (*domain.User, bool) {
	user, ok := r.Context().Value(domain.UserContextKey).(*domain.User)
	return user, ok && user != nil
}

func unauthorized(w http.ResponseWriter) {
	utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
}
