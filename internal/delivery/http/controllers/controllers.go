// Package controllers holds the HTTP handlers of the check-in API.
package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"guestcheckin/internal/delivery/http/helpers"
	"guestcheckin/internal/delivery/http/middleware"
	"guestcheckin/internal/domain"
)

// organizerID returns the authenticated organizer or writes a 401.
func organizerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.OrganizerIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
	}
	return id, ok
}

// writeError logs unexpected errors and writes the mapped error response.
func writeError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if !isClientError(err) {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	}
	helpers.WriteServiceError(w, err, fallback)
}

func isClientError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidInput,
		domain.ErrNotFound,
		domain.ErrUserNotFound,
		domain.ErrForbidden,
		domain.ErrDuplicateEmail,
		domain.ErrAlreadyExists,
		domain.ErrInvalidCredentials,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
