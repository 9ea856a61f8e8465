package handlers

import (
	"errors"
	"net/http"

	"github.com/hamzaiqbal/crmconnect/internal/errs"
)

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.ErrUnknownRoutingKey):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errs.IsConflict(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, errs.ErrInvalidCredential):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errs.IsAuthz(err):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, errs.ErrTooSoon):
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	case errors.Is(err, errs.ErrInvalidInput),
		errors.Is(err, errs.ErrExpired),
		errors.Is(err, errs.ErrAlreadyUsed),
		errors.Is(err, errs.ErrCodeMismatch),
		errors.Is(err, errs.ErrNotVerified):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
