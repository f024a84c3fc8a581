package handler

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/victor-igor/wacrm-backend/internal/errors"
)

const actorHeader = "X-Actor-Id"

func actorFrom(r *http.Request) string {
	return r.Header.Get(actorHeader)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps the error taxonomy onto HTTP statuses and a toast-friendly
// body naming the action and a short cause.
func writeError(w http.ResponseWriter, action string, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsValidation(err):
		status = http.StatusBadRequest
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsInvalidTransition(err):
		status = http.StatusConflict
	case apperrors.IsDataAccess(err):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{
		"action": action,
		"error":  err.Error(),
	})
}
