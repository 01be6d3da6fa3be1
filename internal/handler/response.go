package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"examcms/internal/domain"
)

// ErrorResponse - тело ответа с ошибкой
type ErrorResponse struct {
	Error       string   `json:"error"`
	Message     string   `json:"message"`
	HeadVersion *int     `json:"head_version,omitempty"`
	FileKeys    []string `json:"file_keys,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeServiceError переводит доменные ошибки в HTTP статусы
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		stale      *domain.StaleWriteError
		notFound   *domain.VersionNotFoundError
		missing    *domain.AttachmentNotFoundError
		transition *domain.InvalidTransitionError
		invalid    *domain.ValidationError
	)

	switch {
	case errors.As(err, &stale):
		head := stale.Actual
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "stale_write", Message: stale.Error(), HeadVersion: &head})
	case errors.As(err, &notFound):
		head := notFound.Head
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "version_not_found", Message: notFound.Error(), HeadVersion: &head})
	case errors.As(err, &missing):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "attachment_not_found", Message: missing.Error(), FileKeys: missing.FileKeys})
	case errors.As(err, &transition):
		writeError(w, http.StatusConflict, "invalid_transition", transition.Error())
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, "validation_failed", invalid.Reason)
	case errors.Is(err, domain.ErrContentNotFound):
		writeError(w, http.StatusNotFound, "content_not_found", "content not found")
	case errors.Is(err, domain.ErrAttachmentNotFound):
		writeError(w, http.StatusNotFound, "attachment_not_found", "attachment not found")
	default:
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func contentIDParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func versionParam(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "version"))
}
