package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"examcms/internal/auth"
	"examcms/internal/domain"
	"examcms/internal/service"
)

type ContentHandler struct {
	contentService *service.ContentService
	logger         *slog.Logger
}

func NewContentHandler(contentService *service.ContentService, logger *slog.Logger) *ContentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentHandler{
		contentService: contentService,
		logger:         logger,
	}
}

// RegisterRoutes подключает маршруты материалов и их версий
func (h *ContentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/content", func(r chi.Router) {
		r.Post("/", h.CreateContent)
		r.Get("/", h.ListContent)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetContent)
			r.Put("/", h.UpdateContent)
			r.Delete("/", h.DeleteContent)
			r.Put("/state", h.SetPublishState)

			r.Get("/versions", h.ListVersions)
			r.Get("/versions/{version}", h.GetVersion)
			r.Get("/versions/{version}/next", h.NextVersion)
			r.Get("/versions/{version}/previous", h.PreviousVersion)
			r.Post("/versions/{version}/restore", h.RestoreVersion)
		})
	})
}

// CreateContent обрабатывает создание материала
func (h *ContentHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	var req service.CreateContentInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}

	result, err := h.contentService.CreateContent(r.Context(), req, actor)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ListContent возвращает материалы по фильтру из query параметров
func (h *ContentHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.ContentFilter{}

	if v := query.Get("exam"); v != "" {
		exam := domain.Exam(v)
		filter.Exam = &exam
	}
	if v := query.Get("content_type"); v != "" {
		contentType := domain.ContentType(v)
		filter.ContentType = &contentType
	}
	if v := query.Get("publish_state"); v != "" {
		state := domain.PublishState(v)
		if !state.Valid() {
			writeError(w, http.StatusBadRequest, "validation_failed", "unknown publish_state")
			return
		}
		filter.PublishState = &state
	}
	filter.IncludeDeleted = query.Get("include_deleted") == "true"

	var err error
	if filter.Limit, err = intQuery(query.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid limit")
		return
	}
	if filter.Offset, err = intQuery(query.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid offset")
		return
	}

	items, err := h.contentService.ListContent(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	contentID, err := contentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid content ID")
		return
	}

	detail, err := h.contentService.GetContent(r.Context(), contentID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// UpdateContent записывает новый снимок полей материала
func (h *ContentHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	actor, contentID, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	// Без ожидаемого head запись прошла бы CAS вслепую
	var req struct {
		service.UpdateContentInput
		ExpectedHead *int `json:"expected_head_version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}
	if req.ExpectedHead == nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "expected_head_version is required")
		return
	}
	req.UpdateContentInput.ExpectedHead = *req.ExpectedHead

	result, err := h.contentService.UpdateContent(r.Context(), contentID, req.UpdateContentInput, actor)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SetPublishState меняет состояние публикации
func (h *ContentHandler) SetPublishState(w http.ResponseWriter, r *http.Request) {
	actor, contentID, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var req struct {
		PublishState domain.PublishState `json:"publish_state"`
		ExpectedHead *int                `json:"expected_head_version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ExpectedHead == nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "publish_state and expected_head_version are required")
		return
	}

	result, err := h.contentService.SetPublishState(r.Context(), contentID, req.PublishState, *req.ExpectedHead, actor)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// DeleteContent переводит материал в DELETED, ожидаемый head передается в query
func (h *ContentHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	actor, contentID, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	expectedHead, err := strconv.Atoi(r.URL.Query().Get("expected_head"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "expected_head query parameter is required")
		return
	}

	result, err := h.contentService.DeleteContent(r.Context(), contentID, expectedHead, actor)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *ContentHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	contentID, err := contentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid content ID")
		return
	}

	versions, err := h.contentService.ListVersions(r.Context(), contentID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, versions)
}

func (h *ContentHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	h.serveVersion(w, r, h.contentService.GetVersion)
}

func (h *ContentHandler) NextVersion(w http.ResponseWriter, r *http.Request) {
	h.serveVersion(w, r, h.contentService.NextVersion)
}

func (h *ContentHandler) PreviousVersion(w http.ResponseWriter, r *http.Request) {
	h.serveVersion(w, r, h.contentService.PreviousVersion)
}

// RestoreVersion копирует версию в новую head версию
func (h *ContentHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	actor, contentID, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	number, err := versionParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_version", "Invalid version number")
		return
	}

	result, err := h.contentService.RestoreVersion(r.Context(), contentID, number, actor)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

type versionLookup func(ctx context.Context, contentID uuid.UUID, number int) (*domain.Version, error)

func (h *ContentHandler) serveVersion(w http.ResponseWriter, r *http.Request, lookup versionLookup) {
	contentID, err := contentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid content ID")
		return
	}

	number, err := versionParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_version", "Invalid version number")
		return
	}

	version, err := lookup(r.Context(), contentID, number)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, version)
}

func (h *ContentHandler) actorAndID(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	actor, err := auth.ActorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return "", uuid.Nil, false
	}

	contentID, err := contentIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid content ID")
		return "", uuid.Nil, false
	}
	return actor, contentID, true
}

func intQuery(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
