package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"examcms/internal/auth"
	"examcms/internal/domain"
	"examcms/internal/service"
	"examcms/internal/service/s3"
)

// Запас на поля формы сверх лимита вложения
const multipartOverhead = 1 << 20

type AttachmentHandler struct {
	attachmentService *service.AttachmentService
	logger            *slog.Logger
}

func NewAttachmentHandler(attachmentService *service.AttachmentService, logger *slog.Logger) *AttachmentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttachmentHandler{
		attachmentService: attachmentService,
		logger:            logger,
	}
}

func (h *AttachmentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/attachments", func(r chi.Router) {
		r.Post("/", h.Upload)
		r.Get("/{fileKey}", h.Get)
		r.Get("/{fileKey}/download", h.Download)
	})
}

// Upload принимает multipart форму с полем file и языком вложения
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	maxSize := h.attachmentService.MaxSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "Attachment is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_form", "Failed to parse form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form", "No file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form", "Failed to read file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	attachment, err := h.attachmentService.Upload(r.Context(), domain.AttachmentUpload{
		FileName:   header.Filename,
		MIMEType:   mimeType,
		Language:   domain.Language(strings.ToUpper(r.FormValue("language"))),
		Data:       data,
		UploadedBy: actor,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, attachment)
}

func (h *AttachmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	attachment, err := h.attachmentService.Get(r.Context(), chi.URLParam(r, "fileKey"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, attachment)
}

// Download отдает содержимое вложения
func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	attachment, object, err := h.attachmentService.Download(r.Context(), chi.URLParam(r, "fileKey"))
	if err != nil {
		if errors.Is(err, s3.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "attachment_not_found", "attachment data not found")
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer object.Close()

	encodedFileName := url.QueryEscape(attachment.FileName)
	asciiName := strings.ReplaceAll(attachment.FileName, `"`, `\"`)

	w.Header().Set("Content-Type", attachment.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiName, encodedFileName))
	w.Header().Set("Content-Length", strconv.FormatInt(attachment.SizeBytes, 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, object); err != nil {
		h.logger.WarnContext(r.Context(), "attachment download interrupted",
			"file_key", attachment.FileKey, "error", err)
	}
}
