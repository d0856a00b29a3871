package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/GregMSThompson/dockly/internal/errs"
	"github.com/GregMSThompson/dockly/pkg/logger"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *responseHandler) WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
	}); err != nil {
		log := logger.FromContext(r.Context())
		log.Error("failed to encode error response", "error", err, "status", status, "code", code)
	}
}

var uploadStatus = map[string]int{
	"invalid_file_type":     http.StatusUnsupportedMediaType,
	"file_too_large":        http.StatusRequestEntityTooLarge,
	"invalid_image":         http.StatusBadRequest,
	"invalid_upload_result": http.StatusBadGateway,
}

func (h *responseHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var (
		notFound     *errs.NotFoundError
		exists       *errs.AlreadyExistsError
		validation   *errs.ValidationError
		denied       *errs.PermissionDeniedError
		unauthorized *errs.UnauthenticatedError
		upload       *errs.UploadError
		database     *errs.DatabaseError
		external     *errs.ExternalServiceError
	)

	switch {
	case errors.As(err, &notFound):
		log.Warn("resource not found", "error", notFound.Message)
		h.WriteError(w, r, http.StatusNotFound, "not_found", notFound.Message)

	case errors.As(err, &exists):
		log.Warn("resource already exists", "error", exists.Message)
		h.WriteError(w, r, http.StatusConflict, "already_exists", exists.Message)

	case errors.As(err, &validation):
		log.Warn("validation failed", "error", validation.Message)
		h.WriteError(w, r, http.StatusBadRequest, "invalid_input", validation.Message)

	case errors.As(err, &denied):
		log.Warn("permission denied", "error", denied.Message)
		h.WriteError(w, r, http.StatusForbidden, "forbidden", denied.Message)

	case errors.As(err, &unauthorized):
		log.Warn("unauthenticated", "error", unauthorized.Message)
		h.WriteError(w, r, http.StatusUnauthorized, "unauthenticated", unauthorized.Message)

	case errors.As(err, &upload):
		status, ok := uploadStatus[upload.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		log.Warn("upload rejected", "code", upload.Code, "error", upload.Err)
		h.WriteError(w, r, status, upload.Code, upload.Message)

	case errors.As(err, &database):
		log.Error("database error",
			"operation", database.Operation,
			"error", database.Error())
		h.WriteError(w, r, http.StatusInternalServerError, "internal_error",
			"An error occurred")

	case errors.As(err, &external):
		level := slog.LevelError
		if external.Transient {
			level = slog.LevelWarn
		}
		log.Log(r.Context(), level, "external service error",
			"service", external.Service,
			"transient", external.Transient,
			"error", external.Error())

		status := http.StatusBadGateway
		if external.Transient {
			status = http.StatusServiceUnavailable
		}
		h.WriteError(w, r, status, "service_unavailable",
			"Service temporarily unavailable")

	default:
		log.Error("unexpected error",
			"error", err,
			"type", fmt.Sprintf("%T", err))
		h.WriteError(w, r, http.StatusInternalServerError, "internal_error",
			"An unexpected error occurred")
	}
}
