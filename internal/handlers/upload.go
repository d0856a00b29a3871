package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/dockly/internal/dto"
	"github.com/GregMSThompson/dockly/internal/errs"
	"github.com/GregMSThompson/dockly/internal/middleware"
	"github.com/GregMSThompson/dockly/internal/response"
	"github.com/GregMSThompson/dockly/pkg/imaging"
)

// multipart overhead allowed on top of the image itself
const multipartSlack = 1 << 20

type uploadService interface {
	Upload(ctx context.Context, uid string, in dto.ImageUpload) (string, error)
}

type uploadHandlers struct {
	ResponseHandler response.ResponseHandler
	UploadSvc       uploadService
}

func NewUploadHandlers(deps *Deps) *uploadHandlers {
	return &uploadHandlers{
		ResponseHandler: deps.ResponseHandler,
		UploadSvc:       deps.UploadSvc,
	}
}

func (h *uploadHandlers) UploadRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Upload)
	return r
}

// Upload accepts a multipart form with a "file" part and an optional "path"
// destination folder.
func (h *uploadHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	const limit = imaging.MaxUploadBytes + multipartSlack
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > limit {
			h.ResponseHandler.HandleError(w, r, errs.NewUploadError("file_too_large", "images must be 10MB or smaller", err))
			return
		}
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("expected multipart form data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("file is required"))
		return
	}
	defer file.Close()

	// one byte past the limit is enough to trip the size gate
	data, err := io.ReadAll(io.LimitReader(file, imaging.MaxUploadBytes+1))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("could not read file"))
		return
	}

	url, err := h.UploadSvc.Upload(r.Context(), middleware.UID(r.Context()), dto.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Destination: r.FormValue("path"),
		Data:        data,
	})
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteJSON(w, r, http.StatusOK, dto.UploadResponse{URL: url})
}
