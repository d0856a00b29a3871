package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/dockly/internal/dto"
	"github.com/GregMSThompson/dockly/internal/errs"
	"github.com/GregMSThompson/dockly/internal/middleware"
	"github.com/GregMSThompson/dockly/internal/models"
	"github.com/GregMSThompson/dockly/internal/response"
)

const maxJSONBody = 64 << 10

type markerService interface {
	ListMarkers(ctx context.Context) ([]*models.Marker, error)
	CreateMarker(ctx context.Context, uid string, req dto.MarkerRequest) (string, error)
	UpdateMarker(ctx context.Context, req dto.MarkerRequest) (string, error)
}

type markerHandlers struct {
	ResponseHandler response.ResponseHandler
	MarkerSvc       markerService
}

func NewMarkerHandlers(deps *Deps) *markerHandlers {
	return &markerHandlers{
		ResponseHandler: deps.ResponseHandler,
		MarkerSvc:       deps.MarkerSvc,
	}
}

// MarkerRoutes serves the marker collection. Reads are public and pass
// through optionalAuth; writes go through requireAuth.
func (h *markerHandlers) MarkerRoutes(requireAuth, optionalAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(optionalAuth).Get("/", h.ListMarkers)
	r.With(requireAuth).Post("/", h.CreateMarker)
	r.With(requireAuth).Put("/", h.UpdateMarker)
	return r
}

func (h *markerHandlers) ListMarkers(w http.ResponseWriter, r *http.Request) {
	markers, err := h.MarkerSvc.ListMarkers(r.Context())
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteJSON(w, r, http.StatusOK, markers)
}

func (h *markerHandlers) CreateMarker(w http.ResponseWriter, r *http.Request) {
	var req dto.MarkerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	id, err := h.MarkerSvc.CreateMarker(r.Context(), uid, req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteJSON(w, r, http.StatusOK, dto.MarkerIDResponse{ID: id})
}

func (h *markerHandlers) UpdateMarker(w http.ResponseWriter, r *http.Request) {
	var req dto.MarkerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	id, err := h.MarkerSvc.UpdateMarker(r.Context(), req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteJSON(w, r, http.StatusOK, dto.MarkerIDResponse{ID: id})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.NewValidationError("invalid JSON body")
	}
	return nil
}
