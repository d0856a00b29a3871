package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/dockly/internal/dto"
	"github.com/GregMSThompson/dockly/internal/middleware"
	"github.com/GregMSThompson/dockly/internal/models"
	"github.com/GregMSThompson/dockly/internal/response"
)

type userService interface {
	CreateUser(ctx context.Context, uid, tokenEmail string, req dto.CreateUserRequest) error
	GetUser(ctx context.Context, uid string) (*models.User, error)
	UpdateUser(ctx context.Context, callerUID, uid string, patch dto.UserPatch) error
}

type verificationService interface {
	Status(ctx context.Context, uid string) (*dto.VerificationStatus, error)
	SendVerification(ctx context.Context, uid string) error
}

type userHandlers struct {
	ResponseHandler response.ResponseHandler
	UserSvc         userService
	VerificationSvc verificationService
}

func NewUserHandlers(deps *Deps) *userHandlers {
	return &userHandlers{
		ResponseHandler: deps.ResponseHandler,
		UserSvc:         deps.UserSvc,
		VerificationSvc: deps.VerificationSvc,
	}
}

func (h *userHandlers) UserRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetUser)
	r.Post("/", h.CreateUser)
	r.Put("/", h.UpdateUser)
	r.Get("/verification", h.VerificationStatus)
	r.Post("/verification", h.SendVerification)
	return r
}

// targetUID reads ?uid=, defaulting to the caller.
func targetUID(r *http.Request) string {
	if uid := r.URL.Query().Get("uid"); uid != "" {
		return uid
	}
	return middleware.UID(r.Context())
}

func (h *userHandlers) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserSvc.GetUser(r.Context(), targetUID(r))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteJSON(w, r, http.StatusOK, user)
}

func (h *userHandlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	ctx := r.Context()
	if err := h.UserSvc.CreateUser(ctx, middleware.UID(ctx), middleware.Email(ctx), req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}

func (h *userHandlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch dto.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	caller := middleware.UID(r.Context())
	if err := h.UserSvc.UpdateUser(r.Context(), caller, targetUID(r), patch); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}

func (h *userHandlers) VerificationStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.VerificationSvc.Status(r.Context(), middleware.UID(r.Context()))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteJSON(w, r, http.StatusOK, status)
}

func (h *userHandlers) SendVerification(w http.ResponseWriter, r *http.Request) {
	if err := h.VerificationSvc.SendVerification(r.Context(), middleware.UID(r.Context())); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}
