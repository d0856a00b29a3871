package handlers

import (
	"log/slog"

	"github.com/GregMSThompson/dockly/internal/response"
)

type Deps struct {
	Log             *slog.Logger
	ResponseHandler response.ResponseHandler
	MarkerSvc       markerService
	UserSvc         userService
	UploadSvc       uploadService
	VerificationSvc verificationService
}
