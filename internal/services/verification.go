package services

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"github.com/GregMSThompson/dockly/internal/dto"
	"github.com/GregMSThompson/dockly/internal/errs"
	"github.com/GregMSThompson/dockly/internal/metrics"
	"github.com/GregMSThompson/dockly/pkg/logger"
)

type authVSClient interface {
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	EmailVerificationLinkWithSettings(ctx context.Context, email string, settings *auth.ActionCodeSettings) (string, error)
}

type verificationMailer interface {
	SendVerification(ctx context.Context, to, name, link string) error
}

type verificationService struct {
	Auth        authVSClient
	Mailer      verificationMailer
	ContinueURL string
	Metrics     *metrics.Metrics
}

func NewVerificationService(client authVSClient, mailer verificationMailer, continueURL string, m *metrics.Metrics) *verificationService {
	return &verificationService{
		Auth:        client,
		Mailer:      mailer,
		ContinueURL: continueURL,
		Metrics:     m,
	}
}

func (s *verificationService) Status(ctx context.Context, uid string) (*dto.VerificationStatus, error) {
	record, err := s.lookup(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &dto.VerificationStatus{EmailVerified: record.EmailVerified}, nil
}

// SendVerification mails a fresh verification link to the user's address.
func (s *verificationService) SendVerification(ctx context.Context, uid string) error {
	log := logger.FromContext(ctx)

	if s.Mailer == nil {
		return errs.NewExternalServiceError("mail", "email delivery is not configured", false, nil)
	}

	record, err := s.lookup(ctx, uid)
	if err != nil {
		return err
	}
	if record.EmailVerified {
		return errs.NewAlreadyExistsError("email already verified")
	}
	if record.UserInfo == nil || record.Email == "" {
		return errs.NewValidationError("account has no email address")
	}

	var settings *auth.ActionCodeSettings
	if s.ContinueURL != "" {
		settings = &auth.ActionCodeSettings{URL: s.ContinueURL}
	}
	link, err := s.Auth.EmailVerificationLinkWithSettings(ctx, record.Email, settings)
	if err != nil {
		return errs.NewExternalServiceError("auth", "failed to generate verification link", true, err)
	}

	if err := s.Mailer.SendVerification(ctx, record.Email, record.DisplayName, link); err != nil {
		s.Metrics.VerificationMail("failed")
		log.Error("failed to send verification mail", "error", err)
		return errs.NewExternalServiceError("mail", "failed to send verification email", true, err)
	}

	s.Metrics.VerificationMail("sent")
	log.Info("verification mail sent")
	return nil
}

func (s *verificationService) lookup(ctx context.Context, uid string) (*auth.UserRecord, error) {
	record, err := s.Auth.GetUser(ctx, uid)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, errs.NewNotFoundError("account not found")
		}
		return nil, errs.NewExternalServiceError("auth", "failed to look up account", true, err)
	}
	return record, nil
}
