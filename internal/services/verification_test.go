package services

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"

	"github.com/GregMSThompson/dockly/internal/errs"
	"github.com/GregMSThompson/dockly/pkg/helpers"
)

type stubAuthClient struct {
	record   *auth.UserRecord
	err      error
	linkErr  error
	settings *auth.ActionCodeSettings
	email    string
}

func (s *stubAuthClient) GetUser(_ context.Context, _ string) (*auth.UserRecord, error) {
	return s.record, s.err
}

func (s *stubAuthClient) EmailVerificationLinkWithSettings(_ context.Context, email string, settings *auth.ActionCodeSettings) (string, error) {
	s.email = email
	s.settings = settings
	if s.linkErr != nil {
		return "", s.linkErr
	}
	return "https://dockly.firebaseapp.com/__/auth/action?mode=verifyEmail&oobCode=abc", nil
}

type stubMailer struct {
	to, name, link string
	calls          int
	err            error
}

func (m *stubMailer) SendVerification(_ context.Context, to, name, link string) error {
	m.calls++
	m.to, m.name, m.link = to, name, link
	return m.err
}

func userRecord(email string, verified bool) *auth.UserRecord {
	return &auth.UserRecord{
		UserInfo:      &auth.UserInfo{UID: "uid-1", Email: email, DisplayName: "Rider"},
		EmailVerified: verified,
	}
}

func TestVerificationStatus(t *testing.T) {
	for _, verified := range []bool{true, false} {
		svc := NewVerificationService(&stubAuthClient{record: userRecord("a@example.com", verified)}, nil, "", nil)
		got, err := svc.Status(helpers.TestCtx(), "uid-1")
		if err != nil {
			t.Fatalf("Status returned error: %v", err)
		}
		if got.EmailVerified != verified {
			t.Fatalf("EmailVerified = %v, want %v", got.EmailVerified, verified)
		}
	}
}

func TestVerificationStatusLookupError(t *testing.T) {
	svc := NewVerificationService(&stubAuthClient{err: errors.New("unavailable")}, nil, "", nil)
	_, err := svc.Status(helpers.TestCtx(), "uid-1")
	var ext *errs.ExternalServiceError
	if !errors.As(err, &ext) {
		t.Fatalf("expected external service error, got %v", err)
	}
}

func TestSendVerification(t *testing.T) {
	client := &stubAuthClient{record: userRecord("a@example.com", false)}
	mailer := &stubMailer{}
	svc := NewVerificationService(client, mailer, "https://dockly.app/verified", nil)

	if err := svc.SendVerification(helpers.TestCtx(), "uid-1"); err != nil {
		t.Fatalf("SendVerification returned error: %v", err)
	}
	if mailer.calls != 1 || mailer.to != "a@example.com" || mailer.name != "Rider" {
		t.Fatalf("unexpected mail: %+v", mailer)
	}
	if client.settings == nil || client.settings.URL != "https://dockly.app/verified" {
		t.Fatalf("continue url not passed: %+v", client.settings)
	}
}

func TestSendVerificationRejects(t *testing.T) {
	cases := []struct {
		name   string
		client *stubAuthClient
		mailer *stubMailer
		check  func(error) bool
	}{
		{"already verified", &stubAuthClient{record: userRecord("a@example.com", true)}, &stubMailer{}, func(err error) bool {
			var ae *errs.AlreadyExistsError
			return errors.As(err, &ae)
		}},
		{"no email", &stubAuthClient{record: userRecord("", false)}, &stubMailer{}, func(err error) bool {
			var ve *errs.ValidationError
			return errors.As(err, &ve)
		}},
		{"link failure", &stubAuthClient{record: userRecord("a@example.com", false), linkErr: errors.New("quota")}, &stubMailer{}, func(err error) bool {
			var ext *errs.ExternalServiceError
			return errors.As(err, &ext) && ext.Service == "auth"
		}},
		{"mail failure", &stubAuthClient{record: userRecord("a@example.com", false)}, &stubMailer{err: errors.New("401")}, func(err error) bool {
			var ext *errs.ExternalServiceError
			return errors.As(err, &ext) && ext.Service == "mail"
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc := NewVerificationService(c.client, c.mailer, "", nil)
			if err := svc.SendVerification(helpers.TestCtx(), "uid-1"); !c.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSendVerificationWithoutMailer(t *testing.T) {
	svc := NewVerificationService(&stubAuthClient{record: userRecord("a@example.com", false)}, nil, "", nil)
	err := svc.SendVerification(helpers.TestCtx(), "uid-1")
	var ext *errs.ExternalServiceError
	if !errors.As(err, &ext) {
		t.Fatalf("expected external service error, got %v", err)
	}
}
