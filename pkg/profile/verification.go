package profile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/GregMSThompson/dockly/pkg/logger"
)

var ErrVerificationPending = errors.New("email verification still pending")

// VerificationRemote is the verification endpoint pair. *api.Client
// satisfies it.
type VerificationRemote interface {
	VerificationStatus(ctx context.Context) (bool, error)
	SendVerificationEmail(ctx context.Context) error
}

// Verifier tracks whether the signed-in user's email is verified.
type Verifier struct {
	remote VerificationRemote

	mu       sync.Mutex
	verified bool
}

func NewVerifier(remote VerificationRemote) *Verifier {
	return &Verifier{remote: remote}
}

// Verified returns the last known state.
func (v *Verifier) Verified() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.verified
}

// Resend asks the backend to mail a new verification link.
func (v *Verifier) Resend(ctx context.Context) error {
	return v.remote.SendVerificationEmail(ctx)
}

// CheckNow asks the backend once.
func (v *Verifier) CheckNow(ctx context.Context) (bool, error) {
	ok, err := v.remote.VerificationStatus(ctx)
	if err != nil {
		return false, err
	}

	v.mu.Lock()
	v.verified = ok
	v.mu.Unlock()
	return ok, nil
}

// Wait checks immediately and then every interval until the email is
// verified, maxAttempts checks have been made or ctx is done. Failed checks
// count as attempts.
func (v *Verifier) Wait(ctx context.Context, interval time.Duration, maxAttempts int) error {
	log := logger.FromContext(ctx)
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for attempt := 1; ; attempt++ {
		ok, err := v.CheckNow(ctx)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			lastErr = err
			log.Debug("verification check failed", "attempt", attempt, "error", err)
		}
		if attempt >= maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	if lastErr != nil {
		return errors.Join(ErrVerificationPending, lastErr)
	}
	return ErrVerificationPending
}
