package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"

	"github.com/GregMSThompson/dockly/internal/errs"
	"github.com/GregMSThompson/dockly/internal/response"
	"github.com/GregMSThompson/dockly/pkg/logger"
)

type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type Middleware struct {
	AuthClient      tokenVerifier
	ResponseHandler response.ResponseHandler
}

func NewMiddleware(client tokenVerifier, rh response.ResponseHandler) *Middleware {
	return &Middleware{AuthClient: client, ResponseHandler: rh}
}

// context key
type contextKey string

const (
	UIDKey   contextKey = "uid"
	EmailKey contextKey = "email"
)

// FirebaseAuth rejects requests without a valid Firebase ID token.
func (m *Middleware) FirebaseAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			m.ResponseHandler.HandleError(w, r, errs.NewUnauthenticatedError("missing Authorization header"))
			return
		}

		ctx, err := m.verify(r.Context(), header)
		if err != nil {
			m.ResponseHandler.HandleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth attaches the caller's identity when a valid token is present.
// Anonymous requests and requests with an unusable token are served without
// an identity.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx, err := m.verify(r.Context(), header)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) verify(ctx context.Context, header string) (context.Context, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ctx, errs.NewUnauthenticatedError("invalid Authorization header")
	}

	token, err := m.AuthClient.VerifyIDToken(ctx, parts[1])
	if err != nil {
		logger.FromContext(ctx).Debug("token verification failed", "error", err)
		return ctx, errs.NewUnauthenticatedError("invalid or expired token")
	}

	email, _ := token.Claims["email"].(string)
	ctx = context.WithValue(ctx, UIDKey, token.UID)
	ctx = context.WithValue(ctx, EmailKey, email)
	_, ctx = logger.With(ctx, "uid", token.UID)
	return ctx, nil
}

// Helper to extract UID
func UID(ctx context.Context) string {
	uid, _ := ctx.Value(UIDKey).(string)
	return uid
}

func Email(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}
