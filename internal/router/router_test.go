package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"firebase.google.com/go/v4/auth"

	"github.com/GregMSThompson/dockly/internal/dto"
	"github.com/GregMSThompson/dockly/internal/handlers"
	"github.com/GregMSThompson/dockly/internal/metrics"
	"github.com/GregMSThompson/dockly/internal/middleware"
	"github.com/GregMSThompson/dockly/internal/models"
	"github.com/GregMSThompson/dockly/internal/response"
	"github.com/GregMSThompson/dockly/pkg/logger"
)

type stubVerifier struct{}

func (stubVerifier) VerifyIDToken(_ context.Context, token string) (*auth.Token, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &auth.Token{UID: "uid-1"}, nil
}

type stubMarkers struct{}

func (stubMarkers) ListMarkers(context.Context) ([]*models.Marker, error) {
	return []*models.Marker{}, nil
}
func (stubMarkers) CreateMarker(context.Context, string, dto.MarkerRequest) (string, error) {
	return "m1", nil
}
func (stubMarkers) UpdateMarker(context.Context, dto.MarkerRequest) (string, error) {
	return "m1", nil
}

type stubUsers struct{}

func (stubUsers) CreateUser(context.Context, string, string, dto.CreateUserRequest) error {
	return nil
}
func (stubUsers) GetUser(_ context.Context, uid string) (*models.User, error) {
	return &models.User{UID: uid}, nil
}
func (stubUsers) UpdateUser(context.Context, string, string, dto.UserPatch) error { return nil }

func newTestServer() http.Handler {
	log := logger.New("", logger.NewTestHandler)
	rh := response.New(log)
	deps := &handlers.Deps{
		Log:             log,
		ResponseHandler: rh,
		MarkerSvc:       stubMarkers{},
		UserSvc:         stubUsers{},
	}
	return NewRouter(deps, Options{
		AllowedOrigins: []string{"https://dockly.app"},
		Auth:           middleware.NewMiddleware(stubVerifier{}, rh),
		Metrics:        metrics.New(),
	})
}

func TestRoutes(t *testing.T) {
	cases := []struct {
		method, path, token string
		status              int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/markers", "", http.StatusOK},
		{http.MethodGet, "/api/markers", "good", http.StatusOK},
		{http.MethodGet, "/api/markers", "bad", http.StatusOK},
		{http.MethodPost, "/api/markers", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/markers", "bad", http.StatusUnauthorized},
		{http.MethodGet, "/api/users", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/users", "good", http.StatusOK},
		{http.MethodPost, "/api/uploads", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/nowhere", "good", http.StatusNotFound},
	}

	srv := newTestServer()
	for _, c := range cases {
		req := httptest.NewRequest(c.method, c.path, strings.NewReader("{}"))
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, req)
		if rr.Code != c.status {
			t.Errorf("%s %s (token %q) = %d, want %d", c.method, c.path, c.token, rr.Code, c.status)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/markers", nil)
	req.Header.Set("Origin", "https://dockly.app")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	newTestServer().ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://dockly.app" {
		t.Fatalf("allow origin = %q", got)
	}
}
