package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/GregMSThompson/dockly/pkg/api"
)

type fakeServer struct {
	mu       sync.Mutex
	markers  []api.Marker
	verified bool
	sent     int
}

func (s *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/markers", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(s.markers)
	})
	mux.HandleFunc("POST /api/markers", func(w http.ResponseWriter, r *http.Request) {
		var m api.Marker
		_ = json.NewDecoder(r.Body).Decode(&m)
		s.mu.Lock()
		m.ID = "m-new"
		s.markers = append(s.markers, m)
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"id": m.ID})
	})
	mux.HandleFunc("PUT /api/markers", func(w http.ResponseWriter, r *http.Request) {
		var m api.Marker
		_ = json.NewDecoder(r.Body).Decode(&m)
		s.mu.Lock()
		for i := range s.markers {
			if s.markers[i].ID == m.ID {
				s.markers[i] = m
			}
		}
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"id": m.ID})
	})
	mux.HandleFunc("GET /api/users", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.UserProfile{UID: "u1", DisplayName: "Ada", Email: "ada@example.com", Contributions: 2})
	})
	mux.HandleFunc("GET /api/users/verification", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]bool{"emailVerified": s.verified})
	})
	mux.HandleFunc("POST /api/users/verification", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.sent++
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})
	return mux
}

func runCLI(t *testing.T, srv *fakeServer, args ...string) (string, error) {
	t.Helper()
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)

	env := map[string]string{"DOCKLY_API": ts.URL, "DOCKLY_TOKEN": "tok"}
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, func(k string) string { return env[k] }, &stdout, &stderr)
	return stdout.String(), err
}

func TestRunUsage(t *testing.T) {
	if _, err := runCLI(t, &fakeServer{}); !errors.Is(err, errUsage) {
		t.Fatalf("err = %v, want errUsage", err)
	}
	if _, err := runCLI(t, &fakeServer{}, "delete"); !errors.Is(err, errUsage) {
		t.Fatalf("err = %v, want errUsage", err)
	}
}

func TestRunList(t *testing.T) {
	srv := &fakeServer{markers: []api.Marker{
		{ID: "m-1", Title: "Rack A", Latitude: "35.60", Longitude: "-82.55", Rating: 4},
		{ID: "m-2", Title: "Broken", Latitude: "x", Longitude: "y"},
	}}

	out, err := runCLI(t, srv, "list")
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if !strings.Contains(out, "Rack A") || strings.Contains(out, "Broken") {
		t.Fatalf("output = %q", out)
	}
	if !strings.Contains(out, "1 marker(s) without usable coordinates") {
		t.Fatalf("output = %q, want hidden count", out)
	}
}

func TestRunAdd(t *testing.T) {
	srv := &fakeServer{}

	out, err := runCLI(t, srv, "add", "-title", "Rack A", "-lat", "35.60", "-lng", "-82.55", "-rating", "9")
	if err != nil {
		t.Fatalf("add returned error: %v", err)
	}
	if !strings.Contains(out, "Marker added: m-new") {
		t.Fatalf("output = %q", out)
	}
	if len(srv.markers) != 1 || srv.markers[0].Rating != 5 {
		t.Fatalf("stored = %+v, want one marker with rating 5", srv.markers)
	}
}

func TestRunAddMissingFields(t *testing.T) {
	srv := &fakeServer{}

	_, err := runCLI(t, srv, "add", "-title", "Rack A")
	if err == nil || !strings.Contains(err.Error(), "latitude is required") {
		t.Fatalf("err = %v, want missing latitude", err)
	}
	if len(srv.markers) != 0 {
		t.Fatalf("marker stored despite validation error")
	}
}

func TestRunEdit(t *testing.T) {
	srv := &fakeServer{markers: []api.Marker{{ID: "m-1", Title: "Rack A", Latitude: "35.60", Longitude: "-82.55", Rating: 3}}}

	out, err := runCLI(t, srv, "edit", "-id", "m-1", "-rating", "5")
	if err != nil {
		t.Fatalf("edit returned error: %v", err)
	}
	if !strings.Contains(out, "Marker updated: m-1") {
		t.Fatalf("output = %q", out)
	}
	if srv.markers[0].Rating != 5 || srv.markers[0].Title != "Rack A" {
		t.Fatalf("stored = %+v", srv.markers[0])
	}

	out, err = runCLI(t, srv, "edit", "-id", "m-1", "-rating", "5")
	if err != nil {
		t.Fatalf("edit returned error: %v", err)
	}
	if !strings.Contains(out, "Marker unchanged: m-1") {
		t.Fatalf("output = %q, want unchanged", out)
	}
}

func TestRunOpen(t *testing.T) {
	srv := &fakeServer{markers: []api.Marker{{ID: "m-1", Title: "Rack A", Latitude: "35.60", Longitude: "-82.55", Rating: 3}}}

	out, err := runCLI(t, srv, "open", "-id", "m-1")
	if err != nil {
		t.Fatalf("open returned error: %v", err)
	}
	if !strings.Contains(out, "map center: 35.602500,-82.550000 zoom 15") {
		t.Fatalf("output = %q", out)
	}
}

func TestRunMe(t *testing.T) {
	out, err := runCLI(t, &fakeServer{}, "me")
	if err != nil {
		t.Fatalf("me returned error: %v", err)
	}
	if !strings.Contains(out, "contributions: 2") {
		t.Fatalf("output = %q", out)
	}
}

func TestRunVerify(t *testing.T) {
	srv := &fakeServer{}

	out, err := runCLI(t, srv, "verify", "-send")
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}
	if srv.sent != 1 || !strings.Contains(out, "email not verified") {
		t.Fatalf("sent = %d output = %q", srv.sent, out)
	}

	srv.verified = true
	out, err = runCLI(t, srv, "verify", "-wait", "-interval", "1ms", "-attempts", "2")
	if err != nil {
		t.Fatalf("verify -wait returned error: %v", err)
	}
	if !strings.Contains(out, "email verified") {
		t.Fatalf("output = %q", out)
	}
}
