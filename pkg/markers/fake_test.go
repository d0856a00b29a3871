package markers

import (
	"context"
	"fmt"
	"sync"

	"github.com/GregMSThompson/dockly/pkg/api"
)

// fakeBackend is an in-memory marker store and image bucket.
type fakeBackend struct {
	mu      sync.Mutex
	markers []api.Marker
	nextID  int

	listErr   error
	writeErr  error
	uploadErr error
	uploadURL string

	// onList runs at the start of ListMarkers
	onList func()

	lists      int
	creates    int
	updates    int
	uploads    int
	uploadDest string
}

func (b *fakeBackend) ListMarkers(context.Context) ([]api.Marker, error) {
	b.mu.Lock()
	hook := b.onList
	b.lists++
	b.mu.Unlock()
	if hook != nil {
		hook()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	return append([]api.Marker(nil), b.markers...), nil
}

func (b *fakeBackend) CreateMarker(_ context.Context, m api.Marker) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creates++
	if b.writeErr != nil {
		return "", b.writeErr
	}
	b.nextID++
	m.ID = fmt.Sprintf("m-%d", b.nextID)
	b.markers = append(b.markers, m)
	return m.ID, nil
}

func (b *fakeBackend) UpdateMarker(_ context.Context, id string, m api.Marker) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates++
	if b.writeErr != nil {
		return b.writeErr
	}
	for i := range b.markers {
		if b.markers[i].ID == id {
			m.ID = id
			b.markers[i] = m
			return nil
		}
	}
	return &api.TransportError{Op: "update marker", StatusCode: 404, Code: "not_found"}
}

func (b *fakeBackend) UploadImage(_ context.Context, f api.File, destination string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads++
	b.uploadDest = destination
	if b.uploadErr != nil {
		return "", b.uploadErr
	}
	if b.uploadURL != "" {
		return b.uploadURL, nil
	}
	return "https://storage.example.com/" + destination + "/" + f.Name, nil
}

func (b *fakeBackend) calls() (lists, creates, updates, uploads int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lists, b.creates, b.updates, b.uploads
}

func (b *fakeBackend) writes() int {
	_, c, u, up := b.calls()
	return c + u + up
}
