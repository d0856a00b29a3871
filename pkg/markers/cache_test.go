package markers

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/GregMSThompson/dockly/pkg/api"
	"github.com/GregMSThompson/dockly/pkg/helpers"
)

func rackA() api.Marker {
	return api.Marker{
		ID:          "m-1",
		Title:       "Rack A",
		Latitude:    "35.60",
		Longitude:   "-82.55",
		Description: "near entrance",
		Rating:      3,
	}
}

func TestCacheRefreshReplacesCollection(t *testing.T) {
	backend := &fakeBackend{markers: []api.Marker{rackA()}}
	cache := NewCache(backend)

	if got := cache.Current(); len(got) != 0 {
		t.Fatalf("Current before refresh = %v, want empty", got)
	}

	got, err := cache.Refresh(helpers.TestCtx())
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if diff := cmp.Diff([]api.Marker{rackA()}, got); diff != "" {
		t.Fatalf("Refresh mismatch (-want +got):\n%s", diff)
	}
	if cache.Loading() {
		t.Fatalf("Loading() = true after refresh returned")
	}
}

func TestCacheOptimisticCreateVisibleImmediately(t *testing.T) {
	cache := NewCache(&fakeBackend{})

	cache.ApplyOptimisticCreate(rackA())

	if diff := cmp.Diff([]api.Marker{rackA()}, cache.Current()); diff != "" {
		t.Fatalf("Current mismatch (-want +got):\n%s", diff)
	}
}

func TestCacheOptimisticUpdatePatchesFields(t *testing.T) {
	backend := &fakeBackend{markers: []api.Marker{rackA()}}
	cache := NewCache(backend)
	if _, err := cache.Refresh(helpers.TestCtx()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	cache.ApplyOptimisticUpdate("m-1", Patch{Rating: helpers.Ptr(5)})

	want := rackA()
	want.Rating = 5
	if diff := cmp.Diff([]api.Marker{want}, cache.Current()); diff != "" {
		t.Fatalf("Current mismatch (-want +got):\n%s", diff)
	}
}

func TestCacheUpdateOfUnknownIDIsIgnored(t *testing.T) {
	cache := NewCache(&fakeBackend{})
	cache.ApplyOptimisticUpdate("missing", Patch{Title: helpers.Ptr("x")})

	if got := cache.Current(); len(got) != 0 {
		t.Fatalf("Current = %v, want empty", got)
	}
}

func TestCacheFailedRefreshKeepsOptimisticState(t *testing.T) {
	backend := &fakeBackend{markers: []api.Marker{rackA()}}
	cache := NewCache(backend)
	if _, err := cache.Refresh(helpers.TestCtx()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	cache.ApplyOptimisticUpdate("m-1", Patch{Rating: helpers.Ptr(5)})
	backend.listErr = errors.New("offline")

	got, err := cache.Refresh(helpers.TestCtx())
	if err == nil {
		t.Fatalf("expected refresh error")
	}
	if len(got) != 1 || got[0].Rating != 5 {
		t.Fatalf("Current after failed refresh = %v, want rating 5", got)
	}
}

func TestCacheRefreshDropsPendingAppliedBeforeStart(t *testing.T) {
	backend := &fakeBackend{}
	cache := NewCache(backend)

	// local optimistic entry the server never stored
	cache.ApplyOptimisticCreate(api.Marker{ID: "ghost", Title: "Ghost"})

	got, err := cache.Refresh(helpers.TestCtx())
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Current = %v, want server state only", got)
	}
}

func TestCacheKeepsPendingAppliedDuringRefresh(t *testing.T) {
	backend := &fakeBackend{markers: []api.Marker{rackA()}}
	cache := NewCache(backend)

	backend.onList = func() {
		cache.ApplyOptimisticUpdate("m-1", Patch{Title: helpers.Ptr("Rack B")})
	}

	got, err := cache.Refresh(helpers.TestCtx())
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Rack B" {
		t.Fatalf("Current = %v, want write made during refresh to survive", got)
	}
}

func TestCacheOptimisticCreateDedupesServerCopy(t *testing.T) {
	backend := &fakeBackend{}
	cache := NewCache(backend)

	// the server list already carries the new marker while the write is
	// still pending locally
	backend.onList = func() {
		cache.ApplyOptimisticCreate(rackA())
		backend.mu.Lock()
		backend.markers = []api.Marker{rackA()}
		backend.mu.Unlock()
	}

	got, err := cache.Refresh(helpers.TestCtx())
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Current = %v, want one entry", got)
	}
}

func TestCacheLoadingDuringRefresh(t *testing.T) {
	backend := &fakeBackend{}
	cache := NewCache(backend)

	var loading bool
	backend.onList = func() { loading = cache.Loading() }

	if _, err := cache.Refresh(helpers.TestCtx()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if !loading {
		t.Fatalf("Loading() = false while list was in flight")
	}
}

func TestCacheStaleRefreshDiscarded(t *testing.T) {
	backend := &fakeBackend{markers: []api.Marker{rackA()}}
	cache := NewCache(backend)

	release := make(chan struct{})
	var listCalls atomic.Int32
	backend.onList = func() {
		if listCalls.Add(1) == 1 {
			<-release
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var staleErr error
	go func() {
		defer wg.Done()
		_, staleErr = cache.Refresh(helpers.TestCtx())
	}()

	// wait until the first refresh is blocked inside ListMarkers
	for {
		if l, _, _, _ := backend.calls(); l == 1 {
			break
		}
	}

	backend.mu.Lock()
	backend.markers = []api.Marker{rackA(), {ID: "m-2", Title: "Rack B", Latitude: "1", Longitude: "2"}}
	backend.mu.Unlock()

	if _, err := cache.Refresh(helpers.TestCtx()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	// the blocked refresh now reads an older collection
	backend.mu.Lock()
	backend.markers = []api.Marker{rackA()}
	backend.mu.Unlock()
	close(release)
	wg.Wait()
	if staleErr != nil {
		t.Fatalf("stale Refresh returned error: %v", staleErr)
	}

	if got := cache.Current(); len(got) != 2 {
		t.Fatalf("Current = %v, want the newer list", got)
	}
}
