package markers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/GregMSThompson/dockly/pkg/api"
	"github.com/GregMSThompson/dockly/pkg/helpers"
)

func newTestForm(backend *fakeBackend, opts ...FormOption) (*Form, *Cache) {
	cache := NewCache(backend)
	return NewForm(backend, backend, cache, opts...), cache
}

func fillRackA(t *testing.T, f *Form) {
	t.Helper()
	steps := []error{
		f.SetTitle("Rack A"),
		f.SetCoordinates("35.60", "-82.55"),
		f.SetDescription("near entrance"),
		f.SetRating(4),
	}
	for _, err := range steps {
		if err != nil {
			t.Fatalf("setter returned error: %v", err)
		}
	}
}

func TestFormCreateRoundTrip(t *testing.T) {
	backend := &fakeBackend{}
	form, cache := newTestForm(backend)

	if err := form.Open(nil); err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	fillRackA(t, form)

	id, err := form.Submit(helpers.TestCtx())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if form.State() != StateSuccess {
		t.Fatalf("state = %v, want success", form.State())
	}
	if form.Message() != "Marker added" {
		t.Fatalf("message = %q", form.Message())
	}

	want := []api.Marker{{
		ID:          id,
		Title:       "Rack A",
		Latitude:    "35.60",
		Longitude:   "-82.55",
		Description: "near entrance",
		Rating:      4,
	}}
	if diff := cmp.Diff(want, cache.Current()); diff != "" {
		t.Fatalf("cache mismatch (-want +got):\n%s", diff)
	}

	got, err := cache.Refresh(helpers.TestCtx())
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("refreshed list mismatch (-want +got):\n%s", diff)
	}
}

func TestFormNoUploadWithoutImage(t *testing.T) {
	backend := &fakeBackend{}
	form, _ := newTestForm(backend)
	_ = form.Open(nil)
	fillRackA(t, form)

	if _, err := form.Submit(helpers.TestCtx()); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if _, creates, _, uploads := backend.calls(); uploads != 0 || creates != 1 {
		t.Fatalf("uploads = %d creates = %d, want 0 and 1", uploads, creates)
	}
}

func TestFormUploadsAttachedImage(t *testing.T) {
	backend := &fakeBackend{uploadURL: "https://storage.example.com/markers/rack.png"}
	form, cache := newTestForm(backend)
	_ = form.Open(nil)
	fillRackA(t, form)
	if err := form.AttachImage(api.File{Name: "rack.png", ContentType: "image/png", Data: []byte{1}}); err != nil {
		t.Fatalf("AttachImage returned error: %v", err)
	}

	if _, err := form.Submit(helpers.TestCtx()); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if backend.uploadDest != DefaultDestination {
		t.Fatalf("destination = %q, want %q", backend.uploadDest, DefaultDestination)
	}
	got := cache.Current()
	if len(got) != 1 || got[0].File != backend.uploadURL {
		t.Fatalf("cache = %v, want file %q", got, backend.uploadURL)
	}
}

func TestFormMissingFieldsBlockSubmit(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		lat    string
		lng    string
		fields []string
	}{
		{name: "no title", lat: "1", lng: "2", fields: []string{"title"}},
		{name: "no latitude", title: "A", lng: "2", fields: []string{"latitude"}},
		{name: "no longitude", title: "A", lat: "1", fields: []string{"longitude"}},
		{name: "nothing", fields: []string{"title", "latitude", "longitude"}},
		{name: "markup only title", title: "<b></b>", lat: "1", lng: "2", fields: []string{"title"}},
		{name: "bad latitude", title: "A", lat: "north", lng: "2", fields: []string{"latitude"}},
		{name: "out of range", title: "A", lat: "91", lng: "2", fields: []string{"latitude"}},
		{name: "long title", title: strings.Repeat("r", MaxTitleRunes+1), lat: "1", lng: "2", fields: []string{"title"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			form, _ := newTestForm(backend)
			_ = form.Open(nil)
			_ = form.SetTitle(tt.title)
			_ = form.SetCoordinates(tt.lat, tt.lng)

			_, err := form.Submit(helpers.TestCtx())
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			for _, f := range tt.fields {
				if _, ok := verr.Fields[f]; !ok {
					t.Fatalf("fields = %v, want %q", verr.Fields, f)
				}
			}
			if len(verr.Fields) != len(tt.fields) {
				t.Fatalf("fields = %v, want %v", verr.Fields, tt.fields)
			}
			if form.State() != StateEditing {
				t.Fatalf("state = %v, want editing", form.State())
			}
			if backend.writes() != 0 {
				t.Fatalf("expected no network calls")
			}
		})
	}
}

func TestFormUnchangedEditIsNoop(t *testing.T) {
	backend := &fakeBackend{}
	form, _ := newTestForm(backend)

	existing := rackA()
	_ = form.Open(&existing)
	// same values typed again
	_ = form.SetTitle(existing.Title)
	_ = form.SetRating(existing.Rating)

	id, err := form.Submit(helpers.TestCtx())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if id != existing.ID {
		t.Fatalf("id = %q, want %q", id, existing.ID)
	}
	if backend.writes() != 0 {
		t.Fatalf("expected no network calls")
	}
	if lists, _, _, _ := backend.calls(); lists != 0 {
		t.Fatalf("lists = %d, want 0", lists)
	}
	if form.State() != StateSuccess {
		t.Fatalf("state = %v, want success", form.State())
	}
	if form.Message() != "Marker unchanged" {
		t.Fatalf("message = %q", form.Message())
	}
}

func TestFormAttachedImageMakesEditDirty(t *testing.T) {
	backend := &fakeBackend{markers: []api.Marker{rackA()}}
	form, _ := newTestForm(backend)

	existing := rackA()
	_ = form.Open(&existing)
	_ = form.AttachImage(api.File{Name: "rack.png", ContentType: "image/png", Data: []byte{1}})

	if _, err := form.Submit(helpers.TestCtx()); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if _, _, updates, uploads := backend.calls(); updates != 1 || uploads != 1 {
		t.Fatalf("updates = %d uploads = %d, want 1 and 1", updates, uploads)
	}
}

func TestFormDescriptionTruncatedAtInput(t *testing.T) {
	backend := &fakeBackend{}
	form, _ := newTestForm(backend)
	_ = form.Open(nil)

	exact := strings.Repeat("é", 200)
	_ = form.SetDescription(exact)
	if got := form.Values().Description; got != exact {
		t.Fatalf("200 runes altered: len %d", len([]rune(got)))
	}

	_ = form.SetDescription(exact + "x")
	if got := form.Values().Description; got != exact {
		t.Fatalf("201 runes kept %d runes, want 200", len([]rune(got)))
	}
}

func TestFormRatingClamped(t *testing.T) {
	form, _ := newTestForm(&fakeBackend{})
	_ = form.Open(nil)

	if got := form.Values().Rating; got != 0 {
		t.Fatalf("blank rating = %d, want 0", got)
	}
	_ = form.SetRating(9)
	if got := form.Values().Rating; got != MaxRating {
		t.Fatalf("rating = %d, want %d", got, MaxRating)
	}
	_ = form.SetRating(-2)
	if got := form.Values().Rating; got != MinRating {
		t.Fatalf("rating = %d, want %d", got, MinRating)
	}
}

func TestFormRatingEditOptimisticAndAfterRefresh(t *testing.T) {
	backend := &fakeBackend{markers: []api.Marker{rackA()}}
	form, cache := newTestForm(backend)
	if _, err := cache.Refresh(helpers.TestCtx()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	var seenDuringRefresh []api.Marker
	backend.onList = func() { seenDuringRefresh = cache.Current() }

	existing := rackA()
	_ = form.Open(&existing)
	_ = form.SetRating(5)

	if _, err := form.Submit(helpers.TestCtx()); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if form.Message() != "Marker updated" {
		t.Fatalf("message = %q", form.Message())
	}
	if len(seenDuringRefresh) != 1 || seenDuringRefresh[0].Rating != 5 {
		t.Fatalf("optimistic state = %v, want rating 5", seenDuringRefresh)
	}
	got := cache.Current()
	if len(got) != 1 || got[0].Rating != 5 {
		t.Fatalf("state after refresh = %v, want rating 5", got)
	}
}

func TestFormUploadFailureKeepsFormOpen(t *testing.T) {
	backend := &fakeBackend{uploadErr: &api.UploadError{Err: errors.New("storage down")}}
	form, cache := newTestForm(backend)
	_ = form.Open(nil)
	fillRackA(t, form)
	_ = form.AttachImage(api.File{Name: "rack.png", ContentType: "image/png", Data: []byte{1}})

	id, err := form.Submit(helpers.TestCtx())
	var uerr *api.UploadError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want *api.UploadError", err)
	}
	if id != "" {
		t.Fatalf("id = %q, want none", id)
	}
	if form.State() != StateFailed {
		t.Fatalf("state = %v, want failed", form.State())
	}
	if !errors.Is(form.Err(), err) {
		t.Fatalf("Err() = %v", form.Err())
	}
	if _, creates, updates, _ := backend.calls(); creates+updates != 0 {
		t.Fatalf("marker written after failed upload")
	}
	if len(cache.Current()) != 0 {
		t.Fatalf("cache changed after failed upload")
	}
	if !form.HasImage() {
		t.Fatalf("attached image lost after failure")
	}

	// still editable, and a retry can succeed
	if err := form.SetTitle("Rack A2"); err != nil {
		t.Fatalf("SetTitle after failure returned error: %v", err)
	}
	backend.uploadErr = nil
	if _, err := form.Submit(helpers.TestCtx()); err != nil {
		t.Fatalf("retry returned error: %v", err)
	}
}

func TestFormWriteFailureLeavesCacheUntouched(t *testing.T) {
	backend := &fakeBackend{writeErr: &api.TransportError{Op: "create marker", StatusCode: 500, Code: "internal_error"}}
	form, cache := newTestForm(backend)
	_ = form.Open(nil)
	fillRackA(t, form)

	if _, err := form.Submit(helpers.TestCtx()); err == nil {
		t.Fatalf("expected error")
	}
	if form.State() != StateFailed {
		t.Fatalf("state = %v, want failed", form.State())
	}
	if len(cache.Current()) != 0 {
		t.Fatalf("cache changed after failed write")
	}
	if form.Values().Title != "Rack A" {
		t.Fatalf("values lost after failure")
	}
}

func TestFormFailedRefreshKeepsOptimisticState(t *testing.T) {
	backend := &fakeBackend{listErr: errors.New("offline")}
	form, cache := newTestForm(backend)
	_ = form.Open(nil)
	fillRackA(t, form)

	id, err := form.Submit(helpers.TestCtx())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	got := cache.Current()
	if len(got) != 1 || got[0].ID != id {
		t.Fatalf("cache = %v, want optimistic marker %q", got, id)
	}
}

func TestFormSanitizesFields(t *testing.T) {
	backend := &fakeBackend{}
	form, _ := newTestForm(backend)
	_ = form.Open(nil)
	_ = form.SetTitle("<script>alert(1)</script>Rack <b>A</b>")
	_ = form.SetCoordinates("35.60", "-82.55")
	_ = form.SetDescription("Bob's rack & lock")

	if _, err := form.Submit(helpers.TestCtx()); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	stored := backend.markers[0]
	if stored.Title != "Rack A" {
		t.Fatalf("title = %q, want Rack A", stored.Title)
	}
	if stored.Description != "Bob's rack & lock" {
		t.Fatalf("description = %q", stored.Description)
	}
}

func TestFormStripsEncodedMarkup(t *testing.T) {
	backend := &fakeBackend{}
	form, _ := newTestForm(backend)
	_ = form.Open(nil)
	nested := func(tag string) string { return "&" + strings.Repeat("amp;", 5) + tag }
	_ = form.SetTitle(nested("lt;") + "script" + nested("gt;") + "alert(1)" + nested("lt;") + "/script" + nested("gt;") + "Rack")
	_ = form.SetCoordinates("35.60", "-82.55")
	_ = form.SetDescription(nested("lt;") + "img src=x onerror=alert(1)" + nested("gt;") + "by the door")

	if _, err := form.Submit(helpers.TestCtx()); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	stored := backend.markers[0]
	if stored.Title != "Rack" {
		t.Fatalf("title = %q, want Rack", stored.Title)
	}
	if strings.ContainsAny(stored.Description, "<>") {
		t.Fatalf("description kept markup: %q", stored.Description)
	}
}

func TestFormTitleAtLimitAccepted(t *testing.T) {
	backend := &fakeBackend{}
	form, _ := newTestForm(backend)
	_ = form.Open(nil)
	_ = form.SetTitle(strings.Repeat("é", MaxTitleRunes))
	_ = form.SetCoordinates("35.60", "-82.55")

	if _, err := form.Submit(helpers.TestCtx()); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
}

func TestFormSelectPlaceCollapsesManualEntry(t *testing.T) {
	form, _ := newTestForm(&fakeBackend{})
	_ = form.Open(nil)
	_ = form.ToggleManualCoordinates()
	if !form.ManualCoordinates() {
		t.Fatalf("manual entry not expanded")
	}

	if err := form.SelectPlace(Place{Name: "Pack Square", Latitude: 35.594, Longitude: -82.551}); err != nil {
		t.Fatalf("SelectPlace returned error: %v", err)
	}
	v := form.Values()
	if v.Title != "Pack Square" || v.Latitude != "35.594000" || v.Longitude != "-82.551000" {
		t.Fatalf("values = %+v", v)
	}
	if form.ManualCoordinates() {
		t.Fatalf("manual entry still expanded")
	}
}

type stubLocator struct {
	lat, lng float64
	err      error
}

func (s stubLocator) Locate(context.Context) (float64, float64, error) {
	return s.lat, s.lng, s.err
}

func TestFormLocateMe(t *testing.T) {
	form, _ := newTestForm(&fakeBackend{}, WithLocator(stubLocator{lat: 1.5, lng: -2.25}))
	_ = form.Open(nil)
	_ = form.SetCoordinates("9", "9")

	if err := form.LocateMe(helpers.TestCtx()); err != nil {
		t.Fatalf("LocateMe returned error: %v", err)
	}
	v := form.Values()
	if v.Latitude != "1.500000" || v.Longitude != "-2.250000" {
		t.Fatalf("coordinates = %s,%s", v.Latitude, v.Longitude)
	}
}

func TestFormLocateMeErrors(t *testing.T) {
	form, _ := newTestForm(&fakeBackend{})
	_ = form.Open(nil)
	if err := form.LocateMe(helpers.TestCtx()); !errors.Is(err, ErrNoLocator) {
		t.Fatalf("err = %v, want ErrNoLocator", err)
	}

	denied := errors.New("permission denied")
	form, _ = newTestForm(&fakeBackend{}, WithLocator(stubLocator{err: denied}))
	_ = form.Open(nil)
	if err := form.LocateMe(helpers.TestCtx()); !errors.Is(err, denied) {
		t.Fatalf("err = %v, want %v", err, denied)
	}
}

func TestFormRejectsEditsWhenClosed(t *testing.T) {
	form, _ := newTestForm(&fakeBackend{})
	if err := form.SetTitle("x"); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("err = %v, want ErrNotEditing", err)
	}
	if _, err := form.Submit(helpers.TestCtx()); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("err = %v, want ErrNotEditing", err)
	}
}

// blockingWriter holds CreateMarker until released.
type blockingWriter struct {
	*fakeBackend
	entered chan struct{}
	release chan struct{}
}

func (w *blockingWriter) CreateMarker(ctx context.Context, m api.Marker) (string, error) {
	close(w.entered)
	<-w.release
	return w.fakeBackend.CreateMarker(ctx, m)
}

func TestFormCloseDuringSubmit(t *testing.T) {
	backend := &fakeBackend{}
	writer := &blockingWriter{fakeBackend: backend, entered: make(chan struct{}), release: make(chan struct{})}
	cache := NewCache(backend)
	form := NewForm(writer, backend, cache)
	_ = form.Open(nil)
	fillRackA(t, form)

	done := make(chan error, 1)
	go func() {
		_, err := form.Submit(helpers.TestCtx())
		done <- err
	}()

	<-writer.entered
	if err := form.Open(nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("Open during submit = %v, want ErrBusy", err)
	}
	form.Close()
	close(writer.release)
	if err := <-done; err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if form.State() != StateIdle {
		t.Fatalf("state = %v, want idle after close", form.State())
	}
	if form.Message() != "" {
		t.Fatalf("message set on a closed form: %q", form.Message())
	}
	if len(cache.Current()) != 1 {
		t.Fatalf("cache not updated after close")
	}
}
