package markers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/GregMSThompson/dockly/pkg/api"
	"github.com/GregMSThompson/dockly/pkg/helpers"
	"github.com/GregMSThompson/dockly/pkg/logger"
	"github.com/GregMSThompson/dockly/pkg/sanitize"
)

const (
	MaxTitleRunes       = 120
	MaxDescriptionRunes = 200
	MinRating           = 0
	MaxRating           = 5

	// DefaultDestination is the storage folder for marker images.
	DefaultDestination = "markers"
)

type State int

const (
	StateIdle State = iota
	StateEditing
	StateValidating
	StateUploading
	StateSubmitting
	// StateSuccess means the submit finished and the form closed, including
	// an edit with nothing to save.
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateValidating:
		return "validating"
	case StateUploading:
		return "uploading"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrNotEditing = errors.New("form is not editable")
	ErrBusy       = errors.New("form has a submission in flight")
	ErrNoLocator  = errors.New("no location provider configured")
)

// ValidationError lists the fields that block a submission, keyed by field
// name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	slices.Sort(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + " " + e.Fields[name]
	}
	return "invalid marker: " + strings.Join(parts, ", ")
}

// Writer persists markers. *api.Client satisfies it.
type Writer interface {
	CreateMarker(ctx context.Context, m api.Marker) (string, error)
	UpdateMarker(ctx context.Context, id string, m api.Marker) error
}

// Uploader stores a local image and returns its public URL. *api.Client
// satisfies it.
type Uploader interface {
	UploadImage(ctx context.Context, f api.File, destination string) (string, error)
}

// Locator reports the device position.
type Locator interface {
	Locate(ctx context.Context) (lat, lng float64, err error)
}

// Place is a search result picked by the user.
type Place struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Form drives the add/edit marker flow. One Form serves one modal at a time:
// Open starts a session and Close ends it. A submission still in flight when
// the form is closed finishes its network calls and cache update but leaves
// the form alone.
type Form struct {
	writer      Writer
	uploader    Uploader
	cache       *Cache
	locator     Locator
	destination string

	mu      sync.Mutex
	state   State
	session uint64
	initial api.Marker
	values  api.Marker
	image   *api.File
	manual  bool
	err     error
	message string
}

type FormOption func(*Form)

func WithLocator(l Locator) FormOption {
	return func(f *Form) { f.locator = l }
}

// WithDestination sets the upload folder for attached images.
func WithDestination(dest string) FormOption {
	return func(f *Form) { f.destination = dest }
}

func NewForm(writer Writer, uploader Uploader, cache *Cache, opts ...FormOption) *Form {
	f := &Form{
		writer:      writer,
		uploader:    uploader,
		cache:       cache,
		destination: DefaultDestination,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open starts editing existing, or a blank marker when existing is nil.
func (f *Form) Open(existing *api.Marker) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight() {
		return ErrBusy
	}

	f.session++
	f.initial = api.Marker{}
	if existing != nil {
		f.initial = *existing
	}
	f.values = f.initial
	f.image = nil
	f.manual = false
	f.err = nil
	f.message = ""
	f.state = StateEditing
	return nil
}

// Close detaches the form from the current session.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session++
	f.state = StateIdle
	f.image = nil
	f.err = nil
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Values returns the field values as currently entered.
func (f *Form) Values() api.Marker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// Err returns the error of the last failed submission.
func (f *Form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Message returns the success message of the last submission.
func (f *Form) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// ManualCoordinates reports whether the coordinate inputs are expanded.
func (f *Form) ManualCoordinates() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.manual
}

func (f *Form) HasImage() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.image != nil
}

func (f *Form) SetTitle(title string) error {
	return f.edit(func() { f.values.Title = title })
}

func (f *Form) SetDescription(desc string) error {
	return f.edit(func() { f.values.Description = truncateRunes(desc, MaxDescriptionRunes) })
}

func (f *Form) SetRating(rating int) error {
	return f.edit(func() { f.values.Rating = helpers.Clamp(rating, MinRating, MaxRating) })
}

// SetCoordinates sets both coordinates as typed and expands manual entry.
func (f *Form) SetCoordinates(lat, lng string) error {
	return f.edit(func() {
		f.values.Latitude = lat
		f.values.Longitude = lng
		f.manual = true
	})
}

func (f *Form) ToggleManualCoordinates() error {
	return f.edit(func() { f.manual = !f.manual })
}

// AttachImage selects a local image for upload on submit.
func (f *Form) AttachImage(file api.File) error {
	return f.edit(func() { f.image = &file })
}

// RemoveImage drops the attached image and the stored image URL.
func (f *Form) RemoveImage() error {
	return f.edit(func() {
		f.image = nil
		f.values.File = ""
	})
}

// LocateMe fills the coordinates from the device position.
func (f *Form) LocateMe(ctx context.Context) error {
	if f.locator == nil {
		return ErrNoLocator
	}
	lat, lng, err := f.locator.Locate(ctx)
	if err != nil {
		return fmt.Errorf("locate: %w", err)
	}
	return f.edit(func() {
		f.values.Latitude = formatCoord(lat)
		f.values.Longitude = formatCoord(lng)
	})
}

// SelectPlace fills title and coordinates from a search result.
func (f *Form) SelectPlace(p Place) error {
	return f.edit(func() {
		f.values.Title = p.Name
		f.values.Latitude = formatCoord(p.Latitude)
		f.values.Longitude = formatCoord(p.Longitude)
		f.manual = false
	})
}

// Submit validates, uploads the attached image if any, and writes the marker.
// It returns the marker id. An unchanged existing marker closes the form
// without any network call.
func (f *Form) Submit(ctx context.Context) (string, error) {
	log := logger.FromContext(ctx)

	f.mu.Lock()
	if f.state != StateEditing && f.state != StateFailed {
		f.mu.Unlock()
		return "", ErrNotEditing
	}
	session := f.session
	f.state = StateValidating
	f.err = nil

	if f.values.ID != "" && f.values == f.initial && f.image == nil {
		id := f.values.ID
		f.state = StateSuccess
		f.message = "Marker unchanged"
		f.mu.Unlock()
		log.Debug("marker unchanged, nothing to submit", "marker_id", id)
		return id, nil
	}

	payload := clean(f.values)
	if verr := validate(payload); verr != nil {
		f.state = StateEditing
		f.mu.Unlock()
		return "", verr
	}

	image := f.image
	if image != nil {
		f.state = StateUploading
	} else {
		f.state = StateSubmitting
	}
	f.mu.Unlock()

	if image != nil {
		url, err := f.uploader.UploadImage(ctx, *image, f.destination)
		if err != nil {
			f.fail(session, err)
			log.Warn("marker image upload failed", "error", err)
			return "", err
		}
		payload.File = url

		f.mu.Lock()
		if f.session == session {
			// keep the uploaded URL so a retry does not upload again
			f.values.File = url
			f.image = nil
			f.state = StateSubmitting
		}
		f.mu.Unlock()
	}

	id := payload.ID
	var err error
	if id == "" {
		id, err = f.writer.CreateMarker(ctx, payload)
	} else {
		err = f.writer.UpdateMarker(ctx, id, payload)
	}
	if err != nil {
		f.fail(session, err)
		log.Warn("marker write failed", "error", err, "marker_id", payload.ID)
		return "", err
	}

	message := "Marker updated"
	if payload.ID == "" {
		message = "Marker added"
		payload.ID = id
		f.cache.ApplyOptimisticCreate(payload)
	} else {
		f.cache.ApplyOptimisticUpdate(id, PatchFrom(payload))
	}

	f.mu.Lock()
	if f.session == session {
		f.state = StateSuccess
		f.message = message
		f.values = payload
		f.initial = payload
	}
	f.mu.Unlock()

	if _, err := f.cache.Refresh(ctx); err != nil {
		log.Warn("refresh after marker write failed", "error", err, "marker_id", id)
	}
	return id, nil
}

func (f *Form) fail(session uint64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session != session {
		return
	}
	f.state = StateFailed
	f.err = err
}

// edit applies fn while the form accepts input. Editing a failed form
// returns it to Editing.
func (f *Form) edit(fn func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateEditing && f.state != StateFailed {
		return ErrNotEditing
	}
	fn()
	f.state = StateEditing
	return nil
}

func (f *Form) inFlight() bool {
	switch f.state {
	case StateValidating, StateUploading, StateSubmitting:
		return true
	}
	return false
}

func clean(m api.Marker) api.Marker {
	m.Title = sanitize.Text(m.Title)
	m.Latitude = sanitize.Text(m.Latitude)
	m.Longitude = sanitize.Text(m.Longitude)
	m.Description = truncateRunes(sanitize.Text(m.Description), MaxDescriptionRunes)
	m.Rating = helpers.Clamp(m.Rating, MinRating, MaxRating)
	m.File = sanitize.URL(m.File)
	return m
}

func validate(m api.Marker) *ValidationError {
	fields := map[string]string{}
	switch {
	case m.Title == "":
		fields["title"] = "is required"
	case utf8.RuneCountInString(m.Title) > MaxTitleRunes:
		fields["title"] = fmt.Sprintf("must be at most %d characters", MaxTitleRunes)
	}
	checkCoord(fields, "latitude", m.Latitude, 90)
	checkCoord(fields, "longitude", m.Longitude, 180)
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func checkCoord(fields map[string]string, name, value string, limit float64) {
	if value == "" {
		fields[name] = "is required"
		return
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		fields[name] = "is not a number"
		return
	}
	if v < -limit || v > limit {
		fields[name] = "is out of range"
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
