package markers

import (
	"math"
	"strconv"
	"sync"

	"github.com/GregMSThompson/dockly/pkg/api"
)

const (
	DefaultZoom = 15

	// DefaultPanOffset is the latitude shift in degrees at DefaultZoom that
	// keeps an opened info panel in view.
	DefaultPanOffset = 0.0025
)

// Overlay is one marker as drawn on the map.
type Overlay struct {
	Marker api.Marker
	Lat    float64
	Lng    float64
	Open   bool
}

// MapView is the map state over a Cache: the viewport and the single
// marker whose info panel is open.
type MapView struct {
	cache      *Cache
	baseOffset float64
	refZoom    float64

	mu        sync.Mutex
	openID    string
	zoom      float64
	centerLat float64
	centerLng float64
}

type MapOption func(*MapView)

// WithPanOffset sets the pan offset in degrees at the reference zoom.
func WithPanOffset(base, refZoom float64) MapOption {
	return func(v *MapView) {
		v.baseOffset = base
		v.refZoom = refZoom
	}
}

func WithCenter(lat, lng float64) MapOption {
	return func(v *MapView) {
		v.centerLat = lat
		v.centerLng = lng
	}
}

func NewMapView(cache *Cache, opts ...MapOption) *MapView {
	v := &MapView{
		cache:      cache,
		baseOffset: DefaultPanOffset,
		refZoom:    DefaultZoom,
		zoom:       DefaultZoom,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Overlays returns one overlay per cached marker with usable coordinates.
func (v *MapView) Overlays() []Overlay {
	markers := v.cache.Current()

	v.mu.Lock()
	open := v.openID
	v.mu.Unlock()

	out := make([]Overlay, 0, len(markers))
	for _, m := range markers {
		lat, lng, ok := position(m)
		if !ok {
			continue
		}
		out = append(out, Overlay{
			Marker: m,
			Lat:    lat,
			Lng:    lng,
			Open:   open != "" && m.ID == open,
		})
	}
	return out
}

// ClickMarker toggles the info panel of the marker with the given id. Any
// other open panel is closed. It reports whether the marker is now open.
func (v *MapView) ClickMarker(id string) bool {
	var target *api.Marker
	for _, m := range v.cache.Current() {
		if m.ID == id {
			target = &m
			break
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.openID == id || target == nil {
		v.openID = ""
		return false
	}
	lat, lng, ok := position(*target)
	if !ok {
		v.openID = ""
		return false
	}

	v.openID = id
	v.centerLat = lat + v.panOffsetLocked()
	v.centerLng = lng
	return true
}

// ClickBackground closes any open info panel.
func (v *MapView) ClickBackground() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.openID = ""
}

// OpenMarkerID returns the id of the open marker, or "".
func (v *MapView) OpenMarkerID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.openID
}

func (v *MapView) SetZoom(zoom float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.zoom = zoom
}

func (v *MapView) Zoom() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.zoom
}

func (v *MapView) Center() (lat, lng float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.centerLat, v.centerLng
}

// PanOffset is the latitude shift applied when a marker opens at the
// current zoom. It halves with every zoom level in.
func (v *MapView) PanOffset() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.panOffsetLocked()
}

func (v *MapView) panOffsetLocked() float64 {
	return v.baseOffset * math.Exp2(v.refZoom-v.zoom)
}

func position(m api.Marker) (lat, lng float64, ok bool) {
	lat, err := strconv.ParseFloat(m.Latitude, 64)
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(m.Longitude, 64)
	if err != nil || math.IsNaN(lng) || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lat, lng, true
}
