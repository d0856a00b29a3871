package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/GregMSThompson/dockly/pkg/api"
	"github.com/GregMSThompson/dockly/pkg/markers"
)

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cache := markers.NewCache(a.client)
	all, err := cache.Refresh(ctx)
	if err != nil {
		return err
	}
	overlays := markers.NewMapView(cache).Overlays()

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tLAT\tLNG\tRATING")
	for _, o := range overlays {
		fmt.Fprintf(tw, "%s\t%s\t%.6f\t%.6f\t%d\n", o.Marker.ID, o.Marker.Title, o.Lat, o.Lng, o.Marker.Rating)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if hidden := len(all) - len(overlays); hidden > 0 {
		fmt.Fprintf(a.stdout, "%d marker(s) without usable coordinates not shown\n", hidden)
	}
	return nil
}

type markerFlags struct {
	fs     *flag.FlagSet
	id     string
	title  string
	lat    string
	lng    string
	desc   string
	rating int
	image  string
	clear  bool
}

func newMarkerFlags(name string) *markerFlags {
	f := &markerFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	if name == "edit" {
		f.fs.StringVar(&f.id, "id", "", "marker id")
		f.fs.BoolVar(&f.clear, "clear-image", false, "remove the current image")
	}
	f.fs.StringVar(&f.title, "title", "", "title")
	f.fs.StringVar(&f.lat, "lat", "", "latitude")
	f.fs.StringVar(&f.lng, "lng", "", "longitude")
	f.fs.StringVar(&f.desc, "desc", "", "description")
	f.fs.IntVar(&f.rating, "rating", 0, "rating 0-5")
	f.fs.StringVar(&f.image, "image", "", "path to a JPEG, PNG or WebP image")
	return f
}

// apply copies the flags given on the command line into the form.
func (f *markerFlags) apply(form *markers.Form) error {
	set := map[string]bool{}
	f.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	values := form.Values()
	lat, lng := values.Latitude, values.Longitude
	if set["lat"] {
		lat = f.lat
	}
	if set["lng"] {
		lng = f.lng
	}

	var errs []error
	if set["title"] {
		errs = append(errs, form.SetTitle(f.title))
	}
	if set["lat"] || set["lng"] {
		errs = append(errs, form.SetCoordinates(lat, lng))
	}
	if set["desc"] {
		errs = append(errs, form.SetDescription(f.desc))
	}
	if set["rating"] {
		errs = append(errs, form.SetRating(f.rating))
	}
	if f.clear {
		errs = append(errs, form.RemoveImage())
	}
	if f.image != "" {
		file, err := readImage(f.image)
		if err != nil {
			return err
		}
		errs = append(errs, form.AttachImage(file))
	}
	return errors.Join(errs...)
}

func (a *app) add(ctx context.Context, args []string) error {
	f := newMarkerFlags("add")
	if err := f.fs.Parse(args); err != nil {
		return errUsage
	}

	form := markers.NewForm(a.client, a.client, markers.NewCache(a.client))
	if err := form.Open(nil); err != nil {
		return err
	}
	if err := f.apply(form); err != nil {
		return err
	}
	return a.submit(ctx, form)
}

func (a *app) edit(ctx context.Context, args []string) error {
	f := newMarkerFlags("edit")
	if err := f.fs.Parse(args); err != nil {
		return errUsage
	}
	if f.id == "" {
		return fmt.Errorf("edit: -id is required")
	}

	cache := markers.NewCache(a.client)
	existing, err := find(ctx, cache, f.id)
	if err != nil {
		return err
	}

	form := markers.NewForm(a.client, a.client, cache)
	if err := form.Open(existing); err != nil {
		return err
	}
	if err := f.apply(form); err != nil {
		return err
	}
	return a.submit(ctx, form)
}

func (a *app) submit(ctx context.Context, form *markers.Form) error {
	id, err := form.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s: %s\n", form.Message(), id)
	return nil
}

func (a *app) open(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	id := fs.String("id", "", "marker id")
	zoom := fs.Float64("zoom", markers.DefaultZoom, "map zoom level")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cache := markers.NewCache(a.client)
	m, err := find(ctx, cache, *id)
	if err != nil {
		return err
	}

	view := markers.NewMapView(cache)
	view.SetZoom(*zoom)
	if !view.ClickMarker(m.ID) {
		return fmt.Errorf("marker %s has no usable coordinates", m.ID)
	}
	lat, lng := view.Center()

	fmt.Fprintf(a.stdout, "%s\n%s\nrating: %d/%d\n", m.Title, m.Description, m.Rating, markers.MaxRating)
	if m.File != "" {
		fmt.Fprintf(a.stdout, "image: %s\n", m.File)
	}
	fmt.Fprintf(a.stdout, "map center: %.6f,%.6f zoom %s\n", lat, lng, strconv.FormatFloat(*zoom, 'f', -1, 64))
	return nil
}

func find(ctx context.Context, cache *markers.Cache, id string) (*api.Marker, error) {
	all, err := cache.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range all {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("marker %q not found", id)
}

func readImage(path string) (api.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.File{}, err
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return api.File{Name: filepath.Base(path), ContentType: ct, Data: data}, nil
}
