package services

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/GregMSThompson/dockly/internal/dto"
	"github.com/GregMSThompson/dockly/internal/errs"
	"github.com/GregMSThompson/dockly/internal/metrics"
	"github.com/GregMSThompson/dockly/internal/models"
	"github.com/GregMSThompson/dockly/pkg/helpers"
	"github.com/GregMSThompson/dockly/pkg/logger"
	"github.com/GregMSThompson/dockly/pkg/sanitize"
)

type markerMSStore interface {
	List(ctx context.Context) ([]*models.Marker, error)
	Create(ctx context.Context, uid string, m *models.Marker) (string, error)
	Update(ctx context.Context, id string, m *models.Marker) error
}

type profileInvalidator interface {
	InvalidateUser(ctx context.Context, uid string)
}

type markerService struct {
	Store    markerMSStore
	Validate *validator.Validate
	Profiles profileInvalidator
	Metrics  *metrics.Metrics
}

func NewMarkerService(store markerMSStore, validate *validator.Validate, profiles profileInvalidator, m *metrics.Metrics) *markerService {
	return &markerService{
		Store:    store,
		Validate: validate,
		Profiles: profiles,
		Metrics:  m,
	}
}

func (s *markerService) ListMarkers(ctx context.Context) ([]*models.Marker, error) {
	markers, err := s.Store.List(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list markers", "error", err)
		return nil, err
	}
	return markers, nil
}

func (s *markerService) CreateMarker(ctx context.Context, uid string, req dto.MarkerRequest) (string, error) {
	log := logger.FromContext(ctx)

	m, err := s.clean(req)
	if err != nil {
		return "", err
	}

	id, err := s.Store.Create(ctx, uid, m)
	if err != nil {
		log.Error("failed to create marker", "error", err)
		return "", err
	}

	// contribution count changed
	if s.Profiles != nil {
		s.Profiles.InvalidateUser(ctx, uid)
	}
	s.Metrics.MarkerCreated()
	log.Info("marker created", "markerId", id)
	return id, nil
}

func (s *markerService) UpdateMarker(ctx context.Context, req dto.MarkerRequest) (string, error) {
	log := logger.FromContext(ctx)

	id := strings.TrimSpace(req.ID)
	if id == "" {
		return "", errs.NewValidationError("id is required")
	}
	m, err := s.clean(req)
	if err != nil {
		return "", err
	}

	if err := s.Store.Update(ctx, id, m); err != nil {
		log.Error("failed to update marker", "markerId", id, "error", err)
		return "", err
	}

	s.Metrics.MarkerUpdated()
	log.Info("marker updated", "markerId", id)
	return id, nil
}

// clean sanitizes and validates a marker request.
func (s *markerService) clean(req dto.MarkerRequest) (*models.Marker, error) {
	file := sanitize.URL(req.File)
	if strings.TrimSpace(req.File) != "" && file == "" {
		return nil, errs.NewValidationError("file must be an http or https URL")
	}

	req.Title = sanitize.Text(req.Title)
	req.Description = sanitize.Text(req.Description)
	req.Latitude = strings.TrimSpace(req.Latitude)
	req.Longitude = strings.TrimSpace(req.Longitude)
	req.Rating = helpers.Clamp(req.Rating, 0, 5)
	req.File = file

	if err := s.Validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	return &models.Marker{
		Title:       req.Title,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Description: req.Description,
		Rating:      req.Rating,
		File:        req.File,
	}, nil
}
