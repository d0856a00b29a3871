package services

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/GregMSThompson/dockly/internal/dto"
	"github.com/GregMSThompson/dockly/internal/errs"
	"github.com/GregMSThompson/dockly/internal/metrics"
	"github.com/GregMSThompson/dockly/pkg/imaging"
	"github.com/GregMSThompson/dockly/pkg/logger"
)

const (
	markersDestination  = "markers"
	profilesDestination = "profiles"
)

type imageUPStore interface {
	Put(ctx context.Context, object, contentType string, data []byte) (string, error)
}

type uploadService struct {
	Store   imageUPStore
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func NewUploadService(store imageUPStore, m *metrics.Metrics) *uploadService {
	return &uploadService{
		Store:   store,
		Metrics: m,
		Now:     time.Now,
	}
}

// Upload validates, compresses and stores an image, returning its public URL.
func (s *uploadService) Upload(ctx context.Context, uid string, in dto.ImageUpload) (string, error) {
	log := logger.FromContext(ctx)

	url, err := s.upload(ctx, uid, in)
	if err != nil {
		var uerr *errs.UploadError
		if errors.As(err, &uerr) {
			s.Metrics.Upload(uerr.Code)
		} else {
			s.Metrics.Upload("error")
		}
		log.Warn("image upload rejected", "filename", in.Filename, "error", err)
		return "", err
	}

	s.Metrics.Upload("ok")
	log.Info("image uploaded", "url", url)
	return url, nil
}

func (s *uploadService) upload(ctx context.Context, uid string, in dto.ImageUpload) (string, error) {
	dest, err := cleanDestination(uid, in.Destination)
	if err != nil {
		return "", err
	}

	contentType := imaging.NormalizeContentType(in.ContentType)
	if err := imaging.Validate(contentType, int64(len(in.Data))); err != nil {
		return "", uploadError(err)
	}

	data, err := imaging.Compress(in.Data, contentType)
	if err != nil {
		return "", uploadError(err)
	}
	logger.FromContext(ctx).Debug("image compressed", "before", len(in.Data), "after", len(data))

	object := imaging.ObjectName(dest, in.Filename, s.Now())
	download, err := s.Store.Put(ctx, object, contentType, data)
	if err != nil {
		return "", err
	}

	public, err := imaging.PublicURL(download)
	if err != nil {
		return "", uploadError(err)
	}
	return public, nil
}

func uploadError(err error) error {
	switch {
	case errors.Is(err, imaging.ErrInvalidFileType):
		return errs.NewUploadError("invalid_file_type", "only JPEG, PNG and WebP images are accepted", err)
	case errors.Is(err, imaging.ErrFileTooLarge):
		return errs.NewUploadError("file_too_large", "images must be 10MB or smaller", err)
	case errors.Is(err, imaging.ErrCorruptImage):
		return errs.NewUploadError("invalid_image", "image could not be decoded", err)
	case errors.Is(err, imaging.ErrInvalidUploadResult):
		return errs.NewUploadError("invalid_upload_result", "storage returned an invalid URL", err)
	default:
		return err
	}
}

// cleanDestination resolves the destination folder. Marker images go under
// markers/ and profile photos under profiles/<uid>/.
func cleanDestination(uid, dest string) (string, error) {
	dest = strings.Trim(path.Clean("/"+strings.TrimSpace(dest)), "/")
	if dest == "" {
		return markersDestination, nil
	}

	segments := strings.Split(dest, "/")
	for _, seg := range segments {
		if imaging.SanitizeFilename(seg) != seg {
			return "", errs.NewValidationError("invalid destination path")
		}
	}

	switch segments[0] {
	case markersDestination:
		return dest, nil
	case profilesDestination:
		if len(segments) < 2 || segments[1] != uid {
			return "", errs.NewPermissionDeniedError("cannot upload to another user's folder")
		}
		return dest, nil
	default:
		return "", errs.NewValidationError("destination must be markers or profiles/<uid>")
	}
}
