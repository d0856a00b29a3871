package store

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/GregMSThompson/dockly/internal/errs"
	"github.com/GregMSThompson/dockly/pkg/imaging"
)

const downloadTokenKey = "firebaseStorageDownloadTokens"

type imageStore struct {
	bucket *storage.BucketHandle
}

func NewImageStore(bucket *storage.BucketHandle) *imageStore {
	return &imageStore{bucket: bucket}
}

// Put writes data to object and returns its tokenised download URL.
func (s *imageStore) Put(ctx context.Context, object, contentType string, data []byte) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	token := uuid.NewString()
	w := s.bucket.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"
	w.Metadata = map[string]string{downloadTokenKey: token}

	if _, err := w.Write(data); err != nil {
		cancel()
		_ = w.Close()
		return "", errs.NewExternalServiceError("storage", "failed to write object", true, err)
	}
	if err := w.Close(); err != nil {
		return "", errs.NewExternalServiceError("storage", "failed to finalize object", true, err)
	}

	attrs := w.Attrs()
	return imaging.DownloadURL(attrs.Bucket, attrs.Name, token), nil
}
