// Package imaging holds the upload gates shared by the API client and the
// backend: content-type and size checks, recompression, object naming and
// the storage URL transforms.
package imaging

import (
	"errors"
	"fmt"
	"mime"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeWebP = "image/webp"

	// MaxUploadBytes is inclusive.
	MaxUploadBytes int64 = 10 * 1024 * 1024
	TargetBytes          = 512 * 1024
	MaxEdge              = 800
)

var (
	ErrInvalidFileType     = errors.New("invalid file type: only JPEG, PNG and WebP images are allowed")
	ErrFileTooLarge        = errors.New("file too large: images must be 10 MB or smaller")
	ErrInvalidUploadResult = errors.New("upload did not return a valid download URL")
	ErrCorruptImage        = errors.New("image could not be decoded")
)

var allowedTypes = map[string]bool{
	ContentTypeJPEG: true,
	ContentTypePNG:  true,
	ContentTypeWebP: true,
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// NormalizeContentType lowercases a content type and drops any parameters.
func NormalizeContentType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// Validate runs the type and size gates, in that order.
func Validate(contentType string, size int64) error {
	if !allowedTypes[NormalizeContentType(contentType)] {
		return ErrInvalidFileType
	}
	if size > MaxUploadBytes {
		return ErrFileTooLarge
	}
	return nil
}

// SanitizeFilename replaces every character outside [A-Za-z0-9._-].
func SanitizeFilename(name string) string {
	name = unsafeNameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	if strings.Trim(name, "._") == "" {
		return "image"
	}
	return name
}

// ObjectName builds destinationPath/<unix ms>-<sanitized name>.
func ObjectName(destination, filename string, now time.Time) string {
	base := fmt.Sprintf("%d-%s", now.UnixMilli(), SanitizeFilename(filename))
	destination = strings.Trim(destination, "/")
	if destination == "" {
		return base
	}
	return destination + "/" + base
}

const (
	firebaseStorageHost = "firebasestorage.googleapis.com"
	publicStorageHost   = "storage.googleapis.com"
)

// DownloadURL is the token-bearing Firebase Storage URL for an object.
func DownloadURL(bucket, object, token string) string {
	// https://firebasestorage.googleapis.com/v0/b/{bucket}/o/{path}?alt=media&token={token}
	return fmt.Sprintf(
		"https://%s/v0/b/%s/o/%s?alt=media&token=%s",
		firebaseStorageHost,
		bucket,
		url.PathEscape(object),
		url.QueryEscape(token),
	)
}

// PublicURL strips the access token from a Firebase download URL and returns
// the cacheable https://storage.googleapis.com/<bucket>/<path> form. URLs in
// any other http(s) shape are returned unchanged.
func PublicURL(downloadURL string) (string, error) {
	if !strings.HasPrefix(downloadURL, "http") {
		return "", ErrInvalidUploadResult
	}
	u, err := url.Parse(downloadURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidUploadResult, err)
	}
	if u.Host != firebaseStorageHost {
		return downloadURL, nil
	}

	// /v0/b/{bucket}/o/{escaped object}
	parts := strings.SplitN(strings.TrimPrefix(u.EscapedPath(), "/"), "/", 5)
	if len(parts) != 5 || parts[0] != "v0" || parts[1] != "b" || parts[3] != "o" {
		return "", fmt.Errorf("%w: unexpected path %q", ErrInvalidUploadResult, u.Path)
	}
	object, err := url.PathUnescape(parts[4])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidUploadResult, err)
	}

	segments := strings.Split(object, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("https://%s/%s/%s", publicStorageHost, parts[2], strings.Join(segments, "/")), nil
}
