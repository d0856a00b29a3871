package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/GregMSThompson/dockly/pkg/imaging"
)

var uploadCodes = map[string]error{
	"invalid_file_type":     imaging.ErrInvalidFileType,
	"file_too_large":        imaging.ErrFileTooLarge,
	"invalid_image":         imaging.ErrCorruptImage,
	"invalid_upload_result": imaging.ErrInvalidUploadResult,
}

// UploadImage sends f to destination (e.g. "markers") and returns its public
// URL. The type and size gates run locally first, so a rejected file never
// reaches the network.
func (c *Client) UploadImage(ctx context.Context, f File, destination string) (string, error) {
	const op = "upload image"

	tok, err := c.token(ctx)
	if err != nil {
		return "", &AuthRequiredError{Op: op, Err: err}
	}
	if tok == "" {
		return "", &AuthRequiredError{Op: op}
	}

	if err := imaging.Validate(f.ContentType, int64(len(f.Data))); err != nil {
		return "", &UploadError{Err: err}
	}

	body, contentType, err := multipartBody(f, destination)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var resp urlResponse
	if err := c.do(ctx, op, http.MethodPost, "/api/uploads", nil, body, contentType, &resp); err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			if sentinel, ok := uploadCodes[te.Code]; ok {
				return "", &UploadError{Err: sentinel}
			}
		}
		var auth *AuthRequiredError
		if errors.As(err, &auth) {
			return "", err
		}
		return "", &UploadError{Err: err}
	}

	if !strings.HasPrefix(resp.URL, "http") {
		return "", &UploadError{Err: imaging.ErrInvalidUploadResult}
	}
	return resp.URL, nil
}

func multipartBody(f File, destination string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, imaging.SanitizeFilename(f.Name)))
	hdr.Set("Content-Type", imaging.NormalizeContentType(f.ContentType))
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, "", err
	}
	if destination != "" {
		if err := mw.WriteField("path", destination); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
