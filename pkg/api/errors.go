package api

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError is a failed request: either no response (Err set,
// StatusCode 0) or a non-2xx response decoded from the {code, message} body.
type TransportError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %d %s: %s", e.Op, e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("%s: %d: %s", e.Op, e.StatusCode, msg)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UploadError is a rejected image upload. Err is one of the imaging sentinel
// errors or the underlying *TransportError.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return "upload failed: " + e.Err.Error() }

func (e *UploadError) Unwrap() error { return e.Err }

// AuthRequiredError is returned when an operation needs a signed-in user and
// no token is available.
type AuthRequiredError struct {
	Op  string
	Err error
}

func (e *AuthRequiredError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: sign-in required: %v", e.Op, e.Err)
	}
	return e.Op + ": sign-in required"
}

func (e *AuthRequiredError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.StatusCode == http.StatusNotFound
}
