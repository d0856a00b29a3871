package errs

import "fmt"

type ErrorMessage struct {
	Message string
}

func (e *ErrorMessage) Error() string { return e.Message }

type NotFoundError struct {
	ErrorMessage
}

type AlreadyExistsError struct {
	ErrorMessage
}

type ValidationError struct {
	ErrorMessage
}

type PermissionDeniedError struct {
	ErrorMessage
}

type UnauthenticatedError struct {
	ErrorMessage
}

// UploadError is a rejected image upload. Code is the wire error code
// (invalid_file_type, file_too_large, invalid_upload_result).
type UploadError struct {
	ErrorMessage
	Code string
	Err  error
}

func (e *UploadError) Unwrap() error { return e.Err }

// DatabaseError wraps a Firestore failure with the operation that failed.
type DatabaseError struct {
	ErrorMessage
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// ExternalServiceError wraps a failure from object storage, auth or mail.
type ExternalServiceError struct {
	ErrorMessage
	Service   string
	Transient bool
	Err       error
}

func (e *ExternalServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Message, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewAlreadyExistsError(message string) *AlreadyExistsError {
	return &AlreadyExistsError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewPermissionDeniedError(message string) *PermissionDeniedError {
	return &PermissionDeniedError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewUnauthenticatedError(message string) *UnauthenticatedError {
	return &UnauthenticatedError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewUploadError(code, message string, err error) *UploadError {
	return &UploadError{
		ErrorMessage: ErrorMessage{Message: message},
		Code:         code,
		Err:          err,
	}
}

func NewDatabaseError(operation, message string, err error) *DatabaseError {
	return &DatabaseError{
		ErrorMessage: ErrorMessage{Message: message},
		Operation:    operation,
		Err:          err,
	}
}

func NewExternalServiceError(service, message string, transient bool, err error) *ExternalServiceError {
	return &ExternalServiceError{
		ErrorMessage: ErrorMessage{Message: message},
		Service:      service,
		Transient:    transient,
		Err:          err,
	}
}
