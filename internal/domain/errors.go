package domain

import (
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeInvalidLink = "INVALID_LINK"
	CodeNetwork     = "NETWORK_ERROR"
	CodeFilesystem  = "FILESYSTEM_ERROR"
	CodeStorage     = "STORAGE_ERROR"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so
// errors.Is(err, ErrInvalidLink) works for every invalid-link failure.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors
var (
	ErrInvalidLink = &DomainError{
		Code:    CodeInvalidLink,
		Message: "the share link cannot be resolved to a download URL",
	}

	ErrNetwork = &DomainError{
		Code:    CodeNetwork,
		Message: "request failed",
	}

	ErrFilesystem = &DomainError{
		Code:    CodeFilesystem,
		Message: "cannot write destination",
	}

	ErrStorage = &DomainError{
		Code:    CodeStorage,
		Message: "failed to store file",
	}
)

func InvalidLinkError(message string, err error) *DomainError {
	return NewDomainError(CodeInvalidLink, message, err)
}

func NetworkError(message string, err error) *DomainError {
	return NewDomainError(CodeNetwork, message, err)
}

func FilesystemError(message string, err error) *DomainError {
	return NewDomainError(CodeFilesystem, message, err)
}

func StorageError(message string, err error) *DomainError {
	return NewDomainError(CodeStorage, message, err)
}

// StatusError is returned by the HTTP adapter for unexpected status codes.
// Body holds the beginning of the response body for diagnostics.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsClientError reports whether the status is in the 4xx range.
func (e *StatusError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}
