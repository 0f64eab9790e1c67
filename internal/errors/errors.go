// Package errors defines the structured error types used across notekiln.
//
// Errors carry a category and a stable code so that callers can branch on
// failure modes without string matching, and so that diagnostics placed in
// outcomes or audit events stay machine-readable.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeSecurity   ErrorType = "security"
	ErrorTypeExport     ErrorType = "export"
	ErrorTypeRender     ErrorType = "render"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
)

// Common error codes.
const (
	ErrCodePathTraversal    = "ERR_PATH_TRAVERSAL"
	ErrCodeSymlinkDenied    = "ERR_SYMLINK_DENIED"
	ErrCodeInvalidPath      = "ERR_INVALID_PATH"
	ErrCodeFileTooLarge     = "ERR_FILE_TOO_LARGE"
	ErrCodeInvalidKind      = "ERR_INVALID_KIND"
	ErrCodeNotebookNotFound = "ERR_NOTEBOOK_NOT_FOUND"
	ErrCodeNotebookInvalid  = "ERR_NOTEBOOK_INVALID"
	ErrCodeExecNotFound     = "ERR_EXECUTABLE_NOT_FOUND"
	ErrCodeExportFailed     = "ERR_EXPORT_FAILED"
	ErrCodeExportTimeout    = "ERR_EXPORT_TIMEOUT"
	ErrCodeTemplateNotFound = "ERR_TEMPLATE_NOT_FOUND"
	ErrCodeTemplateInvalid  = "ERR_TEMPLATE_INVALID"
	ErrCodeTemplateRender   = "ERR_TEMPLATE_RENDER"
	ErrCodeSummaryWrite     = "ERR_SUMMARY_WRITE"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
)

// KilnError is a structured error with category, code, and cause chain.
type KilnError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *KilnError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause error.
func (e *KilnError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code so that sentinel comparisons work through
// errors.Is without comparing messages.
func (e *KilnError) Is(target error) bool {
	var t *KilnError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *KilnError {
	return &KilnError{Type: ErrorTypeValidation, Code: code, Message: message}
}

// NewSecurityError creates a security error.
func NewSecurityError(code, message string) *KilnError {
	return &KilnError{Type: ErrorTypeSecurity, Code: code, Message: message}
}

// NewExportError creates an export error.
func NewExportError(code, message string, cause error) *KilnError {
	return &KilnError{Type: ErrorTypeExport, Code: code, Message: message, Cause: cause}
}

// NewRenderError creates a render error.
func NewRenderError(code, message string, cause error) *KilnError {
	return &KilnError{Type: ErrorTypeRender, Code: code, Message: message, Cause: cause}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *KilnError {
	return &KilnError{Type: ErrorTypeIO, Code: code, Message: message, Cause: cause}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *KilnError {
	return &KilnError{Type: ErrorTypeConfig, Code: code, Message: message}
}

// IsSecurityError reports whether err is security-related.
func IsSecurityError(err error) bool {
	var ke *KilnError
	if errors.As(err, &ke) {
		return ke.Type == ErrorTypeSecurity
	}
	return false
}

// IsValidationError reports whether err is validation-related.
func IsValidationError(err error) bool {
	var ke *KilnError
	if errors.As(err, &ke) {
		return ke.Type == ErrorTypeValidation
	}
	return false
}

// IsRenderError reports whether err is render-related.
func IsRenderError(err error) bool {
	var ke *KilnError
	if errors.As(err, &ke) {
		return ke.Type == ErrorTypeRender
	}
	return false
}

// ErrPathTraversal creates a path traversal security error.
func ErrPathTraversal(detail string) *KilnError {
	return NewSecurityError(ErrCodePathTraversal, "path traversal detected: "+detail)
}

// ErrSymlinkDenied creates a disallowed-symlink security error.
func ErrSymlinkDenied(detail string) *KilnError {
	return NewSecurityError(ErrCodeSymlinkDenied, "symlink not allowed: "+detail)
}

// ErrFileTooLarge creates an oversized-file validation error.
func ErrFileTooLarge(detail string) *KilnError {
	return NewValidationError(ErrCodeFileTooLarge, "file exceeds size limit: "+detail)
}

// ErrInvalidKind creates an unknown-classification validation error.
func ErrInvalidKind(value string) *KilnError {
	return NewValidationError(ErrCodeInvalidKind, "invalid notebook kind: "+value)
}
