package storage

import "errors"

// StoreError represents a domain error from storage operations.
//
// These are business logic errors (file not found, missing unit, disallowed
// extension) as opposed to infrastructure errors (disk failure). The HTTP
// layer translates ErrorCode values to response status codes.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the filesystem path related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a storage error.
type ErrorCode int

const (
	// CodeNotFound indicates the requested file or subject does not exist,
	// after canonical and alternate path candidates are exhausted.
	CodeNotFound ErrorCode = iota

	// CodeInvalidKind indicates an unrecognized content type value.
	CodeInvalidKind

	// CodeMissingUnit indicates a notes operation without a unit.
	CodeMissingUnit

	// CodeValidation indicates a rejected request field or file
	// (blank title/subject, disallowed extension or MIME type).
	CodeValidation

	// CodeInvalidArgument indicates invalid parameters (reserved subject
	// name, empty filename).
	CodeInvalidArgument

	// CodeIO indicates a filesystem or serialization failure.
	CodeIO
)

// ErrCode extracts the ErrorCode from err, returning CodeIO for errors that
// are not StoreErrors.
func ErrCode(err error) ErrorCode {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeIO
}

// IsNotFound reports whether err is a StoreError with CodeNotFound.
func IsNotFound(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == CodeNotFound
}

func validationErr(msg string) *StoreError {
	return &StoreError{Code: CodeValidation, Message: msg}
}

func ioErr(msg, path string) *StoreError {
	return &StoreError{Code: CodeIO, Message: msg, Path: path}
}
