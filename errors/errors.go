// Package errors provides error types and handling for remote transfer operations.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error represents a transfer operation error with context about the operation
// that failed. It wraps the underlying error with additional context for better
// debugging.
type Error struct {
	// Op is the operation that failed (e.g., "write", "createSession", "walk")
	Op string

	// Path is the remote object path (if applicable)
	Path string

	// Err is the underlying error from a backend or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("transfer.%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("transfer.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithPath adds remote path context to an existing error.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewPathError creates a new Error with remote path context.
func NewPathError(op, path string, err error) *Error {
	return &Error{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// Sentinel errors for common transfer failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidPath indicates that the remote object path is malformed
	ErrInvalidPath = errors.New("transfer: invalid path")

	// ErrInvalidConfig indicates that a configuration value is out of its valid range
	ErrInvalidConfig = errors.New("transfer: invalid configuration")

	// ErrUnknownCompression indicates an unrecognized compression algorithm tag
	ErrUnknownCompression = errors.New("transfer: unknown compression algorithm")

	// ErrBackend indicates a non-success response reported by a backend
	ErrBackend = errors.New("transfer: backend error")

	// ErrProtocol indicates a chunk framing invariant was violated before a
	// request was sent. This is a defect in the engine, not a remote failure.
	ErrProtocol = errors.New("transfer: protocol violation")

	// ErrWriterClosed indicates a write was attempted after Close
	ErrWriterClosed = errors.New("transfer: writer closed")

	// ErrUnsupportedSeek indicates a seek target outside the retained window of
	// a non-restartable source
	ErrUnsupportedSeek = errors.New("transfer: unsupported seek")

	// ErrSessionNotFound indicates a chunk request referenced an unknown or
	// already-committed upload session
	ErrSessionNotFound = errors.New("transfer: upload session not found")
)

// RemoteError carries the parsed payload of a non-success backend response.
// It unwraps to ErrBackend so callers can test the error kind with errors.Is.
type RemoteError struct {
	// StatusCode is the HTTP-style status code returned by the backend
	StatusCode int

	// Code is the provider error code, when one could be parsed from the body
	Code string

	// Message is the provider error message, or the raw body when unparsable
	Message string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("transfer: backend returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("transfer: backend returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap returns ErrBackend so RemoteError matches errors.Is(err, ErrBackend).
func (e *RemoteError) Unwrap() error {
	return ErrBackend
}

// remoteBody mirrors the error envelope used by drive-style APIs:
// {"error": {"code": "...", "message": "..."}}.
type remoteBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseRemote builds a RemoteError from a non-success response status and body.
// The body is decoded as a structured error envelope when possible; otherwise
// the raw body is kept as the message.
func ParseRemote(statusCode int, body []byte) *RemoteError {
	re := &RemoteError{StatusCode: statusCode}

	var parsed remoteBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		re.Code = parsed.Error.Code
		re.Message = parsed.Error.Message
		return re
	}

	re.Message = string(body)
	return re
}

// IsInvalidPath checks if an error indicates a malformed remote path.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsInvalidPath(err error) bool {
	return errors.Is(err, ErrInvalidPath)
}

// IsBackend checks if an error originated from a backend response.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsBackend(err error) bool {
	return errors.Is(err, ErrBackend)
}

// IsProtocol checks if an error indicates a chunk framing defect.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsProtocol(err error) bool {
	return errors.Is(err, ErrProtocol)
}
