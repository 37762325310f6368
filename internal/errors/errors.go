package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Error types for the index server
type ErrorType string

const (
	// Server errors
	ErrorTypeBadInput    ErrorType = "bad_input"
	ErrorTypeSticky      ErrorType = "sticky"
	ErrorTypeUnsupported ErrorType = "unsupported"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// ErrorLayer names where a server error originated.
type ErrorLayer string

const (
	// LayerBadInput means the caller supplied a tree, path or argument that does not resolve.
	LayerBadInput ErrorLayer = "bad_input"
	// LayerServer means local I/O failed (missing file, permission, decompression).
	LayerServer ErrorLayer = "server"
	// LayerData means an artifact was read but its content is malformed.
	LayerData ErrorLayer = "data"
)

// ErrUnsupported is matched by errors.Is for every unsupported-operation error.
var ErrUnsupported = stderrors.New("unsupported operation")

// ServerError is the single error shape returned by every AbstractServer
// implementation. Sticky errors are expected to fail identically on retry.
type ServerError struct {
	Type       ErrorType
	Layer      ErrorLayer
	Operation  string
	Path       string
	Message    string
	Underlying error
	Timestamp  time.Time
}

// NewInputError reports a request that does not resolve, e.g. an unknown tree.
func NewInputError(op, message string) *ServerError {
	return &ServerError{
		Type:      ErrorTypeBadInput,
		Layer:     LayerBadInput,
		Operation: op,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewStickyError wraps an I/O failure on path.
func NewStickyError(op, path string, err error) *ServerError {
	return &ServerError{
		Type:       ErrorTypeSticky,
		Layer:      LayerServer,
		Operation:  op,
		Path:       path,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// NewDataError wraps malformed content found in an artifact at path.
// It is sticky: the artifact will not get better by asking again.
func NewDataError(op, path string, err error) *ServerError {
	e := NewStickyError(op, path, err)
	e.Layer = LayerData
	return e
}

// NewUnsupportedError reports an operation this server variant does not implement.
func NewUnsupportedError(op string) *ServerError {
	return &ServerError{
		Type:       ErrorTypeUnsupported,
		Layer:      LayerServer,
		Operation:  op,
		Underlying: ErrUnsupported,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ServerError) Error() string {
	var detail string
	switch {
	case e.Message != "" && e.Underlying != nil:
		detail = fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	case e.Message != "":
		detail = e.Message
	case e.Underlying != nil:
		detail = e.Underlying.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("%s %s failed for %s: %s", e.Type, e.Operation, e.Path, detail)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Type, e.Operation, detail)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *ServerError) Unwrap() error {
	return e.Underlying
}

// IsInput reports whether err is (or wraps) a bad-input ServerError.
func IsInput(err error) bool {
	return hasType(err, ErrorTypeBadInput)
}

// IsSticky reports whether err is (or wraps) a sticky ServerError.
func IsSticky(err error) bool {
	return hasType(err, ErrorTypeSticky)
}

// IsUnsupported reports whether err is (or wraps) an unsupported-operation error.
func IsUnsupported(err error) bool {
	return stderrors.Is(err, ErrUnsupported)
}

func hasType(err error, t ErrorType) bool {
	var se *ServerError
	if !stderrors.As(err, &se) {
		return false
	}
	return se.Type == t
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	// Filter out nil errors
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected.
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
