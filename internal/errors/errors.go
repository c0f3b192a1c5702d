// Package errors provides centralized error definitions and error handling utilities
// for smollog. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures of a specific subsystem:
//   - ResolverError: the call-site resolver is misconfigured (fatal)
//   - StorageError: a record could not be persisted
//   - TransformError: a wrapper's result transform failed (recovered)
//   - SchemaMismatchError: a record diverged from the export schema sample
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or configuration
//
// Errors returned by a wrapped function are never wrapped by this package;
// the wrapper hands them back to the caller unchanged.
//
// # Usage
//
//	err := errors.NewStorageError("failed to write record", cause).
//	    WithPath(dest).WithSequence(7)
//
//	if errors.Is(err, errors.ErrStorageFailed) { ... }
//
//	var resolverErr *errors.ResolverError
//	if errors.As(err, &resolverErr) { ... }
//
//	if errors.IsFatal(err) { os.Exit(1) }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that must stop the run.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Logging-related sentinel errors
var (
	// ErrResolverMisconfigured indicates the call history was shorter than the
	// resolver's configured skip depth.
	ErrResolverMisconfigured = New("call-site resolver misconfigured")
	// ErrStorageFailed indicates that a record could not be persisted.
	ErrStorageFailed = New("record storage failed")
	// ErrTransformFailed indicates that a result transform returned an error or panicked.
	ErrTransformFailed = New("result transform failed")
	// ErrReservedField indicates a caller field uses the logger's reserved key marker.
	ErrReservedField = New("field name is reserved")
)

// Export-related sentinel errors
var (
	// ErrNoData indicates that there was nothing to flatten.
	ErrNoData = New("no data")
	// ErrSchemaMismatch indicates a record whose shape differs from the schema sample.
	ErrSchemaMismatch = New("record does not match schema sample")
)

// General sentinel errors
var (
	// ErrNotFound indicates that a resource does not exist.
	ErrNotFound = New("not found")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// LoggerError is the base interface for all smollog errors.
type LoggerError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the operation may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// format renders "<kind> [k=v, ...]: message: cause".
func (e *baseError) format(kind string, parts []string) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ResolverError reports a call-site resolver whose assumed stack depth does not
// match the real call history. It is a programming error and is never retried.
//
// Example:
//
//	err := errors.NewResolverError(5, 3)
//	fmt.Println(err) // "resolver error [skip=5, frames=3]: call history shorter than skip depth"
type ResolverError struct {
	baseError
	Skip   int
	Frames int
}

// NewResolverError creates a new ResolverError for a stack of frames entries
// that could not satisfy a skip of skip frames.
func NewResolverError(skip, frames int) *ResolverError {
	return &ResolverError{
		baseError: baseError{
			message:    "call history shorter than skip depth",
			cause:      ErrResolverMisconfigured,
			severity:   SeverityCritical,
			retryable:  false,
			userFacing: false,
		},
		Skip:   skip,
		Frames: frames,
	}
}

// Error returns the formatted error message.
func (e *ResolverError) Error() string {
	parts := []string{
		fmt.Sprintf("skip=%d", e.Skip),
		fmt.Sprintf("frames=%d", e.Frames),
	}
	prefix := fmt.Sprintf("resolver error [%s]", strings.Join(parts, ", "))
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ResolverError) Is(target error) bool {
	if _, ok := target.(*ResolverError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// StorageError represents a failure to persist a record.
//
// Example:
//
//	err := errors.NewStorageError("failed to write record", fs.ErrPermission)
//	err = err.WithPath(".logs/2026-10-18 09-00-00/000: boot.json").WithSequence(0)
type StorageError struct {
	baseError
	Path     string
	Sequence uint64
	hasSeq   bool
}

// NewStorageError creates a new StorageError.
func NewStorageError(message string, cause error) *StorageError {
	return &StorageError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithPath adds the destination path to the error context.
func (e *StorageError) WithPath(path string) *StorageError {
	e.Path = path
	return e
}

// WithSequence adds the record sequence number to the error context.
func (e *StorageError) WithSequence(seq uint64) *StorageError {
	e.Sequence = seq
	e.hasSeq = true
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *StorageError) WithRetryable(r bool) *StorageError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *StorageError) Error() string {
	var parts []string
	if e.hasSeq {
		parts = append(parts, fmt.Sprintf("seq=%d", e.Sequence))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	return e.format("storage error", parts)
}

// Is checks if this error matches the target.
func (e *StorageError) Is(target error) bool {
	if _, ok := target.(*StorageError); ok {
		return true
	}
	if target == ErrStorageFailed {
		return true
	}
	return e.baseError.Is(target)
}

// TransformError reports a result transform that failed inside a function
// wrapper. The wrapper recovers from it; it only ever reaches diagnostics.
type TransformError struct {
	baseError
	Name string
}

// NewTransformError creates a new TransformError for the wrapped function name.
func NewTransformError(name string, cause error) *TransformError {
	return &TransformError{
		baseError: baseError{
			message:    "result transform failed",
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: false,
		},
		Name: name,
	}
}

// Error returns the formatted error message.
func (e *TransformError) Error() string {
	var parts []string
	if e.Name != "" {
		parts = append(parts, fmt.Sprintf("fn=%s", e.Name))
	}
	return e.format("transform error", parts)
}

// Is checks if this error matches the target.
func (e *TransformError) Is(target error) bool {
	if _, ok := target.(*TransformError); ok {
		return true
	}
	if target == ErrTransformFailed {
		return true
	}
	return e.baseError.Is(target)
}

// SchemaMismatchError reports a record whose flattened shape differs from the
// schema sample. Only strict exports produce it.
//
// Example:
//
//	err := errors.NewSchemaMismatchError("run/001: b.json", 5, 4)
//	fmt.Println(err) // "schema mismatch [file=run/001: b.json, want=5, got=4]: ..."
type SchemaMismatchError struct {
	baseError
	File string
	Want int
	Got  int
}

// NewSchemaMismatchError creates a new SchemaMismatchError.
func NewSchemaMismatchError(file string, want, got int) *SchemaMismatchError {
	return &SchemaMismatchError{
		baseError: baseError{
			message:    "row shape differs from schema sample",
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		File: file,
		Want: want,
		Got:  got,
	}
}

// WithMessage replaces the default message.
func (e *SchemaMismatchError) WithMessage(msg string) *SchemaMismatchError {
	e.message = msg
	return e
}

// Error returns the formatted error message.
func (e *SchemaMismatchError) Error() string {
	parts := []string{
		fmt.Sprintf("file=%s", e.File),
		fmt.Sprintf("want=%d", e.Want),
		fmt.Sprintf("got=%d", e.Got),
	}
	return e.format("schema mismatch", parts)
}

// Is checks if this error matches the target.
func (e *SchemaMismatchError) Is(target error) bool {
	if _, ok := target.(*SchemaMismatchError); ok {
		return true
	}
	if target == ErrSchemaMismatch {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("log directory", ".logs")
//	fmt.Println(err) // "log directory not found: .logs"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s not found: %s", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	return e.baseError.Error()
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if target == ErrNotFound {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("field name is reserved")
//	err = err.WithField("_payload").WithValue(42)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return e.format("validation error", parts)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var loggerErr LoggerError
	if As(err, &loggerErr) {
		return loggerErr.IsRetryable()
	}
	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var loggerErr LoggerError
	if As(err, &loggerErr) {
		return loggerErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement LoggerError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var loggerErr LoggerError
	if As(err, &loggerErr) {
		return loggerErr.Severity()
	}
	return SeverityError
}

// IsFatal reports whether err must stop the run. Resolver misconfiguration
// is the only fatal condition raised by the core itself.
//
// Example:
//
//	if errors.IsFatal(err) {
//	    fmt.Fprintln(os.Stderr, err)
//	    os.Exit(1)
//	}
func IsFatal(err error) bool {
	return GetSeverity(err) == SeverityCritical
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this returns nil for a nil error.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to read record")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to read %s", path)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
