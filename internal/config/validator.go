package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Iron-Ham/smollog/internal/logging"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "session.pad_width")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Bounds for session.pad_width. A uint64 sequence never needs more than
// twenty digits, but anything past twelve is almost certainly a typo.
const (
	minPadWidth = 1
	maxPadWidth = 12
)

// ValidLogLevels returns the valid logging.level values, lowercased from the
// levels the diagnostics logger understands.
func ValidLogLevels() []string {
	levels := logging.ValidLevels()
	for i, l := range levels {
		levels[i] = strings.ToLower(l)
	}
	return levels
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateSession()...)
	errors = append(errors, c.validateConsole()...)
	errors = append(errors, c.validateExport()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateSession validates the SessionConfig
func (c *Config) validateSession() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Session.RootDir) == "" {
		errors = append(errors, ValidationError{
			Field:   "session.root_dir",
			Value:   c.Session.RootDir,
			Message: "must not be empty",
		})
	}

	if c.Session.PadWidth < minPadWidth || c.Session.PadWidth > maxPadWidth {
		errors = append(errors, ValidationError{
			Field:   "session.pad_width",
			Value:   c.Session.PadWidth,
			Message: fmt.Sprintf("must be between %d and %d", minPadWidth, maxPadWidth),
		})
	}

	return errors
}

// validateConsole validates the ConsoleConfig
func (c *Config) validateConsole() []ValidationError {
	var errors []ValidationError

	if c.Console.MaxWidth < 0 {
		errors = append(errors, ValidationError{
			Field:   "console.max_width",
			Value:   c.Console.MaxWidth,
			Message: "must be non-negative (0 for unlimited)",
		})
	}

	return errors
}

// validateExport validates the ExportConfig
func (c *Config) validateExport() []ValidationError {
	var errors []ValidationError

	out := c.Export.Output
	switch {
	case out == "":
		errors = append(errors, ValidationError{
			Field:   "export.output",
			Value:   out,
			Message: "must not be empty",
		})
	case out != filepath.Base(out) || out == "." || out == "..":
		errors = append(errors, ValidationError{
			Field:   "export.output",
			Value:   out,
			Message: "must be a file name without directory components",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
