package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error with user-friendly message and suggestions
type UserError struct {
	Message     string   // User-friendly error message
	Suggestions []string // Possible solutions
	Err         error    // Underlying error (can be nil)
}

// Error implements the error interface
func (e *UserError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if len(e.Suggestions) > 0 {
		sb.WriteString("\n\nPossible solutions:")
		for _, suggestion := range e.Suggestions {
			sb.WriteString("\n  - ")
			sb.WriteString(suggestion)
		}
	}

	if e.Err != nil {
		sb.WriteString("\n\nTechnical details: ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying error
func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error
func NewUserError(message string, suggestions []string, err error) *UserError {
	return &UserError{
		Message:     message,
		Suggestions: suggestions,
		Err:         err,
	}
}

// IsUserError checks if an error is a UserError
func IsUserError(err error) bool {
	var userErr *UserError
	return errors.As(err, &userErr)
}

// Common error constructors for typical scenarios

// ConnectionError creates an error for connection failures
func ConnectionError(url string, err error) error {
	return NewUserError(
		fmt.Sprintf("Failed to connect to %s", url),
		[]string{
			"Check if the server is running",
			"Verify the server URL is correct",
			"Try 'freight send --discover' to locate servers on the LAN",
			"Check firewall settings",
		},
		err,
	)
}

// FileNotFoundError creates an error for missing files
func FileNotFoundError(path string, err error) error {
	return NewUserError(
		fmt.Sprintf("File not found: %s", path),
		[]string{
			"Check if the file path is correct",
			"Verify you have read permissions",
			"Ensure the file still exists",
		},
		err,
	)
}

// SessionNotFoundError creates an error for unknown upload sessions
func SessionNotFoundError(sessionID string, err error) error {
	return NewUserError(
		fmt.Sprintf("Upload session not found: %s", sessionID),
		[]string{
			"List active sessions with 'freight sessions'",
			"The session may have completed or been cleaned up",
			"Start a new upload with 'freight send'",
		},
		err,
	)
}

// PermissionError creates an error for permission issues
func PermissionError(operation, path string, err error) error {
	return NewUserError(
		fmt.Sprintf("Permission denied: cannot %s %s", operation, path),
		[]string{
			"Check file/directory permissions",
			"Try running with appropriate privileges",
			"Ensure the directory is writable",
		},
		err,
	)
}

// DiskSpaceError creates an error for insufficient disk space
func DiskSpaceError(required, available int64) error {
	return NewUserError(
		fmt.Sprintf("Insufficient disk space (need %d bytes, have %d bytes)", required, available),
		[]string{
			"Free up disk space",
			"Choose a different storage directory",
			"Delete unnecessary files",
		},
		nil,
	)
}

// IncompleteUploadError creates an error for a finalize attempt with chunks missing
func IncompleteUploadError(sessionID string, missing int, err error) error {
	return NewUserError(
		fmt.Sprintf("Upload %s is incomplete: %d chunks still missing", sessionID, missing),
		[]string{
			"Resume the upload to send the missing chunks",
			"Check 'freight status <session-id>' for details",
		},
		err,
	)
}

// ConfigError creates an error for configuration issues
func ConfigError(message string, err error) error {
	return NewUserError(
		message,
		[]string{
			"Check your config file at ~/.config/freight/freight.yaml",
			"Verify the YAML syntax is correct",
			"Try running 'freight config show' to see current settings",
			"Delete the config file to reset to defaults",
		},
		err,
	)
}
