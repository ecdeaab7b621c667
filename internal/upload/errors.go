package upload

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies upload failures into a closed set of variants. The
// transport layer maps each kind to an HTTP status and error code.
type ErrorKind int

const (
	// KindValidation marks a malformed request. Non-retryable.
	KindValidation ErrorKind = iota
	// KindNotFound marks an unknown session.
	KindNotFound
	// KindIncomplete marks a finalize attempt with missing chunks.
	KindIncomplete
	// KindStorage marks a chunk write, directory create, or cleanup failure.
	KindStorage
	// KindDiskSpace marks insufficient usable disk space.
	KindDiskSpace
	// KindAssembly marks a failure while concatenating chunks.
	KindAssembly
	// KindIO marks an unclassified filesystem error.
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindIncomplete:
		return "incomplete_upload"
	case KindStorage:
		return "storage"
	case KindDiskSpace:
		return "disk_space"
	case KindAssembly:
		return "assembly"
	default:
		return "io"
	}
}

// Error is the typed error raised by the chunk store, assembler, and
// coordinator. Details carries structured context for the error envelope.
type Error struct {
	Kind      ErrorKind
	SessionID string
	Op        string // operation that failed, e.g. "save_chunk"
	Message   string
	Details   map[string]any
	Err       error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.SessionID != "" {
		fmt.Fprintf(&sb, " (session %s", e.SessionID)
		if e.Op != "" {
			fmt.Fprintf(&sb, ", op %s", e.Op)
		}
		sb.WriteString(")")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind from err, defaulting to KindIO for errors
// raised outside this package.
func KindOf(err error) ErrorKind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return KindIO
}

// AsError returns the typed error wrapped in err, or nil.
func AsError(err error) *Error {
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}
	return nil
}

func newError(kind ErrorKind, sessionID, op, message string, err error) *Error {
	return &Error{Kind: kind, SessionID: sessionID, Op: op, Message: message, Err: err}
}

func (e *Error) withDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// ValidationError describes one or more rejected request fields.
type ValidationError struct {
	Message     string
	FieldErrors map[string]string // field -> reason
}

func (e *ValidationError) Error() string {
	if len(e.FieldErrors) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.FieldErrors))
	for field, reason := range e.FieldErrors {
		parts = append(parts, field+": "+reason)
	}
	return e.Message + " [" + strings.Join(parts, "; ") + "]"
}

// IsValidation reports whether err is a request-shape failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return KindOf(err) == KindValidation
}
