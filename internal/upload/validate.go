package upload

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// Default validation ceilings, overridable through the Validator fields.
const (
	MaxSessionIDLength   = 255
	MaxFileNameLength    = 255
	DefaultMaxChunkCount = 10000
	DefaultMaxChunkSize  = 100 * 1024 * 1024
)

// reservedWindowsNames are device names that must not be used as filenames.
var reservedWindowsNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// Validator enforces request-shape rules before chunks reach the store.
type Validator struct {
	MaxChunkCount int
	MaxChunkSize  int64
	// AllowedExtensions, when non-empty, is the only set of permitted
	// extensions. BlockedExtensions always rejects.
	AllowedExtensions []string
	BlockedExtensions []string
}

// NewValidator returns a validator with the default ceilings and block list.
func NewValidator() *Validator {
	return &Validator{
		MaxChunkCount:     DefaultMaxChunkCount,
		MaxChunkSize:      DefaultMaxChunkSize,
		BlockedExtensions: []string{"exe", "bat", "cmd", "scr", "com", "pif"},
	}
}

// ValidateChunkRequest checks every field of a chunk submission, collecting
// all failures into a single ValidationError.
func (v *Validator) ValidateChunkRequest(sessionID string, chunkIndex, totalChunks int, data []byte, fileName string) error {
	errs := make(map[string]string)

	if reason := v.sessionIDError(sessionID); reason != "" {
		errs["sessionId"] = reason
	}
	if totalChunks <= 0 {
		errs["totalChunks"] = "totalChunks must be positive"
	} else if totalChunks > v.MaxChunkCount {
		errs["totalChunks"] = fmt.Sprintf("totalChunks exceeds maximum allowed: %d", v.MaxChunkCount)
	}
	if chunkIndex < 0 {
		errs["chunkIndex"] = "chunkIndex must be non-negative"
	} else if totalChunks > 0 && chunkIndex >= totalChunks {
		errs["chunkIndex"] = "chunkIndex must be less than totalChunks"
	}

	// An empty payload is tolerated only for a single-chunk upload.
	if len(data) == 0 && totalChunks != 1 {
		errs["chunk"] = "chunk data cannot be empty"
	}
	if int64(len(data)) > v.MaxChunkSize {
		errs["chunk"] = fmt.Sprintf("chunk size %d exceeds maximum allowed: %d", len(data), v.MaxChunkSize)
	}

	if fileName != "" {
		if reason := v.fileNameError(fileName); reason != "" {
			errs["fileName"] = reason
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Message: "validation failed", FieldErrors: errs}
	}
	return nil
}

// ValidateSessionID checks the session identifier on its own, for endpoints
// that carry only the id.
func (v *Validator) ValidateSessionID(sessionID string) error {
	if reason := v.sessionIDError(sessionID); reason != "" {
		return &ValidationError{Message: "validation failed",
			FieldErrors: map[string]string{"sessionId": reason}}
	}
	return nil
}

// ValidateResumeRequest checks the resume-handshake parameters.
func (v *Validator) ValidateResumeRequest(sessionID string, totalChunks int, fileName string) error {
	errs := make(map[string]string)

	if reason := v.sessionIDError(sessionID); reason != "" {
		errs["sessionId"] = reason
	}
	if totalChunks <= 0 {
		errs["totalChunks"] = "totalChunks must be positive"
	} else if totalChunks > v.MaxChunkCount {
		errs["totalChunks"] = fmt.Sprintf("totalChunks exceeds maximum allowed: %d", v.MaxChunkCount)
	}
	if fileName != "" {
		if reason := v.fileNameError(fileName); reason != "" {
			errs["fileName"] = reason
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Message: "validation failed", FieldErrors: errs}
	}
	return nil
}

func (v *Validator) sessionIDError(sessionID string) string {
	if strings.TrimSpace(sessionID) == "" {
		return "sessionId is required and cannot be empty"
	}
	if len(sessionID) > MaxSessionIDLength {
		return fmt.Sprintf("sessionId cannot exceed %d characters", MaxSessionIDLength)
	}
	for _, r := range sessionID {
		if !unicode.IsPrint(r) {
			return "sessionId contains non-printable characters"
		}
	}
	return ""
}

func (v *Validator) fileNameError(name string) string {
	if len(name) > MaxFileNameLength {
		return fmt.Sprintf("fileName cannot exceed %d bytes", MaxFileNameLength)
	}
	if strings.Contains(name, "..") {
		return "fileName contains directory traversal sequence"
	}
	if strings.ContainsAny(name, "/\\") {
		return "fileName contains path separators"
	}
	if strings.Contains(name, "\x00") {
		return "fileName contains null bytes"
	}
	for _, r := range name {
		if r < 32 || r == 0x7F {
			return "fileName contains control characters"
		}
	}

	stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	if _, ok := reservedWindowsNames[stem]; ok {
		return fmt.Sprintf("fileName %q is a reserved device name", name)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext != "" {
		for _, blocked := range v.BlockedExtensions {
			if ext == strings.ToLower(blocked) {
				return fmt.Sprintf("file extension %q is not allowed", ext)
			}
		}
		if len(v.AllowedExtensions) > 0 {
			allowed := false
			for _, a := range v.AllowedExtensions {
				if ext == strings.ToLower(a) {
					allowed = true
					break
				}
			}
			if !allowed {
				return fmt.Sprintf("file extension %q is not in allowed list", ext)
			}
		}
	}

	return ""
}
