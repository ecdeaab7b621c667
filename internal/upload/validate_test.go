package upload

import (
	"strings"
	"testing"
)

func TestValidateChunkRequest(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name        string
		sessionID   string
		chunkIndex  int
		totalChunks int
		data        []byte
		fileName    string
		wantField   string // empty means the request must pass
	}{
		{"valid", "abc", 0, 3, []byte("data"), "file.txt", ""},
		{"valid no filename", "abc", 2, 3, []byte("data"), "", ""},
		{"empty session id", "", 0, 3, []byte("data"), "", "sessionId"},
		{"whitespace session id", "   ", 0, 3, []byte("data"), "", "sessionId"},
		{"long session id", strings.Repeat("x", 300), 0, 3, []byte("data"), "", "sessionId"},
		{"non-printable session id", "ab\x01c", 0, 3, []byte("d"), "", "sessionId"},
		{"zero total chunks", "abc", 0, 0, []byte("data"), "", "totalChunks"},
		{"negative total chunks", "abc", 0, -1, []byte("data"), "", "totalChunks"},
		{"too many chunks", "abc", 0, 10001, []byte("data"), "", "totalChunks"},
		{"negative index", "abc", -1, 3, []byte("data"), "", "chunkIndex"},
		{"index beyond total", "abc", 3, 3, []byte("data"), "", "chunkIndex"},
		{"empty multi-chunk payload", "abc", 0, 2, nil, "", "chunk"},
		{"empty single-chunk payload ok", "abc", 0, 1, nil, "", ""},
		{"traversal filename", "abc", 0, 2, []byte("d"), "../../etc/passwd", "fileName"},
		{"separator filename", "abc", 0, 2, []byte("d"), "a/b.txt", "fileName"},
		{"null byte filename", "abc", 0, 2, []byte("d"), "a\x00b.txt", "fileName"},
		{"reserved device name", "abc", 0, 2, []byte("d"), "CON.txt", "fileName"},
		{"blocked extension", "abc", 0, 2, []byte("d"), "malware.exe", "fileName"},
		{"long filename", "abc", 0, 2, []byte("d"), strings.Repeat("a", 300) + ".txt", "fileName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateChunkRequest(tt.sessionID, tt.chunkIndex, tt.totalChunks, tt.data, tt.fileName)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if _, present := ve.FieldErrors[tt.wantField]; !present {
				t.Errorf("FieldErrors = %v, want entry for %q", ve.FieldErrors, tt.wantField)
			}
		})
	}
}

func TestValidateChunkSizeCeiling(t *testing.T) {
	v := NewValidator()
	v.MaxChunkSize = 8

	if err := v.ValidateChunkRequest("s", 0, 2, []byte("12345678"), ""); err != nil {
		t.Errorf("chunk at the ceiling rejected: %v", err)
	}
	err := v.ValidateChunkRequest("s", 0, 2, []byte("123456789"), "")
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if _, present := ve.FieldErrors["chunk"]; !present {
		t.Errorf("FieldErrors = %v, want chunk entry", ve.FieldErrors)
	}
}

func TestValidateChunkRequestCollectsAllErrors(t *testing.T) {
	v := NewValidator()
	err := v.ValidateChunkRequest("", -1, 0, nil, "../x")
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	for _, field := range []string{"sessionId", "chunkIndex", "totalChunks", "fileName"} {
		if _, present := ve.FieldErrors[field]; !present {
			t.Errorf("FieldErrors missing %q: %v", field, ve.FieldErrors)
		}
	}
}

func TestValidateAllowedExtensions(t *testing.T) {
	v := NewValidator()
	v.AllowedExtensions = []string{"jpg", "png"}

	if err := v.ValidateChunkRequest("s", 0, 2, []byte("d"), "photo.jpg"); err != nil {
		t.Errorf("allowed extension rejected: %v", err)
	}
	if err := v.ValidateChunkRequest("s", 0, 2, []byte("d"), "doc.pdf"); err == nil {
		t.Error("extension outside allow list should be rejected")
	}
	// Block list still applies on top of the allow list.
	v.AllowedExtensions = []string{"exe"}
	if err := v.ValidateChunkRequest("s", 0, 2, []byte("d"), "tool.exe"); err == nil {
		t.Error("blocked extension must be rejected even when allow-listed")
	}
}

func TestValidateResumeRequest(t *testing.T) {
	v := NewValidator()

	if err := v.ValidateResumeRequest("sess", 10, "file.txt"); err != nil {
		t.Errorf("valid resume rejected: %v", err)
	}
	if err := v.ValidateResumeRequest("", 10, ""); err == nil {
		t.Error("resume without session id should fail")
	}
	if err := v.ValidateResumeRequest("sess", 0, ""); err == nil {
		t.Error("resume with zero totalChunks should fail")
	}
}

func TestValidateSessionID(t *testing.T) {
	v := NewValidator()
	if err := v.ValidateSessionID("ok-id"); err != nil {
		t.Errorf("valid id rejected: %v", err)
	}
	if err := v.ValidateSessionID(""); err == nil {
		t.Error("empty id should fail")
	}
}
