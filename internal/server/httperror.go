package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"github.com/zulfikawr/freight/internal/logging"
	"github.com/zulfikawr/freight/internal/protocol"
	"github.com/zulfikawr/freight/internal/upload"
)

// statusForError maps the upload error taxonomy onto HTTP status plus
// envelope error code.
func statusForError(err error) (int, string) {
	if ue := upload.AsError(err); ue != nil {
		switch ue.Kind {
		case upload.KindValidation:
			return http.StatusBadRequest, protocol.CodeValidation
		case upload.KindNotFound:
			return http.StatusNotFound, protocol.CodeNotFound
		case upload.KindIncomplete:
			return http.StatusBadRequest, protocol.CodeIncomplete
		case upload.KindDiskSpace:
			return http.StatusInternalServerError, protocol.CodeDiskSpace
		case upload.KindStorage:
			return http.StatusInternalServerError, protocol.CodeStorage
		case upload.KindAssembly:
			return http.StatusInternalServerError, protocol.CodeUpload
		default:
			return http.StatusInternalServerError, protocol.CodeIO
		}
	}
	if upload.IsValidation(err) {
		return http.StatusBadRequest, protocol.CodeValidation
	}
	return http.StatusInternalServerError, protocol.CodeInternal
}

// writeError emits the uniform error envelope and logs the failure with the
// trace id that appears in the response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusForError(err)

	traceID := ""
	if id, uerr := uuid.NewV4(); uerr == nil {
		traceID = id.String()
	}

	details := map[string]any{}
	if ue := upload.AsError(err); ue != nil {
		for k, v := range ue.Details {
			details[k] = v
		}
		if ue.SessionID != "" {
			details["sessionId"] = ue.SessionID
		}
	}
	var ve *upload.ValidationError
	if errors.As(err, &ve) {
		details["fieldErrors"] = ve.FieldErrors
	}

	resp := protocol.ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   err.Error(),
		Path:      r.URL.Path,
		ErrorCode: code,
		Details:   details,
		TraceID:   traceID,
	}

	if status >= http.StatusInternalServerError {
		logging.Error("Request failed",
			zap.String("trace_id", traceID),
			zap.String("path", r.URL.Path),
			zap.String("code", code),
			zap.Error(err))
	} else {
		logging.Warn("Request rejected",
			zap.String("trace_id", traceID),
			zap.String("path", r.URL.Path),
			zap.String("code", code),
			zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON emits a 200 JSON body.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	_ = json.NewEncoder(w).Encode(v)
}
