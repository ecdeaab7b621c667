package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/zulfikawr/freight/internal/protocol"
	"github.com/zulfikawr/freight/internal/upload"
)

// multipartMemoryLimit is how much of a multipart body may be buffered in
// memory before spilling to a temp file.
const multipartMemoryLimit = 10 << 20

// handleMultipartChunk accepts one chunk as a multipart form: the chunk
// bytes in the "file" part plus sessionId, chunkIndex, totalChunks, and an
// optional fileName field.
func (s *Server) handleMultipartChunk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !s.acquireSlot(w, r) {
		observe("upload_multipart", http.StatusServiceUnavailable, start)
		return
	}
	defer s.releaseSlot()

	// Multipart framing adds headers and boundaries on top of the payload.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxChunkSize+multipartMemoryLimit)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeError(w, r, &upload.ValidationError{Message: "malformed multipart body: " + err.Error()})
		observe("upload_multipart", http.StatusBadRequest, start)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	sessionID := r.FormValue(protocol.FieldSessionID)
	fileName := r.FormValue(protocol.FieldFileName)

	chunkIndex, err := formInt(r, protocol.FieldChunkIndex)
	if err != nil {
		writeError(w, r, err)
		observe("upload_multipart", http.StatusBadRequest, start)
		return
	}
	totalChunks, err := formInt(r, protocol.FieldTotalChunks)
	if err != nil {
		writeError(w, r, err)
		observe("upload_multipart", http.StatusBadRequest, start)
		return
	}

	part, header, err := r.FormFile(protocol.FieldFile)
	if err != nil {
		writeError(w, r, &upload.ValidationError{
			Message:     "missing file part",
			FieldErrors: map[string]string{protocol.FieldFile: "file part is required"},
		})
		observe("upload_multipart", http.StatusBadRequest, start)
		return
	}
	defer part.Close()

	if fileName == "" && header != nil {
		fileName = header.Filename
	}

	var src io.Reader = part
	if s.limiter != nil {
		src = &throttledReader{r: part, limiter: s.limiter, ctx: r.Context()}
	}
	data, err := io.ReadAll(io.LimitReader(src, s.maxChunkSize+1))
	if err != nil {
		writeError(w, r, err)
		observe("upload_multipart", http.StatusInternalServerError, start)
		return
	}

	s.saveAndRespond(w, r, "upload_multipart", sessionID, chunkIndex, totalChunks, data, fileName, start)
}

// handleBinaryChunk accepts one chunk as a raw request body, addressed via
// headers. A body with X-Chunk-Encoding: zstd is decompressed before it is
// validated and stored.
func (s *Server) handleBinaryChunk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !s.acquireSlot(w, r) {
		observe("upload_binary", http.StatusServiceUnavailable, start)
		return
	}
	defer s.releaseSlot()

	sessionID := r.Header.Get(protocol.HeaderFileID)
	fileName := r.Header.Get(protocol.HeaderFileName)

	chunkIndex, err := headerInt(r, protocol.HeaderChunkNumber)
	if err != nil {
		writeError(w, r, err)
		observe("upload_binary", http.StatusBadRequest, start)
		return
	}
	totalChunks, err := headerInt(r, protocol.HeaderTotalChunks)
	if err != nil {
		writeError(w, r, err)
		observe("upload_binary", http.StatusBadRequest, start)
		return
	}

	data, err := io.ReadAll(s.bodyReader(w, r, s.maxChunkSize+1))
	if err != nil {
		// A body past the cap is a client mistake, not a server fault, and
		// must not look retryable.
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, &upload.ValidationError{
				Message:     fmt.Sprintf("chunk body exceeds the %d byte limit", s.maxChunkSize),
				FieldErrors: map[string]string{"chunk": "too large"},
			})
			observe("upload_binary", http.StatusBadRequest, start)
			return
		}
		writeError(w, r, err)
		observe("upload_binary", http.StatusInternalServerError, start)
		return
	}

	if enc := r.Header.Get(protocol.HeaderChunkEncoding); enc != "" {
		if enc != "zstd" {
			writeError(w, r, &upload.ValidationError{
				Message:     "unsupported chunk encoding " + strconv.Quote(enc),
				FieldErrors: map[string]string{protocol.HeaderChunkEncoding: "only zstd is supported"},
			})
			observe("upload_binary", http.StatusBadRequest, start)
			return
		}
		data, err = s.zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			writeError(w, r, &upload.ValidationError{Message: "invalid zstd payload: " + err.Error()})
			observe("upload_binary", http.StatusBadRequest, start)
			return
		}
	}

	s.saveAndRespond(w, r, "upload_binary", sessionID, chunkIndex, totalChunks, data, fileName, start)
}

// saveAndRespond is the shared tail of both chunk endpoints.
func (s *Server) saveAndRespond(w http.ResponseWriter, r *http.Request, endpoint, sessionID string, chunkIndex, totalChunks int, data []byte, fileName string, start time.Time) {
	if err := s.coordinator.SaveChunk(sessionID, chunkIndex, totalChunks, data, fileName); err != nil {
		status, _ := statusForError(err)
		writeError(w, r, err)
		observe(endpoint, status, start)
		return
	}

	status, err := s.coordinator.Status(sessionID)
	if err != nil {
		writeError(w, r, err)
		observe(endpoint, http.StatusInternalServerError, start)
		return
	}

	writeJSON(w, map[string]any{
		"message":        "chunk uploaded",
		"sessionId":      sessionID,
		"chunkIndex":     chunkIndex,
		"receivedChunks": len(status.ReceivedChunks),
		"totalChunks":    status.TotalChunks,
	})
	observe(endpoint, http.StatusOK, start)
}

// handleComplete finalizes a session, streaming its chunks into the
// destination file.
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sessionID := r.PathValue("id")

	dest, err := s.coordinator.Finalize(sessionID)
	if err != nil {
		status, _ := statusForError(err)
		writeError(w, r, err)
		observe("complete", status, start)
		return
	}

	writeJSON(w, map[string]any{
		"message":   "upload completed",
		"sessionId": sessionID,
		"fileName":  dest,
	})
	observe("complete", http.StatusOK, start)
}

// handleCancel aborts a session and removes its temp data. Cancelling an
// unknown session still succeeds.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sessionID := r.PathValue("id")

	s.coordinator.Cancel(sessionID)

	writeJSON(w, map[string]any{
		"message":   "upload cancelled",
		"sessionId": sessionID,
	})
	observe("cancel", http.StatusOK, start)
}

// handleResume performs the resume handshake. Metadata arrives as query
// parameters; all except totalChunks are optional.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sessionID := r.PathValue("id")
	q := r.URL.Query()

	totalChunks, err := queryInt(q.Get("totalChunks"), "totalChunks")
	if err != nil {
		writeError(w, r, err)
		observe("resume", http.StatusBadRequest, start)
		return
	}

	fileName := q.Get("fileName")
	fileSize, err := queryInt64(q.Get("fileSize"), "fileSize")
	if err != nil {
		writeError(w, r, err)
		observe("resume", http.StatusBadRequest, start)
		return
	}
	chunkSize, err := queryInt64(q.Get("chunkSize"), "chunkSize")
	if err != nil {
		writeError(w, r, err)
		observe("resume", http.StatusBadRequest, start)
		return
	}

	resp, err := s.coordinator.Resume(sessionID, totalChunks, fileName, fileSize, chunkSize)
	if err != nil {
		status, _ := statusForError(err)
		writeError(w, r, err)
		observe("resume", status, start)
		return
	}

	writeJSON(w, resp)
	observe("resume", http.StatusOK, start)
}

// handleStatus returns the snapshot of one session.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sessionID := r.PathValue("id")

	resp, err := s.coordinator.Status(sessionID)
	if err != nil {
		status, _ := statusForError(err)
		writeError(w, r, err)
		observe("status", status, start)
		return
	}

	writeJSON(w, resp)
	observe("status", http.StatusOK, start)
}

// handleListAll returns snapshots of every active session plus aggregate
// counts.
func (s *Server) handleListAll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	statuses := s.coordinator.Registry().All()
	stats := s.coordinator.Registry().Stats()
	writeJSON(w, map[string]any{
		"sessions": statuses,
		"stats": map[string]int{
			"total":      stats.Total,
			"completed":  stats.Completed,
			"failed":     stats.Failed,
			"inProgress": stats.InProgress,
		},
	})
	observe("list", http.StatusOK, start)
}

// handleListResumable returns resume records for every session that can
// still accept chunks.
func (s *Server) handleListResumable(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	records := s.coordinator.Registry().Resumable()
	writeJSON(w, records)
	observe("resumable", http.StatusOK, start)
}

func formInt(r *http.Request, field string) (int, error) {
	raw := r.FormValue(field)
	if raw == "" {
		return 0, &upload.ValidationError{
			Message:     "missing form field " + field,
			FieldErrors: map[string]string{field: "required"},
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &upload.ValidationError{
			Message:     "invalid form field " + field,
			FieldErrors: map[string]string{field: "must be an integer"},
		}
	}
	return n, nil
}

func headerInt(r *http.Request, header string) (int, error) {
	raw := r.Header.Get(header)
	if raw == "" {
		return 0, &upload.ValidationError{
			Message:     "missing header " + header,
			FieldErrors: map[string]string{header: "required"},
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &upload.ValidationError{
			Message:     "invalid header " + header,
			FieldErrors: map[string]string{header: "must be an integer"},
		}
	}
	return n, nil
}

func queryInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &upload.ValidationError{
			Message:     "invalid query parameter " + name,
			FieldErrors: map[string]string{name: "must be an integer"},
		}
	}
	return n, nil
}

func queryInt64(raw, name string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &upload.ValidationError{
			Message:     "invalid query parameter " + name,
			FieldErrors: map[string]string{name: "must be an integer"},
		}
	}
	return n, nil
}
