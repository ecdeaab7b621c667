// Package protocol defines the wire surface shared by the freight server
// and client: endpoint paths, header names, and JSON response shapes.
package protocol

import "time"

// Endpoint paths, relative to the server base URL.
const (
	UploadPath    = "/upload"        // POST multipart chunk; GET all statuses
	BinaryPath    = "/upload/binary" // POST raw chunk bytes
	ResumablePath = "/upload/resumable"
	HealthPath    = "/health"
	MetricsPath   = "/metrics"
	ProgressWS    = "/ws/progress"
)

// Headers carried by the binary chunk endpoint.
const (
	HeaderFileID        = "X-File-Id"
	HeaderChunkNumber   = "X-Chunk-Number"
	HeaderTotalChunks   = "X-Total-Chunks"
	HeaderFileName      = "X-File-Name"
	HeaderChunkEncoding = "X-Chunk-Encoding" // "zstd" when the body is compressed
)

// Multipart form field names for the /upload endpoint.
const (
	FieldFile        = "file"
	FieldSessionID   = "sessionId"
	FieldChunkIndex  = "chunkIndex"
	FieldTotalChunks = "totalChunks"
	FieldFileName    = "fileName"
)

// Client-side timeouts.
const (
	ChunkRequestTimeout = 30 * time.Second
	// Finalize has no timeout: assembly of a large file is bounded by disk
	// I/O, not network.
)

// StatusResponse is the server's view of one upload session.
type StatusResponse struct {
	SessionID          string    `json:"sessionId"`
	TotalChunks        int       `json:"totalChunks"`
	FileName           string    `json:"fileName,omitempty"`
	FileSize           int64     `json:"fileSize,omitempty"`
	ChunkSize          int64     `json:"chunkSize,omitempty"`
	ReceivedChunks     []int     `json:"receivedChunks"`
	UploadedBytes      int64     `json:"uploadedBytes"`
	ProgressPercentage float64   `json:"progressPercentage"`
	Completed          bool      `json:"completed"`
	Failed             bool      `json:"failed"`
	ErrorMessage       string    `json:"errorMessage,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	LastUpdatedAt      time.Time `json:"lastUpdatedAt"`
}

// ResumeResponse is the resume-handshake record: everything a restarted
// client needs to dispatch only the missing chunks.
type ResumeResponse struct {
	SessionID          string    `json:"sessionId"`
	TotalChunks        int       `json:"totalChunks"`
	FileName           string    `json:"fileName,omitempty"`
	FileSize           int64     `json:"fileSize,omitempty"`
	ChunkSize          int64     `json:"chunkSize,omitempty"`
	ReceivedChunks     []int     `json:"receivedChunks"`
	MissingChunks      []int     `json:"missingChunks"`
	NextExpectedChunk  int       `json:"nextExpectedChunk"`
	UploadedBytes      int64     `json:"uploadedBytes"`
	ProgressPercentage float64   `json:"progressPercentage"`
	CanResume          bool      `json:"canResume"`
	Completed          bool      `json:"completed"`
	Failed             bool      `json:"failed"`
	ErrorMessage       string    `json:"errorMessage,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	LastUpdatedAt      time.Time `json:"lastUpdatedAt"`
}

// ErrorResponse is the uniform error envelope returned on every failure.
type ErrorResponse struct {
	Timestamp time.Time      `json:"timestamp"`
	Status    int            `json:"status"`
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	Path      string         `json:"path"`
	ErrorCode string         `json:"errorCode"`
	Details   map[string]any `json:"details,omitempty"`
	TraceID   string         `json:"traceId"`
}

// Error codes carried in ErrorResponse.ErrorCode.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeUpload     = "UPLOAD_ERROR"
	CodeStorage    = "STORAGE_ERROR"
	CodeDiskSpace  = "INSUFFICIENT_DISK_SPACE"
	CodeIO         = "IO_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeIncomplete = "INCOMPLETE_UPLOAD"
	CodeServerBusy = "SERVER_BUSY"
)
