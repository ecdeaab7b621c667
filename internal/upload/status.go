package upload

import (
	"sync"
	"time"

	"github.com/zulfikawr/freight/internal/protocol"
)

// SessionState is the lifecycle state of an upload session.
type SessionState int

const (
	StateActive SessionState = iota
	StateCompleted
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "active"
	}
}

// Session tracks one chunked upload in progress. All fields are guarded by
// mu; mutation goes through the methods so lastUpdated stays fresh.
type Session struct {
	mu sync.Mutex

	id          string
	totalChunks int
	received    map[int]struct{}

	fileName  string // set at most once, first non-empty value wins
	fileSize  int64  // optional, client-supplied
	chunkSize int64  // optional, client-supplied

	uploadedBytes int64
	state         SessionState
	errorMessage  string

	createdAt   time.Time
	lastUpdated time.Time
}

func newSession(id string, totalChunks int) *Session {
	now := time.Now()
	return &Session{
		id:          id,
		totalChunks: totalChunks,
		received:    make(map[int]struct{}),
		createdAt:   now,
		lastUpdated: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// TotalChunks returns the chunk count fixed at session creation.
func (s *Session) TotalChunks() int { return s.totalChunks }

// AddChunk records a received chunk index. The byte counter moves only when
// the index transitions from absent to present, so replays do not
// double-count. Returns true if the index was new.
func (s *Session) AddChunk(index int, size int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, dup := s.received[index]
	if !dup {
		s.received[index] = struct{}{}
		s.uploadedBytes += size
	}
	s.lastUpdated = time.Now()
	return !dup
}

// HasChunk reports whether the given index has been received.
func (s *Session) HasChunk(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.received[index]
	return ok
}

// ReceivedCount returns the number of distinct chunks received.
func (s *Session) ReceivedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

// SetMetadata records client-supplied metadata. The filename is first-write-
// wins; size fields are set when positive and currently unset.
func (s *Session) SetMetadata(fileName string, fileSize, chunkSize int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fileName == "" && fileName != "" {
		s.fileName = fileName
	}
	if s.fileSize == 0 && fileSize > 0 {
		s.fileSize = fileSize
	}
	if s.chunkSize == 0 && chunkSize > 0 {
		s.chunkSize = chunkSize
	}
	s.lastUpdated = time.Now()
}

// FileName returns the stored original filename, if any.
func (s *Session) FileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileName
}

// MarkCompleted transitions the session to the completed state.
func (s *Session) MarkCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateCompleted
	s.lastUpdated = time.Now()
}

// MarkFailed transitions the session to the failed state with a message.
func (s *Session) MarkFailed(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFailed
	s.errorMessage = message
	s.lastUpdated = time.Now()
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsComplete reports whether every chunk index has been received.
func (s *Session) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateCompleted || len(s.received) == s.totalChunks
}

// CanResume reports whether the session is active with chunks outstanding.
func (s *Session) CanResume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateActive && len(s.received) < s.totalChunks
}

// MissingChunks returns the sorted indices not yet received.
func (s *Session) MissingChunks() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missingLocked()
}

func (s *Session) missingLocked() []int {
	missing := make([]int, 0, s.totalChunks-len(s.received))
	for i := 0; i < s.totalChunks; i++ {
		if _, ok := s.received[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

// NextExpectedChunk returns the lowest missing index, or totalChunks when
// every chunk has arrived.
func (s *Session) NextExpectedChunk() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < s.totalChunks; i++ {
		if _, ok := s.received[i]; !ok {
			return i
		}
	}
	return s.totalChunks
}

// LastUpdated returns the time of the most recent mutation.
func (s *Session) LastUpdated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdated
}

// ProgressPercentage returns upload progress in [0,100]: byte-based when the
// file size is known, chunk-count-based otherwise.
func (s *Session) ProgressPercentage() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

func (s *Session) progressLocked() float64 {
	if s.fileSize > 0 {
		return float64(s.uploadedBytes) / float64(s.fileSize) * 100.0
	}
	if s.totalChunks > 0 {
		return float64(len(s.received)) / float64(s.totalChunks) * 100.0
	}
	return 0
}

// UploadSpeed returns the average accepted-byte rate in bytes per second
// since session creation.
func (s *Session) UploadSpeed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := time.Since(s.createdAt).Seconds()
	if elapsed <= 0 || s.uploadedBytes == 0 {
		return 0
	}
	return float64(s.uploadedBytes) / elapsed
}

// EstimatedRemaining returns the projected time to finish based on the
// current speed, or zero when no estimate is possible.
func (s *Session) EstimatedRemaining() time.Duration {
	s.mu.Lock()
	uploaded := s.uploadedBytes
	fileSize := s.fileSize
	created := s.createdAt
	s.mu.Unlock()

	if fileSize <= 0 || uploaded <= 0 {
		return 0
	}
	remaining := fileSize - uploaded
	if remaining <= 0 {
		return 0
	}
	elapsed := time.Since(created)
	if elapsed <= 0 {
		return 0
	}
	speed := float64(uploaded) / elapsed.Seconds()
	return time.Duration(float64(remaining)/speed) * time.Second
}

// Status builds a point-in-time snapshot for the status endpoints.
func (s *Session) Status() protocol.StatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	return protocol.StatusResponse{
		SessionID:          s.id,
		TotalChunks:        s.totalChunks,
		FileName:           s.fileName,
		FileSize:           s.fileSize,
		ChunkSize:          s.chunkSize,
		ReceivedChunks:     s.receivedSortedLocked(),
		UploadedBytes:      s.uploadedBytes,
		ProgressPercentage: s.progressLocked(),
		Completed:          s.state == StateCompleted || len(s.received) == s.totalChunks,
		Failed:             s.state == StateFailed,
		ErrorMessage:       s.errorMessage,
		CreatedAt:          s.createdAt,
		LastUpdatedAt:      s.lastUpdated,
	}
}

// ResumeRecord builds the resume-handshake response.
func (s *Session) ResumeRecord() protocol.ResumeResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.totalChunks
	for i := 0; i < s.totalChunks; i++ {
		if _, ok := s.received[i]; !ok {
			next = i
			break
		}
	}

	return protocol.ResumeResponse{
		SessionID:          s.id,
		TotalChunks:        s.totalChunks,
		FileName:           s.fileName,
		FileSize:           s.fileSize,
		ChunkSize:          s.chunkSize,
		ReceivedChunks:     s.receivedSortedLocked(),
		MissingChunks:      s.missingLocked(),
		NextExpectedChunk:  next,
		UploadedBytes:      s.uploadedBytes,
		ProgressPercentage: s.progressLocked(),
		CanResume:          s.state == StateActive && len(s.received) < s.totalChunks,
		Completed:          s.state == StateCompleted || len(s.received) == s.totalChunks,
		Failed:             s.state == StateFailed,
		ErrorMessage:       s.errorMessage,
		CreatedAt:          s.createdAt,
		LastUpdatedAt:      s.lastUpdated,
	}
}

func (s *Session) receivedSortedLocked() []int {
	out := make([]int, 0, len(s.received))
	for i := 0; i < s.totalChunks; i++ {
		if _, ok := s.received[i]; ok {
			out = append(out, i)
		}
	}
	return out
}
