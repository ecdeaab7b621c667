package client

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
)

// TaskState is the lifecycle of one client-side upload.
type TaskState int32

const (
	TaskPending TaskState = iota
	TaskUploading
	TaskPaused
	TaskCompleting
	TaskCompleted
	TaskFailed
	TaskCancelled
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskUploading:
		return "uploading"
	case TaskPaused:
		return "paused"
	case TaskCompleting:
		return "completing"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	case TaskCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the task has stopped. Completed and cancelled
// are final; a failed task can still be brought back by a resume.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// Task is one file upload tracked by the client: the chunk plan, the set of
// chunks still owed to the server, and the lifecycle state.
type Task struct {
	SessionID string
	FilePath  string
	FileName  string
	TotalSize int64
	ChunkSize int64
	Chunks    []Chunk

	file *os.File

	mu       sync.Mutex
	pending  map[int]struct{} // chunks not yet confirmed by the server
	state    TaskState
	errMsg   string
	destName string

	uploadedBytes atomic.Int64
	startTime     time.Time
}

// NewTask opens path and prepares an upload plan with a fresh session id.
func NewTask(path string, chunkSize int64) (*Task, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	id, err := uuid.NewV4()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	chunks := SliceFile(stat.Size(), chunkSize)
	pending := make(map[int]struct{}, len(chunks))
	for _, c := range chunks {
		pending[c.Index] = struct{}{}
	}

	return &Task{
		SessionID: id.String(),
		FilePath:  path,
		FileName:  filepath.Base(path),
		TotalSize: stat.Size(),
		ChunkSize: chunkSize,
		Chunks:    chunks,
		file:      file,
		pending:   pending,
		state:     TaskPending,
		startTime: time.Now(),
	}, nil
}

// ResumeTask prepares a task for an existing server session. The chunk plan
// is recomputed from the file; the pending set is trimmed by the handshake.
func ResumeTask(sessionID, path string, chunkSize int64) (*Task, error) {
	t, err := NewTask(path, chunkSize)
	if err != nil {
		return nil, err
	}
	t.SessionID = sessionID
	return t, nil
}

// ReadChunk reads the chunk's byte range from the source file.
func (t *Task) ReadChunk(c Chunk) ([]byte, error) {
	data := make([]byte, c.Size)
	if c.Size == 0 {
		return data, nil
	}
	if _, err := t.file.ReadAt(data, c.Offset); err != nil {
		return nil, fmt.Errorf("read chunk %d: %w", c.Index, err)
	}
	return data, nil
}

// Close releases the source file handle.
func (t *Task) Close() error {
	return t.file.Close()
}

// State returns the current lifecycle state.
func (t *Task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// setState transitions unless already terminal. Returns false when the
// transition was refused.
func (t *Task) setState(s TaskState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Terminal() {
		return false
	}
	t.state = s
	return true
}

// reopen returns a paused or failed task to pending so a new run can pick
// it up. The failure reason is cleared; the handshake recomputes what is
// still owed. Refused for every other state.
func (t *Task) reopen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TaskPaused && t.state != TaskFailed {
		return false
	}
	t.state = TaskPending
	t.errMsg = ""
	return true
}

// fail records the terminal failure reason.
func (t *Task) fail(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Terminal() {
		return
	}
	t.state = TaskFailed
	t.errMsg = msg
}

// complete records the terminal success and the server-side destination.
func (t *Task) complete(dest string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Terminal() {
		return
	}
	t.state = TaskCompleted
	t.destName = dest
}

// ErrorMessage returns the failure reason, empty unless failed.
func (t *Task) ErrorMessage() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errMsg
}

// markDone removes a chunk from the pending set and counts its bytes.
func (t *Task) markDone(c Chunk) {
	t.mu.Lock()
	if _, ok := t.pending[c.Index]; ok {
		delete(t.pending, c.Index)
		t.uploadedBytes.Add(c.Size)
	}
	t.mu.Unlock()
}

// applyServerView trims the pending set to the chunks the server reports
// missing. Chunks the server already holds are credited as uploaded.
func (t *Task) applyServerView(missing []int) {
	missingSet := make(map[int]struct{}, len(missing))
	for _, idx := range missing {
		missingSet[idx] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.Chunks {
		_, owed := missingSet[c.Index]
		_, pend := t.pending[c.Index]
		if !owed && pend {
			delete(t.pending, c.Index)
			t.uploadedBytes.Add(c.Size)
		}
	}
}

// pendingChunks returns the chunks still owed, in index order.
func (t *Task) pendingChunks() []Chunk {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Chunk, 0, len(t.pending))
	for _, c := range t.Chunks {
		if _, ok := t.pending[c.Index]; ok {
			out = append(out, c)
		}
	}
	return out
}

// PendingCount returns the number of chunks still owed.
func (t *Task) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// UploadedBytes returns the confirmed byte count.
func (t *Task) UploadedBytes() int64 {
	return t.uploadedBytes.Load()
}

// DestName returns the server-side destination name after completion.
func (t *Task) DestName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.destName
}

// Speed returns the mean upload rate in bytes per second.
func (t *Task) Speed() float64 {
	elapsed := time.Since(t.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(t.uploadedBytes.Load()) / elapsed
}

// ETA estimates the remaining transfer time, zero when unknown.
func (t *Task) ETA() time.Duration {
	speed := t.Speed()
	if speed <= 0 {
		return 0
	}
	remaining := t.TotalSize - t.uploadedBytes.Load()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining) / speed * float64(time.Second))
}
