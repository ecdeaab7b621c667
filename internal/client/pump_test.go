package client

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zulfikawr/freight/internal/protocol"
)

// fakeSender records chunk traffic in memory and lets tests script the
// server's view of a session.
type fakeSender struct {
	mu        sync.Mutex
	received  map[int][]byte
	missing   []int         // Resume reports these as owed; nil means everything
	gate      chan struct{} // when set, SendChunk blocks on it or the context
	sendErr   error
	finalized bool
	cancelled bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{received: make(map[int][]byte)}
}

func (f *fakeSender) SendChunk(ctx context.Context, sessionID string, chunk Chunk, data []byte, totalChunks int, fileName string) error {
	f.mu.Lock()
	gate := f.gate
	sendErr := f.sendErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if sendErr != nil {
		return sendErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.received[chunk.Index] = append([]byte(nil), data...)
	return nil
}

func (f *fakeSender) Finalize(ctx context.Context, sessionID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized = true
	return "/uploads/" + sessionID + ".bin", nil
}

func (f *fakeSender) Cancel(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = true
	return nil
}

func (f *fakeSender) Resume(ctx context.Context, sessionID string, totalChunks int, fileName string, fileSize, chunkSize int64) (protocol.ResumeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	missing := f.missing
	if missing == nil {
		for i := 0; i < totalChunks; i++ {
			missing = append(missing, i)
		}
	}
	return protocol.ResumeResponse{
		SessionID:     sessionID,
		TotalChunks:   totalChunks,
		MissingChunks: missing,
		CanResume:     true,
	}, nil
}

func (f *fakeSender) Status(ctx context.Context, sessionID string) (protocol.StatusResponse, error) {
	return protocol.StatusResponse{SessionID: sessionID}, nil
}

func (f *fakeSender) ListResumable(ctx context.Context) ([]protocol.ResumeResponse, error) {
	return nil, nil
}

func (f *fakeSender) ListAll(ctx context.Context) ([]protocol.StatusResponse, error) {
	return nil, nil
}

func (f *fakeSender) chunkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

func waitDone(t *testing.T, p *Pump) {
	t.Helper()
	done := make(chan struct{})
	go func() { p.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("pump did not finish in time")
	}
}

func TestPumpHappyPath(t *testing.T) {
	content := bytes.Repeat([]byte("payload "), 32)
	path := writeTempFile(t, content)
	task, err := NewTask(path, 64)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()

	sender := newFakeSender()
	pump := NewPump(sender, task, 2)
	pump.Start(context.Background())
	waitDone(t, pump)

	if got := task.State(); got != TaskCompleted {
		t.Fatalf("state = %v, want completed (%s)", got, task.ErrorMessage())
	}
	if sender.chunkCount() != len(task.Chunks) {
		t.Errorf("server received %d chunks, want %d", sender.chunkCount(), len(task.Chunks))
	}
	if !sender.finalized {
		t.Error("finalize was never called")
	}
	if task.DestName() == "" {
		t.Error("DestName must be set after completion")
	}
	if task.UploadedBytes() != task.TotalSize {
		t.Errorf("UploadedBytes = %d, want %d", task.UploadedBytes(), task.TotalSize)
	}

	// The stream ends with the terminal event.
	var last Event
	for e := range pump.Events() {
		last = e
	}
	if last.Type != EventDone || last.State != TaskCompleted {
		t.Errorf("last event = %+v, want EventDone/completed", last)
	}
}

func TestPumpSkipsServerHeldChunks(t *testing.T) {
	path := writeTempFile(t, []byte("abcdefghij"))
	task, err := NewTask(path, 4) // chunks 0..2
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()

	sender := newFakeSender()
	sender.missing = []int{1} // server already holds 0 and 2

	pump := NewPump(sender, task, 2)
	pump.Start(context.Background())
	waitDone(t, pump)

	if got := task.State(); got != TaskCompleted {
		t.Fatalf("state = %v, want completed", got)
	}
	if sender.chunkCount() != 1 {
		t.Errorf("server received %d chunks, want only the missing one", sender.chunkCount())
	}
	if _, ok := sender.received[1]; !ok {
		t.Error("chunk 1 was never sent")
	}
	if task.UploadedBytes() != task.TotalSize {
		t.Errorf("UploadedBytes = %d, want full size with server-held chunks credited", task.UploadedBytes())
	}
}

func TestPumpFailure(t *testing.T) {
	path := writeTempFile(t, []byte("abcdefghij"))
	task, err := NewTask(path, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()

	sender := newFakeSender()
	sender.sendErr = errors.New("connection reset")

	pump := NewPump(sender, task, 2)
	pump.Start(context.Background())
	waitDone(t, pump)

	if got := task.State(); got != TaskFailed {
		t.Fatalf("state = %v, want failed", got)
	}
	if task.ErrorMessage() == "" {
		t.Error("failure reason must be recorded")
	}
	if sender.finalized {
		t.Error("a failed upload must not be finalized")
	}
}

func TestPumpResumeFromFailed(t *testing.T) {
	path := writeTempFile(t, []byte("abcdefghij"))
	task, err := NewTask(path, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()

	sender := newFakeSender()
	sender.sendErr = errors.New("connection reset")

	pump := NewPump(sender, task, 2)
	pump.Start(context.Background())
	waitDone(t, pump)
	if got := task.State(); got != TaskFailed {
		t.Fatalf("state = %v, want failed", got)
	}

	// The network heals; the same pump picks the upload back up.
	sender.mu.Lock()
	sender.sendErr = nil
	sender.mu.Unlock()

	pump.Resume(context.Background())
	waitDone(t, pump)

	if got := task.State(); got != TaskCompleted {
		t.Fatalf("state after resume = %v, want completed (%s)", got, task.ErrorMessage())
	}
	if task.ErrorMessage() != "" {
		t.Errorf("ErrorMessage = %q, want cleared on resume", task.ErrorMessage())
	}
	if sender.chunkCount() != len(task.Chunks) {
		t.Errorf("server received %d chunks, want %d", sender.chunkCount(), len(task.Chunks))
	}
	if !sender.finalized {
		t.Error("finalize was never called after the resumed run")
	}

	// The re-opened stream ends with the terminal event.
	var last Event
	for e := range pump.Events() {
		last = e
	}
	if last.Type != EventDone || last.State != TaskCompleted {
		t.Errorf("last event = %+v, want EventDone/completed", last)
	}
}

func TestPumpPauseResumeImmediate(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789abcdef"), 64) // 16 chunks of 64
	path := writeTempFile(t, content)
	task, err := NewTask(path, 64)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()

	sender := newFakeSender()
	sender.gate = make(chan struct{}) // hold every send in flight

	pump := NewPump(sender, task, 2)
	pump.Start(context.Background())

	// Pause with chunks in flight, then resume with no delay in between.
	pump.Pause()
	if got := task.State(); got != TaskPaused {
		t.Fatalf("state after Pause = %v, want paused", got)
	}

	sender.mu.Lock()
	sender.gate = nil
	sender.mu.Unlock()

	pump.Resume(context.Background())
	waitDone(t, pump)

	if got := task.State(); got != TaskCompleted {
		t.Fatalf("state = %v, want completed (%s)", got, task.ErrorMessage())
	}
	if sender.chunkCount() != len(task.Chunks) {
		t.Errorf("server received %d chunks, want %d", sender.chunkCount(), len(task.Chunks))
	}
	if task.UploadedBytes() != task.TotalSize {
		t.Errorf("UploadedBytes = %d, want %d", task.UploadedBytes(), task.TotalSize)
	}
}

func TestPumpCancel(t *testing.T) {
	path := writeTempFile(t, []byte("abcdefghij"))
	task, err := NewTask(path, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()

	sender := newFakeSender()
	pump := NewPump(sender, task, 2)

	pump.CancelUpload(context.Background())
	waitDone(t, pump)

	if got := task.State(); got != TaskCancelled {
		t.Fatalf("state = %v, want cancelled", got)
	}
	if !sender.cancelled {
		t.Error("server-side cancel was never requested")
	}

	// Start after cancel is a no-op.
	pump.Start(context.Background())
	if sender.chunkCount() != 0 {
		t.Error("no chunks may be sent after cancel")
	}
}

func TestPumpStartTwice(t *testing.T) {
	path := writeTempFile(t, []byte("abcdefghij"))
	task, err := NewTask(path, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()

	sender := newFakeSender()
	pump := NewPump(sender, task, 2)
	ctx := context.Background()
	pump.Start(ctx)
	pump.Start(ctx) // second call must not double-dispatch
	waitDone(t, pump)

	if sender.chunkCount() != len(task.Chunks) {
		t.Errorf("server received %d chunks, want exactly %d", sender.chunkCount(), len(task.Chunks))
	}
}

func TestRegistryActive(t *testing.T) {
	path := writeTempFile(t, []byte("abcdefghij"))
	task, err := NewTask(path, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()

	reg := NewRegistry()
	pump := NewPump(newFakeSender(), task, 1)
	reg.Add(pump)

	if got := reg.Get(task.SessionID); got != pump {
		t.Error("Get must return the registered pump")
	}
	if got := len(reg.Active()); got != 1 {
		t.Errorf("Active = %d pumps, want 1", got)
	}

	pump.CancelUpload(context.Background())
	if got := len(reg.Active()); got != 0 {
		t.Errorf("Active = %d pumps after cancel, want 0", got)
	}

	reg.Remove(task.SessionID)
	if reg.Get(task.SessionID) != nil {
		t.Error("Remove must drop the pump")
	}
}
