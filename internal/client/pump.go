package client

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/zulfikawr/freight/internal/logging"
)

// EventType identifies a pump notification.
type EventType int

const (
	// EventChunkDone fires after the server confirms one chunk.
	EventChunkDone EventType = iota
	// EventStateChange fires on every lifecycle transition.
	EventStateChange
	// EventDone fires once, when the task reaches a terminal state.
	EventDone
)

// Event is one pump notification.
type Event struct {
	Type      EventType
	SessionID string
	Chunk     int
	State     TaskState
	Uploaded  int64
	Dest      string
	Err       error
}

// Pump drives one task through the upload lifecycle: handshake, a worker
// pool dispatching pending chunks, then finalize. Pause stops the workers;
// Resume restarts a paused or failed task, re-handshaking so the pending
// set reflects what the server actually holds.
type Pump struct {
	sender  Sender
	task    *Task
	workers int

	mu      sync.Mutex
	cancel  context.CancelFunc // cancels the active run, nil when idle
	runDone chan struct{}      // closed when the active run goroutine exits
	running bool

	evMu     sync.Mutex
	evClosed bool
	events   chan Event
	done     chan struct{}
}

// NewPump wires a pump over the sender for one task. workers bounds chunk
// concurrency.
func NewPump(sender Sender, task *Task, workers int) *Pump {
	if workers <= 0 {
		workers = 3
	}
	return &Pump{
		sender:  sender,
		task:    task,
		workers: workers,
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
	}
}

// Events returns the notification stream. Closed after the terminal event;
// a resume from the failed state opens a fresh stream, so consumers must
// re-fetch it after calling Resume.
func (p *Pump) Events() <-chan Event {
	p.evMu.Lock()
	defer p.evMu.Unlock()
	return p.events
}

// Wait blocks until the task reaches a terminal state.
func (p *Pump) Wait() {
	p.evMu.Lock()
	done := p.done
	p.evMu.Unlock()
	<-done
}

// Task returns the task under management.
func (p *Pump) Task() *Task { return p.task }

// Start launches the upload. Calling Start on a running or terminal task is
// a no-op.
func (p *Pump) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running || p.task.State().Terminal() {
		p.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.runDone = make(chan struct{})
	p.running = true
	p.mu.Unlock()

	go p.run(runCtx)
}

// Pause stops dispatching chunks and returns once the run goroutine has
// unwound, so an immediate Resume always restarts the pump. In-flight
// requests are cut off by the context cancel; the task parks paused.
func (p *Pump) Pause() {
	p.mu.Lock()
	cancel := p.cancel
	runDone := p.runDone
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if runDone != nil {
		<-runDone
	}
	if p.task.setState(TaskPaused) {
		p.emitState()
	}
}

// Resume restarts a paused or failed upload. The server handshake recomputes
// which chunks are still owed, so work confirmed before the stop is not
// repeated. Resuming from the failed state clears the recorded error and
// re-opens the event stream.
func (p *Pump) Resume(ctx context.Context) {
	st := p.task.State()
	if st != TaskPaused && st != TaskFailed {
		return
	}

	// Let a previous run finish unwinding before restarting.
	p.mu.Lock()
	runDone := p.runDone
	p.mu.Unlock()
	if runDone != nil {
		<-runDone
	}

	if !p.task.reopen() {
		return
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.rearm()
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.runDone = make(chan struct{})
	p.running = true
	p.mu.Unlock()

	go p.run(runCtx)
}

// CancelUpload aborts the task locally and deletes the server session.
func (p *Pump) CancelUpload(ctx context.Context) {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if p.task.setState(TaskCancelled) {
		if err := p.sender.Cancel(ctx, p.task.SessionID); err != nil {
			logging.Warn("Server-side cancel failed",
				zap.String("session_id", p.task.SessionID),
				zap.Error(err))
		}
		p.emitState()
		p.finish()
	}
}

// run is one upload attempt: handshake, pump pending chunks, finalize.
func (p *Pump) run(ctx context.Context) {
	defer func() {
		p.mu.Lock()
		p.running = false
		p.cancel = nil
		done := p.runDone
		p.runDone = nil
		p.mu.Unlock()
		if done != nil {
			close(done)
		}
	}()

	resume, err := p.sender.Resume(ctx, p.task.SessionID, len(p.task.Chunks),
		p.task.FileName, p.task.TotalSize, p.task.ChunkSize)
	if err != nil {
		if ctx.Err() != nil {
			// Paused or cancelled mid-handshake, not a transfer failure.
			return
		}
		p.failTask(fmt.Errorf("handshake: %w", err))
		return
	}
	p.task.applyServerView(resume.MissingChunks)

	if !p.task.setState(TaskUploading) {
		return
	}
	p.emitState()

	if !p.pumpChunks(ctx) {
		// Paused or cancelled; terminal failures are reported inside.
		return
	}

	if !p.task.setState(TaskCompleting) {
		return
	}
	p.emitState()

	// No timeout on finalize: assembly time scales with file size.
	dest, err := p.sender.Finalize(context.WithoutCancel(ctx), p.task.SessionID)
	if err != nil {
		p.failTask(fmt.Errorf("finalize: %w", err))
		return
	}

	p.task.complete(dest)

	logging.Info("Upload completed",
		zap.String("session_id", p.task.SessionID),
		zap.String("dest", dest))
	p.emitState()
	p.finish()
}

// pumpChunks drains the pending set through the worker pool. Returns true
// when every pending chunk was confirmed.
func (p *Pump) pumpChunks(ctx context.Context) bool {
	pending := p.task.pendingChunks()
	if len(pending) == 0 {
		return true
	}

	jobs := make(chan Chunk, len(pending))
	errs := make(chan error, len(pending))
	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range jobs {
				if ctx.Err() != nil {
					errs <- ctx.Err()
					continue
				}
				errs <- p.sendOne(ctx, chunk)
			}
		}()
	}

	for _, chunk := range pending {
		jobs <- chunk
	}
	close(jobs)
	wg.Wait()
	close(errs)

	var firstErr error
	for err := range errs {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		if ctx.Err() != nil {
			// Pause or cancel, not a transfer failure.
			return false
		}
		p.failTask(firstErr)
		return false
	}
	return p.task.PendingCount() == 0
}

func (p *Pump) sendOne(ctx context.Context, chunk Chunk) error {
	data, err := p.task.ReadChunk(chunk)
	if err != nil {
		return err
	}
	if err := p.sender.SendChunk(ctx, p.task.SessionID, chunk, data,
		len(p.task.Chunks), p.task.FileName); err != nil {
		return err
	}

	p.task.markDone(chunk)
	p.emit(Event{
		Type:      EventChunkDone,
		SessionID: p.task.SessionID,
		Chunk:     chunk.Index,
		State:     p.task.State(),
		Uploaded:  p.task.UploadedBytes(),
	})
	return nil
}

func (p *Pump) failTask(err error) {
	p.task.fail(err.Error())
	logging.Error("Upload failed",
		zap.String("session_id", p.task.SessionID),
		zap.Error(err))
	p.emit(Event{
		Type:      EventStateChange,
		SessionID: p.task.SessionID,
		State:     TaskFailed,
		Err:       err,
	})
	p.finish()
}

func (p *Pump) emitState() {
	p.emit(Event{
		Type:      EventStateChange,
		SessionID: p.task.SessionID,
		State:     p.task.State(),
		Uploaded:  p.task.UploadedBytes(),
		Dest:      p.task.DestName(),
	})
}

// emit never blocks; a slow consumer just misses intermediate events.
func (p *Pump) emit(e Event) {
	p.evMu.Lock()
	defer p.evMu.Unlock()
	if p.evClosed {
		return
	}
	select {
	case p.events <- e:
	default:
	}
}

// rearm re-opens the event stream after a failed run closed it.
func (p *Pump) rearm() {
	p.evMu.Lock()
	defer p.evMu.Unlock()
	if !p.evClosed {
		return
	}
	p.evClosed = false
	p.events = make(chan Event, 64)
	p.done = make(chan struct{})
}

// finish fires the terminal event exactly once and closes the stream.
func (p *Pump) finish() {
	p.evMu.Lock()
	defer p.evMu.Unlock()
	if p.evClosed {
		return
	}
	select {
	case p.events <- Event{
		Type:      EventDone,
		SessionID: p.task.SessionID,
		State:     p.task.State(),
		Uploaded:  p.task.UploadedBytes(),
		Dest:      p.task.DestName(),
	}:
	default:
	}
	p.evClosed = true
	close(p.done)
	close(p.events)
}
