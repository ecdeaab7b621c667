package upload

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zulfikawr/freight/internal/logging"
	"github.com/zulfikawr/freight/internal/metrics"
	"github.com/zulfikawr/freight/internal/protocol"
)

// Coordinator orchestrates chunk persistence, session state, and assembly.
// It is the only component that mutates the registry; the transport adapter
// talks exclusively to it.
type Coordinator struct {
	registry  *Registry
	store     *Store
	assembler *Assembler
	validator *Validator
}

// NewCoordinator wires a coordinator over the given components.
func NewCoordinator(registry *Registry, store *Store, validator *Validator) *Coordinator {
	return &Coordinator{
		registry:  registry,
		store:     store,
		assembler: NewAssembler(store),
		validator: validator,
	}
}

// Registry exposes read-only snapshot queries for the transport layer.
func (c *Coordinator) Registry() *Registry { return c.registry }

// SaveChunk validates, persists, and records one chunk. Replaying the same
// (sessionID, chunkIndex) overwrites the same artifact and leaves the
// session unchanged. SaveChunk never finalizes; the client must call
// Finalize explicitly.
func (c *Coordinator) SaveChunk(sessionID string, chunkIndex, totalChunks int, data []byte, fileName string) error {
	start := time.Now()

	if err := c.validator.ValidateChunkRequest(sessionID, chunkIndex, totalChunks, data, fileName); err != nil {
		logging.Warn("Chunk request rejected",
			zap.String("session_id", sessionID),
			zap.Int("chunk", chunkIndex),
			zap.Error(err))
		metrics.RecordChunkError()
		return err
	}

	sess := c.registry.GetOrCreate(sessionID, totalChunks)
	if fileName != "" {
		sess.SetMetadata(fileName, 0, 0)
	}

	if err := c.store.Write(sessionID, chunkIndex, data); err != nil {
		metrics.RecordChunkError()
		return err
	}

	if sess.AddChunk(chunkIndex, int64(len(data))) {
		metrics.RecordChunkSuccess()
	} else {
		metrics.RecordChunkReplay()
	}
	metrics.ChunkWriteDuration.Observe(time.Since(start).Seconds())
	metrics.ChunkBytesReceived.Add(float64(len(data)))

	logging.Debug("Chunk recorded",
		zap.String("session_id", sessionID),
		zap.Int("chunk", chunkIndex),
		zap.Int("received", sess.ReceivedCount()),
		zap.Int("total", sess.TotalChunks()))
	return nil
}

// Finalize verifies completeness, assembles the destination file, marks the
// session completed, removes the chunk set, and drops the session record.
// On assembly failure the session is marked failed and temp data is kept for
// post-mortem.
func (c *Coordinator) Finalize(sessionID string) (string, error) {
	sess := c.registry.Get(sessionID)
	if sess == nil {
		return "", newError(KindNotFound, sessionID, "finalize", "upload session not found", nil)
	}

	if missing := sess.MissingChunks(); len(missing) > 0 {
		e := newError(KindIncomplete, sessionID, "finalize",
			fmt.Sprintf("upload incomplete: %d of %d chunks received",
				sess.ReceivedCount(), sess.TotalChunks()), nil)
		e.withDetail("missingChunks", missing)
		return "", e
	}

	start := time.Now()
	dest, err := c.assembler.Assemble(sessionID, sess.TotalChunks(), sess.FileName())
	if err != nil {
		sess.MarkFailed(err.Error())
		metrics.RecordAssembly("error")
		logging.Error("Assembly failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return "", err
	}

	sess.MarkCompleted()
	c.store.Cleanup(sessionID)
	c.registry.Remove(sessionID)

	metrics.RecordAssembly("success")
	metrics.AssemblyDuration.Observe(time.Since(start).Seconds())

	logging.Info("Upload finalized",
		zap.String("session_id", sessionID),
		zap.String("dest", dest))
	return dest, nil
}

// Cancel removes temp data and the session record unconditionally.
// Idempotent and safe on absent sessions.
func (c *Coordinator) Cancel(sessionID string) {
	c.store.Cleanup(sessionID)
	c.registry.Remove(sessionID)
	logging.Info("Upload cancelled", zap.String("session_id", sessionID))
}

// Resume performs the resume handshake: get-or-create the session, merge any
// supplied metadata, and return the server's view of it.
func (c *Coordinator) Resume(sessionID string, totalChunks int, fileName string, fileSize, chunkSize int64) (protocol.ResumeResponse, error) {
	if err := c.validator.ValidateResumeRequest(sessionID, totalChunks, fileName); err != nil {
		return protocol.ResumeResponse{}, err
	}

	sess := c.registry.GetOrCreate(sessionID, totalChunks)
	sess.SetMetadata(fileName, fileSize, chunkSize)

	logging.Info("Resume handshake",
		zap.String("session_id", sessionID),
		zap.Int("received", sess.ReceivedCount()),
		zap.Int("total", sess.TotalChunks()))
	return sess.ResumeRecord(), nil
}

// Status returns the snapshot of one session.
func (c *Coordinator) Status(sessionID string) (protocol.StatusResponse, error) {
	sess := c.registry.Get(sessionID)
	if sess == nil {
		return protocol.StatusResponse{}, newError(KindNotFound, sessionID, "status", "upload session not found", nil)
	}
	return sess.Status(), nil
}

// RunCleanup periodically removes terminal sessions older than maxAge along
// with their temp directories, until ctx is cancelled.
func (c *Coordinator) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := c.registry.CleanupOlderThan(maxAge)
			for _, id := range removed {
				c.store.Cleanup(id)
			}
			if len(removed) > 0 {
				metrics.SessionsCleaned.Add(float64(len(removed)))
			}
		case <-ctx.Done():
			logging.Info("Stopping session cleanup goroutine")
			return
		}
	}
}
