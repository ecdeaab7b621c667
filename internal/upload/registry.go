package upload

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zulfikawr/freight/internal/logging"
	"github.com/zulfikawr/freight/internal/protocol"
)

// Registry is the in-memory database of upload sessions. It is the single
// owner of Session records; the coordinator is the only writer.
type Registry struct {
	sessions sync.Map // sessionID -> *Session
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// GetOrCreate returns the session for id, creating it with totalChunks when
// absent. A totalChunks mismatch on an existing session keeps the first
// value; the conflicting request is logged and otherwise honored.
func (r *Registry) GetOrCreate(id string, totalChunks int) *Session {
	if val, ok := r.sessions.Load(id); ok {
		sess := val.(*Session)
		if sess.TotalChunks() != totalChunks {
			logging.Warn("totalChunks mismatch on existing session, keeping first value",
				zap.String("session_id", id),
				zap.Int("have", sess.TotalChunks()),
				zap.Int("got", totalChunks))
		}
		return sess
	}

	created := newSession(id, totalChunks)
	if actual, loaded := r.sessions.LoadOrStore(id, created); loaded {
		return actual.(*Session)
	}
	return created
}

// Get returns the session for id, or nil.
func (r *Registry) Get(id string) *Session {
	if val, ok := r.sessions.Load(id); ok {
		return val.(*Session)
	}
	return nil
}

// Remove deletes the session record. Safe on absent ids.
func (r *Registry) Remove(id string) {
	r.sessions.Delete(id)
}

// All returns status snapshots of every session.
func (r *Registry) All() []protocol.StatusResponse {
	out := make([]protocol.StatusResponse, 0)
	r.sessions.Range(func(_, value any) bool {
		out = append(out, value.(*Session).Status())
		return true
	})
	return out
}

// Resumable returns resume records for sessions that are active with chunks
// outstanding.
func (r *Registry) Resumable() []protocol.ResumeResponse {
	out := make([]protocol.ResumeResponse, 0)
	r.sessions.Range(func(_, value any) bool {
		sess := value.(*Session)
		if sess.CanResume() {
			out = append(out, sess.ResumeRecord())
		}
		return true
	})
	return out
}

// Statistics aggregates session counts by state.
type Statistics struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	InProgress int `json:"inProgress"`
}

// Stats returns session totals by state.
func (r *Registry) Stats() Statistics {
	var st Statistics
	r.sessions.Range(func(_, value any) bool {
		st.Total++
		switch value.(*Session).State() {
		case StateCompleted:
			st.Completed++
		case StateFailed:
			st.Failed++
		default:
			st.InProgress++
		}
		return true
	})
	return st
}

// CleanupOlderThan removes sessions in a terminal state whose last update is
// older than maxAge. Returns the removed session ids so the caller can also
// drop their on-disk artifacts.
func (r *Registry) CleanupOlderThan(maxAge time.Duration) []string {
	cutoff := time.Now().Add(-maxAge)
	removed := make([]string, 0)

	r.sessions.Range(func(key, value any) bool {
		sess := value.(*Session)
		if sess.State() == StateActive {
			return true
		}
		if sess.LastUpdated().Before(cutoff) {
			id := key.(string)
			r.sessions.Delete(id)
			removed = append(removed, id)
			logging.Info("Cleaned up stale session",
				zap.String("session_id", id),
				zap.String("state", sess.State().String()))
		}
		return true
	})

	return removed
}
