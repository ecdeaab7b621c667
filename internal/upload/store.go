package upload

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/zulfikawr/freight/internal/logging"
)

// Store persists individual chunks under a per-session temporary directory
// until assembly. Layout: <base>/<prefix><sessionID>/<sessionID>.part<index>.
type Store struct {
	base         string
	prefix       string
	safetyBuffer int64
	minFree      int64
}

// NewStore creates the chunk store rooted at base, creating the directory if
// needed. prefix defaults to "temp_" when empty.
func NewStore(base, prefix string) (*Store, error) {
	if prefix == "" {
		prefix = "temp_"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, newError(KindStorage, "", "init", "could not create upload directory", err)
	}
	return &Store{
		base:         base,
		prefix:       prefix,
		safetyBuffer: DefaultSafetyBuffer,
		minFree:      DefaultMinFreeSpace,
	}, nil
}

// BaseDir returns the directory assembled files are written into.
func (st *Store) BaseDir() string { return st.base }

// SessionDir returns the temporary directory for a session.
func (st *Store) SessionDir(sessionID string) string {
	return filepath.Join(st.base, st.prefix+sessionID)
}

// ChunkPath returns the on-disk path of one chunk.
func (st *Store) ChunkPath(sessionID string, index int) string {
	return filepath.Join(st.SessionDir(sessionID), fmt.Sprintf("%s.part%d", sessionID, index))
}

// Write persists one chunk, creating the session directory on demand. The
// file is created-or-truncated so a replayed chunk overwrites the same
// artifact. A disk-space preflight runs before any allocation.
func (st *Store) Write(sessionID string, index int, data []byte) error {
	if err := checkDiskSpace(st.base, int64(len(data)), st.safetyBuffer, st.minFree); err != nil {
		if ue := AsError(err); ue != nil {
			ue.SessionID = sessionID
			ue.Op = "save_chunk"
		}
		return err
	}

	dir := st.SessionDir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return newError(KindStorage, sessionID, "save_chunk",
			"failed to create session temp directory", err)
	}

	path := st.ChunkPath(sessionID, index)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return newError(KindStorage, sessionID, "save_chunk",
			fmt.Sprintf("failed to write chunk %d", index), err)
	}

	logging.Debug("Chunk written",
		zap.String("session_id", sessionID),
		zap.Int("chunk", index),
		zap.Int("bytes", len(data)))
	return nil
}

// Exists reports whether a chunk file is present.
func (st *Store) Exists(sessionID string, index int) bool {
	_, err := os.Stat(st.ChunkPath(sessionID, index))
	return err == nil
}

// Size returns the byte length of a stored chunk.
func (st *Store) Size(sessionID string, index int) (int64, error) {
	info, err := os.Stat(st.ChunkPath(sessionID, index))
	if err != nil {
		return 0, newError(KindStorage, sessionID, "chunk_size",
			fmt.Sprintf("chunk %d does not exist", index), err)
	}
	return info.Size(), nil
}

// TotalSize sums the sizes of chunks [0, totalChunks).
func (st *Store) TotalSize(sessionID string, totalChunks int) (int64, error) {
	var total int64
	for i := 0; i < totalChunks; i++ {
		n, err := st.Size(sessionID, i)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// ListAll returns chunk paths in ascending index order, failing if any chunk
// is missing.
func (st *Store) ListAll(sessionID string, totalChunks int) ([]string, error) {
	paths := make([]string, totalChunks)
	for i := 0; i < totalChunks; i++ {
		p := st.ChunkPath(sessionID, i)
		if _, err := os.Stat(p); err != nil {
			e := newError(KindStorage, sessionID, "list_chunks",
				fmt.Sprintf("missing chunk file %d", i), err)
			e.withDetail("missingChunk", i)
			return nil, e
		}
		paths[i] = p
	}
	return paths, nil
}

// Cleanup removes the session temp directory best-effort; per-entry failures
// are logged and swallowed.
func (st *Store) Cleanup(sessionID string) {
	dir := st.SessionDir(sessionID)
	if _, err := os.Stat(dir); err != nil {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		logging.Warn("Failed to remove session temp directory",
			zap.String("session_id", sessionID),
			zap.String("dir", dir),
			zap.Error(err))
		return
	}
	logging.Info("Cleaned up temp directory", zap.String("session_id", sessionID))
}
