package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// refreshMaxAge bounds how old a saved snapshot may be before it is treated
// as stale and discarded. A snapshot older than this describes uploads the
// server has likely cleaned up already.
const refreshMaxAge = 5 * time.Minute

// SavedSession is one persisted upload the process may offer to resume.
type SavedSession struct {
	SessionID string `json:"sessionId"`
	FilePath  string `json:"filePath"`
	ServerURL string `json:"serverUrl"`
	ChunkSize int64  `json:"chunkSize"`
}

// refreshSnapshot is the on-disk shape of the state file.
type refreshSnapshot struct {
	SavedAt  time.Time      `json:"savedAt"`
	Sessions []SavedSession `json:"sessions"`
}

// RefreshStore persists active session handles across process restarts.
type RefreshStore struct {
	Path string
}

// NewRefreshStore places the state file under the user cache directory.
func NewRefreshStore() (*RefreshStore, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine cache directory: %w", err)
	}
	dir := filepath.Join(cacheDir, "freight")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create state directory: %w", err)
	}
	return &RefreshStore{Path: filepath.Join(dir, "sessions.json")}, nil
}

// Save writes the current session handles with a timestamp. An empty list
// removes the state file.
func (s *RefreshStore) Save(sessions []SavedSession) error {
	if len(sessions) == 0 {
		return s.Clear()
	}

	snap := refreshSnapshot{SavedAt: time.Now(), Sessions: sessions}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("cannot write state file: %w", err)
	}
	return os.Rename(tmp, s.Path)
}

// Load returns the saved sessions, or nil when the state file is absent or
// older than the staleness cutoff. A stale file is removed on the way out.
func (s *RefreshStore) Load() ([]SavedSession, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot read state file: %w", err)
	}

	var snap refreshSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		_ = s.Clear()
		return nil, nil
	}

	if time.Since(snap.SavedAt) > refreshMaxAge {
		_ = s.Clear()
		return nil, nil
	}
	return snap.Sessions, nil
}

// Clear removes the state file. Safe when it does not exist.
func (s *RefreshStore) Clear() error {
	err := os.Remove(s.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
