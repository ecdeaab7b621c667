package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestRefreshStore(t *testing.T) *RefreshStore {
	t.Helper()
	return &RefreshStore{Path: filepath.Join(t.TempDir(), "sessions.json")}
}

func TestRefreshStoreRoundTrip(t *testing.T) {
	st := newTestRefreshStore(t)

	saved := []SavedSession{
		{SessionID: "s1", FilePath: "/data/a.bin", ServerURL: "http://host:8080", ChunkSize: 1024},
		{SessionID: "s2", FilePath: "/data/b.bin", ServerURL: "http://host:8080", ChunkSize: 2048},
	}
	if err := st.Save(saved); err != nil {
		t.Fatal(err)
	}

	got, err := st.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != saved[0] || got[1] != saved[1] {
		t.Errorf("Load = %v, want %v", got, saved)
	}
}

func TestRefreshStoreAbsent(t *testing.T) {
	st := newTestRefreshStore(t)

	got, err := st.Load()
	if err != nil || got != nil {
		t.Errorf("Load on absent file = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestRefreshStoreStaleDiscarded(t *testing.T) {
	st := newTestRefreshStore(t)

	snap := refreshSnapshot{
		SavedAt:  time.Now().Add(-10 * time.Minute),
		Sessions: []SavedSession{{SessionID: "old"}},
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(st.Path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := st.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("Load = %v, stale snapshot must be discarded", got)
	}
	if _, err := os.Stat(st.Path); !os.IsNotExist(err) {
		t.Error("stale state file should be removed")
	}
}

func TestRefreshStoreCorruptDiscarded(t *testing.T) {
	st := newTestRefreshStore(t)

	if err := os.WriteFile(st.Path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := st.Load()
	if err != nil || got != nil {
		t.Errorf("Load on corrupt file = (%v, %v), want (nil, nil)", got, err)
	}
	if _, err := os.Stat(st.Path); !os.IsNotExist(err) {
		t.Error("corrupt state file should be removed")
	}
}

func TestRefreshStoreSaveEmptyClears(t *testing.T) {
	st := newTestRefreshStore(t)

	if err := st.Save([]SavedSession{{SessionID: "s1"}}); err != nil {
		t.Fatal(err)
	}
	if err := st.Save(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(st.Path); !os.IsNotExist(err) {
		t.Error("saving an empty list should remove the state file")
	}
}
