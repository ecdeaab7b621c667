package upload

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	st := newTestStore(t)
	return NewCoordinator(NewRegistry(), st, NewValidator())
}

func TestCoordinatorSaveChunkNeverFinalizes(t *testing.T) {
	c := newTestCoordinator(t)

	if err := c.SaveChunk("s1", 0, 1, []byte("whole file"), "one.txt"); err != nil {
		t.Fatal(err)
	}

	// All chunks are present but no file may appear until Finalize.
	entries, err := os.ReadDir(c.store.BaseDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			t.Fatalf("unexpected file %s before Finalize", e.Name())
		}
	}

	// The session stays registered until an explicit Finalize.
	if c.Registry().Get("s1") == nil {
		t.Error("session must survive until Finalize")
	}
}

func TestCoordinatorSaveChunkReplay(t *testing.T) {
	c := newTestCoordinator(t)

	if err := c.SaveChunk("s1", 0, 2, []byte("first"), ""); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveChunk("s1", 0, 2, []byte("first"), ""); err != nil {
		t.Fatal(err)
	}

	st, err := c.Status("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(st.ReceivedChunks) != 1 {
		t.Errorf("ReceivedChunks = %v, want a single entry after replay", st.ReceivedChunks)
	}
}

func TestCoordinatorSaveChunkValidation(t *testing.T) {
	c := newTestCoordinator(t)

	err := c.SaveChunk("", -1, 0, nil, "")
	if !IsValidation(err) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if c.Registry().Get("") != nil {
		t.Error("rejected request must not create a session")
	}
}

func TestCoordinatorFinalizeIncomplete(t *testing.T) {
	c := newTestCoordinator(t)
	c.SaveChunk("s1", 0, 3, []byte("a"), "f.txt")
	c.SaveChunk("s1", 2, 3, []byte("c"), "")

	_, err := c.Finalize("s1")
	ue := AsError(err)
	if ue == nil || ue.Kind != KindIncomplete {
		t.Fatalf("error = %v, want KindIncomplete", err)
	}
	missing, ok := ue.Details["missingChunks"].([]int)
	if !ok || len(missing) != 1 || missing[0] != 1 {
		t.Errorf("missingChunks = %v, want [1]", ue.Details["missingChunks"])
	}

	// The session survives an incomplete finalize.
	if c.Registry().Get("s1") == nil {
		t.Error("session should remain after a failed Finalize")
	}
}

func TestCoordinatorFinalizeHappyPath(t *testing.T) {
	c := newTestCoordinator(t)
	c.SaveChunk("s1", 1, 2, []byte("world"), "greeting.txt")
	c.SaveChunk("s1", 0, 2, []byte("hello "), "")

	dest, err := c.Finalize("s1")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dest) != "greeting.txt" {
		t.Errorf("dest = %s, want greeting.txt", dest)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello world" {
		t.Errorf("content = %q, want hello world", data)
	}

	// Chunk set and session record are gone.
	if _, err := os.Stat(c.store.SessionDir("s1")); !os.IsNotExist(err) {
		t.Error("temp directory should be removed after Finalize")
	}
	if _, err := c.Finalize("s1"); KindOf(err) != KindNotFound {
		t.Errorf("second Finalize = %v, want KindNotFound", err)
	}
}

func TestCoordinatorFinalizeUnknownSession(t *testing.T) {
	c := newTestCoordinator(t)
	_, err := c.Finalize("nope")
	if KindOf(err) != KindNotFound {
		t.Errorf("error = %v, want KindNotFound", err)
	}
}

func TestCoordinatorCancelIdempotent(t *testing.T) {
	c := newTestCoordinator(t)
	c.SaveChunk("s1", 0, 2, []byte("a"), "")

	c.Cancel("s1")
	if c.Registry().Get("s1") != nil {
		t.Error("session should be removed by Cancel")
	}
	if _, err := os.Stat(c.store.SessionDir("s1")); !os.IsNotExist(err) {
		t.Error("temp directory should be removed by Cancel")
	}

	// Repeated and unknown-session cancels are silent no-ops.
	c.Cancel("s1")
	c.Cancel("never-seen")
}

func TestCoordinatorResume(t *testing.T) {
	c := newTestCoordinator(t)

	// Fresh resume creates the session.
	rec, err := c.Resume("s1", 4, "doc.pdf", 4096, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if rec.SessionID != "s1" || rec.TotalChunks != 4 || rec.FileName != "doc.pdf" {
		t.Errorf("record = %+v, want fresh session view", rec)
	}
	if len(rec.MissingChunks) != 4 {
		t.Errorf("MissingChunks = %v, want all four", rec.MissingChunks)
	}

	// After some progress the handshake reports only the gaps.
	c.SaveChunk("s1", 0, 4, []byte("a"), "")
	c.SaveChunk("s1", 3, 4, []byte("d"), "")

	rec, err = c.Resume("s1", 4, "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.MissingChunks) != 2 || rec.MissingChunks[0] != 1 || rec.MissingChunks[1] != 2 {
		t.Errorf("MissingChunks = %v, want [1 2]", rec.MissingChunks)
	}
	if rec.FileName != "doc.pdf" {
		t.Errorf("FileName = %q, metadata must survive a later handshake", rec.FileName)
	}
}

func TestCoordinatorFinalizeDiskFull(t *testing.T) {
	c := newTestCoordinator(t)
	if err := c.SaveChunk("s1", 0, 2, []byte("aaaa"), "big.bin"); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveChunk("s1", 1, 2, []byte("bbbb"), ""); err != nil {
		t.Fatal(err)
	}

	// The disk fills up between the last chunk and the finalize call.
	withDiskFree(t, 10*1024*1024, nil)

	_, err := c.Finalize("s1")
	ue := AsError(err)
	if ue == nil || ue.Kind != KindDiskSpace {
		t.Fatalf("error = %v, want KindDiskSpace", err)
	}

	// The session is marked failed but the chunk set survives, so the
	// client can finalize again once space is freed.
	st, statusErr := c.Status("s1")
	if statusErr != nil {
		t.Fatal(statusErr)
	}
	if !st.Failed {
		t.Error("session must be marked failed after a disk-full finalize")
	}
	if _, err := os.Stat(c.store.SessionDir("s1")); err != nil {
		t.Error("temp directory must survive a failed finalize")
	}

	// No partial destination file appears.
	entries, err := os.ReadDir(c.store.BaseDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			t.Errorf("unexpected file %s after failed finalize", e.Name())
		}
	}
}

func TestCoordinatorSaveChunkDiskFull(t *testing.T) {
	c := newTestCoordinator(t)
	withDiskFree(t, 10*1024*1024, nil)

	err := c.SaveChunk("s1", 0, 2, []byte("data"), "")
	ue := AsError(err)
	if ue == nil || ue.Kind != KindDiskSpace {
		t.Fatalf("error = %v, want KindDiskSpace", err)
	}
	if ue.SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1", ue.SessionID)
	}

	// Nothing was recorded for the failed write.
	st, statusErr := c.Status("s1")
	if statusErr != nil {
		t.Fatal(statusErr)
	}
	if len(st.ReceivedChunks) != 0 {
		t.Errorf("ReceivedChunks = %v, want none", st.ReceivedChunks)
	}
}
