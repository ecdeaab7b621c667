package client

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.bin")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewTask(t *testing.T) {
	content := bytes.Repeat([]byte("x"), 25)
	path := writeTempFile(t, content)

	task, err := NewTask(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()

	if task.SessionID == "" {
		t.Error("SessionID must be generated")
	}
	if task.FileName != "source.bin" {
		t.Errorf("FileName = %q, want source.bin", task.FileName)
	}
	if len(task.Chunks) != 3 {
		t.Errorf("chunk count = %d, want 3", len(task.Chunks))
	}
	if task.PendingCount() != 3 {
		t.Errorf("PendingCount = %d, want all chunks pending", task.PendingCount())
	}
	if task.State() != TaskPending {
		t.Errorf("State = %v, want pending", task.State())
	}
}

func TestNewTaskRejectsDirectory(t *testing.T) {
	if _, err := NewTask(t.TempDir(), 10); err == nil {
		t.Error("NewTask on a directory should fail")
	}
}

func TestResumeTaskKeepsSessionID(t *testing.T) {
	path := writeTempFile(t, []byte("data"))

	task, err := ResumeTask("existing-session", path, 10)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()
	if task.SessionID != "existing-session" {
		t.Errorf("SessionID = %q, want existing-session", task.SessionID)
	}
}

func TestReadChunk(t *testing.T) {
	path := writeTempFile(t, []byte("abcdefghij"))

	task, err := NewTask(path, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()

	want := []string{"abcd", "efgh", "ij"}
	for i, c := range task.Chunks {
		data, err := task.ReadChunk(c)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, data, want[i])
		}
	}
}

func TestMarkDoneIdempotent(t *testing.T) {
	path := writeTempFile(t, []byte("abcdefghij"))
	task, err := NewTask(path, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()

	task.markDone(task.Chunks[0])
	task.markDone(task.Chunks[0])

	if task.PendingCount() != 1 {
		t.Errorf("PendingCount = %d, want 1", task.PendingCount())
	}
	if task.UploadedBytes() != 5 {
		t.Errorf("UploadedBytes = %d, want 5 after duplicate markDone", task.UploadedBytes())
	}
}

func TestApplyServerView(t *testing.T) {
	path := writeTempFile(t, []byte("abcdefghij"))
	task, err := NewTask(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()

	// Server holds chunks 0, 2, 4 and is owed 1 and 3.
	task.applyServerView([]int{1, 3})

	pending := task.pendingChunks()
	if len(pending) != 2 || pending[0].Index != 1 || pending[1].Index != 3 {
		t.Errorf("pending = %v, want chunks 1 and 3", pending)
	}
	if task.UploadedBytes() != 6 {
		t.Errorf("UploadedBytes = %d, want 6 credited for server-held chunks", task.UploadedBytes())
	}
}

func TestSetStateRefusedWhenTerminal(t *testing.T) {
	path := writeTempFile(t, []byte("x"))
	task, err := NewTask(path, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()

	task.fail("broke")
	if task.setState(TaskUploading) {
		t.Error("transition out of a terminal state must be refused")
	}
	if task.State() != TaskFailed {
		t.Errorf("State = %v, want failed", task.State())
	}
	if task.ErrorMessage() != "broke" {
		t.Errorf("ErrorMessage = %q, want broke", task.ErrorMessage())
	}
}

func TestReopen(t *testing.T) {
	path := writeTempFile(t, []byte("x"))
	task, err := NewTask(path, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()

	// Failed and paused tasks can be brought back to pending.
	task.fail("broke")
	if !task.reopen() {
		t.Fatal("reopen from failed must succeed")
	}
	if task.State() != TaskPending {
		t.Errorf("State = %v, want pending after reopen", task.State())
	}
	if task.ErrorMessage() != "" {
		t.Errorf("ErrorMessage = %q, want cleared by reopen", task.ErrorMessage())
	}

	task.setState(TaskPaused)
	if !task.reopen() {
		t.Error("reopen from paused must succeed")
	}

	// Completed and cancelled stay final.
	task.complete("dest")
	if task.reopen() {
		t.Error("reopen from completed must be refused")
	}
}
