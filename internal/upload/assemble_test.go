package upload

import (
	"os"
	"path/filepath"
	"testing"
)

func writeChunks(t *testing.T, st *Store, sessionID string, chunks ...string) {
	t.Helper()
	for i, c := range chunks {
		if err := st.Write(sessionID, i, []byte(c)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestAssembleConcatenatesInOrder(t *testing.T) {
	st := newTestStore(t)
	a := NewAssembler(st)
	writeChunks(t, st, "s1", "alpha ", "beta ", "gamma")

	dest, err := a.Assemble("s1", 3, "out.txt")
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "alpha beta gamma" {
		t.Errorf("assembled content = %q, want chunks in index order", data)
	}
	if filepath.Base(dest) != "out.txt" {
		t.Errorf("dest = %s, want out.txt", dest)
	}
}

func TestAssembleDefaultName(t *testing.T) {
	st := newTestStore(t)
	a := NewAssembler(st)
	writeChunks(t, st, "sess-9", "payload")

	dest, err := a.Assemble("sess-9", 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dest) != "sess-9.bin" {
		t.Errorf("dest = %s, want sess-9.bin", dest)
	}
}

func TestAssembleUniqueNameOnCollision(t *testing.T) {
	st := newTestStore(t)
	a := NewAssembler(st)

	// Occupy the preferred name and the first suffix.
	if err := os.WriteFile(filepath.Join(st.BaseDir(), "report.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(st.BaseDir(), "report_1.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	writeChunks(t, st, "s1", "new content")
	dest, err := a.Assemble("s1", 1, "report.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dest) != "report_2.pdf" {
		t.Errorf("dest = %s, want report_2.pdf (extension preserved)", filepath.Base(dest))
	}

	// Existing files were not touched.
	orig, _ := os.ReadFile(filepath.Join(st.BaseDir(), "report.pdf"))
	if string(orig) != "x" {
		t.Error("existing file was overwritten")
	}
}

func TestAssembleMissingChunkFails(t *testing.T) {
	st := newTestStore(t)
	a := NewAssembler(st)
	writeChunks(t, st, "s1", "only chunk zero")

	_, err := a.Assemble("s1", 2, "out.bin")
	if err == nil {
		t.Fatal("Assemble should fail when a chunk is missing")
	}
	if _, statErr := os.Stat(filepath.Join(st.BaseDir(), "out.bin")); !os.IsNotExist(statErr) {
		t.Error("no destination file should exist after a failed assembly")
	}
	// Temp data stays for inspection.
	if !st.Exists("s1", 0) {
		t.Error("chunk data must survive a failed assembly")
	}
}

func TestAssembleEmptySingleChunk(t *testing.T) {
	st := newTestStore(t)
	a := NewAssembler(st)
	writeChunks(t, st, "s1", "")

	dest, err := a.Assemble("s1", 1, "empty.dat")
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("assembled size = %d, want 0", info.Size())
	}
}
