package upload

import (
	"testing"
)

func TestSessionAddChunkIdempotent(t *testing.T) {
	s := newSession("sess-1", 3)

	if !s.AddChunk(0, 100) {
		t.Error("first AddChunk(0) should report new")
	}
	if s.AddChunk(0, 100) {
		t.Error("replayed AddChunk(0) should not report new")
	}
	if got := s.Status().UploadedBytes; got != 100 {
		t.Errorf("uploadedBytes = %d, want 100 (replay must not double-count)", got)
	}
	if got := s.ReceivedCount(); got != 1 {
		t.Errorf("ReceivedCount = %d, want 1", got)
	}
}

func TestSessionMissingChunks(t *testing.T) {
	s := newSession("sess-2", 5)
	s.AddChunk(0, 10)
	s.AddChunk(2, 10)
	s.AddChunk(4, 10)

	missing := s.MissingChunks()
	want := []int{1, 3}
	if len(missing) != len(want) {
		t.Fatalf("MissingChunks = %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Errorf("MissingChunks[%d] = %d, want %d", i, missing[i], want[i])
		}
	}
	if got := s.NextExpectedChunk(); got != 1 {
		t.Errorf("NextExpectedChunk = %d, want 1", got)
	}
}

func TestSessionNextExpectedChunkWhenComplete(t *testing.T) {
	s := newSession("sess-3", 2)
	s.AddChunk(0, 1)
	s.AddChunk(1, 1)

	if got := s.NextExpectedChunk(); got != 2 {
		t.Errorf("NextExpectedChunk = %d, want totalChunks (2)", got)
	}
	if !s.IsComplete() {
		t.Error("session with all chunks should be complete")
	}
	if s.CanResume() {
		t.Error("complete session must not be resumable")
	}
}

func TestSessionMetadataFirstWriteWins(t *testing.T) {
	s := newSession("sess-4", 1)
	s.SetMetadata("first.txt", 1000, 100)
	s.SetMetadata("second.txt", 2000, 200)

	if got := s.FileName(); got != "first.txt" {
		t.Errorf("FileName = %q, want first.txt", got)
	}
	st := s.Status()
	if st.FileSize != 1000 {
		t.Errorf("FileSize = %d, want 1000", st.FileSize)
	}
	if st.ChunkSize != 100 {
		t.Errorf("ChunkSize = %d, want 100", st.ChunkSize)
	}
}

func TestSessionProgressByteBasedWhenSizeKnown(t *testing.T) {
	s := newSession("sess-5", 4)
	s.SetMetadata("f.bin", 400, 100)
	s.AddChunk(0, 100)

	if got := s.ProgressPercentage(); got != 25.0 {
		t.Errorf("ProgressPercentage = %.1f, want 25.0 (byte-based)", got)
	}
}

func TestSessionProgressChunkBasedWhenSizeUnknown(t *testing.T) {
	s := newSession("sess-6", 4)
	s.AddChunk(0, 123)
	s.AddChunk(1, 123)

	if got := s.ProgressPercentage(); got != 50.0 {
		t.Errorf("ProgressPercentage = %.1f, want 50.0 (chunk-based)", got)
	}
}

func TestSessionResumeRecord(t *testing.T) {
	s := newSession("sess-7", 3)
	s.SetMetadata("video.mp4", 300, 100)
	s.AddChunk(1, 100)

	rec := s.ResumeRecord()
	if !rec.CanResume {
		t.Error("active session with outstanding chunks must be resumable")
	}
	if rec.NextExpectedChunk != 0 {
		t.Errorf("NextExpectedChunk = %d, want 0", rec.NextExpectedChunk)
	}
	if len(rec.MissingChunks) != 2 {
		t.Errorf("MissingChunks = %v, want two entries", rec.MissingChunks)
	}
	if len(rec.ReceivedChunks) != 1 || rec.ReceivedChunks[0] != 1 {
		t.Errorf("ReceivedChunks = %v, want [1]", rec.ReceivedChunks)
	}
}

func TestSessionMarkFailed(t *testing.T) {
	s := newSession("sess-8", 2)
	s.MarkFailed("disk exploded")

	if got := s.State(); got != StateFailed {
		t.Errorf("State = %v, want StateFailed", got)
	}
	st := s.Status()
	if !st.Failed || st.ErrorMessage != "disk exploded" {
		t.Errorf("Status = %+v, want failed with message", st)
	}
	if s.CanResume() {
		t.Error("failed session must not be resumable")
	}
}
