package client

import "testing"

func TestSliceFile(t *testing.T) {
	tests := []struct {
		name      string
		totalSize int64
		chunkSize int64
		wantCount int
		wantLast  int64 // size of the final chunk
	}{
		{"exact multiple", 100, 25, 4, 25},
		{"short tail", 100, 30, 4, 10},
		{"single chunk", 10, 100, 1, 10},
		{"one byte", 1, 5, 1, 1},
		{"zero byte file", 0, 5, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SliceFile(tt.totalSize, tt.chunkSize)
			if len(chunks) != tt.wantCount {
				t.Fatalf("chunk count = %d, want %d", len(chunks), tt.wantCount)
			}
			if got := chunks[len(chunks)-1].Size; got != tt.wantLast {
				t.Errorf("last chunk size = %d, want %d", got, tt.wantLast)
			}

			// Contiguous, non-overlapping coverage.
			var offset, covered int64
			for i, c := range chunks {
				if c.Index != i {
					t.Errorf("chunk %d has index %d", i, c.Index)
				}
				if c.Offset != offset {
					t.Errorf("chunk %d offset = %d, want %d", i, c.Offset, offset)
				}
				offset += c.Size
				covered += c.Size
			}
			if covered != tt.totalSize {
				t.Errorf("covered %d bytes, want %d", covered, tt.totalSize)
			}
		})
	}
}

func TestSliceFileDefaultChunkSize(t *testing.T) {
	chunks := SliceFile(12*1024*1024, 0)
	if len(chunks) != 3 {
		t.Errorf("chunk count = %d, want 3 at the 5MiB default", len(chunks))
	}
}
