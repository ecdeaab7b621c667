package client

// Chunk is one positional slice of the source file. Slices never overlap and
// cover the file exactly; the last chunk may be short.
type Chunk struct {
	Index  int
	Offset int64
	Size   int64
}

// SliceFile computes the chunk plan for a file of totalSize bytes. A
// zero-byte file still yields a single empty chunk so the session has
// something to finalize.
func SliceFile(totalSize, chunkSize int64) []Chunk {
	if chunkSize <= 0 {
		chunkSize = 5 * 1024 * 1024
	}
	if totalSize <= 0 {
		return []Chunk{{Index: 0, Offset: 0, Size: 0}}
	}

	count := int((totalSize + chunkSize - 1) / chunkSize)
	chunks := make([]Chunk, count)
	for i := 0; i < count; i++ {
		offset := int64(i) * chunkSize
		size := chunkSize
		if offset+size > totalSize {
			size = totalSize - offset
		}
		chunks[i] = Chunk{Index: i, Offset: offset, Size: size}
	}
	return chunks
}
