package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/zulfikawr/freight/internal/logging"
)

// Assembler streams a complete chunk set into a single destination file in
// ascending index order. Chunk paths are borrowed read-only from the store.
type Assembler struct {
	store *Store
}

// NewAssembler returns an assembler over the given chunk store.
func NewAssembler(store *Store) *Assembler {
	return &Assembler{store: store}
}

// Assemble concatenates chunks [0, totalChunks) for sessionID into a file in
// the store's base directory, named from fileName (or <sessionID>.bin when
// empty, with _1, _2, ... appended on collision). At most one chunk's worth
// of data is in flight at a time; the per-chunk copy uses a file-to-file
// zero-copy primitive where the platform has one. On failure the partial
// destination is deleted and the chunk set is left intact for inspection.
func (a *Assembler) Assemble(sessionID string, totalChunks int, fileName string) (string, error) {
	paths, err := a.store.ListAll(sessionID, totalChunks)
	if err != nil {
		return "", err
	}

	var totalSize int64
	for i := range paths {
		n, err := a.store.Size(sessionID, i)
		if err != nil {
			return "", err
		}
		totalSize += n
	}

	if err := checkDiskSpace(a.store.BaseDir(), totalSize, a.store.safetyBuffer, a.store.minFree); err != nil {
		if ue := AsError(err); ue != nil {
			ue.SessionID = sessionID
			ue.Op = "assemble"
		}
		return "", err
	}

	dest := a.resolveDestination(fileName, sessionID)

	logging.Info("Assembling chunks",
		zap.String("session_id", sessionID),
		zap.Int("chunks", totalChunks),
		zap.Int64("total_bytes", totalSize),
		zap.String("dest", dest))

	if err := a.concat(sessionID, paths, dest); err != nil {
		// Remove the partial destination; temp data stays for post-mortem.
		if rmErr := os.Remove(dest); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Warn("Failed to remove partial destination",
				zap.String("dest", dest), zap.Error(rmErr))
		}
		return "", err
	}

	if err := a.Validate(sessionID, totalChunks, dest); err != nil {
		if rmErr := os.Remove(dest); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Warn("Failed to remove invalid destination",
				zap.String("dest", dest), zap.Error(rmErr))
		}
		return "", err
	}

	return dest, nil
}

func (a *Assembler) concat(sessionID string, paths []string, dest string) error {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return newError(KindAssembly, sessionID, "assemble",
			"failed to create destination file", err)
	}
	defer func() { _ = out.Close() }()

	for i, path := range paths {
		in, err := os.Open(path)
		if err != nil {
			return newError(KindAssembly, sessionID, "assemble",
				fmt.Sprintf("chunk %d missing during assembly", i), err)
		}

		info, err := in.Stat()
		if err != nil {
			_ = in.Close()
			return newError(KindAssembly, sessionID, "assemble",
				fmt.Sprintf("failed to stat chunk %d", i), err)
		}
		want := info.Size()

		n, err := transferFile(out, in, want)
		_ = in.Close()
		if err != nil {
			return newError(KindAssembly, sessionID, "assemble",
				fmt.Sprintf("failed to transfer chunk %d", i), err)
		}
		if n != want {
			e := newError(KindAssembly, sessionID, "assemble",
				fmt.Sprintf("incomplete transfer for chunk %d: expected %d bytes, moved %d", i, want, n), nil)
			e.withDetail("chunk", i)
			return e
		}

		logging.Debug("Transferred chunk",
			zap.String("session_id", sessionID),
			zap.Int("chunk", i),
			zap.Int64("bytes", n))
	}

	return nil
}

// Validate re-checks that the assembled file's size equals the sum of the
// chunk sizes.
func (a *Assembler) Validate(sessionID string, totalChunks int, dest string) error {
	info, err := os.Stat(dest)
	if err != nil {
		return newError(KindAssembly, sessionID, "validate",
			"assembled file does not exist", err)
	}

	expected, err := a.store.TotalSize(sessionID, totalChunks)
	if err != nil {
		return err
	}

	if info.Size() != expected {
		e := newError(KindAssembly, sessionID, "validate",
			fmt.Sprintf("assembled size mismatch: expected %d bytes, got %d", expected, info.Size()), nil)
		e.withDetail("expectedBytes", expected)
		e.withDetail("actualBytes", info.Size())
		return e
	}
	return nil
}

// resolveDestination picks a non-existent path inside the base directory,
// appending _1, _2, ... to the base name on collision.
func (a *Assembler) resolveDestination(fileName, sessionID string) string {
	name := strings.TrimSpace(fileName)
	if name == "" {
		name = sessionID + ".bin"
	}

	dest := filepath.Join(a.store.BaseDir(), name)
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		return dest
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(a.store.BaseDir(), fmt.Sprintf("%s_%d%s", base, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
