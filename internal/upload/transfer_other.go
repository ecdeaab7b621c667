//go:build !linux

package upload

import (
	"io"
	"os"
)

// transferFile copies length bytes from src to dst. io.Copy lets the
// runtime pick the platform transfer primitive where one exists.
func transferFile(dst, src *os.File, length int64) (int64, error) {
	return io.Copy(dst, io.LimitReader(src, length))
}
