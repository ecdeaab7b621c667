//go:build linux

package upload

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// transferFile moves length bytes from src to dst using copy_file_range(2),
// keeping the data in kernel space. Falls back to io.Copy when the
// filesystem does not support the syscall.
func transferFile(dst, src *os.File, length int64) (int64, error) {
	var total int64
	for total < length {
		remaining := length - total
		// copy_file_range caps a single call at ~2GB
		req := remaining
		if req > 1<<30 {
			req = 1 << 30
		}

		n, err := unix.CopyFileRange(int(src.Fd()), nil, int(dst.Fd()), nil, int(req), 0)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			// Cross-device or unsupported filesystem: finish in user space.
			if total == 0 && (err == unix.EXDEV || err == unix.ENOSYS || err == unix.EOPNOTSUPP) {
				return io.Copy(dst, src)
			}
			return total, err
		}
		if n == 0 {
			break
		}
		total += int64(n)
	}
	return total, nil
}
