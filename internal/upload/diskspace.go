package upload

import (
	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"

	"github.com/zulfikawr/freight/internal/logging"
)

const (
	// DefaultSafetyBuffer is added to every disk-space request so a write
	// never exhausts the filesystem outright.
	DefaultSafetyBuffer = 50 * 1024 * 1024
	// DefaultMinFreeSpace is the absolute floor of usable space to keep.
	DefaultMinFreeSpace = 100 * 1024 * 1024
)

// diskUsage is swapped out by tests to simulate a full filesystem.
var diskUsage = func(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// checkDiskSpace verifies that path has room for required bytes plus the
// safety buffer while keeping minFree usable. Returns a KindDiskSpace error
// when it does not; an unreadable filesystem is treated as full.
func checkDiskSpace(path string, required, safetyBuffer, minFree int64) error {
	free, err := diskUsage(path)
	if err != nil {
		logging.Warn("Disk space probe failed, refusing write",
			zap.String("path", path), zap.Error(err))
		return newError(KindDiskSpace, "", "disk_check",
			"unable to determine usable disk space", err)
	}

	usable := int64(free)
	if usable < required+safetyBuffer || usable < minFree {
		e := newError(KindDiskSpace, "", "disk_check", "insufficient disk space", nil)
		e.withDetail("requiredBytes", required)
		e.withDetail("availableBytes", usable)
		return e
	}
	return nil
}
