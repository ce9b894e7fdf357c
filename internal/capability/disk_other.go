//go:build !linux

package capability

import (
	"fmt"
	"runtime"
)

// Statfs is only implemented on Linux.
func Statfs(path string) (DiskStats, error) {
	return DiskStats{}, fmt.Errorf("disk_space is not supported on %s", runtime.GOOS)
}
