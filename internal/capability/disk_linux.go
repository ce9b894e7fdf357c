//go:build linux

package capability

import "golang.org/x/sys/unix"

// Statfs reads filesystem statistics with statfs(2).
func Statfs(path string) (DiskStats, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return DiskStats{}, err
	}
	frsize := uint64(st.Frsize)
	if frsize == 0 {
		frsize = uint64(st.Bsize)
	}
	return DiskStats{Blocks: st.Blocks, Avail: st.Bavail, FragmentSize: frsize}, nil
}
