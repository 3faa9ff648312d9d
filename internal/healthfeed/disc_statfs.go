//go:build linux || darwin || freebsd

package healthfeed

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// discUsage returns the size of the filesystem holding path and the bytes
// available to unprivileged users.
func discUsage(path string) (total, free int64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := int64(st.Bsize)
	return int64(st.Blocks) * bsize, int64(st.Bavail) * bsize, nil
}
