//go:build linux

package blockdev

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// probeBlockSize follows §6's block-size probe capability for Linux: the
// physical sector size via BLKBSZGET, falling back to the logical sector
// size (BLKSSZGET), then the filesystem's preferred I/O block size, then
// defaultBlockSize. Both ioctls fail with ENOTTY on plain files, which is
// the expected, non-fatal path for image files rather than raw devices.
func probeBlockSize(f *os.File) (int, error) {
	if bs, err := unix.IoctlGetInt(int(f.Fd()), unix.BLKBSZGET); err == nil && bs > 0 {
		return bs, nil
	}
	if ss, err := unix.IoctlGetInt(int(f.Fd()), unix.BLKSSZGET); err == nil && ss > 0 {
		return ss, nil
	}
	if st, err := f.Stat(); err == nil {
		if sys, ok := st.Sys().(*syscall.Stat_t); ok && sys.Blksize > 0 {
			return int(sys.Blksize), nil
		}
	}
	return defaultBlockSize, nil
}
