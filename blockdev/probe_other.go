//go:build !linux

package blockdev

import "os"

// probeBlockSize on non-Linux hosts has no portable ioctl equivalent wired
// up here (Windows would use IOCTL_STORAGE_QUERY_PROPERTY with
// IOCTL_DISK_GET_DRIVE_GEOMETRY fallback, per §6); it is treated as an
// external collaborator and we fall back directly to defaultBlockSize, the
// same "plain file" fallback Linux uses once its ioctls fail.
func probeBlockSize(f *os.File) (int, error) {
	return defaultBlockSize, nil
}
