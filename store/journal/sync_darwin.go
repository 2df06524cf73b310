//go:build darwin

package journal

import (
	"os"

	"golang.org/x/sys/unix"
)

// syncFile makes the file's data durable.
//
// On macOS, if full is true, use F_FULLFSYNC so the data reaches the
// physical disk and not just the drive cache. Otherwise use fsync, since
// macOS has no fdatasync.
func syncFile(f *os.File, full bool) error {
	if full {
		_, err := unix.FcntlInt(f.Fd(), unix.F_FULLFSYNC, 0)
		return err
	}
	return unix.Fsync(int(f.Fd()))
}
