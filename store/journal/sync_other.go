//go:build !linux && !darwin && !windows

package journal

import "os"

// syncFile falls back to fsync where x/sys offers nothing narrower.
func syncFile(f *os.File, _ bool) error {
	return f.Sync()
}
