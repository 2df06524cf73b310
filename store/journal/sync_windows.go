//go:build windows

package journal

import (
	"os"

	"golang.org/x/sys/windows"
)

// syncFile makes the file's data durable using FlushFileBuffers.
// The full parameter is ignored on Windows.
func syncFile(f *os.File, _ bool) error {
	return windows.FlushFileBuffers(windows.Handle(f.Fd()))
}
