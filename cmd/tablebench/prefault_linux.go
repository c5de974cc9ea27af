//go:build linux

package main

import "golang.org/x/sys/unix"

// prefaultRead asks the kernel to start reading the mapped word file in
// before the scan touches it. Best-effort: errors are ignored.
func prefaultRead(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_WILLNEED)
}
