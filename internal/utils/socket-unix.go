//go:build unix

package utils

import "syscall"

// setSocketBuffers sizes the kernel buffers of a fresh connection to match
// the per segment copy buffer.
func setSocketBuffers(fd uintptr, size int) error {
	if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_RCVBUF, size); err != nil {
		return err
	}
	return syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_SNDBUF, size)
}
