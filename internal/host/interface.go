// Package host isolates every syscall and netlink operation the pfq client
// performs against the data-plane device behind a narrow interface, so the
// rest of the library can be exercised against a fake host in tests without
// a real kernel module loaded.
package host

import "time"

// Host is the capability boundary between the pfq client and the
// operating system. A real implementation backs it with raw syscalls and
// netlink; tests back it with an in-memory fake.
type Host interface {
	// OpenSocket opens the control-channel socket for protocol family af,
	// socket type typ, and protocol proto, returning its file descriptor.
	OpenSocket(af, typ, proto int) (fd int, err error)

	// CloseSocket closes a file descriptor previously returned by
	// OpenSocket.
	CloseSocket(fd int) error

	// SetSockopt sets an option at the given level on fd.
	SetSockopt(fd, level, name int, value []byte) error

	// GetSockopt retrieves an option at the given level on fd into value,
	// returning the number of bytes actually written.
	GetSockopt(fd, level, name int, value []byte) (n int, err error)

	// Ifindex resolves a network device name to its kernel interface
	// index.
	Ifindex(name string) (int, error)

	// SetPromiscuous enables or disables promiscuous mode on a network
	// device.
	SetPromiscuous(name string, on bool) error

	// Mmap maps length bytes of fd at the given offset for reading and
	// writing, shared with the kernel.
	Mmap(fd int, offset int64, length int) ([]byte, error)

	// Munmap unmaps a region previously returned by Mmap.
	Munmap(b []byte) error

	// Poll waits up to timeout for fd to become readable. A negative
	// timeout blocks indefinitely. It returns true if the descriptor
	// became ready before the deadline.
	Poll(fd int, timeout time.Duration) (ready bool, err error)
}
