//go:build linux

package host

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// LinuxHost is the real Host implementation, backed by raw syscalls via
// golang.org/x/sys/unix and interface control via netlink.
type LinuxHost struct{}

// New returns the real, syscall-backed Host for the running kernel.
func New() *LinuxHost {
	return &LinuxHost{}
}

func (LinuxHost) OpenSocket(af, typ, proto int) (int, error) {
	fd, err := unix.Socket(af, typ, proto)
	if err != nil {
		return -1, fmt.Errorf("host: socket(%d,%d,%d): %w", af, typ, proto, err)
	}
	return fd, nil
}

func (LinuxHost) CloseSocket(fd int) error {
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("host: close(%d): %w", fd, err)
	}
	return nil
}

func (LinuxHost) SetSockopt(fd, level, name int, value []byte) error {
	if len(value) == 0 {
		return unix.SetsockoptInt(fd, level, name, 0)
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_SETSOCKOPT,
		uintptr(fd),
		uintptr(level),
		uintptr(name),
		uintptr(unsafe.Pointer(&value[0])),
		uintptr(len(value)),
		0,
	)
	if errno != 0 {
		return fmt.Errorf("host: setsockopt(%d,%d,%d): %w", fd, level, name, errno)
	}
	return nil
}

func (LinuxHost) GetSockopt(fd, level, name int, value []byte) (int, error) {
	n := len(value)
	if n == 0 {
		return 0, nil
	}
	vallen := uint32(n)
	_, _, errno := unix.Syscall6(
		unix.SYS_GETSOCKOPT,
		uintptr(fd),
		uintptr(level),
		uintptr(name),
		uintptr(unsafe.Pointer(&value[0])),
		uintptr(unsafe.Pointer(&vallen)),
		0,
	)
	if errno != 0 {
		return 0, fmt.Errorf("host: getsockopt(%d,%d,%d): %w", fd, level, name, errno)
	}
	return int(vallen), nil
}

func (LinuxHost) Ifindex(name string) (int, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return 0, fmt.Errorf("host: LinkByName(%q): %w", name, err)
	}
	return link.Attrs().Index, nil
}

func (LinuxHost) SetPromiscuous(name string, on bool) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("host: LinkByName(%q): %w", name, err)
	}
	if on {
		err = netlink.SetPromiscOn(link)
	} else {
		err = netlink.SetPromiscOff(link)
	}
	if err != nil {
		return fmt.Errorf("host: SetPromisc(%q, %v): %w", name, on, err)
	}
	return nil
}

func (LinuxHost) Mmap(fd int, offset int64, length int) ([]byte, error) {
	b, err := unix.Mmap(fd, offset, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("host: mmap(fd=%d, off=%d, len=%d): %w", fd, offset, length, err)
	}
	return b, nil
}

func (LinuxHost) Munmap(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("host: munmap: %w", err)
	}
	return nil
}

func (LinuxHost) Poll(fd int, timeout time.Duration) (bool, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout.Milliseconds())
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, fmt.Errorf("host: poll(fd=%d): %w", fd, err)
	}
	return n > 0 && fds[0].Revents&unix.POLLIN != 0, nil
}

var _ Host = (*LinuxHost)(nil)
