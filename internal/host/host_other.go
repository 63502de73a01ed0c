//go:build !linux

package host

import (
	"fmt"
	"time"
)

// LinuxHost is unavailable on non-Linux platforms; the PFQ data plane is a
// Linux kernel facility and has no analogue elsewhere.
type LinuxHost struct{}

func New() *LinuxHost {
	return &LinuxHost{}
}

var errUnsupported = fmt.Errorf("host: pfq is only supported on linux")

func (LinuxHost) OpenSocket(af, typ, proto int) (int, error)       { return -1, errUnsupported }
func (LinuxHost) CloseSocket(fd int) error                         { return errUnsupported }
func (LinuxHost) SetSockopt(fd, level, name int, value []byte) error {
	return errUnsupported
}
func (LinuxHost) GetSockopt(fd, level, name int, value []byte) (int, error) {
	return 0, errUnsupported
}
func (LinuxHost) Ifindex(name string) (int, error)            { return 0, errUnsupported }
func (LinuxHost) SetPromiscuous(name string, on bool) error   { return errUnsupported }
func (LinuxHost) Mmap(fd int, offset int64, length int) ([]byte, error) {
	return nil, errUnsupported
}
func (LinuxHost) Munmap(b []byte) error { return errUnsupported }
func (LinuxHost) Poll(fd int, timeout time.Duration) (bool, error) {
	return false, errUnsupported
}

var _ Host = (*LinuxHost)(nil)
