package host

import (
	"fmt"
	"sync"
	"time"
)

// Call records a single method invocation against a FakeHost, so tests can
// assert on the exact sequence of control-channel and ring operations a
// higher-level component issued.
type Call struct {
	Op    string
	FD    int
	Level int
	Name  int
	Value []byte
}

type sockoptKey struct {
	fd, level, name int
}

// FakeHost is an in-memory Host used by this module's endpoint, control
// channel and group tests in place of a real PFQ-capable kernel. It stores whatever a SetSockopt call
// writes and, unless a Responder has been registered for that (level,
// name) pair, echoes it back on the matching GetSockopt.
type FakeHost struct {
	mu sync.Mutex

	nextFD int
	open   map[int]bool

	sockopts   map[sockoptKey][]byte
	responders map[sockoptKey]func(in []byte) ([]byte, error)

	ifindexes map[string]int
	promisc   map[string]bool

	mmaps map[int][]byte

	pollReady map[int]bool
	pollErr   error

	Calls []Call
}

// NewFakeHost returns an empty FakeHost ready for use.
func NewFakeHost() *FakeHost {
	return &FakeHost{
		nextFD:     3,
		open:       make(map[int]bool),
		sockopts:   make(map[sockoptKey][]byte),
		responders: make(map[sockoptKey]func(in []byte) ([]byte, error)),
		ifindexes:  make(map[string]int),
		promisc:    make(map[string]bool),
		mmaps:      make(map[int][]byte),
		pollReady:  make(map[int]bool),
	}
}

// SetResponder installs a handler that computes the GetSockopt response
// for a given (level, name) pair from whatever bytes the caller passed in,
// instead of the default echo-back-the-last-SetSockopt behavior. Used to
// simulate control ops whose response differs from their request, such as
// GROUP_JOIN returning an assigned gid.
func (h *FakeHost) SetResponder(level, name int, fn func(in []byte) ([]byte, error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responders[sockoptKey{0, level, name}] = fn
}

// PresetIfindex makes Ifindex(name) resolve to idx without a real netlink
// lookup.
func (h *FakeHost) PresetIfindex(name string, idx int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ifindexes[name] = idx
}

// PresetMemory installs buf as the region Mmap returns for fd, letting
// tests preload ring slots and inspect what a producer or consumer wrote
// to them after the fact.
func (h *FakeHost) PresetMemory(fd int, buf []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mmaps[fd] = buf
}

// SetPollReady controls whether Poll(fd, ...) reports fd as readable.
func (h *FakeHost) SetPollReady(fd int, ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pollReady[fd] = ready
}

// SetPollError makes every subsequent Poll call fail with err.
func (h *FakeHost) SetPollError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pollErr = err
}

func (h *FakeHost) log(c Call) {
	h.Calls = append(h.Calls, c)
}

func (h *FakeHost) OpenSocket(af, typ, proto int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fd := h.nextFD
	h.nextFD++
	h.open[fd] = true
	h.log(Call{Op: "OpenSocket", FD: fd})
	return fd, nil
}

func (h *FakeHost) CloseSocket(fd int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.open[fd] {
		return fmt.Errorf("fakehost: close of unopened fd %d", fd)
	}
	delete(h.open, fd)
	h.log(Call{Op: "CloseSocket", FD: fd})
	return nil
}

func (h *FakeHost) SetSockopt(fd, level, name int, value []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.open[fd] {
		return fmt.Errorf("fakehost: setsockopt on unopened fd %d", fd)
	}
	cp := append([]byte(nil), value...)
	h.sockopts[sockoptKey{fd, level, name}] = cp
	h.log(Call{Op: "SetSockopt", FD: fd, Level: level, Name: name, Value: cp})
	return nil
}

func (h *FakeHost) GetSockopt(fd, level, name int, value []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.open[fd] {
		return 0, fmt.Errorf("fakehost: getsockopt on unopened fd %d", fd)
	}
	req := append([]byte(nil), value...)
	h.log(Call{Op: "GetSockopt", FD: fd, Level: level, Name: name, Value: req})

	if fn := h.responders[sockoptKey{0, level, name}]; fn != nil {
		out, err := fn(req)
		if err != nil {
			return 0, err
		}
		n := copy(value, out)
		return n, nil
	}

	stored, ok := h.sockopts[sockoptKey{fd, level, name}]
	if !ok {
		return 0, fmt.Errorf("fakehost: no value set for getsockopt(%d,%d,%d)", fd, level, name)
	}
	n := copy(value, stored)
	return n, nil
}

func (h *FakeHost) Ifindex(name string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.log(Call{Op: "Ifindex"})
	idx, ok := h.ifindexes[name]
	if !ok {
		return 0, fmt.Errorf("fakehost: unknown interface %q", name)
	}
	return idx, nil
}

func (h *FakeHost) SetPromiscuous(name string, on bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.ifindexes[name]; !ok {
		return fmt.Errorf("fakehost: unknown interface %q", name)
	}
	h.promisc[name] = on
	h.log(Call{Op: "SetPromiscuous"})
	return nil
}

// Promiscuous reports the last value passed to SetPromiscuous for name.
func (h *FakeHost) Promiscuous(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.promisc[name]
}

func (h *FakeHost) Mmap(fd int, offset int64, length int) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.log(Call{Op: "Mmap", FD: fd})
	buf, ok := h.mmaps[fd]
	if !ok {
		buf = make([]byte, int(offset)+length)
		h.mmaps[fd] = buf
	}
	end := int(offset) + length
	if end > len(buf) {
		return nil, fmt.Errorf("fakehost: mmap(fd=%d, off=%d, len=%d) exceeds preset region of %d bytes", fd, offset, length, len(buf))
	}
	return buf[offset:end], nil
}

func (h *FakeHost) Munmap(b []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.log(Call{Op: "Munmap"})
	return nil
}

func (h *FakeHost) Poll(fd int, timeout time.Duration) (bool, error) {
	h.mu.Lock()
	err := h.pollErr
	ready := h.pollReady[fd]
	h.mu.Unlock()
	if err != nil {
		return false, err
	}
	return ready, nil
}

var _ Host = (*FakeHost)(nil)
