// Package pfq is a userspace client for a PFQ-style packet capture and
// injection facility: a kernel data plane that hands packets to userspace
// through a double-buffer mapped-protocol ring instead of a syscall per
// packet, with a synchronous control channel for geometry, group
// membership, and steering.
package pfq

import (
	"fmt"
	"sync"
	"time"

	"github.com/ymaxgit/go-pfq/internal/constants"
	"github.com/ymaxgit/go-pfq/internal/ctrl"
	"github.com/ymaxgit/go-pfq/internal/dbmp"
	"github.com/ymaxgit/go-pfq/internal/group"
	"github.com/ymaxgit/go-pfq/internal/host"
	"github.com/ymaxgit/go-pfq/internal/logging"
	"github.com/ymaxgit/go-pfq/internal/tx"
	"github.com/ymaxgit/go-pfq/internal/uapi"
)

// Options configures an Endpoint at Open time. A nil Options (or a nil
// field within one) falls back to the library default.
type Options struct {
	Logger   *logging.Logger
	Observer Observer
}

func (o *Options) logger() *logging.Logger {
	if o != nil && o.Logger != nil {
		return o.Logger
	}
	return logging.Default()
}

func (o *Options) observer() Observer {
	if o != nil && o.Observer != nil {
		return o.Observer
	}
	return NoOpObserver{}
}

// Endpoint is one open PFQ socket: its control channel, its receive ring
// once enabled, and whatever transmit ring and group membership it has
// acquired along the way.
type Endpoint struct {
	mu sync.Mutex

	ctrl   *ctrl.Controller
	host   host.Host
	group  *group.Manager
	logger *logging.Logger

	observer Observer
	metrics  *Metrics

	id             int32
	caplen, offset int
	slots          int
	slotSize       int

	enabled bool
	closed  bool

	region []byte
	rx     *dbmp.Ring
	cursor *dbmp.Cursor

	txRegion []byte
	tx       *tx.Ring
}

// Open opens a socket and joins a fresh, privately-policied group with the
// default class mask, the arrangement most callers want: every packet
// matching that class reaches this socket and no other.
func Open(caplen, offset, slots int, opts *Options) (*Endpoint, error) {
	return OpenGroup(constants.AnyGroup, constants.PolicyPrivate, constants.DefaultClassMask, caplen, offset, slots, opts)
}

// OpenNoGroup opens a socket without joining any group, for callers that
// will bind directly to a device and queue instead of steering through
// group classification.
func OpenNoGroup(caplen, offset, slots int, opts *Options) (*Endpoint, error) {
	return open(constants.PolicyUndefined, constants.AnyGroup, 0, caplen, offset, slots, opts)
}

// OpenGroup opens a socket and joins gid (or a fresh group, if gid is
// constants.AnyGroup) under policy with the given class mask.
func OpenGroup(gid int32, policy int32, classMask uint64, caplen, offset, slots int, opts *Options) (*Endpoint, error) {
	return open(policy, gid, classMask, caplen, offset, slots, opts)
}

func open(policy, gid int32, classMask uint64, caplen, offset, slots int, opts *Options) (*Endpoint, error) {
	if caplen <= 0 || slots <= 0 {
		return nil, NewError("Open", ErrCodeInvalidParams, "caplen and slots must be positive")
	}

	h := host.New()
	c, err := ctrl.Open(h)
	if err != nil {
		return nil, WrapError("Open", err)
	}
	c.SetLogger(opts.logger())

	ep, err := newEndpoint(c, h, policy, gid, classMask, caplen, offset, slots, opts)
	if err != nil {
		c.Close()
		return nil, err
	}
	return ep, nil
}

// openWithHost opens the control channel on an arbitrary host.Host and
// builds an Endpoint on it, the seam endpoint_test.go uses to drive the
// whole lifecycle against host.FakeHost without a real kernel module.
func openWithHost(h host.Host, policy, gid int32, classMask uint64, caplen, offset, slots int, opts *Options) (*Endpoint, error) {
	c, err := ctrl.Open(h)
	if err != nil {
		return nil, WrapError("Open", err)
	}
	c.SetLogger(opts.logger())
	ep, err := newEndpoint(c, h, policy, gid, classMask, caplen, offset, slots, opts)
	if err != nil {
		c.Close()
		return nil, err
	}
	return ep, nil
}

func newEndpoint(c *ctrl.Controller, h host.Host, policy, gid int32, classMask uint64, caplen, offset, slots int, opts *Options) (*Endpoint, error) {
	id, err := c.GetID()
	if err != nil {
		return nil, WrapError("Open", err)
	}
	if err := c.SetSlots(slots); err != nil {
		return nil, WrapError("Open", err)
	}
	if err := c.SetCaplen(caplen); err != nil {
		return nil, WrapError("Open", err)
	}
	if err := c.SetOffset(offset); err != nil {
		return nil, WrapError("Open", err)
	}

	g := group.New(c, h)
	if policy != constants.PolicyUndefined {
		if _, err := g.Join(gid, policy, classMask); err != nil {
			return nil, WrapError("Open", err)
		}
	}

	ep := &Endpoint{
		ctrl:     c,
		host:     h,
		group:    g,
		logger:   opts.logger(),
		observer: opts.observer(),
		metrics:  NewMetrics(),
		id:       id,
		caplen:   caplen,
		offset:   offset,
		slots:    slots,
		slotSize: constants.Align8(uapi.HeaderSize + caplen),
	}
	return ep, nil
}

// ID returns the queue id the kernel assigned to this socket.
func (e *Endpoint) ID() int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id
}

// GID returns the socket's current default group: the group assigned by
// the most recent successful join (at Open or through JoinGroup), or
// constants.AnyGroup if none has been joined or after LeaveGroup.
func (e *Endpoint) GID() int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.group.GID()
}

// IsEnabled reports whether the receive/transmit rings are currently
// mapped.
func (e *Endpoint) IsEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Metrics returns the endpoint's counters.
func (e *Endpoint) Metrics() *Metrics {
	return e.metrics
}

// SetObserver overrides the observer notified on every Read/Dispatch/Send.
func (e *Endpoint) SetObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if o != nil {
		e.observer = o
	}
}

// Bind attaches (dev, queue) to this socket's default group.
func (e *Endpoint) Bind(dev string, queue int32) error {
	if err := e.group.Bind(dev, queue); err != nil {
		return WrapError("Bind", err)
	}
	return nil
}

// Unbind detaches (dev, queue) from this socket's default group.
func (e *Endpoint) Unbind(dev string, queue int32) error {
	if err := e.group.Unbind(dev, queue); err != nil {
		return WrapError("Unbind", err)
	}
	return nil
}

// JoinGroup joins an additional group. The assigned gid becomes the
// socket's default group for Bind, Unbind and LeaveGroup.
func (e *Endpoint) JoinGroup(gid int32, policy int32, classMask uint64) (int32, error) {
	assigned, err := e.group.Join(gid, policy, classMask)
	if err != nil {
		return 0, WrapError("JoinGroup", err)
	}
	return assigned, nil
}

// SetPromiscuous turns promiscuous mode on or off for the network device
// dev. It is independent of Enable/Disable.
func (e *Endpoint) SetPromiscuous(dev string, on bool) error {
	if err := e.host.SetPromiscuous(dev, on); err != nil {
		return WrapError("SetPromiscuous", err)
	}
	return nil
}

// LeaveGroup leaves the default group.
func (e *Endpoint) LeaveGroup() error {
	if err := e.group.Leave(); err != nil {
		return WrapError("LeaveGroup", err)
	}
	return nil
}

// SteeringFunction attaches a named kernel steering function to gid.
func (e *Endpoint) SteeringFunction(gid int32, name string) error {
	if err := e.group.SteeringFunction(gid, name); err != nil {
		return WrapError("SteeringFunction", err)
	}
	return nil
}

// SetGroupState uploads opaque per-group state, forwarded to gid's
// steering function without interpretation.
func (e *Endpoint) SetGroupState(gid int32, data []byte) error {
	if err := e.group.SetState(gid, data); err != nil {
		return WrapError("SetGroupState", err)
	}
	return nil
}

// SetCaplen changes the per-packet capture length. It is rejected while
// the queue is enabled, matching the original library's refusal to
// change ring geometry under a live mapping.
func (e *Endpoint) SetCaplen(caplen int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enabled {
		return NewError("SetCaplen", ErrCodeGeometryLocked, "cannot change caplen while enabled")
	}
	if err := e.ctrl.SetCaplen(caplen); err != nil {
		return WrapError("SetCaplen", err)
	}
	e.caplen = caplen
	e.slotSize = constants.Align8(uapi.HeaderSize + caplen)
	return nil
}

// SetSlots changes the ring's slot count. It is rejected while the queue
// is enabled.
func (e *Endpoint) SetSlots(slots int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enabled {
		return NewError("SetSlots", ErrCodeGeometryLocked, "cannot change slots while enabled")
	}
	if err := e.ctrl.SetSlots(slots); err != nil {
		return WrapError("SetSlots", err)
	}
	e.slots = slots
	return nil
}

// SetOffset changes the per-packet capture offset. It is rejected while
// the queue is enabled.
func (e *Endpoint) SetOffset(offset int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enabled {
		return NewError("SetOffset", ErrCodeGeometryLocked, "cannot change offset while enabled")
	}
	if err := e.ctrl.SetOffset(offset); err != nil {
		return WrapError("SetOffset", err)
	}
	e.offset = offset
	return nil
}

// Enable maps the receive (and, if room allows, transmit) ring and starts
// delivering packets to this socket. The sequence mirrors the original
// library exactly: toggle the queue on, ask the kernel how large the
// mapped region is, then mmap it — in that order, since the size is only
// meaningful once the toggle has taken effect.
func (e *Endpoint) Enable() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.enabled {
		return NewError("Enable", ErrCodeAlreadyEnabled, "queue already enabled")
	}

	if err := e.ctrl.ToggleQueue(true); err != nil {
		return WrapError("Enable", err)
	}

	memSize, err := e.ctrl.GetQueueMem()
	if err != nil {
		e.ctrl.ToggleQueue(false)
		return WrapError("Enable", err)
	}

	region, err := e.host.Mmap(e.ctrl.FD(), 0, int(memSize))
	if err != nil {
		e.ctrl.ToggleQueue(false)
		return WrapError("Enable", err)
	}

	rxSize := dbmp.RegionSize(e.slots, e.slotSize)
	if int64(len(region)) < rxSize {
		e.host.Munmap(region)
		e.ctrl.ToggleQueue(false)
		return NewError("Enable", ErrCodeInsufficientMem, "mapped region too small for receive ring")
	}

	rx, err := dbmp.NewRing(region[:rxSize], e.slots, e.slotSize, e.offset)
	if err != nil {
		e.host.Munmap(region)
		e.ctrl.ToggleQueue(false)
		return WrapError("Enable", err)
	}

	e.region = region
	e.rx = rx
	e.cursor = nil

	// Reserve an equally-sized second half for transmit, when the mapped
	// region has room for one; if it doesn't, StartTxThread, StartTxDeferred
	// and SendAsync report ErrCodeNotEnabled later.
	txSize := dbmp.RegionSize(e.slots, e.slotSize)
	if int64(len(region)) >= rxSize+txSize {
		txRegion := region[rxSize : rxSize+txSize]
		txRing, err := dbmp.NewRing(txRegion, e.slots, e.slotSize, e.offset)
		if err == nil {
			e.txRegion = txRegion
			e.tx = tx.NewRing(txRing, e.ctrl.TxFlush, e.ctrl.TxWakeup)
		}
	}

	e.enabled = true
	e.logger.Info("queue enabled", "id", e.id, "slots", e.slots, "slotSize", e.slotSize, "memSize", memSize)
	return nil
}

// Disable unmaps the ring and turns the queue off, in the reverse order
// of Enable: munmap before the toggle, matching the original library.
func (e *Endpoint) Disable() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return NewError("Disable", ErrCodeNotEnabled, "queue not enabled")
	}

	if e.tx != nil {
		e.tx.Stop()
	}

	if err := e.host.Munmap(e.region); err != nil {
		return WrapError("Disable", err)
	}
	if err := e.ctrl.ToggleQueue(false); err != nil {
		return WrapError("Disable", err)
	}

	e.region = nil
	e.rx = nil
	e.cursor = nil
	e.txRegion = nil
	e.tx = nil
	e.enabled = false
	return nil
}

// Close disables the queue if still enabled, releases the control
// socket, and stops the endpoint's metrics clock. A clean close returns
// nil, and a second Close returns ErrCodeNotOpen. The other methods do not
// check for a closed endpoint: Read and Dispatch report ErrCodeNotEnabled,
// calls that reach the control socket fail with the error the closed
// socket produces, and accessors such as ID and GID return their last
// values.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return NewError("Close", ErrCodeNotOpen, "queue not open")
	}
	enabled := e.enabled
	e.mu.Unlock()

	if enabled {
		if err := e.Disable(); err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.metrics.Stop()
	if err := e.ctrl.Close(); err != nil {
		return WrapError("Close", err)
	}
	return nil
}

// MemSize returns the total byte size of the mapped queue region, valid
// only once Enable has succeeded.
func (e *Endpoint) MemSize() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int64(len(e.region))
}

// Stats returns this socket's receive/transmit counters.
func (e *Endpoint) Stats() (uapi.Stats, error) {
	s, err := e.ctrl.GetStats()
	if err != nil {
		return s, WrapError("Stats", err)
	}
	return s, nil
}

// GroupStats returns gid's per-group receive/transmit counters.
func (e *Endpoint) GroupStats(gid int32) (uapi.Stats, error) {
	s, err := e.group.Stats(gid)
	if err != nil {
		return s, WrapError("GroupStats", err)
	}
	return s, nil
}

// Read performs one receive-side drain, blocking for up to timeout if the
// ring looks under-full, and returns a Cursor over whichever half of the
// double buffer was just swapped out. A negative timeout blocks
// indefinitely.
func (e *Endpoint) Read(timeout time.Duration) (*dbmp.Cursor, error) {
	e.mu.Lock()
	if !e.enabled {
		e.mu.Unlock()
		return nil, NewError("Read", ErrCodeNotEnabled, "queue not enabled")
	}
	ring := e.rx
	fd := e.ctrl.FD()
	e.mu.Unlock()

	start := time.Now()
	cur, err := ring.Read(func() error {
		_, perr := e.host.Poll(fd, timeout)
		return perr
	})
	latency := uint64(time.Since(start).Nanoseconds())

	if err != nil {
		e.observer.ObserveRead(0, 0, latency, false)
		return nil, WrapError("Read", err)
	}

	n := cur.End() - cur.Begin()
	var bytes uint64
	for i := cur.Begin(); i < cur.End(); i = cur.Next(i) {
		bytes += uint64(cur.HeaderAt(i).Caplen)
	}
	e.observer.ObserveRead(n, bytes, latency, true)
	e.observer.ObserveQueueLen(uint32(n))
	return cur, nil
}

// Recv drains one ring swap into buf as raw slot bytes (header and
// payload together, slotSize bytes per slot), matching the original
// library's whole-region memcpy. buf must be at least slots*slotSize
// bytes — the bound checked here is the full ring capacity, which can
// be larger than the number of bytes actually written when the ring
// wasn't full; it never writes more than that bound.
func (e *Endpoint) Recv(buf []byte, timeout time.Duration) (int, error) {
	e.mu.Lock()
	need := e.slots * e.slotSize
	e.mu.Unlock()
	if len(buf) < need {
		return 0, NewError("Recv", ErrCodeInvalidParams, fmt.Sprintf("buffer too small: need %d bytes, have %d", need, len(buf)))
	}

	cur, err := e.Read(timeout)
	if err != nil {
		return 0, err
	}

	n := cur.End() - cur.Begin()
	e.mu.Lock()
	slotSize := e.slotSize
	e.mu.Unlock()
	for i := 0; i < n; i++ {
		copy(buf[i*slotSize:(i+1)*slotSize], cur.RawSlot(i))
	}
	return n, nil
}

// Dispatch drains up to maxPackets packets (or every ready packet, if
// maxPackets <= 0) to handler, persisting its cursor position across
// calls so a bounded call can resume a partially drained ring swap on
// its next invocation instead of dropping the remainder.
func (e *Endpoint) Dispatch(handler func(h uapi.PacketHeader, data []byte), timeout time.Duration, maxPackets int) (int, error) {
	e.mu.Lock()
	cursor := e.cursor
	e.mu.Unlock()

	if cursor == nil || cursor.Pos >= cursor.End() {
		var err error
		cursor, err = e.Read(timeout)
		if err != nil {
			return 0, err
		}
	}

	start := time.Now()
	count := 0
	var bytes uint64
	for cursor.Pos < cursor.End() && (maxPackets <= 0 || count < maxPackets) {
		i := cursor.Pos
		for !cursor.Ready(i) {
			cursor.Yield()
		}
		h := cursor.HeaderAt(i)
		handler(h, cursor.DataAt(i))
		bytes += uint64(h.Caplen)
		count++
		cursor.Pos = cursor.Next(i)
	}

	e.mu.Lock()
	e.cursor = cursor
	e.mu.Unlock()

	latency := uint64(time.Since(start).Nanoseconds())
	e.observer.ObserveRead(count, bytes, latency, true)
	return count, nil
}

// BindTx attaches the transmit ring to (dev, queue).
func (e *Endpoint) BindTx(dev string, queue int32) error {
	idx, err := e.host.Ifindex(dev)
	if err != nil {
		return WrapError("BindTx", err)
	}
	b := uapi.Binding{GID: constants.AnyGroup, Ifindex: int32(idx), Queue: queue}
	if err := e.ctrl.TxBind(b); err != nil {
		return WrapError("BindTx", err)
	}
	return nil
}

// StartTxThread starts the transmit path in threaded mode, optionally
// pinned to a NUMA node, matching pfq_start_tx_thread.
func (e *Endpoint) StartTxThread(node int) error {
	e.mu.Lock()
	txRing := e.tx
	e.mu.Unlock()
	if txRing == nil {
		return NewError("StartTxThread", ErrCodeNotEnabled, "no transmit ring mapped")
	}
	if err := e.ctrl.TxStart(constants.TxThreaded, node); err != nil {
		return WrapError("StartTxThread", err)
	}
	if err := txRing.StartThreaded(node); err != nil {
		return WrapError("StartTxThread", err)
	}
	return nil
}

// StartTxDeferred starts the transmit path in deferred mode, where Flush
// must be called explicitly to drain queued slots.
func (e *Endpoint) StartTxDeferred() error {
	e.mu.Lock()
	txRing := e.tx
	e.mu.Unlock()
	if txRing == nil {
		return NewError("StartTxDeferred", ErrCodeNotEnabled, "no transmit ring mapped")
	}
	if err := e.ctrl.TxStart(constants.TxDeferred, 0); err != nil {
		return WrapError("StartTxDeferred", err)
	}
	return nil
}

// StopTxThread stops a threaded transmit worker started by StartTxThread.
func (e *Endpoint) StopTxThread() error {
	e.mu.Lock()
	txRing := e.tx
	e.mu.Unlock()
	if txRing == nil {
		return nil
	}
	if err := txRing.Stop(); err != nil {
		return WrapError("StopTxThread", err)
	}
	if err := e.ctrl.TxStop(); err != nil {
		return WrapError("StopTxThread", err)
	}
	return nil
}

// SendAsync enqueues payload onto the transmit ring without blocking. It
// reports false, with no error, when the active half is full; callers
// should Flush (deferred mode) or rely on the background wake loop
// (threaded mode) and retry.
func (e *Endpoint) SendAsync(payload []byte) (bool, error) {
	e.mu.Lock()
	txRing := e.tx
	e.mu.Unlock()
	if txRing == nil {
		return false, NewError("SendAsync", ErrCodeNotEnabled, "no transmit ring mapped")
	}

	start := time.Now()
	ok, err := txRing.Enqueue(payload)
	latency := uint64(time.Since(start).Nanoseconds())
	if err != nil {
		e.observer.ObserveSend(0, latency, false)
		return false, WrapError("SendAsync", err)
	}
	if ok {
		e.observer.ObserveSend(uint64(len(payload)), latency, true)
	}
	return ok, nil
}

// Send enqueues payload and immediately signals the consumer, matching
// the original library's synchronous single-packet send: deferred mode
// flushes, threaded mode wakes the worker.
func (e *Endpoint) Send(payload []byte) error {
	ok, err := e.SendAsync(payload)
	if err != nil {
		return err
	}
	if !ok {
		return NewError("Send", ErrCodeInsufficientMem, "transmit ring full")
	}

	e.mu.Lock()
	txRing := e.tx
	e.mu.Unlock()
	if txRing == nil {
		return nil
	}
	if txRing.Mode() == constants.TxThreaded {
		if err := txRing.Wakeup(); err != nil {
			return WrapError("Send", err)
		}
		return nil
	}
	if err := txRing.Flush(); err != nil {
		return WrapError("Send", err)
	}
	return nil
}

// Flush drains the transmit ring's current half now, used in deferred
// mode.
func (e *Endpoint) Flush() error {
	e.mu.Lock()
	txRing := e.tx
	e.mu.Unlock()
	if txRing == nil {
		return nil
	}
	if err := txRing.Flush(); err != nil {
		return WrapError("Flush", err)
	}
	return nil
}
