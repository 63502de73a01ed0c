// Package ctrl implements the synchronous control channel: one method per
// control operation, each building a fixed-layout request, issuing it
// through a host.Host, and decoding the response.
package ctrl

import (
	"fmt"

	"github.com/ymaxgit/go-pfq/internal/constants"
	"github.com/ymaxgit/go-pfq/internal/host"
	"github.com/ymaxgit/go-pfq/internal/logging"
	"github.com/ymaxgit/go-pfq/internal/uapi"
)

// Controller is the Control Channel: it owns the control-socket file
// descriptor and translates each public API call into the matching
// Q_SO_* setsockopt/getsockopt exchange.
type Controller struct {
	fd     int
	host   host.Host
	logger *logging.Logger
}

// Open creates the control socket that every other operation is issued
// against.
func Open(h host.Host) (*Controller, error) {
	fd, err := h.OpenSocket(constants.AFPFQ, unixSockRaw, ethPAll)
	if err != nil {
		return nil, fmt.Errorf("open control socket: %w", err)
	}
	return &Controller{fd: fd, host: h, logger: logging.Default()}, nil
}

// Close releases the control socket. It is not idempotent: a second call
// returns the host's error for closing an already-closed descriptor.
// Endpoint.Close tracks its own closed state so it never calls this twice.
func (c *Controller) Close() error {
	if err := c.host.CloseSocket(c.fd); err != nil {
		return fmt.Errorf("close control socket: %w", err)
	}
	return nil
}

// SetLogger overrides the controller's logger.
func (c *Controller) SetLogger(l *logging.Logger) {
	if l != nil {
		c.logger = l
	}
}

func (c *Controller) setOp(op int, payload []byte) error {
	c.logger.Debug("control set", "op", constants.OpName(op), "len", len(payload))
	if err := c.host.SetSockopt(c.fd, constants.AFPFQ, op, payload); err != nil {
		return fmt.Errorf("%s: %w", constants.OpName(op), err)
	}
	return nil
}

func (c *Controller) getOp(op int, buf []byte) (int, error) {
	c.logger.Debug("control get", "op", constants.OpName(op), "buflen", len(buf))
	n, err := c.host.GetSockopt(c.fd, constants.AFPFQ, op, buf)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", constants.OpName(op), err)
	}
	return n, nil
}

// GetID returns the queue id the kernel assigned to this socket.
func (c *Controller) GetID() (int32, error) {
	buf := make([]byte, 4)
	n, err := c.getOp(constants.OpGetID, buf)
	if err != nil {
		return 0, err
	}
	if n < 4 {
		return 0, fmt.Errorf("GET_ID: short response (%d bytes)", n)
	}
	return int32(leUint32(buf)), nil
}

// SetSlots sets the per-queue ring slot count.
func (c *Controller) SetSlots(slots int) error {
	return c.setOp(constants.OpSetSlots, leBytes32(uint32(slots)))
}

// SetCaplen sets the per-packet capture length.
func (c *Controller) SetCaplen(caplen int) error {
	return c.setOp(constants.OpSetCaplen, leBytes32(uint32(caplen)))
}

// GetCaplen returns the current capture length.
func (c *Controller) GetCaplen() (int, error) {
	buf := make([]byte, 4)
	if _, err := c.getOp(constants.OpGetCaplen, buf); err != nil {
		return 0, err
	}
	return int(leUint32(buf)), nil
}

// SetOffset sets the per-packet capture offset.
func (c *Controller) SetOffset(offset int) error {
	return c.setOp(constants.OpSetOffset, leBytes32(uint32(offset)))
}

// GetOffset returns the current capture offset.
func (c *Controller) GetOffset() (int, error) {
	buf := make([]byte, 4)
	if _, err := c.getOp(constants.OpGetOffset, buf); err != nil {
		return 0, err
	}
	return int(leUint32(buf)), nil
}

// ToggleQueue enables or disables the receive/transmit queues for this
// socket. It only issues the control op; mapping the shared-memory region
// into the process is done separately by the caller (Endpoint.Enable).
func (c *Controller) ToggleQueue(enable bool) error {
	var v uint32
	if enable {
		v = 1
	}
	return c.setOp(constants.OpToggleQueue, leBytes32(v))
}

// GetQueueMem returns the total byte size of the mmap'able queue region.
func (c *Controller) GetQueueMem() (int64, error) {
	buf := make([]byte, 8)
	if _, err := c.getOp(constants.OpGetQueueMem, buf); err != nil {
		return 0, err
	}
	return int64(leUint64(buf)), nil
}

// SetTstamp enables or disables hardware/software timestamping.
func (c *Controller) SetTstamp(enable bool) error {
	var v uint32
	if enable {
		v = 1
	}
	return c.setOp(constants.OpSetTstamp, leBytes32(v))
}

// GetTstamp reports whether timestamping is enabled.
func (c *Controller) GetTstamp() (bool, error) {
	buf := make([]byte, 4)
	if _, err := c.getOp(constants.OpGetTstamp, buf); err != nil {
		return false, err
	}
	return leUint32(buf) != 0, nil
}

// AddBinding attaches a (group, interface, queue) binding to this socket.
func (c *Controller) AddBinding(b uapi.Binding) error {
	buf, err := uapi.Marshal(&b)
	if err != nil {
		return err
	}
	return c.setOp(constants.OpAddBinding, buf)
}

// RemoveBinding detaches a previously added binding.
func (c *Controller) RemoveBinding(b uapi.Binding) error {
	buf, err := uapi.Marshal(&b)
	if err != nil {
		return err
	}
	return c.setOp(constants.OpRemoveBinding, buf)
}

// GetGroups returns the bitmask of groups this socket currently belongs
// to.
func (c *Controller) GetGroups() (uint64, error) {
	buf := make([]byte, 8)
	if _, err := c.getOp(constants.OpGetGroups, buf); err != nil {
		return 0, err
	}
	return leUint64(buf), nil
}

// GroupSteerFun attaches a named steering function to a group.
func (c *Controller) GroupSteerFun(gid int32, name string) error {
	s := uapi.Steering{Name: uapi.SteeringName(name), GID: gid}
	buf, err := uapi.Marshal(&s)
	if err != nil {
		return err
	}
	return c.setOp(constants.OpGroupSteerFun, buf)
}

// GroupState uploads opaque per-group state, forwarded to the group's
// steering function without interpretation.
func (c *Controller) GroupState(gid int32, data []byte) error {
	buf := make([]byte, 8+len(data))
	putLE32(buf[0:4], uint32(gid))
	putLE32(buf[4:8], uint32(len(data)))
	copy(buf[8:], data)
	return c.setOp(constants.OpGroupState, buf)
}

// GroupJoin joins gid (or requests allocation of a fresh group if gid is
// constants.AnyGroup) under policy with the given class mask, returning
// the assigned group id.
func (c *Controller) GroupJoin(gid int32, policy int32, classMask uint64) (int32, error) {
	j := uapi.GroupJoin{GID: gid, Policy: policy, ClassMask: classMask}
	req, err := uapi.Marshal(&j)
	if err != nil {
		return 0, err
	}
	n, err := c.getOp(constants.OpGroupJoin, req)
	if err != nil {
		return 0, err
	}
	if n < 4 {
		return 0, fmt.Errorf("GROUP_JOIN: short response (%d bytes)", n)
	}
	var out uapi.GroupJoin
	if err := uapi.Unmarshal(req, &out); err != nil {
		return 0, err
	}
	return out.GID, nil
}

// GroupLeave leaves gid.
func (c *Controller) GroupLeave(gid int32) error {
	return c.setOp(constants.OpGroupLeave, leBytes32(uint32(gid)))
}

// GetStatus reports whether the queue is currently enabled.
func (c *Controller) GetStatus() (bool, error) {
	buf := make([]byte, 4)
	if _, err := c.getOp(constants.OpGetStatus, buf); err != nil {
		return false, err
	}
	return leUint32(buf) != 0, nil
}

// GetStats returns the per-socket receive/transmit counters.
func (c *Controller) GetStats() (uapi.Stats, error) {
	var s uapi.Stats
	buf, err := uapi.Marshal(&s)
	if err != nil {
		return s, err
	}
	if _, err := c.getOp(constants.OpGetStats, buf); err != nil {
		return s, err
	}
	err = uapi.Unmarshal(buf, &s)
	return s, err
}

// GetGroupStats returns gid's per-group counters. The group id is written
// into the request payload before the call, since the kernel identifies
// which group's counters to return by that field rather than by a
// separate argument.
func (c *Controller) GetGroupStats(gid int32) (uapi.Stats, error) {
	var s uapi.Stats
	buf, err := uapi.Marshal(&s)
	if err != nil {
		return s, err
	}
	putLE32(buf[0:4], uint32(gid))
	if _, err := c.getOp(constants.OpGetGroupStats, buf); err != nil {
		return s, err
	}
	err = uapi.Unmarshal(buf, &s)
	return s, err
}

// TxBind attaches a transmit ring to an (interface, queue) pair.
func (c *Controller) TxBind(b uapi.Binding) error {
	buf, err := uapi.Marshal(&b)
	if err != nil {
		return err
	}
	return c.setOp(constants.OpTxBind, buf)
}

// TxStart enables the transmit path in the given mode
// (constants.TxDeferred or constants.TxThreaded), optionally pinned to a
// NUMA node for threaded mode.
func (c *Controller) TxStart(mode int, numaNode int) error {
	buf := make([]byte, 8)
	putLE32(buf[0:4], uint32(mode))
	putLE32(buf[4:8], uint32(numaNode))
	return c.setOp(constants.OpTxStart, buf)
}

// TxStop disables the transmit path.
func (c *Controller) TxStop() error {
	return c.setOp(constants.OpTxStop, nil)
}

// TxFlush requests that the kernel drain any queued transmit slots now,
// used in deferred mode.
func (c *Controller) TxFlush() error {
	return c.setOp(constants.OpTxFlush, nil)
}

// TxWakeup signals a threaded transmit worker that new slots are
// available, used in threaded mode in place of TxFlush.
func (c *Controller) TxWakeup() error {
	return c.setOp(constants.OpTxWakeup, nil)
}

// FD returns the underlying control-socket file descriptor, used by
// Endpoint to mmap the shared queue region and to poll for readability.
func (c *Controller) FD() int {
	return c.fd
}

// Host returns the underlying host.Host the control channel issues its
// calls through.
func (c *Controller) Host() host.Host {
	return c.host
}
