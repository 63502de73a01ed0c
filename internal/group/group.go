// Package group implements the Group Manager: join/leave, interface
// bind/unbind, steering-function attachment, and group-state upload, all
// relayed through an internal/ctrl.Controller.
package group

import (
	"fmt"

	"github.com/ymaxgit/go-pfq/internal/constants"
	"github.com/ymaxgit/go-pfq/internal/ctrl"
	"github.com/ymaxgit/go-pfq/internal/host"
	"github.com/ymaxgit/go-pfq/internal/uapi"
)

// Manager performs group operations for one endpoint. gid is the group
// this endpoint belongs to after Join; it is constants.AnyGroup until
// then.
type Manager struct {
	ctrl *ctrl.Controller
	host host.Host
	gid  int32
}

// New builds a Manager bound to the given control channel and host. The
// host is used only to resolve interface names to indexes, matching
// pfq_bind_group's own ifindex lookup before the ADD_BINDING setsockopt.
func New(c *ctrl.Controller, h host.Host) *Manager {
	return &Manager{ctrl: c, host: h, gid: constants.AnyGroup}
}

// Join joins gid under policy with the given class mask. Passing
// constants.AnyGroup requests allocation of a fresh group; the assigned
// id becomes this Manager's default group for Bind/Unbind/Leave.
func (m *Manager) Join(gid int32, policy int32, classMask uint64) (int32, error) {
	if policy == constants.PolicyUndefined {
		return 0, fmt.Errorf("group: join with undefined policy")
	}
	assigned, err := m.ctrl.GroupJoin(gid, policy, classMask)
	if err != nil {
		return 0, fmt.Errorf("join group %d: %w", gid, err)
	}
	m.gid = assigned
	return assigned, nil
}

// Leave leaves the current default group.
func (m *Manager) Leave() error {
	if m.gid < 0 {
		return fmt.Errorf("group: default group undefined")
	}
	if err := m.ctrl.GroupLeave(m.gid); err != nil {
		return fmt.Errorf("leave group %d: %w", m.gid, err)
	}
	m.gid = constants.AnyGroup
	return nil
}

// GID returns the current default group, or constants.AnyGroup if none
// has been joined.
func (m *Manager) GID() int32 {
	return m.gid
}

// BindGroup attaches (gid, dev, queue) to this socket, resolving dev to
// an ifindex first.
func (m *Manager) BindGroup(gid int32, dev string, queue int32) error {
	index, err := m.host.Ifindex(dev)
	if err != nil {
		return fmt.Errorf("bind group %d to %s: device not found: %w", gid, dev, err)
	}
	b := uapi.Binding{GID: gid, Ifindex: int32(index), Queue: queue}
	if err := m.ctrl.AddBinding(b); err != nil {
		return fmt.Errorf("bind group %d to %s: %w", gid, dev, err)
	}
	return nil
}

// Bind attaches (dev, queue) to the current default group.
func (m *Manager) Bind(dev string, queue int32) error {
	if m.gid < 0 {
		return fmt.Errorf("group: default group undefined")
	}
	return m.BindGroup(m.gid, dev, queue)
}

// UnbindGroup detaches (gid, dev, queue).
func (m *Manager) UnbindGroup(gid int32, dev string, queue int32) error {
	index, err := m.host.Ifindex(dev)
	if err != nil {
		return fmt.Errorf("unbind group %d from %s: device not found: %w", gid, dev, err)
	}
	b := uapi.Binding{GID: gid, Ifindex: int32(index), Queue: queue}
	if err := m.ctrl.RemoveBinding(b); err != nil {
		return fmt.Errorf("unbind group %d from %s: %w", gid, dev, err)
	}
	return nil
}

// Unbind detaches (dev, queue) from the current default group.
func (m *Manager) Unbind(dev string, queue int32) error {
	if m.gid < 0 {
		return fmt.Errorf("group: default group undefined")
	}
	return m.UnbindGroup(m.gid, dev, queue)
}

// GroupsMask returns the bitmask of every group this socket currently
// belongs to.
func (m *Manager) GroupsMask() (uint64, error) {
	mask, err := m.ctrl.GetGroups()
	if err != nil {
		return 0, fmt.Errorf("groups mask: %w", err)
	}
	return mask, nil
}

// SteeringFunction attaches a named kernel steering function to gid.
func (m *Manager) SteeringFunction(gid int32, name string) error {
	if err := m.ctrl.GroupSteerFun(gid, name); err != nil {
		return fmt.Errorf("steering function on group %d: %w", gid, err)
	}
	return nil
}

// SetState uploads opaque per-group state, forwarded to the group's
// steering function without interpretation by this library.
func (m *Manager) SetState(gid int32, data []byte) error {
	if err := m.ctrl.GroupState(gid, data); err != nil {
		return fmt.Errorf("group state on group %d: %w", gid, err)
	}
	return nil
}

// Stats returns gid's per-group receive/transmit counters.
func (m *Manager) Stats(gid int32) (uapi.Stats, error) {
	stats, err := m.ctrl.GetGroupStats(gid)
	if err != nil {
		return stats, fmt.Errorf("group stats for group %d: %w", gid, err)
	}
	return stats, nil
}
