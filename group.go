package pfq

import "github.com/ymaxgit/go-pfq/internal/uapi"

// Binding identifies a (group, interface, queue) attachment, the public
// mirror of internal/uapi.Binding used by callers that want to build one
// directly instead of going through Bind/BindGroup.
type Binding = uapi.Binding

// GroupStats is the public name for a group's receive/transmit counters.
type GroupStats = uapi.Stats

// BindGroup attaches (dev, queue) to gid directly, bypassing this
// Endpoint's own default group — useful when a socket steers traffic for
// a group it did not itself join.
func (e *Endpoint) BindGroup(gid int32, dev string, queue int32) error {
	if err := e.group.BindGroup(gid, dev, queue); err != nil {
		return WrapError("BindGroup", err)
	}
	return nil
}

// UnbindGroup detaches (dev, queue) from gid directly.
func (e *Endpoint) UnbindGroup(gid int32, dev string, queue int32) error {
	if err := e.group.UnbindGroup(gid, dev, queue); err != nil {
		return WrapError("UnbindGroup", err)
	}
	return nil
}

// GroupsMask returns the bitmask of every group this socket currently
// belongs to.
func (e *Endpoint) GroupsMask() (uint64, error) {
	mask, err := e.group.GroupsMask()
	if err != nil {
		return 0, WrapError("GroupsMask", err)
	}
	return mask, nil
}
