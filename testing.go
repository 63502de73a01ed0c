package pfq

import (
	"github.com/ymaxgit/go-pfq/internal/constants"
	"github.com/ymaxgit/go-pfq/internal/host"
)

// NewTestEndpoint opens an Endpoint against an in-memory host.FakeHost
// instead of a real kernel module, the seam this library's own tests (and
// any caller test-driving code built on top of it) use in place of a live
// PFQ socket. It joins no group, matching the bind-directly workflow
// test-send.c itself exercises.
func NewTestEndpoint(h *host.FakeHost, caplen, offset, slots int, opts *Options) (*Endpoint, error) {
	return openWithHost(h, constants.PolicyUndefined, constants.AnyGroup, 0, caplen, offset, slots, opts)
}

// NewTestEndpointGroup opens an Endpoint against h and joins gid (or a
// fresh group, for constants.AnyGroup) under policy, for tests that cover
// group steering rather than direct binds.
func NewTestEndpointGroup(h *host.FakeHost, gid, policy int32, classMask uint64, caplen, offset, slots int, opts *Options) (*Endpoint, error) {
	return openWithHost(h, policy, gid, classMask, caplen, offset, slots, opts)
}

// FakeHostWithQueueID preloads a FakeHost to answer GET_ID with id, the
// minimum setup every NewTestEndpoint call needs since Open always asks
// for the queue's assigned id first.
func FakeHostWithQueueID(id int32) *host.FakeHost {
	h := host.NewFakeHost()
	h.SetResponder(constants.AFPFQ, constants.OpGetID, func([]byte) ([]byte, error) {
		buf := make([]byte, 4)
		putLE32(buf, uint32(id))
		return buf, nil
	})
	return h
}

// PresetQueueMem makes GET_QUEUE_MEM report memSize, the setup Enable
// needs to know how many bytes to mmap.
func PresetQueueMem(h *host.FakeHost, memSize int64) {
	h.SetResponder(constants.AFPFQ, constants.OpGetQueueMem, func([]byte) ([]byte, error) {
		buf := make([]byte, 8)
		v := uint64(memSize)
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		return buf, nil
	})
}

func putLE32(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}
