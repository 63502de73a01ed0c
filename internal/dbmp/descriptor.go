// Package dbmp implements the double-buffer mapped-protocol ring: the
// lock-free handoff between a producer (kernel or, in TX, this library)
// and a consumer over a single atomic descriptor word plus two
// alternating packet-slot buffers.
package dbmp

import (
	"sync/atomic"
	"unsafe"

	"github.com/ymaxgit/go-pfq/internal/constants"
)

// Descriptor is the Shared Queue Descriptor: a single word encoding which
// half of the double buffer is currently being filled (its index) and how
// many slots were committed to the half being swapped out (its length).
// It is backed directly by memory inside a mapped region, so every read
// and write goes through sync/atomic rather than a local copy.
type Descriptor struct {
	word *uint32
}

// NewDescriptor views the first 4 bytes of region as a Descriptor. region
// must outlive the Descriptor and must not be moved or resized.
func NewDescriptor(region []byte) *Descriptor {
	if len(region) < 4 {
		panic("dbmp: descriptor region shorter than 4 bytes")
	}
	return &Descriptor{word: (*uint32)(unsafe.Pointer(&region[0]))}
}

func pack(index, length uint32) uint32 {
	return (index << constants.DataLengthBits) | (length & uint32(constants.DataLengthMask))
}

func unpack(v uint32) (index, length uint32) {
	return v >> constants.DataLengthBits, v & uint32(constants.DataLengthMask)
}

// Peek reads the current index and committed length without modifying
// the descriptor.
func (d *Descriptor) Peek() (index, length uint32) {
	return unpack(atomic.LoadUint32(d.word))
}

// Swap atomically installs nextIndex with a zero length, returning the
// index and length that were in effect before the swap. This is the
// consumer-side handoff: it reserves the half at nextIndex for the
// producer to start filling while the consumer drains the half that was
// just swapped out.
func (d *Descriptor) Swap(nextIndex uint32) (prevIndex, length uint32) {
	old := atomic.SwapUint32(d.word, pack(nextIndex, 0))
	return unpack(old)
}

// Publish atomically installs index and length. It is the producer-side
// operation: in the real kernel it is never called from userspace, but
// the TX path (where this process is the producer) and tests that
// simulate the kernel both use it directly.
func (d *Descriptor) Publish(index, length uint32) {
	atomic.StoreUint32(d.word, pack(index, length))
}
