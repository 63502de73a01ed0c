// Package tx implements the Transmit Path as the producer side of the
// same double-buffer mapped-protocol ring internal/dbmp uses for receive,
// with producer and consumer roles reversed: here this process fills
// slots and the kernel (or, in tests, a simulated consumer) drains them.
package tx

import (
	"fmt"
	"sync"
	"time"

	"github.com/ymaxgit/go-pfq/internal/constants"
	"github.com/ymaxgit/go-pfq/internal/dbmp"
	"github.com/ymaxgit/go-pfq/internal/uapi"
)

// wakeupInterval is how often a threaded-mode Ring checks for unwoken
// pending slots and re-signals the consumer, in case a single Wakeup call
// was missed or coalesced.
const wakeupInterval = 2 * time.Millisecond

// Ring drives the transmit half of a dbmp.Ring as its producer.
type Ring struct {
	ring *dbmp.Ring

	flush  func() error
	wakeup func() error

	mu       sync.Mutex
	pos      int
	genIndex uint32
	pending  bool

	mode    int
	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// NewRing wraps r as a transmit ring. flush and wakeup are the
// control-channel hooks for deferred and threaded mode respectively
// (TX_FLUSH and TX_WAKEUP); this package never talks to a host.Host
// directly, keeping the ring logic reusable and independent of how those
// control ops are issued.
func NewRing(r *dbmp.Ring, flush, wakeup func() error) *Ring {
	return &Ring{ring: r, flush: flush, wakeup: wakeup, mode: constants.TxDeferred}
}

// Enqueue writes payload into the next free slot of the half currently
// being filled. It reports false, with no error, when that half is full;
// callers in deferred mode should Flush and retry, and callers in
// threaded mode should Wakeup and retry.
func (tx *Ring) Enqueue(payload []byte) (bool, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	payloadStart := uapi.HeaderSize + tx.ring.Offset
	if len(payload)+payloadStart > tx.ring.SlotSize {
		return false, fmt.Errorf("tx: payload of %d bytes exceeds slot capacity", len(payload))
	}
	// Once the consumer has swapped the descriptor to a new index, the half
	// at that index is this producer's to fill from its first slot.
	if index, _ := tx.ring.Descriptor().Peek(); index != tx.genIndex {
		tx.genIndex = index
		tx.pos = 0
	}
	if tx.pos >= tx.ring.Slots {
		return false, nil
	}

	half := int(tx.genIndex & 1)
	slot := tx.ring.Slot(half, tx.pos)
	uapi.EncodePacketHeader(slot, uapi.PacketHeader{
		Len:    uint32(len(payload)),
		Caplen: uint32(len(payload)),
		Commit: 1,
	})
	copy(slot[payloadStart:], payload)

	tx.pos++
	tx.pending = true
	tx.ring.Descriptor().Publish(tx.genIndex, uint32(tx.pos))
	return true, nil
}

// Flush asks the consumer to drain the current half now, used in
// deferred mode where there is no dedicated thread watching the ring.
func (tx *Ring) Flush() error {
	tx.mu.Lock()
	tx.pending = false
	tx.mu.Unlock()
	if tx.flush == nil {
		return nil
	}
	return tx.flush()
}

// Wakeup signals a threaded-mode consumer directly, without waiting for
// the background wake loop.
func (tx *Ring) Wakeup() error {
	tx.mu.Lock()
	tx.pending = false
	tx.mu.Unlock()
	if tx.wakeup == nil {
		return nil
	}
	return tx.wakeup()
}

// StartThreaded switches the ring into threaded mode and starts a
// background goroutine that periodically re-signals the consumer while
// slots remain pending, covering the case where a single Wakeup call
// after a burst of Enqueue calls was missed. node is accepted for parity
// with the control channel's TX_START payload (NUMA affinity of the
// kernel-side thread); this package does not itself pin anything.
func (tx *Ring) StartThreaded(node int) error {
	tx.mu.Lock()
	if tx.started {
		tx.mu.Unlock()
		return fmt.Errorf("tx: already started")
	}
	tx.mode = constants.TxThreaded
	tx.stopCh = make(chan struct{})
	tx.started = true
	tx.mu.Unlock()

	tx.wg.Add(1)
	go tx.wakeLoop()
	return nil
}

func (tx *Ring) wakeLoop() {
	defer tx.wg.Done()
	ticker := time.NewTicker(wakeupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-tx.stopCh:
			return
		case <-ticker.C:
			tx.mu.Lock()
			pending := tx.pending
			tx.mu.Unlock()
			if pending && tx.wakeup != nil {
				tx.wakeup()
			}
		}
	}
}

// Stop halts the background wake loop started by StartThreaded. It is a
// no-op in deferred mode.
func (tx *Ring) Stop() error {
	tx.mu.Lock()
	started := tx.started
	tx.mu.Unlock()
	if !started {
		return nil
	}
	close(tx.stopCh)
	tx.wg.Wait()
	tx.mu.Lock()
	tx.started = false
	tx.mu.Unlock()
	return nil
}

// Mode reports the ring's current transmit mode.
func (tx *Ring) Mode() int {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.mode
}
