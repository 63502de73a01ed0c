package dbmp

// Read performs one receive-side drain: it inspects the descriptor's
// current length and, if the queue is below its low-water mark, invokes
// poll to block until more data (or a timeout) arrives. It then swaps the
// descriptor to the next generation, handing the half that was just
// filled to the caller as a Cursor and reserving the other half for the
// producer to continue filling.
//
// poll is only invoked when the queue looks under-full; a poll that
// returns an error aborts the read before any descriptor mutation, so a
// failed poll never silently drops slots the producer already committed.
func (r *Ring) Read(poll func() error) (*Cursor, error) {
	index, length := r.desc.Peek()

	if int(length) < r.Slots>>1 {
		if err := poll(); err != nil {
			return nil, err
		}
	}

	prevIndex, committed := r.desc.Swap(index + 1)

	queueLen := int(committed)
	if queueLen > r.Slots {
		queueLen = r.Slots
	}

	return &Cursor{
		ring:  r,
		half:  int(prevIndex & 1),
		index: prevIndex,
		len:   queueLen,
	}, nil
}
