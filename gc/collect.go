package gc

import "time"

// State of one collection. Fromspace is only read (and its forwarding words
// written), tospace doubles as the queue of tuples still to be scanned and as
// their final location:
//
//	to: [ scanned | copied, not yet scanned | free ]
//	    0         scan                      end
type collector struct {
	from, to []uint64

	// Bump pointer of fromspace when the collection started. Everything at
	// or beyond it is unallocated.
	fromEnd int

	fromEpoch, toEpoch uint32

	scan, end int
}

// Collect runs a full collection. Every tuple reachable from the root stack
// entries below top is copied to the other semi-space, the spaces are
// exchanged and the roots are updated to the new locations. Everything else
// is discarded.
func (h *Heap) Collect(top int) {
	h.mustInit()
	if h.collecting {
		gcRunningPanic()
	}
	roots := h.roots.live(top)
	h.collecting = true

	start := time.Now()
	before := h.inUse()

	if len(h.to.words) < len(h.from.words) {
		corruptPanic("tospace of %d bytes is smaller than fromspace of %d", h.to.size(), h.from.size())
	}

	c := &collector{
		from:      h.from.words,
		to:        h.to.words,
		fromEnd:   h.free,
		fromEpoch: h.epoch,
		toEpoch:   nextEpoch(h.epoch),
	}

	// Copy the tuples the roots point to. This is a shallow copy: the
	// pointer elements of the copies still reference fromspace.
	for _, r := range roots {
		if r != Nil {
			c.evacuate(r)
		}
	}

	// Copy everything reachable from the copies.
	c.drain()

	// The live set is now in tospace, exchange the spaces.
	h.from, h.to = h.to, h.from
	h.free = c.end
	h.epoch = c.toEpoch

	// Point the roots at the copies.
	for i, r := range roots {
		if r != Nil {
			roots[i] = c.forwarding(r)
		}
	}

	h.collecting = false

	after := h.inUse()
	pause := time.Since(start)
	h.stats.NumGC++
	h.stats.BytesCopied += after
	h.stats.BytesReclaimed += before - after
	h.stats.LastPause = pause
	h.stats.PauseTotal += pause

	h.log.Debug("collected heap",
		"roots", len(roots),
		"live", formatSize(after),
		"reclaimed", formatSize(before-after),
		"capacity", formatSize(h.from.size()),
		"pause", pause)
}

// Validates that r names a tuple in the allocated part of fromspace and
// returns its word offset.
func (c *collector) resolve(r Ref) int {
	if r.epoch() != c.fromEpoch {
		corruptPanic("reference %v does not point into fromspace (epoch %d)", r, c.fromEpoch)
	}
	off := r.offset()
	if off < 0 || off+headerWords > c.fromEnd {
		corruptPanic("reference %v points past the end of fromspace", r)
	}
	n := c.from[off+lengthWord]
	if n > MaxElements {
		corruptPanic("tuple %v has length %d", r, n)
	}
	if off+tupleWords(int(n)) > c.fromEnd {
		corruptPanic("tuple %v of length %d extends past the end of fromspace", r, n)
	}
	return off
}

// Returns the tospace copy of the tuple r, copying it to the end of the queue
// if that has not happened yet during this collection.
func (c *collector) evacuate(r Ref) Ref {
	off := c.resolve(r)

	// Already copied, possibly through another root or another parent.
	if fwd := Ref(c.from[off+forwardWord]); fwd != Nil {
		if fwd.epoch() != c.toEpoch {
			corruptPanic("tuple %v carries a stale forwarding pointer %v", r, fwd)
		}
		return fwd
	}

	n := tupleWords(int(c.from[off+lengthWord]))
	if c.end+n > len(c.to) {
		corruptPanic("tospace overrun copying %v: %d of %d words used", r, c.end, len(c.to))
	}
	copy(c.to[c.end:c.end+n], c.from[off:off+n])

	fwd := makeRef(c.toEpoch, c.end)
	c.from[off+forwardWord] = uint64(fwd)
	c.end += n
	return fwd
}

// Scans the queue breadth first until it is empty. Each scanned tuple gets its
// pointer elements redirected to tospace, copying their targets to the end of
// the queue when needed. Every tuple is enqueued at most once, so this ends.
func (c *collector) drain() {
	for c.scan < c.end {
		cur := c.scan
		n := int(c.to[cur+lengthWord])
		if n > MaxElements {
			corruptPanic("scanned tuple at word %d has length %d", cur, n)
		}
		bitmap := c.to[cur+bitmapWord]
		for i := 0; i < n; i++ {
			if bitmap&(1<<uint(i)) == 0 {
				continue
			}
			slot := cur + headerWords + i
			if old := Ref(c.to[slot]); old != Nil {
				c.to[slot] = uint64(c.evacuate(old))
			}
		}
		c.scan += tupleWords(n)
	}
}

// Returns where the fromspace tuple r was copied to. Only valid for tuples
// that were evacuated during this collection.
func (c *collector) forwarding(r Ref) Ref {
	off := c.resolve(r)
	fwd := Ref(c.from[off+forwardWord])
	if fwd == Nil || fwd.epoch() != c.toEpoch {
		corruptPanic("root %v was not relocated", r)
	}
	return fwd
}
