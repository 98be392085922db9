package gc

import (
	"math/bits"

	"github.com/pkg/errors"
)

// Grows both semi-spaces so that size more bytes fit after a collection.
// Called at most once per allocation, and only after a collection alone did
// not free enough memory.
func (h *Heap) grow(top int, size uint64) error {
	current := h.from.size()
	capacity, ok := nextCapacity(current, size, h.pageSize, h.maxHeapSize)
	if !ok {
		h.log.Warn("heap exhausted", "capacity", formatSize(current), "request", formatSize(size),
			"limit", formatSize(h.maxHeapSize))
		return errors.Wrapf(ErrOutOfMemory, "grow heap of %s by %s", formatSize(current), formatSize(size))
	}

	// Tospace holds nothing of value between collections, so it can simply
	// be replaced. A second collection moves the live set into it.
	h.to.resize(capacity)
	h.Collect(top)

	// The former fromspace is the undersized one now.
	h.to.resize(capacity)

	h.stats.NumGrow++
	h.log.Info("heap grown", "from", formatSize(current), "to", formatSize(capacity),
		"request", formatSize(size))
	return nil
}

// Computes the capacity a space of current bytes grows to so that an extra
// size bytes fit: half again as much, or current+size if that is larger,
// rounded up to a whole page. If that cannot be represented or exceeds limit,
// the minimal page rounded current+size is tried instead. Reports false if
// even that is impossible.
func nextCapacity(current, size, pageSize, limit uint64) (uint64, bool) {
	capacity, ok := add(current, current/2)
	if ok {
		if needed, fits := add(current, size); !fits {
			ok = false
		} else if needed > capacity {
			capacity = needed
		}
	}
	if ok {
		capacity, ok = roundUp(capacity, pageSize)
	}
	if !ok || capacity > limit || capacity-current < size {
		needed, fits := add(current, size)
		if !fits {
			return 0, false
		}
		capacity, ok = roundUp(needed, pageSize)
		if !ok || capacity > limit {
			return 0, false
		}
	}
	return capacity, true
}

func add(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// Rounds n up to a multiple of unit. Reports false on overflow.
func roundUp(n, unit uint64) (uint64, bool) {
	if unit <= 1 {
		return n, true
	}
	rem := n % unit
	if rem == 0 {
		return n, true
	}
	return add(n, unit-rem)
}
