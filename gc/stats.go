package gc

import "time"

// MemStats records statistics about a Heap.
type MemStats struct {
	// Bytes allocated in the current semi-space.
	HeapInuse uint64

	// Capacity of the current semi-space.
	HeapCapacity uint64

	// Bytes reserved for both semi-spaces.
	HeapSys uint64

	// Cumulative bytes handed out by the allocator.
	TotalAlloc uint64

	// Number of allocations.
	Mallocs uint64

	// Number of completed collections, including those run while growing.
	NumGC uint32

	// Number of growth events.
	NumGrow uint32

	// Cumulative bytes copied and discarded by collections.
	BytesCopied    uint64
	BytesReclaimed uint64

	LastPause  time.Duration
	PauseTotal time.Duration
}

// ReadMemStats populates m with the statistics of the heap.
func (h *Heap) ReadMemStats(m *MemStats) {
	h.mustInit()
	*m = h.stats
	m.HeapInuse = h.inUse()
	m.HeapCapacity = h.from.size()
	m.HeapSys = h.from.size() + h.to.size()
}
