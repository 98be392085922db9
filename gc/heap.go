// Package gc implements the memory manager of psc programs: a bump pointer
// allocator over two semi-spaces, a Cheney style copying collector and a
// shadow stack of roots maintained by the generated code.
//
// All heap objects are tuples (see tuple.go). A Heap is used by one goroutine
// at a time; collections are synchronous and run to completion inside the
// allocation that triggered them.
package gc

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/inhies/go-bytesize"
	"github.com/pkg/errors"
)

// Heap is a semi-space heap together with its root stack.
type Heap struct {
	// Allocation happens in from, to is scratch for the next collection.
	from, to *space

	// Bump pointer, a word offset into from.
	free int

	// Tag of the Refs into from: the heap tag in the high bits, a
	// collection counter below. See nextEpoch.
	epoch uint32

	roots *RootStack

	pageSize    uint64
	maxHeapSize uint64

	// Used to detect whether the collector is invoking itself recursively.
	collecting bool

	stats MemStats
	log   *slog.Logger
}

// Source of the per-heap tags folded into Ref epochs.
var heapTags atomic.Uint32

// New creates a heap with both semi-spaces and the root stack allocated and
// zeroed, sizes rounded up to 64 bytes.
func New(cfg Config) (*Heap, error) {
	cfg = cfg.normalize()

	stackSize, ok := alignSpace(cfg.StackSize)
	if !ok {
		return nil, errors.Errorf("gc: root stack size %d too large", cfg.StackSize)
	}
	heapSize, ok := alignSpace(cfg.HeapSize)
	if !ok || heapSize > cfg.MaxHeapSize {
		return nil, errors.Errorf("gc: heap size %s exceeds the limit of %s",
			formatSize(cfg.HeapSize), formatSize(cfg.MaxHeapSize))
	}

	h := &Heap{
		from:        newSpace(heapSize),
		to:          newSpace(heapSize),
		roots:       newRootStack(stackSize),
		pageSize:    cfg.PageSize,
		maxHeapSize: cfg.MaxHeapSize,
		epoch:       heapTags.Add(1) << epochBits,
		log:         cfg.Logger,
	}
	h.log.Debug("heap initialized", "stack", formatSize(stackSize), "heap", formatSize(heapSize))
	return h, nil
}

// Init creates a heap with a root stack of stackSize bytes and semi-spaces
// of heapSize bytes each. It panics if the sizes cannot be honored.
func Init(stackSize, heapSize uint64) *Heap {
	cfg := DefaultConfig()
	cfg.StackSize = stackSize
	cfg.HeapSize = heapSize
	h, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return h
}

func (h *Heap) mustInit() {
	if h.from == nil {
		notInitializedPanic()
	}
}

// Roots returns the shadow stack of the heap.
func (h *Heap) Roots() *RootStack {
	h.mustInit()
	return h.roots
}

// Size returns the number of bytes allocated in the current semi-space and
// the capacity of that space.
func (h *Heap) Size() (inUse, capacity uint64) {
	h.mustInit()
	return h.inUse(), h.from.size()
}

func (h *Heap) inUse() uint64 {
	return uint64(h.free) * wordSize
}

// Bytes left between the bump pointer and the end of fromspace.
func (h *Heap) available() uint64 {
	return h.from.size() - h.inUse()
}

// Tries to find size bytes of free space in fromspace and returns the word
// offset of it. If the space left is too small, a collection is run with the
// roots below top; if that does not free enough either the heap is grown
// once. Any offset or Ref obtained earlier that is not rooted is invalid
// afterwards.
func (h *Heap) alloc(top int, size uint64) (int, error) {
	h.mustInit()

	// Ensure not in a recursive GC call.
	if h.collecting {
		gcRunningPanic()
	}

	aligned, ok := roundUp(size, wordSize)
	if !ok {
		return 0, errors.Wrapf(ErrOutOfMemory, "allocate %d bytes", size)
	}
	size = aligned

	if h.available() < size {
		// Run the collector before growing the heap.
		h.Collect(top)
	}
	if h.available() < size {
		if err := h.grow(top, size); err != nil {
			return 0, err
		}
		if h.available() < size {
			corruptPanic("growth left %d bytes for an allocation of %d", h.available(), size)
		}
	}

	ptr := h.free
	h.free += int(size / wordSize)

	h.stats.Mallocs++
	h.stats.TotalAlloc += size
	return ptr, nil
}

// NewTuple allocates a tuple of n elements and returns a reference to it.
// Element i is a pointer element if bit i of mask is set; higher bits of mask
// are ignored. All elements start out zero (pointer elements Nil).
//
// The allocation may run a collection with the roots below top, which moves
// every live tuple.
func (h *Heap) NewTuple(top, n int, mask uint64) (Ref, error) {
	if n < 0 || n > MaxElements {
		return Nil, errors.Wrapf(ErrTooManyElements, "new tuple of %d elements (max %d)", n, MaxElements)
	}

	ptr, err := h.alloc(top, Footprint(n))
	if err != nil {
		return Nil, errors.WithMessagef(err, "new tuple of %d elements", n)
	}

	t := h.from.words[ptr : ptr+tupleWords(n)]
	t[lengthWord] = uint64(n)
	t[bitmapWord] = lowBits(mask, n)
	t[forwardWord] = uint64(Nil)
	// Fromspace was scratch during the previous collection, clear any leftovers.
	clear(t[headerWords:])

	return makeRef(h.epoch, ptr), nil
}

func formatSize(size uint64) string {
	return bytesize.New(float64(size)).String()
}

func (h *Heap) String() string {
	inUse, capacity := h.Size()
	return fmt.Sprintf("heap{%s/%s, epoch %d, %d roots}", formatSize(inUse), formatSize(capacity), h.epoch&epochMask, h.roots.Len())
}
