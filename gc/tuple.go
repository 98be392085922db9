package gc

import "fmt"

// Tuples are the only kind of heap object. A tuple occupies a contiguous run
// of words in its semi-space: a fixed three word header followed by the
// element words.
//
// | word | contents
// |------|---------
// | 0    | length, the number of elements (at most MaxElements)
// | 1    | pointer bitmap, bit i is set when element i holds a Ref
// | 2    | forwarding Ref, only non-nil while a collection is running
// | 3..  | length element words, scalars or Refs depending on the bitmap
//
// A Ref always names the first header word of a tuple. Pointers into the
// middle of a tuple cannot be formed.

const (
	// MaxElements is the largest number of elements a tuple can hold.
	MaxElements = 63

	wordSize    = 8
	headerWords = 3

	lengthWord  = 0
	bitmapWord  = 1
	forwardWord = 2
)

// Ref is a reference to a tuple. The low 32 bits hold the word offset of the
// tuple header plus one, the high 32 bits the epoch of the semi-space the
// offset belongs to. The epoch changes with every collection, so a Ref kept
// across a collection without being rooted is detected when it is used.
//
// The top heapTagBits of the epoch identify the Heap that issued the Ref,
// the rest count collections. Refs handed from one Heap to another are
// rejected unless the two tags collide, which takes 4096 live heaps.
type Ref uint64

const (
	heapTagBits = 12
	epochBits   = 32 - heapTagBits
	epochMask   = 1<<epochBits - 1
)

// Returns the epoch following e, keeping its heap tag.
func nextEpoch(e uint32) uint32 {
	return e&^epochMask | (e+1)&epochMask
}

// Nil is the zero reference. Pointer elements may hold Nil.
const Nil Ref = 0

func makeRef(epoch uint32, offset int) Ref {
	return Ref(uint64(epoch)<<32 | uint64(offset+1))
}

func (r Ref) epoch() uint32 {
	return uint32(r >> 32)
}

func (r Ref) offset() int {
	return int(uint32(r)) - 1
}

// IsNil reports whether r is the nil reference.
func (r Ref) IsNil() bool {
	return r == Nil
}

func (r Ref) String() string {
	if r == Nil {
		return "nil"
	}
	return fmt.Sprintf("tuple@%d/%d", r.offset()*wordSize, r.epoch()&epochMask)
}

// Footprint returns the number of heap bytes taken by a tuple with n
// elements.
func Footprint(n int) uint64 {
	return uint64(tupleWords(n)) * wordSize
}

func tupleWords(n int) int {
	return headerWords + n
}

// Keeps only the low n bits of mask.
func lowBits(mask uint64, n int) uint64 {
	if n >= 64 {
		return mask
	}
	return mask & (1<<uint(n) - 1)
}

// Resolves a reference to the word offset of its tuple in fromspace. Panics
// when the reference is stale, nil or does not name an allocated tuple.
func (h *Heap) object(r Ref) int {
	h.mustInit()
	if r == Nil {
		panic("gc: nil tuple reference")
	}
	if r.epoch()&^epochMask != h.epoch&^epochMask {
		panic(fmt.Sprintf("gc: tuple reference %v belongs to another heap", r))
	}
	if r.epoch() != h.epoch {
		panic(fmt.Sprintf("gc: stale tuple reference %v (heap epoch %d)", r, h.epoch&epochMask))
	}
	off := r.offset()
	if off < 0 || off+headerWords > h.free {
		panic(fmt.Sprintf("gc: tuple reference %v outside of the allocated heap", r))
	}
	n := h.from.words[off+lengthWord]
	if n > MaxElements || off+tupleWords(int(n)) > h.free {
		corruptPanic("tuple %v has length %d", r, n)
	}
	return off
}

// Returns the offset of element i of the tuple r, checking the index.
func (h *Heap) element(r Ref, i int) (int, int) {
	off := h.object(r)
	n := int(h.from.words[off+lengthWord])
	if i < 0 || i >= n {
		panic(fmt.Sprintf("gc: element index %d out of range for tuple of length %d", i, n))
	}
	return off, off + headerWords + i
}

// Len returns the number of elements of the tuple r.
func (h *Heap) Len(r Ref) int {
	return int(h.from.words[h.object(r)+lengthWord])
}

// PointerBitmap returns the pointer bitmap of the tuple r. Only the low Len(r)
// bits can be set.
func (h *Heap) PointerBitmap(r Ref) uint64 {
	return h.from.words[h.object(r)+bitmapWord]
}

// IsPointer reports whether element i of r holds a reference.
func (h *Heap) IsPointer(r Ref, i int) bool {
	off, _ := h.element(r, i)
	return h.from.words[off+bitmapWord]&(1<<uint(i)) != 0
}

// Get returns the raw word stored in element i of r.
func (h *Heap) Get(r Ref, i int) uint64 {
	_, slot := h.element(r, i)
	return h.from.words[slot]
}

// Set stores a scalar in element i of r. Pointer elements must be written
// with SetRef.
func (h *Heap) Set(r Ref, i int, v uint64) {
	off, slot := h.element(r, i)
	if h.from.words[off+bitmapWord]&(1<<uint(i)) != 0 {
		panic(fmt.Sprintf("gc: scalar store into pointer element %d of %v", i, r))
	}
	h.from.words[slot] = v
}

// GetRef returns the reference stored in pointer element i of r.
func (h *Heap) GetRef(r Ref, i int) Ref {
	off, slot := h.element(r, i)
	if h.from.words[off+bitmapWord]&(1<<uint(i)) == 0 {
		panic(fmt.Sprintf("gc: element %d of %v is not a pointer", i, r))
	}
	return Ref(h.from.words[slot])
}

// SetRef stores v in pointer element i of r. v must be Nil or a live tuple.
func (h *Heap) SetRef(r Ref, i int, v Ref) {
	off, slot := h.element(r, i)
	if h.from.words[off+bitmapWord]&(1<<uint(i)) == 0 {
		panic(fmt.Sprintf("gc: pointer store into scalar element %d of %v", i, r))
	}
	if v != Nil {
		h.object(v)
	}
	h.from.words[slot] = uint64(v)
}
