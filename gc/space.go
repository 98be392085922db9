package gc

// A semi-space. The heap owns exactly two of them and exchanges them after
// every collection.
type space struct {
	words []uint64
}

func newSpace(size uint64) *space {
	return &space{words: make([]uint64, size/wordSize)}
}

// Capacity of the space in bytes.
func (s *space) size() uint64 {
	return uint64(len(s.words)) * wordSize
}

// Replaces the backing buffer by a zeroed one of the given size. The old
// contents are discarded, so this is only done to the space that is about to
// become tospace.
func (s *space) resize(size uint64) {
	s.words = make([]uint64, size/wordSize)
}
