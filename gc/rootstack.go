package gc

import "fmt"

// RootStack is the shadow stack of the heap: the only set of references the
// collector treats as live. Generated code pushes every tuple reference it
// still needs before a call that may allocate and pops it afterwards. The
// collector reads the entries below the top it is given and rewrites them to
// the relocated tuples, but it never pushes or pops.
//
// Keeping the stack balanced is entirely up to the caller.
type RootStack struct {
	slots []Ref
}

func newRootStack(size uint64) *RootStack {
	return &RootStack{slots: make([]Ref, 0, size/wordSize)}
}

// Push appends r and returns the new top of the stack.
func (s *RootStack) Push(r Ref) int {
	s.slots = append(s.slots, r)
	return len(s.slots)
}

// Pop removes and returns the topmost reference.
func (s *RootStack) Pop() Ref {
	if len(s.slots) == 0 {
		panic("gc: pop from empty root stack")
	}
	r := s.slots[len(s.slots)-1]
	s.slots[len(s.slots)-1] = Nil
	s.slots = s.slots[:len(s.slots)-1]
	return r
}

// Peek returns the topmost reference without removing it.
func (s *RootStack) Peek() Ref {
	if len(s.slots) == 0 {
		panic("gc: peek at empty root stack")
	}
	return s.slots[len(s.slots)-1]
}

// Len returns the current top of the stack, the number of entries on it.
func (s *RootStack) Len() int {
	return len(s.slots)
}

// Cap returns the number of entries the stack holds before it grows.
func (s *RootStack) Cap() int {
	return cap(s.slots)
}

// At returns entry i, counted from the base of the stack.
func (s *RootStack) At(i int) Ref {
	return s.slots[i]
}

// Set replaces entry i.
func (s *RootStack) Set(i int, r Ref) {
	s.slots[i] = r
}

// Truncate pops entries until top of them are left.
func (s *RootStack) Truncate(top int) {
	if top < 0 || top > len(s.slots) {
		panic(fmt.Sprintf("gc: truncate root stack of %d entries to %d", len(s.slots), top))
	}
	clear(s.slots[top:])
	s.slots = s.slots[:top]
}

// Entries below top, the part of the stack a collection works on.
func (s *RootStack) live(top int) []Ref {
	if top < 0 || top > len(s.slots) {
		panic(fmt.Sprintf("gc: root stack top %d out of range [0, %d]", top, len(s.slots)))
	}
	return s.slots[:top]
}
