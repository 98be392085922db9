package gc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollectUnrootedFillKeepsOneRoot(t *testing.T) {
	h := newTestHeap(t, 4096)
	footprint := Footprint(1)

	var refs []Ref
	for inUse, _ := h.Size(); inUse+footprint < 4096; inUse, _ = h.Size() {
		refs = append(refs, newTuple(t, h, 0, uint64(len(refs))))
	}
	require.Len(t, refs, 127)

	h.Roots().Push(refs[50])
	h.Collect(1)

	inUse, capacity := h.Size()
	require.Equal(t, footprint, inUse)
	require.EqualValues(t, 4096, capacity)
	require.EqualValues(t, 50, h.Get(h.Roots().At(0), 0))
}

func TestCollectPreservesChain(t *testing.T) {
	h := newTestHeap(t, 4096)
	roots := h.Roots()

	// Garbage in front of the chain, so the chain moves down on collection.
	for i := 0; i < 10; i++ {
		newTuple(t, h, 0, 0xbad)
	}

	// 1 -> 2 -> 3 -> nil, built back to front.
	roots.Push(newTuple(t, h, 0b10, 3, 0))
	for _, v := range []uint64{2, 1} {
		node := newTuple(t, h, 0b10, v, 0)
		h.SetRef(node, 1, roots.Pop())
		roots.Push(node)
	}

	chain := func() []Ref {
		var refs []Ref
		for r := roots.At(0); r != Nil; r = h.GetRef(r, 1) {
			refs = append(refs, r)
		}
		return refs
	}

	before := chain()
	require.Len(t, before, 3)

	collect(h)

	after := chain()
	require.Len(t, after, 3)
	for i, r := range after {
		require.EqualValues(t, i+1, h.Get(r, 0))
		require.Equal(t, 2, h.Len(r))
		require.EqualValues(t, 0b10, h.PointerBitmap(r))
		require.NotEqual(t, before[i], r)
	}

	inUse, _ := h.Size()
	require.Equal(t, 3*Footprint(2), inUse)
}

func TestCollectFullHeapWithoutGrowth(t *testing.T) {
	h := newTestHeap(t, 4096)

	for i := 0; i < 128; i++ {
		newTuple(t, h, 0, uint64(i))
	}
	inUse, _ := h.Size()
	require.EqualValues(t, 4096, inUse)

	r := newTuple(t, h, 0, 42)

	inUse, capacity := h.Size()
	require.Equal(t, Footprint(1), inUse)
	require.EqualValues(t, 4096, capacity)
	require.EqualValues(t, 42, h.Get(r, 0))

	var m MemStats
	h.ReadMemStats(&m)
	require.EqualValues(t, 1, m.NumGC)
	require.Zero(t, m.NumGrow)
}

func TestCollectRoundTrip(t *testing.T) {
	h := newTestHeap(t, 8192)
	roots := h.Roots()

	leaf := newTuple(t, h, 0, 1<<63, 0, 17)
	roots.Push(leaf)
	roots.Push(newTuple(t, h, 0))
	roots.Push(newTuple(t, h, 0b1010, 5, 0, ^uint64(0), 0))
	mixed := roots.Peek()
	h.SetRef(mixed, 1, roots.At(0))
	h.SetRef(mixed, 3, roots.At(1))

	vals := make([]uint64, MaxElements)
	for i := range vals {
		vals[i] = uint64(i * 1000003)
	}
	roots.Push(newTuple(t, h, 0, vals...))

	type snapshot struct {
		length int
		bitmap uint64
		print  uint16
	}
	take := func() []snapshot {
		var s []snapshot
		for i := 0; i < roots.Len(); i++ {
			r := roots.At(i)
			s = append(s, snapshot{h.Len(r), h.PointerBitmap(r), h.Fingerprint(r)})
		}
		return s
	}

	want := take()
	for i := 0; i < 3; i++ {
		collect(h)
		require.Equal(t, want, take())

		mixed := roots.At(2)
		require.Equal(t, roots.At(0), h.GetRef(mixed, 1))
		require.Equal(t, roots.At(1), h.GetRef(mixed, 3))
		require.Equal(t, ^uint64(0), h.Get(mixed, 2))
		require.EqualValues(t, uint64(1)<<63, h.Get(roots.At(0), 0))
		require.Equal(t, vals[MaxElements-1], h.Get(roots.At(3), MaxElements-1))
	}
}

func TestCollectDiscardsUnreachable(t *testing.T) {
	h := newTestHeap(t, 4096)

	h.Roots().Push(newTuple(t, h, 0, 1))
	newTuple(t, h, 0, 2, 3)
	newTuple(t, h, 0b1, 0)

	before, _ := h.Size()
	collect(h)
	after, _ := h.Size()

	require.Equal(t, Footprint(1), after)
	require.Equal(t, Footprint(2)+Footprint(1), before-after)

	var m MemStats
	h.ReadMemStats(&m)
	require.Equal(t, before-after, m.BytesReclaimed)
}

func TestCollectDuplicateRoots(t *testing.T) {
	h := newTestHeap(t, 4096)
	roots := h.Roots()

	a := newTuple(t, h, 0, 7)
	roots.Push(a)
	roots.Push(newTuple(t, h, 0, 8, 9))
	roots.Push(a)

	collect(h)

	require.Equal(t, roots.At(0), roots.At(2))
	require.NotEqual(t, roots.At(0), roots.At(1))
	require.EqualValues(t, 7, h.Get(roots.At(2), 0))

	inUse, _ := h.Size()
	require.Equal(t, Footprint(1)+Footprint(2), inUse)
}

func TestCollectSharedReferent(t *testing.T) {
	h := newTestHeap(t, 4096)
	roots := h.Roots()

	roots.Push(newTuple(t, h, 0b1, 0, 99))
	x := newTuple(t, h, 0b1, 0)
	h.SetRef(x, 0, roots.At(0))
	roots.Push(x)
	y := newTuple(t, h, 0b1, 0)
	h.SetRef(y, 0, roots.At(0))
	roots.Push(y)

	// Only reachable through x and y from here on.
	roots.Set(0, Nil)

	collect(h)

	x, y = roots.At(1), roots.At(2)
	z := h.GetRef(x, 0)
	require.Equal(t, z, h.GetRef(y, 0))
	require.EqualValues(t, 99, h.Get(z, 1))
	require.Equal(t, Nil, roots.At(0))

	inUse, _ := h.Size()
	require.Equal(t, Footprint(2)+2*Footprint(1), inUse)
}

func TestCollectCycles(t *testing.T) {
	t.Run("self", func(t *testing.T) {
		h := newTestHeap(t, 4096)
		a := newTuple(t, h, 0b1, 0, 5)
		h.SetRef(a, 0, a)
		h.Roots().Push(a)

		for i := 0; i < 3; i++ {
			collect(h)
			a = h.Roots().At(0)
			require.Equal(t, a, h.GetRef(a, 0))
			require.EqualValues(t, 5, h.Get(a, 1))
		}

		inUse, _ := h.Size()
		require.Equal(t, Footprint(2), inUse)
	})

	t.Run("pair", func(t *testing.T) {
		h := newTestHeap(t, 4096)
		roots := h.Roots()
		roots.Push(newTuple(t, h, 0b1, 0, 1))
		b := newTuple(t, h, 0b1, 0, 2)
		h.SetRef(b, 0, roots.At(0))
		h.SetRef(roots.At(0), 0, b)

		collect(h)

		a := roots.At(0)
		b = h.GetRef(a, 0)
		require.Equal(t, a, h.GetRef(b, 0))
		require.EqualValues(t, 1, h.Get(a, 1))
		require.EqualValues(t, 2, h.Get(b, 1))

		inUse, _ := h.Size()
		require.Equal(t, 2*Footprint(2), inUse)
	})
}

func TestCollectOnlyBelowTop(t *testing.T) {
	h := newTestHeap(t, 4096)
	roots := h.Roots()
	roots.Push(newTuple(t, h, 0, 1))
	stale := newTuple(t, h, 0, 2, 2)
	roots.Push(stale)

	h.Collect(1)

	inUse, _ := h.Size()
	require.Equal(t, Footprint(1), inUse)
	require.Equal(t, stale, roots.At(1))
	require.Panics(t, func() { h.Len(roots.At(1)) })

	require.Panics(t, func() { h.Collect(3) })
	require.Panics(t, func() { h.Collect(-1) })
}

func TestCollectLongList(t *testing.T) {
	h := newTestHeap(t, 64)
	roots := h.Roots()

	const n = 2000
	roots.Push(Nil)
	for i := 0; i < n; i++ {
		node, err := h.NewTuple(roots.Len(), 2, 0b10)
		require.NoError(t, err)
		h.Set(node, 0, uint64(i))
		h.SetRef(node, 1, roots.Pop())
		roots.Push(node)
	}

	collect(h)

	i := n
	for r := roots.At(0); r != Nil; r = h.GetRef(r, 1) {
		i--
		require.EqualValues(t, i, h.Get(r, 0))
	}
	require.Zero(t, i)

	inUse, _ := h.Size()
	require.Equal(t, n*Footprint(2), inUse)
}

func TestCollectDetectsCorruption(t *testing.T) {
	t.Run("foreign reference", func(t *testing.T) {
		h := newTestHeap(t, 4096)
		r := newTuple(t, h, 0b1, 0)
		h.from.words[r.offset()+headerWords] = uint64(makeRef(h.epoch+7, 0))
		h.Roots().Push(r)
		require.Panics(t, func() { collect(h) })
	})

	t.Run("reference past the bump pointer", func(t *testing.T) {
		h := newTestHeap(t, 4096)
		r := newTuple(t, h, 0b1, 0)
		h.from.words[r.offset()+headerWords] = uint64(makeRef(h.epoch, 100))
		h.Roots().Push(r)
		require.Panics(t, func() { collect(h) })
	})

	t.Run("length", func(t *testing.T) {
		h := newTestHeap(t, 4096)
		r := newTuple(t, h, 0, 1)
		h.from.words[r.offset()+lengthWord] = MaxElements + 1
		h.Roots().Push(r)
		require.Panics(t, func() { collect(h) })
	})

	t.Run("root from another heap", func(t *testing.T) {
		other := newTestHeap(t, 4096)
		h := newTestHeap(t, 4096)
		h.Roots().Push(newTuple(t, other, 0, 1))
		require.Panics(t, func() { collect(h) })
	})

	t.Run("forwarding", func(t *testing.T) {
		h := newTestHeap(t, 4096)
		r := newTuple(t, h, 0, 1)
		h.from.words[r.offset()+forwardWord] = uint64(makeRef(h.epoch, 0))
		h.Roots().Push(r)
		require.Panics(t, func() { collect(h) })
	})
}

// Sums the footprints of the tuples reachable from the roots.
func reachableFootprint(h *Heap) uint64 {
	seen := make(map[Ref]bool)
	var total uint64
	var visit func(r Ref)
	visit = func(r Ref) {
		if r == Nil || seen[r] {
			return
		}
		seen[r] = true
		n := h.Len(r)
		total += Footprint(n)
		for i := 0; i < n; i++ {
			if h.IsPointer(r, i) {
				visit(h.GetRef(r, i))
			}
		}
	}
	roots := h.Roots()
	for i := 0; i < roots.Len(); i++ {
		visit(roots.At(i))
	}
	return total
}

func TestCollectRandomized(t *testing.T) {
	h, err := New(Config{StackSize: 4096, PageSize: 64})
	require.NoError(t, err)
	roots := h.Roots()
	rng := rand.New(rand.NewSource(1))

	for step := 0; step < 3000; step++ {
		switch op := rng.Intn(10); {
		case op < 5:
			n := rng.Intn(6)
			mask := lowBits(rng.Uint64(), n)
			r, err := h.NewTuple(roots.Len(), n, mask)
			require.NoError(t, err)
			for i := 0; i < n; i++ {
				switch {
				case mask&(1<<uint(i)) == 0:
					h.Set(r, i, rng.Uint64())
				case roots.Len() > 0 && rng.Intn(4) != 0:
					h.SetRef(r, i, roots.At(rng.Intn(roots.Len())))
				}
			}
			roots.Push(r)
		case op < 7:
			if roots.Len() > 0 {
				roots.Pop()
			}
		case op < 8:
			if roots.Len() > 0 {
				roots.Push(roots.At(rng.Intn(roots.Len())))
			}
		default:
			prints := make([]uint16, roots.Len())
			for i := range prints {
				prints[i] = h.Fingerprint(roots.At(i))
			}
			collect(h)
			for i, want := range prints {
				require.Equal(t, want, h.Fingerprint(roots.At(i)), "root %d after step %d", i, step)
			}
			inUse, _ := h.Size()
			require.Equal(t, reachableFootprint(h), inUse, "step %d", step)
		}
	}
}
