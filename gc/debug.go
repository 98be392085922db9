package gc

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/sigurn/crc16"
)

var crcTable = crc16.MakeTable(crc16.CRC16_X_25)

// Walk calls fn for every tuple allocated in the current semi-space, in
// address order, until fn returns false. The walk includes garbage that has
// not been collected yet. fn must not allocate.
func (h *Heap) Walk(fn func(r Ref) bool) {
	h.mustInit()
	for off := 0; off < h.free; {
		n := h.from.words[off+lengthWord]
		if n > MaxElements {
			corruptPanic("tuple at word %d has length %d", off, n)
		}
		if !fn(makeRef(h.epoch, off)) {
			return
		}
		off += tupleWords(int(n))
	}
}

// Fingerprint returns a checksum over the length, the pointer bitmap and the
// scalar elements of r. Pointer elements do not contribute, since their value
// changes whenever the tuple they reference moves. A tuple keeps its
// fingerprint across collections.
func (h *Heap) Fingerprint(r Ref) uint16 {
	off := h.object(r)
	n := int(h.from.words[off+lengthWord])
	bitmap := h.from.words[off+bitmapWord]

	buf := make([]byte, 0, (2+n)*wordSize)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(n))
	buf = binary.LittleEndian.AppendUint64(buf, bitmap)
	for i := 0; i < n; i++ {
		v := h.from.words[off+headerWords+i]
		if bitmap&(1<<uint(i)) != 0 {
			v = 0
		}
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	return crc16.Checksum(buf, crcTable)
}

// Dump writes every tuple of the current semi-space to w, followed by a
// summary line.
func (h *Heap) Dump(w io.Writer) error {
	var (
		count int
		total uint64
		err   error
		line  strings.Builder
	)
	h.Walk(func(r Ref) bool {
		off := h.object(r)
		n := int(h.from.words[off+lengthWord])
		bitmap := h.from.words[off+bitmapWord]

		line.Reset()
		fmt.Fprintf(&line, "%v: len %d [", r, n)
		for i := 0; i < n; i++ {
			if i > 0 {
				line.WriteByte(' ')
			}
			v := h.from.words[off+headerWords+i]
			if bitmap&(1<<uint(i)) != 0 {
				line.WriteString(Ref(v).String())
			} else {
				fmt.Fprintf(&line, "%d", int64(v))
			}
		}
		line.WriteString("]\n")

		count++
		total += Footprint(n)
		_, err = io.WriteString(w, line.String())
		return err == nil
	})
	if err != nil {
		return err
	}

	_, capacity := h.Size()
	_, err = fmt.Fprintf(w, "total heap tuples - count: %d size: %s capacity: %s\n",
		count, formatSize(total), formatSize(capacity))
	return err
}
