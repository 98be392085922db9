package gc

import (
	"io"
	"log/slog"
)

const (
	// Space and root stack sizes are rounded up to this many bytes.
	spaceAlign = 64

	// Largest space the Ref encoding can address: the word offset plus one
	// has to fit in 32 bits.
	maxSpaceSize = (1<<32 - 2) * wordSize &^ (spaceAlign - 1)

	// DefaultStackSize and DefaultHeapSize match the sizes the psc test
	// harness initialized its runtime with.
	DefaultStackSize = 16 * 1024
	DefaultHeapSize  = 16 * 1024

	// DefaultMaxHeapSize bounds how far a single semi-space may grow.
	DefaultMaxHeapSize = 16 << 30
)

// Config holds the parameters of a Heap.
type Config struct {
	// Initial capacity of the shadow root stack in bytes. The stack grows
	// past it when needed.
	StackSize uint64

	// Initial capacity of each semi-space in bytes.
	HeapSize uint64

	// Upper bound for the capacity of a semi-space. Growth beyond it fails
	// with ErrOutOfMemory. Zero means DefaultMaxHeapSize.
	MaxHeapSize uint64

	// Granularity of heap growth. Zero means the page size of the system.
	PageSize uint64

	// Destination of collection and growth events. Nil discards them.
	Logger *slog.Logger
}

// DefaultConfig returns the configuration used by Init.
func DefaultConfig() Config {
	return Config{
		StackSize:   DefaultStackSize,
		HeapSize:    DefaultHeapSize,
		MaxHeapSize: DefaultMaxHeapSize,
	}
}

// Fills in defaults and clamps the limits to what a Ref can address.
func (c Config) normalize() Config {
	if c.MaxHeapSize == 0 {
		c.MaxHeapSize = DefaultMaxHeapSize
	}
	if c.MaxHeapSize > maxSpaceSize {
		c.MaxHeapSize = maxSpaceSize
	}
	if c.PageSize == 0 {
		c.PageSize = systemPageSize()
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Rounds size up to spaceAlign. Reports false on overflow.
func alignSpace(size uint64) (uint64, bool) {
	return roundUp(size, spaceAlign)
}
