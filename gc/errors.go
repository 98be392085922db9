package gc

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrOutOfMemory is returned when neither a collection nor growing the
	// heap can make room for an allocation.
	ErrOutOfMemory = errors.New("gc: out of memory")

	// ErrTooManyElements is returned when a tuple is requested with more
	// than MaxElements (or a negative number of) elements.
	ErrTooManyElements = errors.New("gc: too many tuple elements")
)

func gcRunningPanic() {
	panic("gc: collector invoked recursively")
}

func notInitializedPanic() {
	panic("gc: heap used before initialization")
}

// The producer of the tuples broke the object model. There is no way to
// continue safely.
func corruptPanic(format string, args ...interface{}) {
	panic("gc: heap corrupted: " + fmt.Sprintf(format, args...))
}
