package compiler

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/limechain/tuplegc/gc"
	"github.com/pkg/errors"
)

// Op is an instruction of a compiled program. Programs run on two stacks: a
// stack of scalars, and the root stack of the heap, which holds every tuple
// reference the program is working with. Keeping references only on the root
// stack is what lets a collection in the middle of a program move them.
type Op uint8

const (
	// Push K on the scalar stack.
	OpConst Op = iota

	// Allocate a tuple of N elements with pointer mask K. The elements are
	// taken from the top of the stacks, the last element topmost; the tuple
	// is pushed on the root stack.
	OpTuple

	// Replace the tuple on top of the root stack by its element N. K is 1 if
	// the element is a reference.
	OpGet

	// Push a copy of entry N of the root stack if K is 1, of the scalar
	// stack otherwise. N counts from the bottom of the program's part of the
	// stack.
	OpLoad

	// Remove entry N of the root stack if K is 1, of the scalar stack
	// otherwise. The entries above it move down by one.
	OpDrop
)

var opNames = [...]string{
	OpConst: "const",
	OpTuple: "tuple",
	OpGet:   "get",
	OpLoad:  "load",
	OpDrop:  "drop",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// Instr is a single instruction.
type Instr struct {
	Op Op
	N  int
	K  uint64
}

func (in Instr) String() string {
	switch in.Op {
	case OpConst:
		return fmt.Sprintf("const %d", int64(in.K))
	case OpTuple:
		return fmt.Sprintf("tuple %d %#b", in.N, in.K)
	case OpGet, OpLoad, OpDrop:
		if in.K != 0 {
			return fmt.Sprintf("%vptr %d", in.Op, in.N)
		}
		return fmt.Sprintf("%v %d", in.Op, in.N)
	}
	return in.Op.String()
}

// Program is a compiled expression.
type Program struct {
	Code []Instr

	// Type of the value the program computes, int or bool.
	Result Type
}

type codegen struct {
	code []Instr

	// Innermost binding last.
	scope []binding

	// Depths of the root and scalar stacks once the code so far has run.
	roots, scalars int
}

func (g *codegen) emit(in Instr) {
	g.code = append(g.code, in)
	switch in.Op {
	case OpConst:
		g.scalars++
	case OpTuple:
		ptrs := bits.OnesCount64(in.K)
		g.roots += 1 - ptrs
		g.scalars -= in.N - ptrs
	case OpGet:
		g.roots--
		g.push(in.K)
	case OpLoad:
		g.push(in.K)
	case OpDrop:
		if in.K != 0 {
			g.roots--
		} else {
			g.scalars--
		}
	}
}

func (g *codegen) push(ptr uint64) {
	if ptr != 0 {
		g.roots++
	} else {
		g.scalars++
	}
}

// Stack depth of values of type t.
func (g *codegen) depth(t Type) int {
	if isPointer(t) {
		return g.roots
	}
	return g.scalars
}

func (g *codegen) expr(e Expr) (Type, error) {
	switch e := e.(type) {
	case *IntLit:
		g.emit(Instr{Op: OpConst, K: uint64(e.Value)})
		return IntType{}, nil
	case *BoolLit:
		var k uint64
		if e.Value {
			k = 1
		}
		g.emit(Instr{Op: OpConst, K: k})
		return BoolType{}, nil
	case *Call:
		return g.defineIntrinsic(e)
	case *Var:
		return g.variable(e)
	case *Let:
		return g.let(e)
	}
	return nil, errors.Errorf("unexpected expression %T", e)
}

// Compile type checks e and lowers it to a program. The value of e must be a
// scalar.
func Compile(e Expr) (*Program, error) {
	var g codegen
	t, err := g.expr(e)
	if err != nil {
		return nil, err
	}
	if isPointer(t) {
		return nil, errors.Errorf("%s: program result must be int or bool, found %s", e, t)
	}
	return &Program{Code: g.code, Result: t}, nil
}

func (p *Program) String() string {
	var b strings.Builder
	for i, in := range p.Code {
		fmt.Fprintf(&b, "%4d  %v\n", i, in)
	}
	return b.String()
}

// Run executes the program on h and returns its result; booleans yield 0 or
// 1. The root stack of h is left as it was found, also when an allocation
// fails.
func (p *Program) Run(h *gc.Heap) (int64, error) {
	roots := h.Roots()
	base := roots.Len()
	defer roots.Truncate(base)

	var scalars []uint64
	pop := func() uint64 {
		v := scalars[len(scalars)-1]
		scalars = scalars[:len(scalars)-1]
		return v
	}

	for _, in := range p.Code {
		switch in.Op {
		case OpConst:
			scalars = append(scalars, in.K)
		case OpTuple:
			// The pointer elements are rooted, so they survive the
			// allocation even if it collects.
			t, err := h.NewTuple(roots.Len(), in.N, in.K)
			if err != nil {
				return 0, err
			}
			for i := in.N - 1; i >= 0; i-- {
				if in.K&(1<<uint(i)) != 0 {
					h.SetRef(t, i, roots.Pop())
				} else {
					h.Set(t, i, pop())
				}
			}
			roots.Push(t)
		case OpGet:
			t := roots.Pop()
			if in.K != 0 {
				roots.Push(h.GetRef(t, in.N))
			} else {
				scalars = append(scalars, h.Get(t, in.N))
			}
		case OpLoad:
			if in.K != 0 {
				if base+in.N >= roots.Len() {
					return 0, errors.Errorf("invalid instruction %v", in)
				}
				roots.Push(roots.At(base + in.N))
			} else {
				if in.N >= len(scalars) {
					return 0, errors.Errorf("invalid instruction %v", in)
				}
				scalars = append(scalars, scalars[in.N])
			}
		case OpDrop:
			if in.K != 0 {
				top := roots.Len()
				if base+in.N >= top {
					return 0, errors.Errorf("invalid instruction %v", in)
				}
				for i := base + in.N; i < top-1; i++ {
					roots.Set(i, roots.At(i+1))
				}
				roots.Pop()
			} else {
				if in.N >= len(scalars) {
					return 0, errors.Errorf("invalid instruction %v", in)
				}
				scalars = append(scalars[:in.N], scalars[in.N+1:]...)
			}
		default:
			return 0, errors.Errorf("invalid instruction %v", in)
		}
	}

	if len(scalars) != 1 || roots.Len() != base {
		return 0, errors.Errorf("program left %d scalars and %d roots", len(scalars), roots.Len()-base)
	}
	return int64(scalars[0]), nil
}
