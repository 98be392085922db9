package compiler

// This file contains the builtins of the language and the instructions they
// are lowered to.

import (
	"github.com/limechain/tuplegc/gc"
	"github.com/pkg/errors"
)

// Type checks a call to a builtin and emits the code for it, arguments
// included.
func (g *codegen) defineIntrinsic(call *Call) (Type, error) {
	switch call.Func {
	case "tuple":
		return g.createTuple(call)
	case "get":
		return g.createGet(call)
	}
	return nil, errors.Errorf("undefined: %s", call.Func)
}

// tuple(e0, ..., en) evaluates its arguments left to right and allocates a
// tuple holding them. Tuple valued arguments become pointer elements.
func (g *codegen) createTuple(call *Call) (Type, error) {
	if len(call.Args) > gc.MaxElements {
		return nil, errors.Errorf("%s: tuple of %d elements exceeds the maximum of %d",
			call, len(call.Args), gc.MaxElements)
	}
	t := &TupleType{Elems: make([]Type, len(call.Args))}
	var mask uint64
	for i, arg := range call.Args {
		elem, err := g.expr(arg)
		if err != nil {
			return nil, err
		}
		t.Elems[i] = elem
		if isPointer(elem) {
			mask |= 1 << uint(i)
		}
	}
	g.emit(Instr{Op: OpTuple, N: len(call.Args), K: mask})
	return t, nil
}

// get(t, k) reads element k of tuple t. k must be a constant in range.
func (g *codegen) createGet(call *Call) (Type, error) {
	if len(call.Args) != 2 {
		return nil, errors.Errorf("%s: get takes 2 arguments, found %d", call, len(call.Args))
	}
	index, ok := call.Args[1].(*IntLit)
	if !ok {
		return nil, errors.Errorf("%s: tuple index must be an integer constant, found %s", call, call.Args[1])
	}
	arg, err := g.expr(call.Args[0])
	if err != nil {
		return nil, err
	}
	t, ok := arg.(*TupleType)
	if !ok {
		return nil, errors.Errorf("%s: first argument to get must be a tuple, found %s", call, arg)
	}
	if index.Value < 0 || index.Value >= int64(len(t.Elems)) {
		return nil, errors.Errorf("%s: index %d out of range for %s", call, index.Value, t)
	}

	elem := t.Elems[index.Value]
	g.emit(Instr{Op: OpGet, N: int(index.Value), K: pointerFlag(elem)})
	return elem, nil
}
