package compiler

import "github.com/pkg/errors"

// A let bound value stays where its initializer left it, on the root stack
// for tuples and on the scalar stack otherwise, until the end of the body.
// Tuples bound this way are therefore rooted across every allocation the
// body makes.
type binding struct {
	name string
	typ  Type

	// Index of the value on its stack.
	slot int
}

func pointerFlag(t Type) uint64 {
	if isPointer(t) {
		return 1
	}
	return 0
}

func (g *codegen) let(e *Let) (Type, error) {
	t, err := g.expr(e.Value)
	if err != nil {
		return nil, err
	}
	b := binding{name: e.Name, typ: t, slot: g.depth(t) - 1}

	g.scope = append(g.scope, b)
	body, err := g.expr(e.Body)
	g.scope = g.scope[:len(g.scope)-1]
	if err != nil {
		return nil, err
	}

	// The body left its value on top, above the binding when both are on
	// the same stack.
	g.emit(Instr{Op: OpDrop, N: b.slot, K: pointerFlag(t)})
	return body, nil
}

func (g *codegen) variable(e *Var) (Type, error) {
	for i := len(g.scope) - 1; i >= 0; i-- {
		if b := g.scope[i]; b.name == e.Name {
			g.emit(Instr{Op: OpLoad, N: b.slot, K: pointerFlag(b.typ)})
			return b.typ, nil
		}
	}
	return nil, errors.Errorf("undefined: %s", e.Name)
}
