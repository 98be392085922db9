package compiler

import "strings"

// Type is the static type of an expression.
type Type interface {
	String() string
}

type IntType struct{}

type BoolType struct{}

// TupleType is a tuple with the given element types. Tuples live on the heap,
// values of this type are references.
type TupleType struct {
	Elems []Type
}

func (IntType) String() string  { return "int" }
func (BoolType) String() string { return "bool" }

func (t *TupleType) String() string {
	elems := make([]string, len(t.Elems))
	for i, elem := range t.Elems {
		elems[i] = elem.String()
	}
	return "tuple(" + strings.Join(elems, ", ") + ")"
}

// Reports whether values of type t are heap references.
func isPointer(t Type) bool {
	_, ok := t.(*TupleType)
	return ok
}

// Check type checks e and returns its type.
func Check(e Expr) (Type, error) {
	var g codegen
	return g.expr(e)
}
