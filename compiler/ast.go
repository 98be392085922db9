package compiler

import (
	"strconv"
	"strings"
)

// Expr is an expression of the psc tuple language.
type Expr interface {
	String() string
	exprNode()
}

// IntLit is an integer constant.
type IntLit struct {
	Value int64
}

// BoolLit is true or false.
type BoolLit struct {
	Value bool
}

// Call applies a builtin, such as tuple or get, to its arguments.
type Call struct {
	Func string
	Args []Expr
}

// Var refers to the value bound by an enclosing let.
type Var struct {
	Name string
}

// Let binds Name to the value of Value while evaluating Body.
type Let struct {
	Name  string
	Value Expr
	Body  Expr
}

func (*IntLit) exprNode()  {}
func (*BoolLit) exprNode() {}
func (*Call) exprNode()    {}
func (*Var) exprNode()     {}
func (*Let) exprNode()     {}

func (e *IntLit) String() string {
	return strconv.FormatInt(e.Value, 10)
}

func (e *BoolLit) String() string {
	return strconv.FormatBool(e.Value)
}

func (e *Call) String() string {
	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		args[i] = arg.String()
	}
	return e.Func + "(" + strings.Join(args, ", ") + ")"
}

func (e *Var) String() string {
	return e.Name
}

func (e *Let) String() string {
	return "let " + e.Name + " = " + e.Value.String() + " in " + e.Body.String() + " end"
}
