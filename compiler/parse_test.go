package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"42", "42"},
		{"-7", "-7"},
		{"0x10", "16"},
		{"true", "true"},
		{"tuple()", "tuple()"},
		{"tuple(1, true, 42)", "tuple(1, true, 42)"},
		{"get(get(tuple(tuple(1, 42, true)), 0), 1)", "get(get(tuple(tuple(1, 42, true)), 0), 1)"},
		{"  get( tuple(1,2) ,1 ) // second", "get(tuple(1, 2), 1)"},
		{"x", "x"},
		{"let x = 1 in x end", "let x = 1 in x end"},
		{"let t = tuple(1, 2) in\n\tlet u = tuple(t, t) in get(u, 0) end\nend",
			"let t = tuple(1, 2) in let u = tuple(t, t) in get(u, 0) end end"},
	}
	for _, tt := range tests {
		e, err := Parse(tt.src)
		require.NoError(t, err, tt.src)
		require.Equal(t, tt.want, e.String())
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"tuple(",
		"tuple(1,)",
		"tuple(1 2)",
		"1 2",
		"in",
		"let x = 1 in x",
		"let = 1 in 2 end",
		"let x 1 in x end",
		"let end = 1 in 2 end",
		"let x = 1 end",
		"- true",
		"99999999999999999999",
	} {
		_, err := Parse(src)
		require.Error(t, err, "%q", src)
	}
}
