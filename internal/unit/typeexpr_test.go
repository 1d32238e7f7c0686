package unit

import (
	"errors"
	"testing"

	"rtgen/internal/types"
)

func TestParseTypeExpressions(t *testing.T) {
	in := types.NewInterner()
	pt, _ := in.RegisterStruct("app", "Point")
	resolve := func(name string) (types.TypeID, bool) {
		if name == "Point" || name == "app.Point" {
			return pt, true
		}
		return types.NoTypeID, false
	}
	tests := []struct {
		expr string
		want string
	}{
		{"int", "int"},
		{"ubyte*", "ubyte*"},
		{"char[]", "char[]"},
		{"Point[4]", "app.Point[4]"},
		{"app.Point*[]", "app.Point*[]"},
		{"int[1_000]", "int[1000]"},
		{"function(int, Point*) double", "double function(int, app.Point*)"},
		{"delegate() void", "void delegate()"},
		{" long [ 2 ] ", "long[2]"},
	}
	for _, tt := range tests {
		id, err := ParseType(in, resolve, tt.expr)
		if err != nil {
			t.Errorf("ParseType(%q): %v", tt.expr, err)
			continue
		}
		if got := in.String(id); got != tt.want {
			t.Errorf("ParseType(%q) = %s, want %s", tt.expr, got, tt.want)
		}
	}
}

func TestParseTypeErrors(t *testing.T) {
	in := types.NewInterner()
	tests := []struct {
		expr string
		kind ExprErrorKind
	}{
		{"", ExprSyntax},
		{"int[", ExprSyntax},
		{"int[3", ExprSyntax},
		{"int)", ExprSyntax},
		{"function int", ExprSyntax},
		{"function(int", ExprSyntax},
		{"Shape", ExprUnknownName},
		{"function(Shape) void", ExprUnknownName},
	}
	for _, tt := range tests {
		_, err := ParseType(in, nil, tt.expr)
		var ee *ExprError
		if !errors.As(err, &ee) || ee.Kind != tt.kind {
			t.Errorf("ParseType(%q) = %v, want kind %d", tt.expr, err, tt.kind)
		}
	}
}
