package ail

import (
	"testing"

	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
)

func TestListPreservesOrder(t *testing.T) {
	l := New(4)
	l.Append(constant.NewNull(lltypes.I8Ptr))
	l.Append(constant.NewInt(lltypes.I32, 7))
	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}
	types := l.Types()
	if !lltypes.Equal(types[0], lltypes.I8Ptr) || !lltypes.Equal(types[1], lltypes.I32) {
		t.Fatalf("unexpected field types %v", types)
	}
	st := l.Struct(nil)
	if len(st.Fields) != 2 || st.Fields[1].Ident() != "7" {
		t.Fatalf("unexpected aggregate %s", st.Ident())
	}
}

func TestMismatch(t *testing.T) {
	l := New(2)
	l.Append(constant.NewNull(lltypes.I8Ptr))
	l.Append(constant.NewInt(lltypes.I32, 1))

	tests := []struct {
		name string
		want []lltypes.Type
		idx  int
	}{
		{"equal", []lltypes.Type{lltypes.I8Ptr, lltypes.I32}, -1},
		{"wrong type", []lltypes.Type{lltypes.I8Ptr, lltypes.I64}, 1},
		{"too short", []lltypes.Type{lltypes.I8Ptr}, 1},
		{"too long", []lltypes.Type{lltypes.I8Ptr, lltypes.I32, lltypes.I8}, 2},
	}
	for _, tt := range tests {
		if got := l.Mismatch(tt.want); got != tt.idx {
			t.Errorf("%s: Mismatch = %d, want %d", tt.name, got, tt.idx)
		}
	}
}
