// Package ail holds the ordered field values of a descriptor under
// construction.
package ail

import (
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
)

// List is an append-only sequence of constant field values. The position of
// a value is its field index in the finished aggregate.
type List struct {
	values []constant.Constant
}

// New returns an empty list with room for n fields.
func New(n int) *List {
	return &List{values: make([]constant.Constant, 0, n)}
}

// Append adds v as the next field.
func (l *List) Append(v constant.Constant) {
	l.values = append(l.values, v)
}

// Len returns the number of fields appended so far.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.values)
}

// At returns the i-th field value.
func (l *List) At(i int) constant.Constant {
	return l.values[i]
}

// Values returns a copy of the field values in order.
func (l *List) Values() []constant.Constant {
	return append([]constant.Constant(nil), l.values...)
}

// Types returns the field types in order.
func (l *List) Types() []lltypes.Type {
	out := make([]lltypes.Type, 0, len(l.values))
	for _, v := range l.values {
		out = append(out, v.Type())
	}
	return out
}

// Struct builds the aggregate with type t. A nil t yields a literal struct
// of the field types.
func (l *List) Struct(t *lltypes.StructType) *constant.Struct {
	if t == nil {
		t = lltypes.NewStruct(l.Types()...)
	}
	return constant.NewStruct(t, l.Values()...)
}

// Mismatch returns the index of the first field whose type differs from
// want, or -1 when the list matches want exactly.
func (l *List) Mismatch(want []lltypes.Type) int {
	n := min(len(want), len(l.values))
	for i := 0; i < n; i++ {
		if !lltypes.Equal(want[i], l.values[i].Type()) {
			return i
		}
	}
	if len(want) != len(l.values) {
		return n
	}
	return -1
}
