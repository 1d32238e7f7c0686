package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"

	"rtgen/internal/types"
)

// LLType maps a front-end type to the LLVM type of a stored value.
// References of every kind are byte pointers.
func (m *Module) LLType(id types.TypeID) (lltypes.Type, error) {
	return m.llType(id, make(map[types.TypeID]struct{}, 4))
}

func (m *Module) llType(id types.TypeID, seen map[types.TypeID]struct{}) (lltypes.Type, error) {
	if m.types == nil {
		return nil, fmt.Errorf("missing type interner")
	}
	tt, ok := m.types.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("unknown type id %d", id)
	}
	switch tt.Kind {
	case types.KindVoid, types.KindBool, types.KindChar:
		return lltypes.I8, nil
	case types.KindInt, types.KindUint:
		return intWidthType(tt.Width), nil
	case types.KindFloat:
		return floatWidthType(tt.Width), nil
	case types.KindPointer, types.KindClass, types.KindInterface, types.KindFunction:
		return lltypes.I8Ptr, nil
	case types.KindArray:
		return m.slice, nil
	case types.KindDelegate:
		return lltypes.NewStruct(lltypes.I8Ptr, lltypes.I8Ptr), nil
	case types.KindStaticArray:
		elem, err := m.llType(tt.Elem, seen)
		if err != nil {
			return nil, err
		}
		return lltypes.NewArray(tt.Count, elem), nil
	case types.KindEnum:
		info, ok := m.types.EnumInfo(id)
		if !ok || info.Base == types.NoTypeID {
			return lltypes.I32, nil
		}
		return m.llType(info.Base, seen)
	case types.KindStruct:
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("struct %s contains itself by value", m.types.String(id))
		}
		seen[id] = struct{}{}
		defer delete(seen, id)
		info, ok := m.types.StructInfo(id)
		if !ok {
			return nil, fmt.Errorf("missing struct info for %d", id)
		}
		if len(info.Fields) == 0 {
			return lltypes.NewStruct(lltypes.I8), nil
		}
		fields := make([]lltypes.Type, 0, len(info.Fields))
		for _, f := range info.Fields {
			ft, err := m.llType(f.Type, seen)
			if err != nil {
				return nil, err
			}
			fields = append(fields, ft)
		}
		return lltypes.NewStruct(fields...), nil
	default:
		return nil, fmt.Errorf("unsupported type kind %s", tt.Kind)
	}
}

// FuncType maps a function type to its LLVM signature.
func (m *Module) FuncType(fn types.TypeID) (*lltypes.FuncType, error) {
	info, ok := m.types.FnInfo(fn)
	if !ok {
		return nil, fmt.Errorf("type %d is not a function", fn)
	}
	var ret lltypes.Type = lltypes.Void
	if tt, ok := m.types.Lookup(info.Result); ok && tt.Kind != types.KindVoid {
		r, err := m.LLType(info.Result)
		if err != nil {
			return nil, err
		}
		ret = r
	}
	params := make([]lltypes.Type, 0, len(info.Params))
	for _, p := range info.Params {
		pt, err := m.LLType(p)
		if err != nil {
			return nil, err
		}
		params = append(params, pt)
	}
	return lltypes.NewFunc(ret, params...), nil
}

// FieldInit returns the static initial value of a data member.
func (m *Module) FieldInit(f types.Field) (constant.Constant, error) {
	t, err := m.LLType(f.Type)
	if err != nil {
		return nil, err
	}
	if it, ok := t.(*lltypes.IntType); ok && f.Default != 0 {
		return &constant.Int{Typ: it, X: bigUint(f.Default)}, nil
	}
	return constant.NewZeroInitializer(t), nil
}

// ValueInit returns the default value of a type, honouring enum defaults
// and struct field initializers.
func (m *Module) ValueInit(id types.TypeID) (constant.Constant, error) {
	t, err := m.LLType(id)
	if err != nil {
		return nil, err
	}
	if info, ok := m.types.EnumInfo(id); ok && info.Default != 0 {
		if it, ok := t.(*lltypes.IntType); ok {
			return &constant.Int{Typ: it, X: bigUint(info.Default)}, nil
		}
	}
	info, ok := m.types.StructInfo(id)
	if !ok || len(info.Fields) == 0 {
		return constant.NewZeroInitializer(t), nil
	}
	st, _ := t.(*lltypes.StructType)
	fields := make([]constant.Constant, 0, len(info.Fields))
	for _, f := range info.Fields {
		c, err := m.FieldInit(f)
		if err != nil {
			return nil, err
		}
		fields = append(fields, c)
	}
	return constant.NewStruct(st, fields...), nil
}

// IsZero reports whether c is an all-zero constant.
func IsZero(c constant.Constant) bool {
	switch c := c.(type) {
	case *constant.ZeroInitializer, *constant.Null:
		return true
	case *constant.Int:
		return c.X.Sign() == 0
	case *constant.Struct:
		for _, f := range c.Fields {
			if !IsZero(f) {
				return false
			}
		}
		return true
	case *constant.Array:
		for _, e := range c.Elems {
			if !IsZero(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// PaddedSize returns the allocation size of t on the module's target,
// including trailing struct padding.
func (m *Module) PaddedSize(t lltypes.Type) uint64 {
	size, _ := m.sizeAlign(t)
	return size
}

func (m *Module) sizeAlign(t lltypes.Type) (size, align uint64) {
	switch t := t.(type) {
	case *lltypes.IntType:
		bytes := (t.BitSize + 7) / 8
		p := uint64(1)
		for p < bytes {
			p <<= 1
		}
		return p, min(p, 8)
	case *lltypes.FloatType:
		if t.Kind == lltypes.FloatKindFloat {
			return 4, 4
		}
		return 8, 8
	case *lltypes.PointerType:
		return uint64(m.target.PtrSize), uint64(m.target.PtrAlign)
	case *lltypes.ArrayType:
		es, ea := m.sizeAlign(t.ElemType)
		return roundUp(es, ea) * t.Len, ea
	case *lltypes.StructType:
		if t.Opaque {
			return 0, 1
		}
		var off uint64
		maxAlign := uint64(1)
		for _, f := range t.Fields {
			fs, fa := m.sizeAlign(f)
			if t.Packed {
				fa = 1
			}
			off = roundUp(off, fa) + fs
			maxAlign = max(maxAlign, fa)
		}
		return roundUp(off, maxAlign), maxAlign
	default:
		return 0, 1
	}
}

func roundUp(n, align uint64) uint64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

func intWidthType(width types.Width) *lltypes.IntType {
	switch width {
	case types.Width8:
		return lltypes.I8
	case types.Width16:
		return lltypes.I16
	case types.Width32:
		return lltypes.I32
	default:
		return lltypes.I64
	}
}

func floatWidthType(width types.Width) *lltypes.FloatType {
	if width == types.Width32 {
		return lltypes.Float
	}
	return lltypes.Double
}
