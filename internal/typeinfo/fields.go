package typeinfo

import (
	"fmt"

	"fortio.org/safecast"
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"

	"rtgen/internal/backend/llvm"
	"rtgen/internal/rtti"
	"rtgen/internal/types"
)

// Struct m_flags.
const structHasPointers uint32 = 1

// ClassInfo flags.
const (
	classIsCOM       uint32 = 1
	classNoPointers  uint32 = 2
	classHasOffTi    uint32 = 4
	classHasCtor     uint32 = 8
	classHasTypeInfo uint32 = 32
	classIsAbstract  uint32 = 64
)

func (g *Generator) typeInfoFields(b *rtti.Builder, id types.TypeID, tt types.Type) error {
	switch tt.Kind {
	case types.KindPointer, types.KindArray:
		return g.pushTypeInfo(b, tt.Elem)
	case types.KindStaticArray:
		if err := g.pushTypeInfo(b, tt.Elem); err != nil {
			return err
		}
		return b.PushSize(tt.Count)
	case types.KindEnum:
		return g.enumFields(b, id)
	case types.KindFunction:
		info, ok := g.in.FnInfo(id)
		if !ok {
			return fmt.Errorf("missing signature for %s", g.in.String(id))
		}
		if err := g.pushTypeInfo(b, info.Result); err != nil {
			return err
		}
		return b.PushString(g.in.Mangle(id))
	case types.KindDelegate:
		if err := g.pushTypeInfo(b, tt.Elem); err != nil {
			return err
		}
		return b.PushString(g.in.Mangle(id))
	case types.KindStruct:
		return g.structFields(b, id)
	case types.KindClass, types.KindInterface:
		return b.PushClassInfo(id)
	default:
		return fmt.Errorf("no descriptor layout for %s", tt.Kind)
	}
}

// pushTypeInfo pushes a descriptor reference, or null for an absent type.
func (g *Generator) pushTypeInfo(b *rtti.Builder, t types.TypeID) error {
	if t == types.NoTypeID {
		return b.PushNull()
	}
	return b.PushTypeInfo(t)
}

// pushInit pushes the default value of id as void[] data, or an empty
// array when the value is all zero.
func (g *Generator) pushInit(b *rtti.Builder, id types.TypeID) error {
	init, err := g.mod.ValueInit(id)
	if err != nil {
		return err
	}
	if llvm.IsZero(init) {
		return b.PushEmptyArray()
	}
	return b.PushVoidArray(init, id, id)
}

func (g *Generator) enumFields(b *rtti.Builder, id types.TypeID) error {
	info, ok := g.in.EnumInfo(id)
	if !ok {
		return fmt.Errorf("missing enum record for %s", g.in.String(id))
	}
	base := info.Base
	if base == types.NoTypeID {
		base = g.in.Builtins().Int
	}
	if err := b.PushTypeInfo(base); err != nil {
		return err
	}
	if err := b.PushString(g.in.String(id)); err != nil {
		return err
	}
	return g.pushInit(b, id)
}

func (g *Generator) structFields(b *rtti.Builder, id types.TypeID) error {
	info, ok := g.in.StructInfo(id)
	if !ok {
		return fmt.Errorf("missing struct record for %s", g.in.String(id))
	}
	align, err := g.layout.AlignOf(id)
	if err != nil {
		return err
	}
	align32, err := safecast.Conv[uint32](align)
	if err != nil {
		return err
	}
	var flags uint32
	if g.layout.HasPointers(id) {
		flags |= structHasPointers
	}
	h := info.Hooks
	return pushAll(
		func() error { return b.PushString(g.in.String(id)) },
		func() error { return g.pushInit(b, id) },
		func() error { return b.PushFunc(h.ToHash) },
		func() error { return b.PushFunc(h.OpEquals) },
		func() error { return b.PushFunc(h.OpCmp) },
		func() error { return b.PushFunc(h.ToString) },
		func() error { return b.PushUint(flags) },
		func() error { return b.PushFunc(h.Dtor) },
		func() error { return b.PushFunc(h.Postblit) },
		func() error { return b.PushUint(align32) },
	)
}

func (g *Generator) classInfoFields(b *rtti.Builder, cls types.TypeID) error {
	info, ok := g.in.ClassInfo(cls)
	if !ok {
		return fmt.Errorf("missing class record for %s", g.in.String(cls))
	}
	inst, err := g.layout.ClassInstanceLayout(cls)
	if err != nil {
		return err
	}
	flags := classHasTypeInfo
	if info.Ctor != types.NoFuncID {
		flags |= classHasCtor
	}
	if info.Abstract {
		flags |= classIsAbstract
	}
	if !g.instanceHasPointers(cls) {
		flags |= classNoPointers
	}
	if len(info.Fields) > 0 {
		flags |= classHasOffTi
	}
	return pushAll(
		func() error { return g.pushInstanceInit(b, cls, info) },
		func() error { return b.PushString(g.in.String(cls)) },
		func() error { return g.pushVtbl(b, cls, info) },
		func() error { return g.pushInterfaces(b, cls, info) },
		func() error {
			// the hierarchy root has no base class-info
			if info.Base == types.NoTypeID {
				return b.PushNull()
			}
			return b.PushClassInfo(info.Base)
		},
		func() error { return b.PushFunc(info.Dtor) },
		func() error { return b.PushFunc(info.Invariant) },
		func() error { return b.PushUint(flags) },
		func() error { return b.PushNull() },
		func() error { return g.pushOffTi(b, cls, info, inst.FieldOffsets) },
		func() error { return b.PushFunc(info.Ctor) },
		func() error { return b.PushTypeInfo(cls) },
	)
}

// pushInstanceInit pushes the static image of a new instance: dispatch
// table, null monitor, then every field from the root class down.
func (g *Generator) pushInstanceInit(b *rtti.Builder, cls types.TypeID, info *types.ClassInfo) error {
	if info.Interface {
		return b.PushEmptyArray()
	}
	vtbl, err := g.ClassVtbl(cls)
	if err != nil {
		return err
	}
	values := []constant.Constant{vtbl, g.mod.NullPtr()}
	chain := g.in.ClassChain(cls)
	for i := len(chain) - 1; i >= 0; i-- {
		ci, ok := g.in.ClassInfo(chain[i])
		if !ok {
			continue
		}
		for _, f := range ci.Fields {
			c, err := g.mod.FieldInit(f)
			if err != nil {
				return err
			}
			values = append(values, c)
		}
	}
	fieldTypes := make([]lltypes.Type, len(values))
	for i, v := range values {
		fieldTypes[i] = v.Type()
	}
	data := constant.NewStruct(lltypes.NewStruct(fieldTypes...), values...)
	return b.PushVoidArray(data, cls, cls)
}

func (g *Generator) pushVtbl(b *rtti.Builder, cls types.TypeID, info *types.ClassInfo) error {
	if info.Interface {
		return b.PushEmptyArray()
	}
	vtbl, err := g.ClassVtbl(cls)
	if err != nil {
		return err
	}
	return b.PushConst(g.mod.Slice(uint64(len(info.Methods))+1, vtbl))
}

// pushInterfaces emits one {classinfo, vtbl, offset} record per implemented
// interface. Interface dispatch tables are not generated, so every record
// carries an empty table at offset 0.
func (g *Generator) pushInterfaces(b *rtti.Builder, cls types.TypeID, info *types.ClassInfo) error {
	if len(info.Interfaces) == 0 {
		return b.PushEmptyArray()
	}
	rec, err := g.recordType(g.rt.InterfaceRec)
	if err != nil {
		return err
	}
	elems := make([]constant.Constant, 0, len(info.Interfaces))
	for _, iface := range info.Interfaces {
		id, err := g.ClassInfoOf(iface)
		if err != nil {
			return err
		}
		ref, err := g.mod.Ref(id)
		if err != nil {
			return err
		}
		elems = append(elems, constant.NewStruct(rec, ref, g.mod.Slice(0, g.mod.NullPtr()), g.mod.SizeT(0)))
	}
	n := uint64(len(elems))
	data := constant.NewArray(lltypes.NewArray(n, rec), elems...)
	return b.PushArray(data, n, g.rt.InterfaceRec, cls)
}

// pushOffTi emits {offset, typeinfo} for the fields cls declares itself.
// offsets covers the whole instance, inherited fields first.
func (g *Generator) pushOffTi(b *rtti.Builder, cls types.TypeID, info *types.ClassInfo, offsets []int) error {
	if len(info.Fields) == 0 {
		return b.PushEmptyArray()
	}
	rec, err := g.recordType(g.rt.OffsetTypeRec)
	if err != nil {
		return err
	}
	own := offsets[len(offsets)-len(info.Fields):]
	elems := make([]constant.Constant, 0, len(info.Fields))
	for i, f := range info.Fields {
		off, err := safecast.Conv[uint64](own[i])
		if err != nil {
			return err
		}
		id, err := g.TypeInfoOf(f.Type)
		if err != nil {
			return err
		}
		ref, err := g.mod.Ref(id)
		if err != nil {
			return err
		}
		elems = append(elems, constant.NewStruct(rec, g.mod.SizeT(off), ref))
	}
	n := uint64(len(elems))
	data := constant.NewArray(lltypes.NewArray(n, rec), elems...)
	return b.PushArray(data, n, g.rt.OffsetTypeRec, cls)
}

func (g *Generator) recordType(id types.TypeID) (*lltypes.StructType, error) {
	t, err := g.mod.LLType(id)
	if err != nil {
		return nil, err
	}
	st, ok := t.(*lltypes.StructType)
	if !ok {
		return nil, fmt.Errorf("%s does not map to a struct", g.in.String(id))
	}
	return st, nil
}

func (g *Generator) instanceHasPointers(cls types.TypeID) bool {
	for _, c := range g.in.ClassChain(cls) {
		info, ok := g.in.ClassInfo(c)
		if !ok {
			continue
		}
		for _, f := range info.Fields {
			if g.layout.HasPointers(f.Type) {
				return true
			}
		}
	}
	return false
}

func pushAll(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
