package typeinfo

import (
	"fmt"

	"rtgen/internal/layout"
	"rtgen/internal/types"
)

// Runtime holds the classes and records the runtime module provides.
// Descriptors of every kind are instances of one of these classes.
type Runtime struct {
	Object    types.TypeID
	TypeInfo  types.TypeID
	ClassInfo types.TypeID

	Pointer     types.TypeID
	Array       types.TypeID
	StaticArray types.TypeID
	Enum        types.TypeID
	Function    types.TypeID
	Delegate    types.TypeID
	Struct      types.TypeID
	Class       types.TypeID
	Interface   types.TypeID

	// records stored in class-info arrays
	InterfaceRec  types.TypeID // object.Interface
	OffsetTypeRec types.TypeID // object.OffsetTypeInfo
}

var runtimeDescriptorClasses = []string{
	"TypeInfo_Pointer",
	"TypeInfo_Array",
	"TypeInfo_StaticArray",
	"TypeInfo_Enum",
	"TypeInfo_Function",
	"TypeInfo_Delegate",
	"TypeInfo_Struct",
	"TypeInfo_Class",
	"TypeInfo_Interface",
	"ClassInfo",
}

// DeclareRuntime registers the runtime module's declarations in in. It is
// idempotent; a unit that already declared one of the names with another
// kind gets a *types.ErrNameConflict.
func DeclareRuntime(in *types.Interner, target layout.Target) (*Runtime, error) {
	rt := &Runtime{}
	var err error
	if rt.Object, err = in.RegisterClass(types.RuntimeModule, "Object"); err != nil {
		return nil, err
	}
	if rt.TypeInfo, err = runtimeClass(in, "TypeInfo", rt.Object); err != nil {
		return nil, err
	}
	slots := []*types.TypeID{
		&rt.Pointer, &rt.Array, &rt.StaticArray, &rt.Enum, &rt.Function,
		&rt.Delegate, &rt.Struct, &rt.Class, &rt.Interface, &rt.ClassInfo,
	}
	for i, name := range runtimeDescriptorClasses {
		if *slots[i], err = runtimeClass(in, name, rt.TypeInfo); err != nil {
			return nil, err
		}
	}

	b := in.Builtins()
	sizeT := b.Ulong
	if target.PtrSize == 4 {
		sizeT = b.Uint
	}
	voidPtrs := in.Intern(types.MakeArray(in.Intern(types.MakePointer(b.Void))))
	if rt.InterfaceRec, err = runtimeStruct(in, "Interface", []types.Field{
		{Name: "classinfo", Type: rt.ClassInfo},
		{Name: "vtbl", Type: voidPtrs},
		{Name: "offset", Type: sizeT},
	}); err != nil {
		return nil, err
	}
	if rt.OffsetTypeRec, err = runtimeStruct(in, "OffsetTypeInfo", []types.Field{
		{Name: "offset", Type: sizeT},
		{Name: "ti", Type: rt.TypeInfo},
	}); err != nil {
		return nil, err
	}
	return rt, nil
}

func runtimeClass(in *types.Interner, name string, base types.TypeID) (types.TypeID, error) {
	id, err := in.RegisterClass(types.RuntimeModule, name)
	if err != nil {
		return types.NoTypeID, err
	}
	info, ok := in.ClassInfo(id)
	if !ok {
		return types.NoTypeID, fmt.Errorf("runtime class %s has no class record", name)
	}
	info.Base = base
	return id, nil
}

func runtimeStruct(in *types.Interner, name string, fields []types.Field) (types.TypeID, error) {
	id, err := in.RegisterStruct(types.RuntimeModule, name)
	if err != nil {
		return types.NoTypeID, err
	}
	info, ok := in.StructInfo(id)
	if !ok {
		return types.NoTypeID, fmt.Errorf("runtime struct %s has no struct record", name)
	}
	info.Fields = fields
	return id, nil
}

// descriptorClass picks the runtime class whose instance describes a type
// of kind k.
func (rt *Runtime) descriptorClass(k types.Kind) (types.TypeID, bool) {
	switch k {
	case types.KindPointer:
		return rt.Pointer, true
	case types.KindArray:
		return rt.Array, true
	case types.KindStaticArray:
		return rt.StaticArray, true
	case types.KindEnum:
		return rt.Enum, true
	case types.KindFunction:
		return rt.Function, true
	case types.KindDelegate:
		return rt.Delegate, true
	case types.KindStruct:
		return rt.Struct, true
	case types.KindClass:
		return rt.Class, true
	case types.KindInterface:
		return rt.Interface, true
	default:
		return types.NoTypeID, false
	}
}
