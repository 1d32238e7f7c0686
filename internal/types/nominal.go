package types

import "fmt"

// Field is a data member of a struct or class.
type Field struct {
	Name    string
	Type    TypeID
	Default uint64 // explicit integer initializer, 0 means default-initialized
}

// Hooks are the optional runtime hooks a struct may define.
type Hooks struct {
	ToHash   FuncID
	OpEquals FuncID
	OpCmp    FuncID
	ToString FuncID
	Dtor     FuncID
	Postblit FuncID
}

// Nominal carries the identity shared by all named types.
type Nominal struct {
	Module string
	Name   string
}

// StructInfo describes a struct declaration.
type StructInfo struct {
	Nominal
	Fields        []Field
	Hooks         Hooks
	AlignOverride int // 0 keeps the natural alignment
}

// ClassInfo describes a class or interface declaration.
type ClassInfo struct {
	Nominal
	Interface  bool
	Base       TypeID   // NoTypeID only for the hierarchy root
	Interfaces []TypeID // implemented interfaces, in declaration order
	Fields     []Field
	Methods    []FuncID // virtual methods, in vtable order
	Dtor       FuncID
	Invariant  FuncID
	Ctor       FuncID // default constructor
	Abstract   bool
}

// EnumInfo describes an enum declaration.
type EnumInfo struct {
	Nominal
	Base    TypeID
	Default uint64
}

// ErrNameConflict reports a nominal redeclaration with a different kind.
type ErrNameConflict struct {
	Module string
	Name   string
	Have   Kind
	Want   Kind
}

func (e *ErrNameConflict) Error() string {
	return fmt.Sprintf("%s.%s already declared as %s, cannot redeclare as %s", e.Module, e.Name, e.Have, e.Want)
}

func (in *Interner) registerNominal(kind Kind, module, name string, add func() uint32) (TypeID, error) {
	key := qualifiedKey(module, name)
	if id, ok := in.byName[key]; ok {
		tt := in.types[id]
		if tt.Kind != kind {
			return NoTypeID, &ErrNameConflict{Module: module, Name: name, Have: tt.Kind, Want: kind}
		}
		return id, nil
	}
	id := in.internRaw(Type{Kind: kind, Payload: add()})
	in.byName[key] = id
	return id, nil
}

// RegisterStruct declares a struct (or returns the existing declaration).
func (in *Interner) RegisterStruct(module, name string) (TypeID, error) {
	return in.registerNominal(KindStruct, module, name, func() uint32 {
		idx := nextIndex(len(in.structs))
		in.structs = append(in.structs, StructInfo{Nominal: newNominal(module, name)})
		return idx
	})
}

// RegisterClass declares a class (or returns the existing declaration).
func (in *Interner) RegisterClass(module, name string) (TypeID, error) {
	return in.registerNominal(KindClass, module, name, func() uint32 {
		idx := nextIndex(len(in.classes))
		in.classes = append(in.classes, ClassInfo{Nominal: newNominal(module, name)})
		return idx
	})
}

// RegisterInterface declares an interface; interfaces share the class table.
func (in *Interner) RegisterInterface(module, name string) (TypeID, error) {
	return in.registerNominal(KindInterface, module, name, func() uint32 {
		idx := nextIndex(len(in.classes))
		in.classes = append(in.classes, ClassInfo{Nominal: newNominal(module, name), Interface: true})
		return idx
	})
}

// RegisterEnum declares an enum with the given base type.
func (in *Interner) RegisterEnum(module, name string, base TypeID) (TypeID, error) {
	id, err := in.registerNominal(KindEnum, module, name, func() uint32 {
		idx := nextIndex(len(in.enums))
		in.enums = append(in.enums, EnumInfo{Nominal: newNominal(module, name)})
		return idx
	})
	if err != nil {
		return NoTypeID, err
	}
	if info, ok := in.EnumInfo(id); ok {
		info.Base = base
	}
	return id, nil
}

// StructInfo returns the mutable struct record for id.
func (in *Interner) StructInfo(id TypeID) (*StructInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindStruct || int(tt.Payload) >= len(in.structs) {
		return nil, false
	}
	return &in.structs[tt.Payload], true
}

// ClassInfo returns the mutable class record for a class or interface id.
func (in *Interner) ClassInfo(id TypeID) (*ClassInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || (tt.Kind != KindClass && tt.Kind != KindInterface) || int(tt.Payload) >= len(in.classes) {
		return nil, false
	}
	return &in.classes[tt.Payload], true
}

// EnumInfo returns the mutable enum record for id.
func (in *Interner) EnumInfo(id TypeID) (*EnumInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindEnum || int(tt.Payload) >= len(in.enums) {
		return nil, false
	}
	return &in.enums[tt.Payload], true
}

// NominalOf returns module and name of a nominal type.
func (in *Interner) NominalOf(id TypeID) (Nominal, bool) {
	if info, ok := in.StructInfo(id); ok {
		return info.Nominal, true
	}
	if info, ok := in.ClassInfo(id); ok {
		return info.Nominal, true
	}
	if info, ok := in.EnumInfo(id); ok {
		return info.Nominal, true
	}
	return Nominal{}, false
}

// IsRuntime reports whether id is declared by the runtime module.
func (in *Interner) IsRuntime(id TypeID) bool {
	nom, ok := in.NominalOf(id)
	return ok && nom.Module == RuntimeModule
}

// ClassChain returns cls followed by its base classes up to the root.
func (in *Interner) ClassChain(cls TypeID) []TypeID {
	var chain []TypeID
	seen := make(map[TypeID]struct{}, 8)
	for cls != NoTypeID {
		if _, ok := seen[cls]; ok {
			break
		}
		seen[cls] = struct{}{}
		info, ok := in.ClassInfo(cls)
		if !ok {
			break
		}
		chain = append(chain, cls)
		cls = info.Base
	}
	return chain
}

func newNominal(module, name string) Nominal {
	return Nominal{Module: normalizeIdent(module), Name: normalizeIdent(name)}
}
