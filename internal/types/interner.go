package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for the primitive types.
type Builtins struct {
	Void   TypeID
	Bool   TypeID
	Char   TypeID
	Byte   TypeID
	Ubyte  TypeID
	Short  TypeID
	Ushort TypeID
	Int    TypeID
	Uint   TypeID
	Long   TypeID
	Ulong  TypeID
	Float  TypeID
	Double TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Nominal types are keyed by their side-table payload and are additionally
// reachable by qualified name.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins

	structs    []StructInfo
	classes    []ClassInfo
	enums      []EnumInfo
	fns        []FnInfo
	funcs      []Func
	byName     map[string]TypeID
	funcByName map[string]FuncID
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Count   uint64
	Width   Width
	Payload uint32
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index:      make(map[typeKey]TypeID, 64),
		byName:     make(map[string]TypeID, 32),
		funcByName: make(map[string]FuncID, 16),
	}
	// index 0 of every table is the invalid sentinel
	in.types = append(in.types, Type{Kind: KindInvalid})
	in.structs = append(in.structs, StructInfo{})
	in.classes = append(in.classes, ClassInfo{})
	in.enums = append(in.enums, EnumInfo{})
	in.fns = append(in.fns, FnInfo{})
	in.funcs = append(in.funcs, Func{})

	in.builtins.Void = in.Intern(Type{Kind: KindVoid})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Char = in.Intern(Type{Kind: KindChar, Width: Width8})
	in.builtins.Byte = in.Intern(MakeInt(Width8))
	in.builtins.Ubyte = in.Intern(MakeUint(Width8))
	in.builtins.Short = in.Intern(MakeInt(Width16))
	in.builtins.Ushort = in.Intern(MakeUint(Width16))
	in.builtins.Int = in.Intern(MakeInt(Width32))
	in.builtins.Uint = in.Intern(MakeUint(Width32))
	in.builtins.Long = in.Intern(MakeInt(Width64))
	in.builtins.Ulong = in.Intern(MakeUint(Width64))
	in.builtins.Float = in.Intern(MakeFloat(Width32))
	in.builtins.Double = in.Intern(MakeFloat(Width64))
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[typeKey(t)] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if in == nil || id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Len returns the number of interned types including the sentinel.
func (in *Interner) Len() int {
	return len(in.types)
}

// ByName resolves a nominal type by module and name.
func (in *Interner) ByName(module, name string) (TypeID, bool) {
	id, ok := in.byName[qualifiedKey(module, name)]
	return id, ok
}

// FuncByName resolves a function by module and name.
func (in *Interner) FuncByName(module, name string) (FuncID, bool) {
	id, ok := in.funcByName[qualifiedKey(module, name)]
	return id, ok
}

func qualifiedKey(module, name string) string {
	return normalizeIdent(module) + "." + normalizeIdent(name)
}

func nextIndex(n int) uint32 {
	idx, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("side table overflow: %w", err))
	}
	return idx
}
