package rtti

import (
	"github.com/llir/llvm/ir/constant"

	"rtgen/internal/types"
)

// FieldKind selects how a pushed field is lowered.
type FieldKind uint8

const (
	FieldInvalid    FieldKind = iota
	FieldConst                // verbatim constant
	FieldNull                 // null reference
	FieldTypeRef              // reference to a type descriptor
	FieldClassRef             // reference to a class-info descriptor
	FieldString               // {len, data} over deduplicated string data
	FieldEmptyArray           // {0, null}
	FieldVoidArray            // {padded byte size, data} over named raw data
	FieldArray                // {n, data} over named element data
	FieldUint                 // fixed-width unsigned
	FieldSize                 // pointer-width unsigned
	FieldFuncRef              // function entry point or null
)

func (k FieldKind) String() string {
	switch k {
	case FieldConst:
		return "const"
	case FieldNull:
		return "null"
	case FieldTypeRef:
		return "typeinfo"
	case FieldClassRef:
		return "classinfo"
	case FieldString:
		return "string"
	case FieldEmptyArray:
		return "empty array"
	case FieldVoidArray:
		return "void array"
	case FieldArray:
		return "array"
	case FieldUint:
		return "uint"
	case FieldSize:
		return "size"
	case FieldFuncRef:
		return "func"
	default:
		return "invalid"
	}
}

// Field is one push request. Only the members relevant to Kind are read.
type Field struct {
	Kind   FieldKind
	Data   constant.Constant // FieldConst value, FieldVoidArray and FieldArray payload
	Type   types.TypeID      // FieldTypeRef target, FieldArray element, FieldVoidArray alignment type
	Naming types.TypeID      // owner of named backing data, NoTypeID for the fallback prefix
	Str    string
	Len    uint64 // FieldArray element count
	Uint   uint32
	Size   uint64
	Func   types.FuncID
}

func Const(c constant.Constant) Field { return Field{Kind: FieldConst, Data: c} }

func Null() Field { return Field{Kind: FieldNull} }

func TypeRef(t types.TypeID) Field { return Field{Kind: FieldTypeRef, Type: t} }

func ClassRef(cls types.TypeID) Field { return Field{Kind: FieldClassRef, Type: cls} }

func Str(s string) Field { return Field{Kind: FieldString, Str: s} }

func EmptyArray() Field { return Field{Kind: FieldEmptyArray} }

// VoidArray pushes data as untyped bytes, aligned like alignType.
func VoidArray(data constant.Constant, alignType, naming types.TypeID) Field {
	return Field{Kind: FieldVoidArray, Data: data, Type: alignType, Naming: naming}
}

// Array pushes n elements of elem held by data.
func Array(data constant.Constant, n uint64, elem, naming types.TypeID) Field {
	return Field{Kind: FieldArray, Data: data, Len: n, Type: elem, Naming: naming}
}

func Uint(u uint32) Field { return Field{Kind: FieldUint, Uint: u} }

func Size(s uint64) Field { return Field{Kind: FieldSize, Size: s} }

func Func(fn types.FuncID) Field { return Field{Kind: FieldFuncRef, Func: fn} }
