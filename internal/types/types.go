package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// FuncID identifies a function declaration known to the interner.
type FuncID uint32

// NoFuncID marks an absent function (e.g. an undefined optional hook).
const NoFuncID FuncID = 0

// RuntimeModule is the module that declares the runtime's descriptor classes.
const RuntimeModule = "object"

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindBool
	KindChar
	KindInt
	KindUint
	KindFloat
	KindPointer
	KindArray       // dynamic array T[]
	KindStaticArray // T[N]
	KindStruct
	KindClass
	KindInterface
	KindEnum
	KindFunction
	KindDelegate
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindStaticArray:
		return "static array"
	case KindStruct:
		return "struct"
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindFunction:
		return "function"
	case KindDelegate:
		return "delegate"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// IsNominal reports whether types of this kind are identified by name.
func (k Kind) IsNominal() bool {
	switch k {
	case KindStruct, KindClass, KindInterface, KindEnum:
		return true
	default:
		return false
	}
}

// Width captures the precision of integers/floats.
type Width uint8

const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Elem    TypeID // pointer, arrays, delegate (function type)
	Count   uint64 // static array length
	Width   Width  // numeric primitives
	Payload uint32 // index into the side table of nominal and function kinds
}

// MakeInt describes a signed integer of the given width.
func MakeInt(width Width) Type {
	return Type{Kind: KindInt, Width: width}
}

// MakeUint describes an unsigned integer type.
func MakeUint(width Width) Type {
	return Type{Kind: KindUint, Width: width}
}

// MakeFloat describes a floating-point type.
func MakeFloat(width Width) Type {
	return Type{Kind: KindFloat, Width: width}
}

// MakePointer describes T*.
func MakePointer(elem TypeID) Type {
	return Type{Kind: KindPointer, Elem: elem}
}

// MakeArray describes the dynamic array T[].
func MakeArray(elem TypeID) Type {
	return Type{Kind: KindArray, Elem: elem}
}

// MakeStaticArray describes T[n].
func MakeStaticArray(elem TypeID, n uint64) Type {
	return Type{Kind: KindStaticArray, Elem: elem, Count: n}
}

// MakeDelegate describes a delegate over the function type fn.
func MakeDelegate(fn TypeID) Type {
	return Type{Kind: KindDelegate, Elem: fn}
}
