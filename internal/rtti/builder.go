package rtti

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"

	"rtgen/internal/ail"
	"rtgen/internal/backend/llvm"
	"rtgen/internal/types"
)

// fallbackPrefix names backing data that has no owning type.
const fallbackPrefix = ".rtgen"

type builderState uint8

const (
	stateOpen builderState = iota
	stateFinalized
)

// Builder accumulates the fields of one descriptor. It is not safe for
// concurrent use.
type Builder struct {
	gen    CodeGen
	res    Resolver
	inits  *ail.List
	state  builderState
	sealed string
}

// NewBuilder starts a descriptor whose runtime class is base. The first two
// fields are base's dispatch table and a null monitor.
func NewBuilder(gen CodeGen, res Resolver, base types.TypeID) (*Builder, error) {
	vtbl, err := res.ClassVtbl(base)
	if err != nil {
		return nil, &Error{Kind: ErrBackend, Op: "vtbl", Field: -1, Err: err}
	}
	b := &Builder{gen: gen, res: res, inits: ail.New(16)}
	b.inits.Append(vtbl)
	b.inits.Append(gen.NullPtr())
	return b, nil
}

// Len returns the number of fields pushed so far, header included.
func (b *Builder) Len() int { return b.inits.Len() }

// Finalized reports whether Finalize has succeeded.
func (b *Builder) Finalized() bool { return b.state == stateFinalized }

// Push lowers f and appends it as the next field.
func (b *Builder) Push(f Field) error {
	if b.state == stateFinalized {
		return &Error{Kind: ErrProtocol, Symbol: b.sealed, Op: "push " + f.Kind.String(), Field: -1}
	}
	v, err := b.lower(f)
	if err != nil {
		return err
	}
	b.inits.Append(v)
	return nil
}

func (b *Builder) lower(f Field) (constant.Constant, error) {
	switch f.Kind {
	case FieldConst:
		if f.Data == nil {
			return nil, &Error{Kind: ErrInvalidField, Op: "push const", Field: -1, Detail: "nil constant"}
		}
		return f.Data, nil
	case FieldNull:
		return b.gen.NullPtr(), nil
	case FieldTypeRef:
		id, err := b.res.TypeInfoOf(f.Type)
		if err != nil {
			return nil, err
		}
		return b.ref(id, "push typeinfo")
	case FieldClassRef:
		id, err := b.res.ClassInfoOf(f.Type)
		if err != nil {
			return nil, err
		}
		return b.ref(id, "push classinfo")
	case FieldString:
		return b.gen.Slice(uint64(len(f.Str)), b.gen.StringData(f.Str)), nil
	case FieldEmptyArray:
		return b.gen.Slice(0, b.gen.NullPtr()), nil
	case FieldVoidArray:
		if f.Data == nil {
			return nil, &Error{Kind: ErrInvalidField, Op: "push void array", Field: -1, Detail: "missing data"}
		}
		align, err := b.alignOf(f.Type)
		if err != nil {
			return nil, err
		}
		ref, err := b.gen.DataGlobal(b.dataName(f.Naming, "void[]"), f.Data, align)
		if err != nil {
			return nil, &Error{Kind: ErrBackend, Op: "push void array", Field: -1, Err: err}
		}
		return b.gen.Slice(b.gen.PaddedSize(f.Data.Type()), ref), nil
	case FieldArray:
		if f.Data == nil {
			return nil, &Error{Kind: ErrInvalidField, Op: "push array", Field: -1, Detail: "missing data"}
		}
		align, err := b.alignOf(f.Type)
		if err != nil {
			return nil, err
		}
		ref, err := b.gen.DataGlobal(b.dataName(f.Naming, b.res.ArrayRole(f.Type)), f.Data, align)
		if err != nil {
			return nil, &Error{Kind: ErrBackend, Op: "push array", Field: -1, Err: err}
		}
		return b.gen.Slice(f.Len, ref), nil
	case FieldUint:
		return b.gen.Uint(f.Uint), nil
	case FieldSize:
		return b.gen.SizeT(f.Size), nil
	case FieldFuncRef:
		if f.Func == types.NoFuncID {
			return b.gen.NullPtr(), nil
		}
		return b.res.FuncEntry(f.Func)
	default:
		return nil, &Error{Kind: ErrInvalidField, Op: "push", Field: -1, Detail: fmt.Sprintf("field kind %d", f.Kind)}
	}
}

func (b *Builder) ref(id llvm.StorageID, op string) (constant.Constant, error) {
	c, err := b.gen.Ref(id)
	if err != nil {
		return nil, &Error{Kind: ErrBackend, Op: op, Field: -1, Err: err}
	}
	return c, nil
}

func (b *Builder) alignOf(t types.TypeID) (int, error) {
	if t == types.NoTypeID {
		return 0, nil
	}
	return b.res.AlignOf(t)
}

// dataName is "<mangled naming type>.rtti.<role>.data".
func (b *Builder) dataName(naming types.TypeID, role string) string {
	prefix := fallbackPrefix
	if naming != types.NoTypeID {
		prefix = b.res.Mangle(naming)
	}
	return prefix + ".rtti." + role + ".data"
}

// Finalize installs the collected fields as the initializer of target.
// An opaque target is first refined to the fields' types; a concrete one
// must already match them.
func (b *Builder) Finalize(target llvm.StorageID) error {
	if b.state == stateFinalized {
		return &Error{Kind: ErrProtocol, Symbol: b.sealed, Op: "finalize", Field: -1}
	}
	shape, err := b.gen.Shape(target)
	if err != nil {
		return &Error{Kind: ErrBackend, Op: "finalize", Field: -1, Err: err}
	}
	if shape.Opaque {
		if err := b.gen.Refine(target, b.inits.Types()); err != nil {
			return &Error{Kind: ErrBackend, Symbol: shape.Name, Op: "finalize", Field: -1, Err: err}
		}
	} else if idx := b.inits.Mismatch(shape.Fields); idx >= 0 {
		return &Error{
			Kind:   ErrShapeMismatch,
			Symbol: shape.Name,
			Op:     "finalize",
			Field:  idx,
			Detail: fmt.Sprintf("storage has %d fields, builder has %d", len(shape.Fields), b.inits.Len()),
		}
	}
	if err := b.gen.SetInitializer(target, b.inits.Struct(shape.Type)); err != nil {
		return &Error{Kind: ErrBackend, Symbol: shape.Name, Op: "finalize", Field: -1, Err: err}
	}
	b.state = stateFinalized
	b.sealed = shape.Name
	return nil
}

// PushConst appends c unchanged.
func (b *Builder) PushConst(c constant.Constant) error { return b.Push(Const(c)) }

// PushNull appends a null pointer.
func (b *Builder) PushNull() error { return b.Push(Null()) }

// PushTypeInfo appends a reference to t's descriptor, generating it on demand.
func (b *Builder) PushTypeInfo(t types.TypeID) error { return b.Push(TypeRef(t)) }

// PushClassInfo appends a reference to cls's class-info descriptor.
func (b *Builder) PushClassInfo(cls types.TypeID) error { return b.Push(ClassRef(cls)) }

// PushString appends {len(s), data}; the data excludes the terminating NUL
// from the length.
func (b *Builder) PushString(s string) error { return b.Push(Str(s)) }

// PushEmptyArray appends a {0, null} slice.
func (b *Builder) PushEmptyArray() error { return b.Push(EmptyArray()) }

// PushVoidArray appends data as an untyped slice whose length is its padded size in bytes.
func (b *Builder) PushVoidArray(data constant.Constant, alignType, naming types.TypeID) error {
	return b.Push(VoidArray(data, alignType, naming))
}

// PushArray appends an n-element slice over data, aligned for elem.
func (b *Builder) PushArray(data constant.Constant, n uint64, elem, naming types.TypeID) error {
	return b.Push(Array(data, n, elem, naming))
}

// PushUint appends a 32-bit unsigned integer.
func (b *Builder) PushUint(u uint32) error { return b.Push(Uint(u)) }

// PushSize appends s as a target size_t.
func (b *Builder) PushSize(s uint64) error { return b.Push(Size(s)) }

// PushFunc appends fn's entry point, or null for NoFuncID.
func (b *Builder) PushFunc(fn types.FuncID) error { return b.Push(Func(fn)) }
