package rtti

import (
	"errors"
	"strings"
	"testing"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"

	"rtgen/internal/backend/llvm"
	"rtgen/internal/layout"
	"rtgen/internal/types"
)

// stubResolver reserves storage on demand and never builds anything.
type stubResolver struct {
	in     *types.Interner
	mod    *llvm.Module
	layout *layout.LayoutEngine
}

func newStub(t *testing.T) *stubResolver {
	t.Helper()
	in := types.NewInterner()
	target := layout.X86_64LinuxGNU()
	return &stubResolver{in: in, mod: llvm.NewModule(in, target), layout: layout.New(target, in)}
}

func (r *stubResolver) ClassVtbl(cls types.TypeID) (constant.Constant, error) {
	return r.mod.DeclareVtbl(r.in.VtblSymbol(cls))
}

func (r *stubResolver) TypeInfoOf(t types.TypeID) (llvm.StorageID, error) {
	return r.mod.Reserve(r.in.TypeInfoSymbol(t), enum.LinkageNone)
}

func (r *stubResolver) ClassInfoOf(cls types.TypeID) (llvm.StorageID, error) {
	return r.mod.Reserve(r.in.ClassInfoSymbol(cls), enum.LinkageNone)
}

func (r *stubResolver) FuncEntry(fn types.FuncID) (constant.Constant, error) {
	return r.mod.FuncRef(fn)
}

func (r *stubResolver) Mangle(t types.TypeID) string        { return r.in.Mangle(t) }
func (r *stubResolver) ArrayRole(elem types.TypeID) string  { return r.in.ArrayRole(elem) }
func (r *stubResolver) AlignOf(t types.TypeID) (int, error) { return r.layout.AlignOf(t) }

func (r *stubResolver) runtimeClass(t *testing.T, name string) types.TypeID {
	t.Helper()
	id, err := r.in.RegisterClass(types.RuntimeModule, name)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func sealedFields(t *testing.T, mod *llvm.Module, id llvm.StorageID) []constant.Constant {
	t.Helper()
	init, ok := mod.Init(id)
	if !ok {
		t.Fatalf("storage %s is not sealed", mod.Name(id))
	}
	st, ok := init.(*constant.Struct)
	if !ok {
		t.Fatalf("initializer is %T, want *constant.Struct", init)
	}
	return st.Fields
}

func TestHeaderIsVtblThenNull(t *testing.T) {
	r := newStub(t)
	base := r.runtimeClass(t, "TypeInfo_Pointer")
	b, err := NewBuilder(r.mod, r, base)
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() != 2 {
		t.Fatalf("fresh builder should hold 2 fields, got %d", b.Len())
	}
	target, _ := r.TypeInfoOf(r.in.Intern(types.MakePointer(r.in.Builtins().Int)))
	if err := b.PushTypeInfo(r.in.Builtins().Int); err != nil {
		t.Fatal(err)
	}
	if err := b.Finalize(target); err != nil {
		t.Fatal(err)
	}
	fields := sealedFields(t, r.mod, target)
	if !strings.Contains(fields[0].Ident(), "@_D6object16TypeInfo_Pointer6__vtblZ") {
		t.Fatalf("field 0 should reference the base vtbl, got %s", fields[0].Ident())
	}
	if _, ok := fields[1].(*constant.Null); !ok {
		t.Fatalf("field 1 should be null, got %s", fields[1].Ident())
	}
}

func TestSelfReferenceReusesReservedStorage(t *testing.T) {
	r := newStub(t)
	base := r.runtimeClass(t, "TypeInfo_Struct")
	node, _ := r.in.RegisterStruct("app", "Node")
	target, err := r.TypeInfoOf(node)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewBuilder(r.mod, r, base)
	if err := b.PushTypeInfo(node); err != nil {
		t.Fatal(err)
	}
	if err := b.Finalize(target); err != nil {
		t.Fatal(err)
	}
	self, _ := r.mod.Ref(target)
	if got := sealedFields(t, r.mod, target)[2]; got.Ident() != self.Ident() {
		t.Fatalf("self reference should point at the reserved storage: %s vs %s", got.Ident(), self.Ident())
	}
	again, _ := r.TypeInfoOf(node)
	if again != target {
		t.Fatalf("second request must reuse storage %d, got %d", target, again)
	}
}

func TestStringsShareBackingData(t *testing.T) {
	r := newStub(t)
	base := r.runtimeClass(t, "TypeInfo_Enum")
	a, _ := r.in.RegisterEnum("app", "A", r.in.Builtins().Int)
	c, _ := r.in.RegisterEnum("app", "C", r.in.Builtins().Int)

	var refs []string
	for _, e := range []types.TypeID{a, c} {
		b, _ := NewBuilder(r.mod, r, base)
		if err := b.PushString("shared"); err != nil {
			t.Fatal(err)
		}
		id, _ := r.TypeInfoOf(e)
		if err := b.Finalize(id); err != nil {
			t.Fatal(err)
		}
		refs = append(refs, sealedFields(t, r.mod, id)[2].Ident())
	}
	if refs[0] != refs[1] {
		t.Fatalf("equal strings should share data:\n%s\n%s", refs[0], refs[1])
	}
	if !strings.Contains(refs[0], "i64 6") {
		t.Fatalf("length should exclude the terminator: %s", refs[0])
	}
}

func TestArraysOfDifferentOwnersDoNotCollide(t *testing.T) {
	r := newStub(t)
	base := r.runtimeClass(t, "ClassInfo")
	uintT := r.in.Builtins().Uint
	arr := lltypes.NewArray(2, lltypes.I32)
	data := constant.NewArray(arr, constant.NewInt(lltypes.I32, 1), constant.NewInt(lltypes.I32, 2))

	s1, _ := r.in.RegisterClass("app", "One")
	s2, _ := r.in.RegisterClass("app", "Two")
	var idents []string
	for _, owner := range []types.TypeID{s1, s2} {
		b, _ := NewBuilder(r.mod, r, base)
		if err := b.PushArray(data, 2, uintT, owner); err != nil {
			t.Fatal(err)
		}
		if err := b.PushEmptyArray(); err != nil {
			t.Fatal(err)
		}
		id, _ := r.ClassInfoOf(owner)
		if err := b.Finalize(id); err != nil {
			t.Fatal(err)
		}
		fields := sealedFields(t, r.mod, id)
		idents = append(idents, fields[2].Ident())
		if got := fields[3].Ident(); !strings.Contains(got, "i64 0") || !strings.Contains(got, "i8* null") {
			t.Fatalf("empty array should be {0, null}, got %s", got)
		}
	}
	if !strings.Contains(idents[0], `@"C3app3One.rtti.uint[].data"`) || !strings.Contains(idents[0], "i64 2") {
		t.Fatalf("unexpected array field %s", idents[0])
	}
	if !strings.Contains(idents[1], `@"C3app3Two.rtti.uint[].data"`) {
		t.Fatalf("unexpected array field %s", idents[1])
	}
}

func TestVoidArrayUsesPaddedSizeAndFallbackName(t *testing.T) {
	r := newStub(t)
	base := r.runtimeClass(t, "TypeInfo_Struct")
	data := constant.NewStruct(lltypes.NewStruct(lltypes.I64, lltypes.I8),
		constant.NewInt(lltypes.I64, 1), constant.NewInt(lltypes.I8, 2))
	b, _ := NewBuilder(r.mod, r, base)
	if err := b.PushVoidArray(data, r.in.Builtins().Long, types.NoTypeID); err != nil {
		t.Fatal(err)
	}
	pt, _ := r.in.RegisterStruct("app", "P")
	id, _ := r.TypeInfoOf(pt)
	if err := b.Finalize(id); err != nil {
		t.Fatal(err)
	}
	got := sealedFields(t, r.mod, id)[2].Ident()
	if !strings.Contains(got, "i64 16") || !strings.Contains(got, `@".rtgen.rtti.void[].data"`) {
		t.Fatalf("unexpected void array field %s", got)
	}
}

func TestBackingDataIsAlignedForElement(t *testing.T) {
	r := newStub(t)
	base := r.runtimeClass(t, "TypeInfo_Struct")
	b, _ := NewBuilder(r.mod, r, base)
	shorts := constant.NewArray(lltypes.NewArray(1, lltypes.I16), constant.NewInt(lltypes.I16, 1))
	owner, _ := r.in.RegisterStruct("app", "One")
	if err := b.PushArray(shorts, 1, r.in.Builtins().Long, owner); err != nil {
		t.Fatal(err)
	}
	bytes3 := constant.NewArray(lltypes.NewArray(3, lltypes.I8),
		constant.NewInt(lltypes.I8, 1), constant.NewInt(lltypes.I8, 2), constant.NewInt(lltypes.I8, 3))
	if err := b.PushVoidArray(bytes3, r.in.Builtins().Int, owner); err != nil {
		t.Fatal(err)
	}
	id, _ := r.TypeInfoOf(owner)
	if err := b.Finalize(id); err != nil {
		t.Fatal(err)
	}
	ir, err := r.mod.Emit()
	if err != nil {
		t.Fatal(err)
	}
	for name, align := range map[string]string{
		`@"S3app3One.rtti.long[].data"`: "align 8",
		`@"S3app3One.rtti.void[].data"`: "align 4",
	} {
		line := globalLine(ir, name)
		if line == "" {
			t.Fatalf("%s not emitted:\n%s", name, ir)
		}
		if !strings.HasSuffix(line, align) {
			t.Fatalf("%s should end in %q, got %s", name, align, line)
		}
	}
}

func globalLine(ir, name string) string {
	for _, line := range strings.Split(ir, "\n") {
		if strings.HasPrefix(line, name+" ") {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

func TestNullFuncDeclaresNothing(t *testing.T) {
	r := newStub(t)
	base := r.runtimeClass(t, "TypeInfo_Struct")
	b, _ := NewBuilder(r.mod, r, base)
	if err := b.PushFunc(types.NoFuncID); err != nil {
		t.Fatal(err)
	}
	pt, _ := r.in.RegisterStruct("app", "P")
	id, _ := r.TypeInfoOf(pt)
	if err := b.Finalize(id); err != nil {
		t.Fatal(err)
	}
	if _, ok := sealedFields(t, r.mod, id)[2].(*constant.Null); !ok {
		t.Fatalf("missing function should lower to null")
	}
	for _, sym := range r.mod.Symbols() {
		if sym.Kind == llvm.SymbolFunc {
			t.Fatalf("no function should be declared, found %s", sym.Name)
		}
	}
}

func TestFuncRefDeclaresEntryPoint(t *testing.T) {
	r := newStub(t)
	base := r.runtimeClass(t, "TypeInfo_Struct")
	pt, _ := r.in.RegisterStruct("app", "P")
	hash := r.in.RegisterFunc("app", "hashP", r.in.RegisterFn([]types.TypeID{r.in.Intern(types.MakePointer(pt))}, r.in.Builtins().Ulong))
	b, _ := NewBuilder(r.mod, r, base)
	if err := b.PushFunc(hash); err != nil {
		t.Fatal(err)
	}
	id, _ := r.TypeInfoOf(pt)
	if err := b.Finalize(id); err != nil {
		t.Fatal(err)
	}
	if got := sealedFields(t, r.mod, id)[2].Ident(); !strings.Contains(got, "@_D3app5hashPFPS3app1PZm") {
		t.Fatalf("unexpected function reference %s", got)
	}
}

func TestFooEndToEnd(t *testing.T) {
	r := newStub(t)
	base := r.runtimeClass(t, "TypeInfo_Class")
	object := r.runtimeClass(t, "Object")
	foo, _ := r.in.RegisterClass("app", "Foo")

	b, err := NewBuilder(r.mod, r, base)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.PushClassInfo(object); err != nil {
		t.Fatal(err)
	}
	if err := b.PushString("Foo"); err != nil {
		t.Fatal(err)
	}
	target, _ := r.TypeInfoOf(foo)
	if err := b.Finalize(target); err != nil {
		t.Fatal(err)
	}
	fields := sealedFields(t, r.mod, target)
	if len(fields) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(fields))
	}
	if !strings.Contains(fields[2].Ident(), "@_D6object6Object7__ClassZ") {
		t.Fatalf("field 2 should reference the base class info, got %s", fields[2].Ident())
	}
	if got := fields[3].Ident(); !strings.Contains(got, "i64 3") || !strings.Contains(got, "@.rtti.str.0") {
		t.Fatalf("field 3 should be {3, @str}, got %s", got)
	}
	shape, _ := r.mod.Shape(target)
	if shape.Opaque || len(shape.Fields) != 4 {
		t.Fatalf("storage should be refined to 4 fields: %+v", shape)
	}

	err = b.Finalize(target)
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Kind != ErrProtocol {
		t.Fatalf("second finalize should be a protocol violation, got %v", err)
	}
	if rerr.Symbol != r.in.TypeInfoSymbol(foo) {
		t.Fatalf("error should name the finalized storage, got %q", rerr.Symbol)
	}
	if err := b.PushNull(); !errors.As(err, &rerr) || rerr.Kind != ErrProtocol {
		t.Fatalf("push after finalize should be a protocol violation, got %v", err)
	}
}

func TestShapeMismatch(t *testing.T) {
	r := newStub(t)
	base := r.runtimeClass(t, "TypeInfo_Pointer")
	target, _ := r.TypeInfoOf(r.in.Builtins().Char)
	if err := r.mod.Refine(target, []lltypes.Type{lltypes.I8Ptr, lltypes.I8Ptr, lltypes.I32}); err != nil {
		t.Fatal(err)
	}
	b, _ := NewBuilder(r.mod, r, base)
	err := b.Finalize(target)
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Kind != ErrShapeMismatch || rerr.Field != 2 {
		t.Fatalf("expected shape mismatch at field 2, got %v", err)
	}
	if b.Finalized() {
		t.Fatalf("a failed finalize must leave the builder open")
	}
	if err := b.PushUint(7); err != nil {
		t.Fatal(err)
	}
	if err := b.Finalize(target); err != nil {
		t.Fatalf("matching fields should finalize against a concrete shape: %v", err)
	}
}

func TestInvalidFieldKind(t *testing.T) {
	r := newStub(t)
	b, _ := NewBuilder(r.mod, r, r.runtimeClass(t, "TypeInfo"))
	err := b.Push(Field{})
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Kind != ErrInvalidField {
		t.Fatalf("expected invalid field error, got %v", err)
	}
	if err := b.PushConst(nil); !errors.As(err, &rerr) || rerr.Kind != ErrInvalidField {
		t.Fatalf("nil constant should be rejected, got %v", err)
	}
	if b.Len() != 2 {
		t.Fatalf("rejected pushes must not append, len=%d", b.Len())
	}
}

func TestSizeAndUintWidths(t *testing.T) {
	in := types.NewInterner()
	target := layout.I386LinuxGNU()
	r := &stubResolver{in: in, mod: llvm.NewModule(in, target), layout: layout.New(target, in)}
	b, _ := NewBuilder(r.mod, r, r.runtimeClass(t, "TypeInfo_StaticArray"))
	if err := b.PushSize(12); err != nil {
		t.Fatal(err)
	}
	if err := b.PushUint(3); err != nil {
		t.Fatal(err)
	}
	id, _ := r.TypeInfoOf(in.Intern(types.MakeStaticArray(in.Builtins().Int, 3)))
	if err := b.Finalize(id); err != nil {
		t.Fatal(err)
	}
	shape, _ := r.mod.Shape(id)
	if !lltypes.Equal(shape.Fields[2], lltypes.I32) || !lltypes.Equal(shape.Fields[3], lltypes.I32) {
		t.Fatalf("size_t and uint should both be i32 on i386, got %v", shape.Fields)
	}
}
