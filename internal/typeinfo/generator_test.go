package typeinfo

import (
	"strings"
	"testing"

	"github.com/llir/llvm/ir/constant"

	"rtgen/internal/backend/llvm"
	"rtgen/internal/layout"
	"rtgen/internal/trace"
	"rtgen/internal/types"
)

type fixture struct {
	in  *types.Interner
	mod *llvm.Module
	rt  *Runtime
	gen *Generator
}

func newFixture(t *testing.T, target layout.Target, opts ...Option) *fixture {
	t.Helper()
	in := types.NewInterner()
	rt, err := DeclareRuntime(in, target)
	if err != nil {
		t.Fatal(err)
	}
	mod := llvm.NewModule(in, target)
	return &fixture{in: in, mod: mod, rt: rt, gen: New(mod, layout.New(target, in), rt, opts...)}
}

func (f *fixture) class(t *testing.T, name string) (types.TypeID, *types.ClassInfo) {
	t.Helper()
	id, err := f.in.RegisterClass("app", name)
	if err != nil {
		t.Fatal(err)
	}
	info, _ := f.in.ClassInfo(id)
	info.Base = f.rt.Object
	return id, info
}

func (f *fixture) fields(t *testing.T, id llvm.StorageID) []constant.Constant {
	t.Helper()
	init, ok := f.mod.Init(id)
	if !ok {
		t.Fatalf("%s is not sealed", f.mod.Name(id))
	}
	st, ok := init.(*constant.Struct)
	if !ok {
		t.Fatalf("initializer of %s is %T", f.mod.Name(id), init)
	}
	return st.Fields
}

func (f *fixture) emit(t *testing.T) string {
	t.Helper()
	text, err := f.mod.Emit()
	if err != nil {
		t.Fatal(err)
	}
	return text
}

func TestBasicTypesAreExternal(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	id, err := f.gen.TypeInfoOf(f.in.Builtins().Int)
	if err != nil {
		t.Fatal(err)
	}
	shape, err := f.mod.Shape(id)
	if err != nil {
		t.Fatal(err)
	}
	if !shape.External || shape.Name != "_D10TypeInfo_i6__initZ" {
		t.Fatalf("int descriptor should be the runtime's external, got %+v", shape)
	}
	again, _ := f.gen.TypeInfoOf(f.in.Builtins().Int)
	if again != id || f.gen.Stats().Externals != 1 {
		t.Fatalf("external declared twice")
	}
}

func TestPointerAndStaticArray(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	b := f.in.Builtins()
	arr := f.in.Intern(types.MakeStaticArray(f.in.Intern(types.MakePointer(b.Char)), 4))
	id, err := f.gen.TypeInfoOf(arr)
	if err != nil {
		t.Fatal(err)
	}
	fields := f.fields(t, id)
	if len(fields) != 4 {
		t.Fatalf("static array descriptor has %d fields, want 4", len(fields))
	}
	if fields[3].Ident() != "i64 4" && fields[3].Ident() != "4" {
		t.Fatalf("length field = %s", fields[3].Ident())
	}
	text := f.emit(t)
	for _, want := range []string{
		"@_D13TypeInfo_G4Pa6__initZ = linkonce_odr constant",
		"@_D11TypeInfo_Pa6__initZ = linkonce_odr constant",
		"@_D6object20TypeInfo_StaticArray6__vtblZ = external global",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in:\n%s", want, text)
		}
	}
}

func TestStructDescriptor(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	b := f.in.Builtins()
	pt, _ := f.in.RegisterStruct("app", "Point")
	info, _ := f.in.StructInfo(pt)
	info.Fields = []types.Field{{Name: "x", Type: b.Int}, {Name: "y", Type: b.Int, Default: 1}}
	hashFn := f.in.RegisterFn([]types.TypeID{f.in.Intern(types.MakePointer(pt))}, b.Ulong)
	info.Hooks.ToHash = f.in.RegisterFunc("app", "hash", hashFn)

	id, err := f.gen.TypeInfoOf(pt)
	if err != nil {
		t.Fatal(err)
	}
	fields := f.fields(t, id)
	if len(fields) != 12 {
		t.Fatalf("struct descriptor has %d fields, want 12", len(fields))
	}
	if _, ok := fields[4].(*constant.Null); ok {
		t.Fatalf("toHash hook should not be null")
	}
	if _, ok := fields[5].(*constant.Null); !ok {
		t.Fatalf("opEquals hook should be null, got %s", fields[5].Ident())
	}
	text := f.emit(t)
	if !strings.Contains(text, `@"S3app5Point.rtti.void[].data"`) {
		t.Fatalf("non-zero initializer should be emitted as void[] data:\n%s", text)
	}
	if !strings.Contains(text, "declare i64 @_D3app4hashFPS3app5PointZm(") {
		t.Fatalf("hook function not declared:\n%s", text)
	}
}

func TestZeroStructHasEmptyInit(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	pt, _ := f.in.RegisterStruct("app", "Zero")
	info, _ := f.in.StructInfo(pt)
	info.Fields = []types.Field{{Name: "n", Type: f.in.Builtins().Long}}
	if _, err := f.gen.TypeInfoOf(pt); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(f.emit(t), "S3app4Zero.rtti") {
		t.Fatalf("all-zero initializer must not create backing data")
	}
}

func TestSelfReferentialClass(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	node, info := f.class(t, "Node")
	info.Fields = []types.Field{{Name: "next", Type: node}, {Name: "val", Type: f.in.Builtins().Int}}
	areaFn := f.in.RegisterFn([]types.TypeID{node}, f.in.Builtins().Double)
	info.Methods = []types.FuncID{f.in.RegisterFunc("app", "area", areaFn)}

	if err := f.gen.Generate([]types.TypeID{node}); err != nil {
		t.Fatal(err)
	}
	st := f.gen.Stats()
	if st.TypeInfos != 1 || st.ClassInfos != 1 || st.Vtbls != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
	ci, _ := f.mod.Lookup("_D3app4Node7__ClassZ")
	fields := f.fields(t, ci)
	if len(fields) != 14 {
		t.Fatalf("class-info has %d fields, want 14", len(fields))
	}
	text := f.emit(t)
	for _, want := range []string{
		"@_D3app4Node6__vtblZ = linkonce_odr constant [2 x i8*]",
		`@"C3app4Node.rtti.object.OffsetTypeInfo[].data"`,
		"@_D19TypeInfo_C3app4Node6__initZ = linkonce_odr constant",
		"@_D6object6Object7__ClassZ = external global",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in:\n%s", want, text)
		}
	}
}

func TestRootClassHasNullBase(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	root, info := f.class(t, "Root")
	info.Base = types.NoTypeID
	id, err := f.gen.ClassInfoOf(root)
	if err != nil {
		t.Fatal(err)
	}
	fields := f.fields(t, id)
	if _, ok := fields[6].(*constant.Null); !ok {
		t.Fatalf("base slot of the root should be null, got %s", fields[6].Ident())
	}
}

func TestInterfaces(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	drawable, err := f.in.RegisterInterface("app", "Drawable")
	if err != nil {
		t.Fatal(err)
	}
	shape, info := f.class(t, "Shape")
	info.Interfaces = []types.TypeID{drawable}
	info.Abstract = true

	if err := f.gen.Generate([]types.TypeID{shape, drawable}); err != nil {
		t.Fatal(err)
	}
	ci, _ := f.mod.Lookup("_D3app5Shape7__ClassZ")
	flags := f.fields(t, ci)[9]
	if flags.Ident() != "i32 98" && flags.Ident() != "98" {
		// noPointers | hasTypeInfo | abstract
		t.Fatalf("flags = %s, want 98", flags.Ident())
	}
	text := f.emit(t)
	if !strings.Contains(text, `@"C3app5Shape.rtti.object.Interface[].data"`) {
		t.Fatalf("interface table missing:\n%s", text)
	}
	if !strings.Contains(text, "@_D3app8Drawable7__ClassZ = linkonce_odr constant") {
		t.Fatalf("interface class-info missing:\n%s", text)
	}
}

func TestFunctionAndDelegate(t *testing.T) {
	f := newFixture(t, layout.I386LinuxGNU())
	b := f.in.Builtins()
	fn := f.in.RegisterFn([]types.TypeID{b.Int}, b.Void)
	dg := f.in.Intern(types.MakeDelegate(fn))
	id, err := f.gen.TypeInfoOf(dg)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(f.fields(t, id)); n != 4 {
		t.Fatalf("delegate descriptor has %d fields, want 4", n)
	}
	text := f.emit(t)
	if !strings.Contains(text, `c"DFiZv\00"`) {
		t.Fatalf("delegate deco missing:\n%s", text)
	}
	if !strings.Contains(text, "{ i32, i8* }") {
		t.Fatalf("i386 strings should use a 32-bit length:\n%s", text)
	}
}

func TestEnumDefault(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	color, err := f.in.RegisterEnum("app", "Color", f.in.Builtins().Ubyte)
	if err != nil {
		t.Fatal(err)
	}
	info, _ := f.in.EnumInfo(color)
	info.Default = 2
	if _, err := f.gen.TypeInfoOf(color); err != nil {
		t.Fatal(err)
	}
	text := f.emit(t)
	if !strings.Contains(text, `@"E3app5Color.rtti.void[].data" = linkonce_odr constant i8 2`) {
		t.Fatalf("enum default missing:\n%s", text)
	}
}

func TestDescriptorSpans(t *testing.T) {
	ring := trace.NewRingTracer(64, trace.LevelDetail)
	f := newFixture(t, layout.X86_64LinuxGNU(), WithTracer(ring, 0))
	node, _ := f.class(t, "Node")
	if err := f.gen.Generate([]types.TypeID{node}); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindSpanEnd {
			names = append(names, ev.Name)
		}
	}
	if len(names) != 2 || names[0] != "classinfo:app.Node" || names[1] != "typeinfo:app.Node" {
		t.Fatalf("unexpected descriptor spans %v", names)
	}
}

func TestDeclareRuntimeIsIdempotent(t *testing.T) {
	in := types.NewInterner()
	a, err := DeclareRuntime(in, layout.X86_64LinuxGNU())
	if err != nil {
		t.Fatal(err)
	}
	b, err := DeclareRuntime(in, layout.X86_64LinuxGNU())
	if err != nil {
		t.Fatal(err)
	}
	if *a != *b {
		t.Fatalf("runtime declarations differ between calls")
	}
	if chain := in.ClassChain(a.Struct); len(chain) != 3 || chain[2] != a.Object {
		t.Fatalf("TypeInfo_Struct should derive from TypeInfo and Object, got %v", chain)
	}

	clash := types.NewInterner()
	if _, err := clash.RegisterStruct(types.RuntimeModule, "TypeInfo"); err != nil {
		t.Fatal(err)
	}
	if _, err := DeclareRuntime(clash, layout.X86_64LinuxGNU()); err == nil {
		t.Fatalf("expected a name conflict")
	}
}
