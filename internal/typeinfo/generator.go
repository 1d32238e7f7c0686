package typeinfo

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"

	"rtgen/internal/backend/llvm"
	"rtgen/internal/layout"
	"rtgen/internal/rtti"
	"rtgen/internal/trace"
	"rtgen/internal/types"
)

type entryState uint8

const (
	entryReserved entryState = iota
	entryBuilding
	entryDone
	entryExternal
)

type entry struct {
	storage llvm.StorageID
	state   entryState
}

// Stats counts what a Generator produced.
type Stats struct {
	TypeInfos  int
	ClassInfos int
	Externals  int
	Vtbls      int
}

// Generator schedules descriptor generation for one module. It reserves a
// descriptor's storage before building it, so recursive references resolve
// to the reservation. It implements rtti.Resolver.
type Generator struct {
	mod    *llvm.Module
	in     *types.Interner
	layout *layout.LayoutEngine
	rt     *Runtime

	tracer trace.Tracer
	span   uint64

	typeInfos  map[types.TypeID]*entry
	classInfos map[types.TypeID]*entry
	vtbls      map[types.TypeID]constant.Constant
	stats      Stats
}

var _ rtti.Resolver = (*Generator)(nil)

// Option configures a Generator.
type Option func(*Generator)

// WithTracer records a span per descriptor under parent.
func WithTracer(t trace.Tracer, parent uint64) Option {
	return func(g *Generator) {
		if t != nil {
			g.tracer = t
			g.span = parent
		}
	}
}

// New creates a Generator emitting into mod.
func New(mod *llvm.Module, lay *layout.LayoutEngine, rt *Runtime, opts ...Option) *Generator {
	g := &Generator{
		mod:        mod,
		in:         mod.Types(),
		layout:     lay,
		rt:         rt,
		tracer:     trace.Nop,
		typeInfos:  make(map[types.TypeID]*entry, 32),
		classInfos: make(map[types.TypeID]*entry, 8),
		vtbls:      make(map[types.TypeID]constant.Constant, 8),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Stats reports the descriptors generated so far.
func (g *Generator) Stats() Stats { return g.stats }

// Generate produces the type descriptor of every root, and the class-info
// descriptor of every class or interface root.
func (g *Generator) Generate(roots []types.TypeID) error {
	for _, root := range roots {
		if _, err := g.TypeInfoOf(root); err != nil {
			return fmt.Errorf("%s: %w", g.in.String(root), err)
		}
		tt, ok := g.in.Lookup(root)
		if ok && (tt.Kind == types.KindClass || tt.Kind == types.KindInterface) {
			if _, err := g.ClassInfoOf(root); err != nil {
				return fmt.Errorf("%s: %w", g.in.String(root), err)
			}
		}
	}
	return nil
}

// TypeInfoOf returns the descriptor storage of t, generating the descriptor
// on first request. Basic types and runtime declarations are declared
// external.
func (g *Generator) TypeInfoOf(t types.TypeID) (llvm.StorageID, error) {
	if e, ok := g.typeInfos[t]; ok {
		return e.storage, nil
	}
	tt, ok := g.in.Lookup(t)
	if !ok {
		return llvm.NoStorageID, fmt.Errorf("unknown type id %d", t)
	}
	name := g.in.TypeInfoSymbol(t)
	if isBasic(tt.Kind) || g.in.IsRuntime(t) {
		id, err := g.mod.DeclareExternal(name)
		if err != nil {
			return llvm.NoStorageID, err
		}
		g.typeInfos[t] = &entry{storage: id, state: entryExternal}
		g.stats.Externals++
		return id, nil
	}
	base, ok := g.rt.descriptorClass(tt.Kind)
	if !ok {
		return llvm.NoStorageID, fmt.Errorf("no runtime descriptor for %s", tt.Kind)
	}
	id, err := g.mod.Reserve(name, enum.LinkageNone)
	if err != nil {
		return llvm.NoStorageID, err
	}
	e := &entry{storage: id}
	g.typeInfos[t] = e
	if err := g.build(e, "typeinfo:"+g.in.String(t), base, func(b *rtti.Builder) error {
		return g.typeInfoFields(b, t, tt)
	}); err != nil {
		return llvm.NoStorageID, err
	}
	g.stats.TypeInfos++
	return id, nil
}

// ClassInfoOf returns the class-info storage of a class or interface.
func (g *Generator) ClassInfoOf(cls types.TypeID) (llvm.StorageID, error) {
	e, err := g.reserveClassInfo(cls)
	if err != nil {
		return llvm.NoStorageID, err
	}
	if err := g.ensureClassInfo(cls, e); err != nil {
		return llvm.NoStorageID, err
	}
	return e.storage, nil
}

func (g *Generator) reserveClassInfo(cls types.TypeID) (*entry, error) {
	if e, ok := g.classInfos[cls]; ok {
		return e, nil
	}
	if _, ok := g.in.ClassInfo(cls); !ok {
		return nil, fmt.Errorf("%s is not a class or interface", g.in.String(cls))
	}
	name := g.in.ClassInfoSymbol(cls)
	if g.in.IsRuntime(cls) {
		id, err := g.mod.DeclareExternal(name)
		if err != nil {
			return nil, err
		}
		e := &entry{storage: id, state: entryExternal}
		g.classInfos[cls] = e
		g.stats.Externals++
		return e, nil
	}
	id, err := g.mod.Reserve(name, enum.LinkageNone)
	if err != nil {
		return nil, err
	}
	e := &entry{storage: id}
	g.classInfos[cls] = e
	return e, nil
}

func (g *Generator) ensureClassInfo(cls types.TypeID, e *entry) error {
	if e.state != entryReserved {
		return nil
	}
	if err := g.build(e, "classinfo:"+g.in.String(cls), g.rt.ClassInfo, func(b *rtti.Builder) error {
		return g.classInfoFields(b, cls)
	}); err != nil {
		return err
	}
	g.stats.ClassInfos++
	return nil
}

// ClassVtbl returns the dispatch table of cls. Runtime classes use the
// runtime's table; user classes get [classinfo, methods...].
func (g *Generator) ClassVtbl(cls types.TypeID) (constant.Constant, error) {
	if v, ok := g.vtbls[cls]; ok {
		return v, nil
	}
	info, ok := g.in.ClassInfo(cls)
	if !ok {
		return nil, fmt.Errorf("%s has no dispatch table", g.in.String(cls))
	}
	name := g.in.VtblSymbol(cls)
	if g.in.IsRuntime(cls) {
		v, err := g.mod.DeclareVtbl(name)
		if err != nil {
			return nil, err
		}
		g.vtbls[cls] = v
		return v, nil
	}
	// the table only needs the class-info reservation; building it may
	// come back here for the table itself
	e, err := g.reserveClassInfo(cls)
	if err != nil {
		return nil, err
	}
	ci, err := g.mod.Ref(e.storage)
	if err != nil {
		return nil, err
	}
	entries := make([]constant.Constant, 0, len(info.Methods)+1)
	entries = append(entries, ci)
	for _, fn := range info.Methods {
		f, err := g.FuncEntry(fn)
		if err != nil {
			return nil, err
		}
		entries = append(entries, f)
	}
	v, err := g.mod.Vtbl(name, entries)
	if err != nil {
		return nil, err
	}
	g.vtbls[cls] = v
	g.stats.Vtbls++
	if err := g.ensureClassInfo(cls, e); err != nil {
		return nil, err
	}
	return v, nil
}

// FuncEntry declares fn and returns its entry point; NoFuncID is null.
func (g *Generator) FuncEntry(fn types.FuncID) (constant.Constant, error) {
	if fn == types.NoFuncID {
		return g.mod.NullPtr(), nil
	}
	return g.mod.FuncRef(fn)
}

func (g *Generator) Mangle(t types.TypeID) string { return g.in.Mangle(t) }

func (g *Generator) ArrayRole(elem types.TypeID) string { return g.in.ArrayRole(elem) }

func (g *Generator) AlignOf(t types.TypeID) (int, error) { return g.layout.AlignOf(t) }

func (g *Generator) build(e *entry, name string, base types.TypeID, fill func(*rtti.Builder) error) error {
	span := trace.Begin(g.tracer, trace.ScopeDescriptor, name, g.span)
	parent := g.span
	g.span = span.ID()
	defer func() { g.span = parent }()

	e.state = entryBuilding
	b, err := rtti.NewBuilder(g.mod, g, base)
	if err != nil {
		e.state = entryReserved
		span.End("error")
		return err
	}
	if err := fill(b); err != nil {
		e.state = entryReserved
		span.End("error")
		return err
	}
	if err := b.Finalize(e.storage); err != nil {
		e.state = entryReserved
		span.End("error")
		return err
	}
	e.state = entryDone
	span.WithExtra("fields", fmt.Sprint(b.Len())).End(g.mod.Name(e.storage))
	return nil
}

func isBasic(k types.Kind) bool {
	switch k {
	case types.KindVoid, types.KindBool, types.KindChar, types.KindInt, types.KindUint, types.KindFloat:
		return true
	default:
		return false
	}
}
