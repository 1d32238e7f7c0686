package llvm

import (
	"fmt"
	"math/big"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"

	"rtgen/internal/layout"
	"rtgen/internal/types"
)

// Module is the code-generator collaborator for one translation unit.
// It owns the LLVM module, the storage arena and every symbol table.
type Module struct {
	mod     *ir.Module
	types   *types.Interner
	target  layout.Target
	linkage enum.Linkage

	sizeT *lltypes.IntType
	slice *lltypes.StructType

	storages []storage // index 0 is the NoStorageID sentinel
	byName   map[string]StorageID
	symbols  map[string]SymbolKind
	order    []string

	data     map[string][]*ir.Global // requested name -> variants in suffix order
	strs     map[string]*ir.Global
	strCount int
	funcs    map[string]*ir.Func
	vtbls    map[string]*ir.Global
}

// Option tweaks a Module at construction time.
type Option func(*Module)

// WithLinkage sets the linkage sealed descriptors receive.
func WithLinkage(l enum.Linkage) Option {
	return func(m *Module) {
		m.linkage = l
	}
}

// WithSourceFilename records the unit path in the emitted module.
func WithSourceFilename(name string) Option {
	return func(m *Module) {
		m.mod.SourceFilename = name
	}
}

// NewModule creates an empty module for target.
func NewModule(typesIn *types.Interner, target layout.Target, opts ...Option) *Module {
	m := &Module{
		mod:      ir.NewModule(),
		types:    typesIn,
		target:   target,
		linkage:  enum.LinkageLinkOnceODR,
		storages: make([]storage, 1, 64),
		byName:   make(map[string]StorageID, 64),
		symbols:  make(map[string]SymbolKind, 128),
		data:     make(map[string][]*ir.Global),
		strs:     make(map[string]*ir.Global),
		funcs:    make(map[string]*ir.Func),
		vtbls:    make(map[string]*ir.Global),
	}
	m.mod.TargetTriple = target.Triple
	if target.PtrSize == 4 {
		m.sizeT = lltypes.I32
	} else {
		m.sizeT = lltypes.I64
	}
	m.slice = lltypes.NewStruct(m.sizeT, lltypes.I8Ptr)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Target returns the target the module is generated for.
func (m *Module) Target() layout.Target { return m.target }

// Types returns the interner the module maps types from.
func (m *Module) Types() *types.Interner { return m.types }

// SizeType is the integer type used for lengths and sizes.
func (m *Module) SizeType() *lltypes.IntType { return m.sizeT }

// SliceType is the {size_t, i8*} pair used for every array field.
func (m *Module) SliceType() *lltypes.StructType { return m.slice }

// NullPtr returns an untyped null reference.
func (m *Module) NullPtr() constant.Constant {
	return constant.NewNull(lltypes.I8Ptr)
}

// Uint returns a fixed-width 32-bit unsigned constant.
func (m *Module) Uint(v uint32) constant.Constant {
	return constant.NewInt(lltypes.I32, int64(v))
}

// SizeT returns a pointer-width unsigned constant.
func (m *Module) SizeT(v uint64) constant.Constant {
	return &constant.Int{Typ: m.sizeT, X: bigUint(v)}
}

// Slice builds the {length, data} pair of an array field.
func (m *Module) Slice(n uint64, data constant.Constant) constant.Constant {
	if data == nil {
		data = m.NullPtr()
	}
	return constant.NewStruct(m.slice, m.SizeT(n), data)
}

// StringData returns a reference to a NUL-terminated copy of s. Equal
// contents share one anonymous global.
func (m *Module) StringData(s string) constant.Constant {
	if g, ok := m.strs[s]; ok {
		return bytePtr(g)
	}
	name := fmt.Sprintf(".rtti.str.%d", m.strCount)
	m.strCount++
	g := m.mod.NewGlobalDef(name, constant.NewCharArrayFromString(s+"\x00"))
	g.Linkage = enum.LinkagePrivate
	g.UnnamedAddr = enum.UnnamedAddrUnnamedAddr
	g.Immutable = true
	g.Align = ir.Align(1)
	m.strs[s] = g
	m.record(name, SymbolString)
	return bytePtr(g)
}

// DataGlobal defines a named constant holding init and returns a reference
// to it. Requesting an existing name with an identical initializer returns
// the existing global; a different initializer gets a ".N" suffix.
func (m *Module) DataGlobal(name string, init constant.Constant, align int) (constant.Constant, error) {
	if name == "" {
		return nil, &SymbolError{Kind: SymEmptyName}
	}
	if init == nil {
		return nil, &SymbolError{Kind: SymMissingInit, Name: name}
	}
	variants := m.data[name]
	for _, g := range variants {
		if sameConstant(g.Init, init) {
			return bytePtr(g), nil
		}
	}
	final := name
	if len(variants) > 0 {
		final = fmt.Sprintf("%s.%d", name, len(variants))
	}
	if kind, taken := m.symbols[final]; taken {
		return nil, &SymbolError{Kind: SymConflict, Name: final, Have: kind, Want: SymbolData}
	}
	g := m.mod.NewGlobalDef(final, init)
	g.Linkage = m.linkage
	g.Immutable = true
	if align > 0 {
		g.Align = ir.Align(align)
	}
	m.data[name] = append(variants, g)
	m.record(final, SymbolData)
	return bytePtr(g), nil
}

// DeclareFunc returns the function named name, declaring it on first use.
func (m *Module) DeclareFunc(name string, ret lltypes.Type, params ...lltypes.Type) (*ir.Func, error) {
	if f, ok := m.funcs[name]; ok {
		return f, nil
	}
	if kind, taken := m.symbols[name]; taken {
		return nil, &SymbolError{Kind: SymConflict, Name: name, Have: kind, Want: SymbolFunc}
	}
	ps := make([]*ir.Param, 0, len(params))
	for _, p := range params {
		ps = append(ps, ir.NewParam("", p))
	}
	f := m.mod.NewFunc(name, ret, ps...)
	m.funcs[name] = f
	m.record(name, SymbolFunc)
	return f, nil
}

// FuncRef declares fn with its mapped signature and returns its entry point.
func (m *Module) FuncRef(fn types.FuncID) (constant.Constant, error) {
	decl, ok := m.types.Func(fn)
	if !ok {
		return nil, fmt.Errorf("unknown function id %d", fn)
	}
	sig, err := m.FuncType(decl.Type)
	if err != nil {
		return nil, err
	}
	f, err := m.DeclareFunc(m.types.MangleFunc(fn), sig.RetType, sig.Params...)
	if err != nil {
		return nil, err
	}
	return bytePtr(f), nil
}

// Vtbl defines a dispatch table holding entries, or returns the existing one.
func (m *Module) Vtbl(name string, entries []constant.Constant) (constant.Constant, error) {
	if g, ok := m.vtbls[name]; ok {
		return bytePtr(g), nil
	}
	if kind, taken := m.symbols[name]; taken {
		return nil, &SymbolError{Kind: SymConflict, Name: name, Have: kind, Want: SymbolVtbl}
	}
	arr := lltypes.NewArray(uint64(len(entries)), lltypes.I8Ptr)
	g := m.mod.NewGlobalDef(name, constant.NewArray(arr, entries...))
	g.Linkage = m.linkage
	g.Immutable = true
	g.Align = ir.Align(m.target.PtrAlign)
	m.vtbls[name] = g
	m.record(name, SymbolVtbl)
	return bytePtr(g), nil
}

// DeclareVtbl declares a dispatch table defined by the runtime.
func (m *Module) DeclareVtbl(name string) (constant.Constant, error) {
	if g, ok := m.vtbls[name]; ok {
		return bytePtr(g), nil
	}
	if kind, taken := m.symbols[name]; taken {
		return nil, &SymbolError{Kind: SymConflict, Name: name, Have: kind, Want: SymbolExternVtbl}
	}
	g := m.mod.NewGlobal(name, lltypes.NewArray(0, lltypes.I8Ptr))
	g.Linkage = enum.LinkageExternal
	m.vtbls[name] = g
	m.record(name, SymbolExternVtbl)
	return bytePtr(g), nil
}

func (m *Module) record(name string, kind SymbolKind) {
	m.symbols[name] = kind
	m.order = append(m.order, name)
}

func bytePtr(c constant.Constant) constant.Constant {
	if lltypes.Equal(c.Type(), lltypes.I8Ptr) {
		return c
	}
	return constant.NewBitCast(c, lltypes.I8Ptr)
}

func bigUint(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func sameConstant(a, b constant.Constant) bool {
	if a == nil || b == nil {
		return a == b
	}
	return lltypes.Equal(a.Type(), b.Type()) && a.Ident() == b.Ident()
}
