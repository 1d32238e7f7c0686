package llvm

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
)

// StorageID identifies a descriptor global inside one Module.
type StorageID uint32

// NoStorageID is the zero handle; it never names a storage.
const NoStorageID StorageID = 0

type storageState uint8

const (
	storageReserved storageState = iota
	storageExternal
	storageSealed
)

type storage struct {
	name    string
	global  *ir.Global
	typ     *lltypes.StructType
	state   storageState
	linkage enum.Linkage
}

// Shape describes the current type of a storage.
type Shape struct {
	Name     string
	Type     *lltypes.StructType // refined in place by Refine
	Fields   []lltypes.Type
	Opaque   bool
	External bool
	Sealed   bool
}

// Reserve declares a descriptor global of an opaque named struct type and
// returns its handle. Reserving an existing name returns the same handle.
func (m *Module) Reserve(name string, linkage enum.Linkage) (StorageID, error) {
	return m.reserve(name, linkage, storageReserved)
}

// DeclareExternal declares a descriptor defined outside the unit.
func (m *Module) DeclareExternal(name string) (StorageID, error) {
	return m.reserve(name, enum.LinkageExternal, storageExternal)
}

func (m *Module) reserve(name string, linkage enum.Linkage, state storageState) (StorageID, error) {
	if name == "" {
		return NoStorageID, &SymbolError{Kind: SymEmptyName}
	}
	want := SymbolDescriptor
	if state == storageExternal {
		want = SymbolExternDescriptor
	}
	if id, ok := m.byName[name]; ok {
		if m.storages[id].state == storageExternal && state != storageExternal {
			return NoStorageID, &SymbolError{Kind: SymConflict, Name: name, Have: SymbolExternDescriptor, Want: want}
		}
		return id, nil
	}
	if kind, taken := m.symbols[name]; taken {
		return NoStorageID, &SymbolError{Kind: SymConflict, Name: name, Have: kind, Want: want}
	}
	if linkage == enum.LinkageNone {
		linkage = m.linkage
	}
	st := &lltypes.StructType{Opaque: true}
	m.mod.NewTypeDef(name+".type", st)
	g := m.mod.NewGlobal(name, st)
	g.Linkage = enum.LinkageExternal
	id := StorageID(len(m.storages))
	m.storages = append(m.storages, storage{
		name:    name,
		global:  g,
		typ:     st,
		state:   state,
		linkage: linkage,
	})
	m.byName[name] = id
	m.record(name, want)
	return id, nil
}

// Lookup returns the handle of a reserved or declared storage.
func (m *Module) Lookup(name string) (StorageID, bool) {
	id, ok := m.byName[name]
	return id, ok
}

// Name returns the symbol of a storage, or "" for an unknown handle.
func (m *Module) Name(id StorageID) string {
	s, err := m.storage(id)
	if err != nil {
		return ""
	}
	return s.name
}

// Ref returns a byte-pointer reference to the storage. References are valid
// from reservation on, before the shape is known.
func (m *Module) Ref(id StorageID) (constant.Constant, error) {
	s, err := m.storage(id)
	if err != nil {
		return nil, err
	}
	return bytePtr(s.global), nil
}

// Shape reports the current type of the storage.
func (m *Module) Shape(id StorageID) (Shape, error) {
	s, err := m.storage(id)
	if err != nil {
		return Shape{}, err
	}
	return Shape{
		Name:     s.name,
		Type:     s.typ,
		Fields:   s.typ.Fields,
		Opaque:   s.typ.Opaque,
		External: s.state == storageExternal,
		Sealed:   s.state == storageSealed,
	}, nil
}

// Refine gives an opaque storage its concrete field types, in place, so
// references taken earlier stay valid.
func (m *Module) Refine(id StorageID, fields []lltypes.Type) error {
	s, err := m.storage(id)
	if err != nil {
		return err
	}
	if s.state == storageExternal {
		return &SymbolError{Kind: SymExternal, Name: s.name}
	}
	if !s.typ.Opaque {
		return &SymbolError{Kind: SymNotOpaque, Name: s.name}
	}
	s.typ.Fields = append([]lltypes.Type(nil), fields...)
	s.typ.Opaque = false
	return nil
}

// SetInitializer seals the storage with init. The storage must have been
// refined and must not carry an initializer yet.
func (m *Module) SetInitializer(id StorageID, init constant.Constant) error {
	s, err := m.storage(id)
	if err != nil {
		return err
	}
	switch {
	case s.state == storageExternal:
		return &SymbolError{Kind: SymExternal, Name: s.name}
	case s.state == storageSealed:
		return &SymbolError{Kind: SymAlreadyInitialized, Name: s.name}
	case s.typ.Opaque:
		return &SymbolError{Kind: SymOpaque, Name: s.name}
	case init == nil:
		return &SymbolError{Kind: SymMissingInit, Name: s.name}
	case !lltypes.Equal(init.Type(), s.typ):
		return &SymbolError{Kind: SymTypeMismatch, Name: s.name, Detail: init.Type().String()}
	}
	s.global.Init = init
	s.global.Linkage = s.linkage
	s.global.Immutable = true
	s.global.Align = ir.Align(m.target.PtrAlign)
	s.state = storageSealed
	return nil
}

// Init returns the initializer of a sealed storage.
func (m *Module) Init(id StorageID) (constant.Constant, bool) {
	s, err := m.storage(id)
	if err != nil || s.state != storageSealed {
		return nil, false
	}
	return s.global.Init, true
}

// Unsealed lists reserved storages that never received an initializer.
func (m *Module) Unsealed() []string {
	var out []string
	for i := 1; i < len(m.storages); i++ {
		if m.storages[i].state == storageReserved {
			out = append(out, m.storages[i].name)
		}
	}
	return out
}

func (m *Module) storage(id StorageID) (*storage, error) {
	if m == nil || id == NoStorageID || int(id) >= len(m.storages) {
		return nil, &SymbolError{Kind: SymUnknownStorage, ID: id}
	}
	return &m.storages[id], nil
}
