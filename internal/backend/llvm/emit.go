package llvm

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
)

// Symbol summarizes one emitted global for listings and the build cache.
type Symbol struct {
	Name   string     `msgpack:"name"`
	Kind   SymbolKind `msgpack:"kind"`
	Fields int        `msgpack:"fields"`
	Size   uint64     `msgpack:"size"`
}

// Emit renders the module as LLVM IR text. Every reserved descriptor must
// have been sealed.
func (m *Module) Emit() (string, error) {
	if pending := m.Unsealed(); len(pending) > 0 {
		return "", fmt.Errorf("descriptors reserved but never initialized: %s", strings.Join(pending, ", "))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "; target %s, pointer size %d\n", m.target.Triple, m.target.PtrSize)
	sb.WriteString(m.mod.String())
	return sb.String(), nil
}

// Symbols lists emitted globals in definition order.
func (m *Module) Symbols() []Symbol {
	out := make([]Symbol, 0, len(m.order))
	for _, name := range m.order {
		kind := m.symbols[name]
		sym := Symbol{Name: name, Kind: kind}
		switch kind {
		case SymbolDescriptor, SymbolExternDescriptor:
			if id, ok := m.byName[name]; ok {
				st := m.storages[id].typ
				sym.Fields = len(st.Fields)
				sym.Size = m.PaddedSize(st)
			}
		case SymbolData:
			if g := m.dataGlobal(name); g != nil {
				sym.Size = m.PaddedSize(g.ContentType)
			}
		case SymbolString:
			for _, g := range m.strs {
				if g.Name() == name {
					sym.Size = m.PaddedSize(g.ContentType)
					break
				}
			}
		case SymbolVtbl, SymbolExternVtbl:
			if g, ok := m.vtbls[name]; ok {
				if at, ok := g.ContentType.(*lltypes.ArrayType); ok {
					if n, err := safecast.Conv[int](at.Len); err == nil {
						sym.Fields = n
					}
				}
				sym.Size = m.PaddedSize(g.ContentType)
			}
		}
		out = append(out, sym)
	}
	return out
}

func (m *Module) dataGlobal(name string) *ir.Global {
	for _, variants := range m.data {
		for _, g := range variants {
			if g.Name() == name {
				return g
			}
		}
	}
	return nil
}

// ParseLinkage maps a manifest linkage name to its LLVM linkage.
func ParseLinkage(s string) (enum.Linkage, error) {
	switch strings.TrimSpace(s) {
	case "", "linkonce_odr":
		return enum.LinkageLinkOnceODR, nil
	case "weak_odr":
		return enum.LinkageWeakODR, nil
	case "external":
		return enum.LinkageExternal, nil
	case "internal":
		return enum.LinkageInternal, nil
	default:
		return enum.LinkageNone, fmt.Errorf("unknown linkage %q", s)
	}
}
