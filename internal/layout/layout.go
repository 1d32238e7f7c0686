package layout

import (
	"rtgen/internal/types"
)

// TypeLayout is the ABI layout of a type for a specific Target.
type TypeLayout struct {
	Size  int
	Align int

	// Struct and class-instance only, in declaration order (root class first).
	FieldOffsets []int
	FieldAligns  []int
}

// LayoutEngine computes memory layout for types.
type LayoutEngine struct {
	Target Target
	Types  *types.Interner

	cache *cache
}

// New creates a new LayoutEngine for the specified target.
func New(target Target, typesIn *types.Interner) *LayoutEngine {
	return &LayoutEngine{
		Target: target,
		Types:  typesIn,
		cache:  newCache(),
	}
}

type layoutState struct {
	stack []cacheKey
	index map[cacheKey]int
}

func newLayoutState() *layoutState {
	return &layoutState{
		stack: nil,
		index: make(map[cacheKey]int, 32),
	}
}

// LayoutOf computes and caches the layout of a type. Classes and interfaces
// are references and therefore pointer-sized.
func (e *LayoutEngine) LayoutOf(t types.TypeID) (TypeLayout, error) {
	l, err := e.layoutOf(cacheKey{Type: t}, newLayoutState())
	if err != nil {
		return l, err
	}
	return l, nil
}

// ClassInstanceLayout computes the by-value layout of a class instance:
// dispatch table, monitor, then the fields of every class from the root down.
func (e *LayoutEngine) ClassInstanceLayout(cls types.TypeID) (TypeLayout, error) {
	l, err := e.layoutOf(cacheKey{Type: cls, Instance: true}, newLayoutState())
	if err != nil {
		return l, err
	}
	return l, nil
}

func (e *LayoutEngine) layoutOf(key cacheKey, state *layoutState) (TypeLayout, *LayoutError) {
	if e == nil {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	if e.cache == nil {
		e.cache = newCache()
	}
	if cached, ok := e.cache.get(key); ok {
		return cached.Layout, cached.Err
	}

	if idx, ok := state.index[key]; ok {
		cycle := make([]types.TypeID, 0, len(state.stack)-idx+1)
		for _, k := range state.stack[idx:] {
			cycle = append(cycle, k.Type)
		}
		cycle = append(cycle, key.Type)
		err := &LayoutError{
			Kind:  LayoutErrRecursiveUnsized,
			Type:  key.Type,
			Cycle: cycle,
		}
		e.cache.put(key, &cacheEntry{Layout: TypeLayout{Size: 0, Align: 1}, Err: err})
		return TypeLayout{Size: 0, Align: 1}, err
	}

	state.index[key] = len(state.stack)
	state.stack = append(state.stack, key)
	var (
		layout TypeLayout
		err    *LayoutError
	)
	if key.Instance {
		layout, err = e.instanceLayout(key.Type, state)
	} else {
		layout, err = e.computeLayout(key.Type, state)
	}
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, key)

	e.cache.put(key, &cacheEntry{Layout: layout, Err: err})
	return layout, err
}

// SizeOf returns the size of a type in bytes.
func (e *LayoutEngine) SizeOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Size, err
}

// AlignOf returns the alignment requirement of a type in bytes.
func (e *LayoutEngine) AlignOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Align, err
}

// FieldOffset returns the byte offset of a struct field.
func (e *LayoutEngine) FieldOffset(structT types.TypeID, fieldIdx int) (int, error) {
	l, err := e.LayoutOf(structT)
	if err != nil {
		return 0, err
	}
	if fieldIdx < 0 || fieldIdx >= len(l.FieldOffsets) {
		return 0, nil
	}
	return l.FieldOffsets[fieldIdx], nil
}

// HasPointers reports whether a value of type t contains pointers the GC
// must scan.
func (e *LayoutEngine) HasPointers(t types.TypeID) bool {
	return e.hasPointers(t, make(map[types.TypeID]struct{}, 8))
}

func (e *LayoutEngine) hasPointers(t types.TypeID, seen map[types.TypeID]struct{}) bool {
	if e == nil || e.Types == nil {
		return false
	}
	if _, ok := seen[t]; ok {
		return false
	}
	seen[t] = struct{}{}
	tt, ok := e.Types.Lookup(t)
	if !ok {
		return false
	}
	switch tt.Kind {
	case types.KindPointer, types.KindArray, types.KindClass, types.KindInterface, types.KindDelegate, types.KindFunction:
		return true
	case types.KindStaticArray:
		return tt.Count > 0 && e.hasPointers(tt.Elem, seen)
	case types.KindStruct:
		info, ok := e.Types.StructInfo(t)
		if !ok {
			return false
		}
		for _, f := range info.Fields {
			if e.hasPointers(f.Type, seen) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
