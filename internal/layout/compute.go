package layout

import (
	"fortio.org/safecast"

	"rtgen/internal/types"
)

func (e *LayoutEngine) computeLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	if id == types.NoTypeID {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	typesIn := e.Types
	if typesIn == nil {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	tt, ok := typesIn.Lookup(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrUnknownType, Type: id}
	}

	switch tt.Kind {
	case types.KindVoid:
		return TypeLayout{Size: 0, Align: 1}, nil

	case types.KindBool, types.KindChar:
		return TypeLayout{Size: 1, Align: 1}, nil

	case types.KindInt, types.KindUint, types.KindFloat:
		return scalarLayoutBytes(int(tt.Width) / 8), nil

	case types.KindPointer, types.KindClass, types.KindInterface, types.KindFunction:
		return e.ptrLayout(), nil

	case types.KindArray:
		// {length, data}
		ptr := e.ptrLayout()
		return TypeLayout{Size: 2 * ptr.Size, Align: ptr.Align}, nil

	case types.KindDelegate:
		// {context, funcptr}
		ptr := e.ptrLayout()
		return TypeLayout{Size: 2 * ptr.Size, Align: ptr.Align}, nil

	case types.KindStaticArray:
		return e.arrayFixedLayout(id, tt.Elem, tt.Count, state)

	case types.KindStruct:
		return e.structLayout(id, state)

	case types.KindEnum:
		if info, ok := typesIn.EnumInfo(id); ok && info.Base != types.NoTypeID {
			return e.layoutOf(cacheKey{Type: info.Base}, state)
		}
		return scalarLayoutBytes(4), nil

	default:
		return TypeLayout{Size: 0, Align: 1}, nil
	}
}

func (e *LayoutEngine) ptrLayout() TypeLayout {
	ptrSize := e.Target.PtrSize
	ptrAlign := e.Target.PtrAlign
	if ptrSize <= 0 {
		ptrSize = 8
	}
	if ptrAlign <= 0 {
		ptrAlign = ptrSize
	}
	return TypeLayout{Size: ptrSize, Align: ptrAlign}
}

func scalarLayoutBytes(size int) TypeLayout {
	if size <= 0 {
		return TypeLayout{Size: 0, Align: 1}
	}
	return TypeLayout{Size: size, Align: size}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func (e *LayoutEngine) arrayFixedLayout(id, elem types.TypeID, length uint64, state *layoutState) (TypeLayout, *LayoutError) {
	elemLayout, err := e.layoutOf(cacheKey{Type: elem}, state)
	if err != nil {
		return TypeLayout{Size: 0, Align: 1}, err
	}
	elemAlign := max(elemLayout.Align, 1)
	stride := roundUp(elemLayout.Size, elemAlign)
	n, convErr := safecast.Conv[int](length)
	if convErr != nil {
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrLengthConversion, Type: id, Err: convErr}
	}
	return TypeLayout{
		Size:  stride * n,
		Align: elemAlign,
	}, nil
}

func (e *LayoutEngine) structLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	info, ok := e.Types.StructInfo(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	l, err := e.appendFields(TypeLayout{Size: 0, Align: 1}, info.Fields, state)
	if err != nil {
		return l, err
	}
	if info.AlignOverride > 0 {
		l.Align = max(l.Align, info.AlignOverride)
	}
	if len(info.Fields) == 0 {
		// empty structs still occupy one byte
		l.Size = 1
	}
	l.Size = roundUp(l.Size, l.Align)
	return l, nil
}

func (e *LayoutEngine) instanceLayout(cls types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	ptr := e.ptrLayout()
	l := TypeLayout{Size: 2 * ptr.Size, Align: ptr.Align}
	chain := e.Types.ClassChain(cls)
	for i := len(chain) - 1; i >= 0; i-- {
		info, ok := e.Types.ClassInfo(chain[i])
		if !ok {
			continue
		}
		var err *LayoutError
		l, err = e.appendFields(l, info.Fields, state)
		if err != nil {
			return l, err
		}
	}
	l.Size = roundUp(l.Size, l.Align)
	return l, nil
}

func (e *LayoutEngine) appendFields(l TypeLayout, fields []types.Field, state *layoutState) (TypeLayout, *LayoutError) {
	for _, f := range fields {
		fl, err := e.layoutOf(cacheKey{Type: f.Type}, state)
		if err != nil {
			return l, err
		}
		fAlign := max(fl.Align, 1)
		l.Size = roundUp(l.Size, fAlign)
		l.FieldOffsets = append(l.FieldOffsets, l.Size)
		l.FieldAligns = append(l.FieldAligns, fAlign)
		l.Size += fl.Size
		l.Align = max(l.Align, fAlign)
	}
	return l, nil
}
