package types

// FnInfo describes the signature of a function type.
type FnInfo struct {
	Params []TypeID
	Result TypeID
}

// Func is a function declaration that descriptors may point at.
type Func struct {
	Module string
	Name   string
	Type   TypeID // KindFunction
}

// RegisterFn interns a function type. Identical signatures share a TypeID.
func (in *Interner) RegisterFn(params []TypeID, result TypeID) TypeID {
	for i := 1; i < len(in.fns); i++ {
		if sameSignature(in.fns[i], params, result) {
			if id, ok := in.index[typeKey{Kind: KindFunction, Payload: nextIndex(i)}]; ok {
				return id
			}
		}
	}
	idx := nextIndex(len(in.fns))
	in.fns = append(in.fns, FnInfo{Params: append([]TypeID(nil), params...), Result: result})
	return in.internRaw(Type{Kind: KindFunction, Payload: idx})
}

// FnInfo returns the signature of a function type.
func (in *Interner) FnInfo(id TypeID) (*FnInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindFunction || int(tt.Payload) >= len(in.fns) {
		return nil, false
	}
	return &in.fns[tt.Payload], true
}

// RegisterFunc declares a function (or returns the existing declaration).
func (in *Interner) RegisterFunc(module, name string, fnType TypeID) FuncID {
	key := qualifiedKey(module, name)
	if id, ok := in.funcByName[key]; ok {
		return id
	}
	id := FuncID(nextIndex(len(in.funcs)))
	in.funcs = append(in.funcs, Func{Module: normalizeIdent(module), Name: normalizeIdent(name), Type: fnType})
	in.funcByName[key] = id
	return id
}

// Func returns the declaration for fn.
func (in *Interner) Func(fn FuncID) (Func, bool) {
	if in == nil || fn == NoFuncID || int(fn) >= len(in.funcs) {
		return Func{}, false
	}
	return in.funcs[fn], true
}

func sameSignature(info FnInfo, params []TypeID, result TypeID) bool {
	if info.Result != result || len(info.Params) != len(params) {
		return false
	}
	for i := range params {
		if info.Params[i] != params[i] {
			return false
		}
	}
	return true
}
