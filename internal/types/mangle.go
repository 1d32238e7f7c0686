package types

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeIdent puts identifiers in NFC so equal source names always
// produce byte-identical mangled symbols.
func normalizeIdent(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Mangle returns the type's mangled encoding (no "_D" prefix).
func (in *Interner) Mangle(id TypeID) string {
	var sb strings.Builder
	in.mangleInto(&sb, id, make(map[TypeID]struct{}, 4))
	return sb.String()
}

func (in *Interner) mangleInto(sb *strings.Builder, id TypeID, seen map[TypeID]struct{}) {
	tt, ok := in.Lookup(id)
	if !ok {
		sb.WriteString("v")
		return
	}
	switch tt.Kind {
	case KindVoid:
		sb.WriteString("v")
	case KindBool:
		sb.WriteString("b")
	case KindChar:
		sb.WriteString("a")
	case KindInt:
		sb.WriteString(intMangle(tt.Width, false))
	case KindUint:
		sb.WriteString(intMangle(tt.Width, true))
	case KindFloat:
		if tt.Width == Width32 {
			sb.WriteString("f")
		} else {
			sb.WriteString("d")
		}
	case KindPointer:
		sb.WriteString("P")
		in.mangleInto(sb, tt.Elem, seen)
	case KindArray:
		sb.WriteString("A")
		in.mangleInto(sb, tt.Elem, seen)
	case KindStaticArray:
		sb.WriteString("G")
		sb.WriteString(strconv.FormatUint(tt.Count, 10))
		in.mangleInto(sb, tt.Elem, seen)
	case KindStruct:
		sb.WriteString("S")
		in.qualified(sb, id)
	case KindClass, KindInterface:
		sb.WriteString("C")
		in.qualified(sb, id)
	case KindEnum:
		sb.WriteString("E")
		in.qualified(sb, id)
	case KindFunction:
		if _, dup := seen[id]; dup {
			sb.WriteString("v")
			return
		}
		seen[id] = struct{}{}
		sb.WriteString("F")
		if info, ok := in.FnInfo(id); ok {
			for _, p := range info.Params {
				in.mangleInto(sb, p, seen)
			}
			sb.WriteString("Z")
			in.mangleInto(sb, info.Result, seen)
		} else {
			sb.WriteString("Zv")
		}
		delete(seen, id)
	case KindDelegate:
		sb.WriteString("D")
		in.mangleInto(sb, tt.Elem, seen)
	default:
		sb.WriteString("v")
	}
}

func intMangle(w Width, unsigned bool) string {
	switch w {
	case Width8:
		if unsigned {
			return "h"
		}
		return "g"
	case Width16:
		if unsigned {
			return "t"
		}
		return "s"
	case Width32:
		if unsigned {
			return "k"
		}
		return "i"
	default:
		if unsigned {
			return "m"
		}
		return "l"
	}
}

func (in *Interner) qualified(sb *strings.Builder, id TypeID) {
	nom, ok := in.NominalOf(id)
	if !ok {
		return
	}
	writeQualified(sb, nom.Module, nom.Name)
}

func writeQualified(sb *strings.Builder, module, name string) {
	if module != "" {
		for _, seg := range strings.Split(module, ".") {
			writeLenPrefixed(sb, seg)
		}
	}
	writeLenPrefixed(sb, name)
}

func writeLenPrefixed(sb *strings.Builder, s string) {
	sb.WriteString(strconv.Itoa(len(s)))
	sb.WriteString(s)
}

// MangleFunc returns the linkage name of a function declaration.
func (in *Interner) MangleFunc(fn FuncID) string {
	f, ok := in.Func(fn)
	if !ok {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("_D")
	writeQualified(&sb, f.Module, f.Name)
	in.mangleInto(&sb, f.Type, make(map[TypeID]struct{}, 2))
	return sb.String()
}

// TypeInfoSymbol names the descriptor global of id, e.g. "_D10TypeInfo_i6__initZ".
func (in *Interner) TypeInfoSymbol(id TypeID) string {
	var sb strings.Builder
	sb.WriteString("_D")
	writeLenPrefixed(&sb, "TypeInfo_"+in.Mangle(id))
	sb.WriteString("6__initZ")
	return sb.String()
}

// ClassInfoSymbol names the class-info global of a class or interface.
func (in *Interner) ClassInfoSymbol(cls TypeID) string {
	return in.declSymbol(cls, "7__ClassZ")
}

// VtblSymbol names the dispatch table of a class.
func (in *Interner) VtblSymbol(cls TypeID) string {
	return in.declSymbol(cls, "6__vtblZ")
}

// InitSymbol names the static initializer of a nominal type.
func (in *Interner) InitSymbol(id TypeID) string {
	return in.declSymbol(id, "6__initZ")
}

func (in *Interner) declSymbol(id TypeID, suffix string) string {
	var sb strings.Builder
	sb.WriteString("_D")
	in.qualified(&sb, id)
	sb.WriteString(suffix)
	return sb.String()
}

// String renders the source spelling of a type.
func (in *Interner) String(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return "void"
	}
	switch tt.Kind {
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindInt, KindUint:
		return intName(tt.Width, tt.Kind == KindUint)
	case KindFloat:
		if tt.Width == Width32 {
			return "float"
		}
		return "double"
	case KindPointer:
		return in.String(tt.Elem) + "*"
	case KindArray:
		return in.String(tt.Elem) + "[]"
	case KindStaticArray:
		return in.String(tt.Elem) + "[" + strconv.FormatUint(tt.Count, 10) + "]"
	case KindStruct, KindClass, KindInterface, KindEnum:
		nom, _ := in.NominalOf(id)
		if nom.Module == "" {
			return nom.Name
		}
		return nom.Module + "." + nom.Name
	case KindFunction:
		return in.fnString(id, "function")
	case KindDelegate:
		return in.fnString(tt.Elem, "delegate")
	default:
		return tt.Kind.String()
	}
}

func (in *Interner) fnString(fn TypeID, word string) string {
	info, ok := in.FnInfo(fn)
	if !ok {
		return "void " + word + "()"
	}
	params := make([]string, 0, len(info.Params))
	for _, p := range info.Params {
		params = append(params, in.String(p))
	}
	return in.String(info.Result) + " " + word + "(" + strings.Join(params, ", ") + ")"
}

func intName(w Width, unsigned bool) string {
	var base string
	switch w {
	case Width8:
		base = "byte"
	case Width16:
		base = "short"
	case Width32:
		base = "int"
	default:
		base = "long"
	}
	if unsigned {
		return "u" + base
	}
	return base
}

// ArrayRole is the role tag used to name backing data of an array of elem.
func (in *Interner) ArrayRole(elem TypeID) string {
	return in.String(elem) + "[]"
}
