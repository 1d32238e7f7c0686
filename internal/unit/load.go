package unit

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	"rtgen/internal/diag"
	"rtgen/internal/layout"
	"rtgen/internal/typeinfo"
	"rtgen/internal/types"
)

// Unit is a loaded translation unit ready for descriptor generation.
type Unit struct {
	Path    string
	Module  string
	Source  []byte
	Types   *types.Interner
	Runtime *typeinfo.Runtime
	Roots   []types.TypeID
}

// Load reads and resolves the unit at path. The unit is nil when the bag
// holds errors.
func Load(path string, target layout.Target) (*Unit, *diag.Bag) {
	src, err := os.ReadFile(path)
	if err != nil {
		bag := diag.NewBag(1)
		bag.Add(diag.NewError(diag.IOLoadFileError, diag.Span{File: path}, err.Error()))
		return nil, bag
	}
	return Parse(path, src, target)
}

// Parse resolves a unit from its TOML source.
func Parse(path string, src []byte, target layout.Target) (*Unit, *diag.Bag) {
	bag := diag.NewBag(100)
	l := &loader{
		path:  path,
		lines: strings.Split(string(src), "\n"),
		rep:   diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
		in:    types.NewInterner(),
		first: make(map[string]diag.Span),
	}
	var file File
	meta, err := toml.Decode(string(src), &file)
	if err != nil {
		sp := diag.Span{File: path}
		var pe toml.ParseError
		if errors.As(err, &pe) {
			if line, convErr := safecast.Conv[uint32](pe.Position.Line); convErr == nil {
				sp.Line = line
			}
		}
		diag.ReportError(l.rep, diag.UnitParse, sp, err.Error()).Emit()
		return nil, bag
	}
	for _, key := range meta.Undecoded() {
		diag.ReportError(l.rep, diag.UnitParse, l.spanOf(key[len(key)-1]), fmt.Sprintf("unknown key %q", key.String())).Emit()
	}
	l.module = strings.TrimSpace(file.Module)
	if l.module == "" {
		diag.ReportError(l.rep, diag.UnitEmptyModule, diag.Span{File: path, Line: 1}, "unit has no module name").Emit()
		return nil, bag
	}
	rt, err := typeinfo.DeclareRuntime(l.in, target)
	if err != nil {
		diag.ReportError(l.rep, diag.UnitDuplicate, diag.Span{File: path}, err.Error()).Emit()
		return nil, bag
	}
	l.rt = rt

	l.declare(&file)
	l.declareFuncs(file.Funcs)
	l.fillStructs(file.Structs)
	l.fillClasses(file.Classes)
	l.fillInterfaces(file.Interfaces)
	l.fillEnums(file.Enums)
	l.checkCycles(file.Classes)
	roots := l.roots(file.Roots)

	if bag.HasErrors() {
		return nil, bag
	}
	return &Unit{
		Path:    path,
		Module:  l.module,
		Source:  src,
		Types:   l.in,
		Runtime: rt,
		Roots:   roots,
	}, bag
}

type loader struct {
	path   string
	lines  []string
	rep    diag.Reporter
	in     *types.Interner
	rt     *typeinfo.Runtime
	module string
	first  map[string]diag.Span
	order  []types.TypeID
}

// spanOf locates name in the source, preferring a `name = "..."` line,
// then any quoted mention, then a bare key.
func (l *loader) spanOf(name string) diag.Span {
	sp := diag.Span{File: l.path}
	if name == "" {
		return sp
	}
	quoted := `"` + name + `"`
	passes := []func(line string) int{
		func(line string) int {
			if !strings.Contains(line, "name") {
				return -1
			}
			return strings.Index(line, quoted)
		},
		func(line string) int { return strings.Index(line, quoted) },
		func(line string) int {
			if strings.HasPrefix(strings.TrimSpace(line), name) {
				return strings.Index(line, name)
			}
			return -1
		},
	}
	for _, find := range passes {
		for i, line := range l.lines {
			col := find(line)
			if col < 0 {
				continue
			}
			lineNo, err1 := safecast.Conv[uint32](i + 1)
			colNo, err2 := safecast.Conv[uint32](col + 1)
			if err1 == nil && err2 == nil {
				sp.Line, sp.Col = lineNo, colNo
			}
			return sp
		}
	}
	return sp
}

func (l *loader) resolveName(name string) (types.TypeID, bool) {
	if i := strings.LastIndex(name, "."); i > 0 {
		return l.in.ByName(name[:i], name[i+1:])
	}
	if id, ok := l.in.ByName(l.module, name); ok {
		return id, true
	}
	return l.in.ByName(types.RuntimeModule, name)
}

func (l *loader) resolveFunc(name string) (types.FuncID, bool) {
	if i := strings.LastIndex(name, "."); i > 0 {
		return l.in.FuncByName(name[:i], name[i+1:])
	}
	if id, ok := l.in.FuncByName(l.module, name); ok {
		return id, true
	}
	return l.in.FuncByName(types.RuntimeModule, name)
}

// typeOf parses expr and reports a diagnostic at the declaration named owner.
func (l *loader) typeOf(expr, owner string) (types.TypeID, bool) {
	id, err := ParseType(l.in, l.resolveName, expr)
	if err == nil {
		return id, true
	}
	code := diag.UnitBadTypeExpr
	var ee *ExprError
	if errors.As(err, &ee) && ee.Kind == ExprUnknownName {
		code = diag.UnitUnknownType
	}
	diag.ReportError(l.rep, code, l.spanOf(owner), err.Error()).Emit()
	return types.NoTypeID, false
}

func (l *loader) funcOf(name, owner string) types.FuncID {
	if name == "" {
		return types.NoFuncID
	}
	fn, ok := l.resolveFunc(name)
	if !ok {
		diag.ReportError(l.rep, diag.UnitUnknownFunc, l.spanOf(name), fmt.Sprintf("%s refers to unknown function %q", owner, name)).Emit()
		return types.NoFuncID
	}
	return fn
}

// claim records a declaration name; a second claim is a duplicate.
func (l *loader) claim(name, what string) bool {
	sp := l.spanOf(name)
	if name == "" {
		diag.ReportError(l.rep, diag.UnitParse, sp, what+" without a name").Emit()
		return false
	}
	if prev, ok := l.first[name]; ok {
		diag.ReportError(l.rep, diag.UnitDuplicate, sp, fmt.Sprintf("%q is declared more than once", name)).
			WithNote(prev, "first declared here").
			Emit()
		return false
	}
	if _, ok := l.in.ByName(l.module, name); ok {
		diag.ReportError(l.rep, diag.UnitDuplicate, sp, fmt.Sprintf("%q redeclares a runtime declaration", name)).Emit()
		return false
	}
	l.first[name] = sp
	return true
}

func (l *loader) declare(file *File) {
	register := func(id types.TypeID, err error, name string) {
		if err != nil {
			diag.ReportError(l.rep, diag.UnitDuplicate, l.spanOf(name), err.Error()).Emit()
			return
		}
		l.order = append(l.order, id)
	}
	for _, d := range file.Structs {
		if l.claim(d.Name, "struct") {
			id, err := l.in.RegisterStruct(l.module, d.Name)
			register(id, err, d.Name)
		}
	}
	for _, d := range file.Classes {
		if l.claim(d.Name, "class") {
			id, err := l.in.RegisterClass(l.module, d.Name)
			register(id, err, d.Name)
		}
	}
	for _, d := range file.Interfaces {
		if l.claim(d.Name, "interface") {
			id, err := l.in.RegisterInterface(l.module, d.Name)
			register(id, err, d.Name)
		}
	}
	for _, d := range file.Enums {
		if l.claim(d.Name, "enum") {
			id, err := l.in.RegisterEnum(l.module, d.Name, types.NoTypeID)
			register(id, err, d.Name)
		}
	}
}

func (l *loader) declareFuncs(funcs []FuncDecl) {
	seen := make(map[string]struct{}, len(funcs))
	for _, d := range funcs {
		if d.Name == "" {
			diag.ReportError(l.rep, diag.UnitParse, diag.Span{File: l.path}, "func without a name").Emit()
			continue
		}
		if _, dup := seen[d.Name]; dup {
			diag.ReportError(l.rep, diag.UnitDuplicate, l.spanOf(d.Name), fmt.Sprintf("function %q is declared more than once", d.Name)).Emit()
			continue
		}
		seen[d.Name] = struct{}{}
		params := make([]types.TypeID, 0, len(d.Params))
		ok := true
		for _, p := range d.Params {
			id, good := l.typeOf(p, d.Name)
			ok = ok && good
			params = append(params, id)
		}
		result := l.in.Builtins().Void
		if d.Result != "" {
			id, good := l.typeOf(d.Result, d.Name)
			ok = ok && good
			result = id
		}
		if !ok {
			continue
		}
		l.in.RegisterFunc(l.module, d.Name, l.in.RegisterFn(params, result))
	}
}

func (l *loader) fields(decls []FieldDecl, owner string) []types.Field {
	out := make([]types.Field, 0, len(decls))
	for _, f := range decls {
		if f.Name == "" {
			diag.ReportError(l.rep, diag.UnitParse, l.spanOf(owner), fmt.Sprintf("field of %s without a name", owner)).Emit()
			continue
		}
		id, ok := l.typeOf(f.Type, owner)
		if !ok {
			continue
		}
		def, err := safecast.Conv[uint64](f.Default)
		if err != nil {
			diag.ReportError(l.rep, diag.UnitParse, l.spanOf(f.Name), fmt.Sprintf("default of %s.%s must not be negative", owner, f.Name)).Emit()
			continue
		}
		out = append(out, types.Field{Name: f.Name, Type: id, Default: def})
	}
	return out
}

func (l *loader) fillStructs(decls []StructDecl) {
	for _, d := range decls {
		id, ok := l.in.ByName(l.module, d.Name)
		if !ok {
			continue
		}
		info, ok := l.in.StructInfo(id)
		if !ok {
			continue
		}
		info.Fields = l.fields(d.Fields, d.Name)
		for key, fn := range d.Hooks {
			ref := l.funcOf(fn, d.Name)
			switch key {
			case "toHash":
				info.Hooks.ToHash = ref
			case "opEquals":
				info.Hooks.OpEquals = ref
			case "opCmp":
				info.Hooks.OpCmp = ref
			case "toString":
				info.Hooks.ToString = ref
			case "dtor":
				info.Hooks.Dtor = ref
			case "postblit":
				info.Hooks.Postblit = ref
			default:
				diag.ReportError(l.rep, diag.UnitParse, l.spanOf(key), fmt.Sprintf("unknown hook %q on %s", key, d.Name)).Emit()
			}
		}
		if d.Align != 0 && (d.Align < 0 || d.Align > 256 || d.Align&(d.Align-1) != 0) {
			diag.ReportError(l.rep, diag.UnitBadAlignment, l.spanOf(d.Name), fmt.Sprintf("align of %s must be a power of two up to 256, got %d", d.Name, d.Align)).Emit()
			continue
		}
		info.AlignOverride = d.Align
	}
}

func (l *loader) fillClasses(decls []ClassDecl) {
	for _, d := range decls {
		id, ok := l.in.ByName(l.module, d.Name)
		if !ok {
			continue
		}
		info, ok := l.in.ClassInfo(id)
		if !ok || info.Interface {
			continue
		}
		info.Base = l.rt.Object
		if d.Base != nil {
			info.Base = l.baseOf(*d.Base, d.Name)
		}
		for _, name := range d.Interfaces {
			iface, ok := l.typeOf(name, d.Name)
			if !ok {
				continue
			}
			if tt, _ := l.in.Lookup(iface); tt.Kind != types.KindInterface {
				diag.ReportError(l.rep, diag.UnitBadBase, l.spanOf(name), fmt.Sprintf("%s implements %s, which is not an interface", d.Name, name)).Emit()
				continue
			}
			info.Interfaces = append(info.Interfaces, iface)
		}
		info.Fields = l.fields(d.Fields, d.Name)
		for _, m := range d.Methods {
			if fn := l.funcOf(m, d.Name); fn != types.NoFuncID {
				info.Methods = append(info.Methods, fn)
			}
		}
		info.Dtor = l.funcOf(d.Dtor, d.Name)
		info.Invariant = l.funcOf(d.Invariant, d.Name)
		info.Ctor = l.funcOf(d.Ctor, d.Name)
		info.Abstract = d.Abstract
	}
}

func (l *loader) baseOf(expr, owner string) types.TypeID {
	if strings.TrimSpace(expr) == "" {
		diag.ReportError(l.rep, diag.UnitBadBase, l.spanOf(owner), fmt.Sprintf("%s has an empty base; only the runtime root has none", owner)).Emit()
		return types.NoTypeID
	}
	base, ok := l.typeOf(expr, owner)
	if !ok {
		return types.NoTypeID
	}
	if tt, _ := l.in.Lookup(base); tt.Kind != types.KindClass {
		diag.ReportError(l.rep, diag.UnitBadBase, l.spanOf(owner), fmt.Sprintf("base of %s must be a class, %s is a %s", owner, expr, tt.Kind)).Emit()
		return types.NoTypeID
	}
	return base
}

func (l *loader) fillInterfaces(decls []InterfaceDecl) {
	for _, d := range decls {
		id, ok := l.in.ByName(l.module, d.Name)
		if !ok {
			continue
		}
		info, ok := l.in.ClassInfo(id)
		if !ok || !info.Interface {
			continue
		}
		for _, m := range d.Methods {
			if fn := l.funcOf(m, d.Name); fn != types.NoFuncID {
				info.Methods = append(info.Methods, fn)
			}
		}
	}
}

func (l *loader) fillEnums(decls []EnumDecl) {
	for _, d := range decls {
		id, ok := l.in.ByName(l.module, d.Name)
		if !ok {
			continue
		}
		info, ok := l.in.EnumInfo(id)
		if !ok {
			continue
		}
		info.Base = l.in.Builtins().Int
		if d.Base != "" {
			base, ok := l.typeOf(d.Base, d.Name)
			if !ok {
				continue
			}
			switch tt, _ := l.in.Lookup(base); tt.Kind {
			case types.KindInt, types.KindUint, types.KindChar, types.KindBool:
				info.Base = base
			default:
				diag.ReportError(l.rep, diag.UnitBadBase, l.spanOf(d.Name), fmt.Sprintf("base of enum %s must be integral, got %s", d.Name, d.Base)).Emit()
				continue
			}
		}
		def, err := safecast.Conv[uint64](d.Default)
		if err != nil {
			diag.ReportError(l.rep, diag.UnitParse, l.spanOf(d.Name), fmt.Sprintf("default of enum %s must not be negative", d.Name)).Emit()
			continue
		}
		info.Default = def
	}
}

func (l *loader) checkCycles(decls []ClassDecl) {
	for _, d := range decls {
		id, ok := l.in.ByName(l.module, d.Name)
		if !ok {
			continue
		}
		seen := make(map[types.TypeID]struct{}, 4)
		for cls := id; cls != types.NoTypeID; {
			if _, dup := seen[cls]; dup {
				diag.ReportError(l.rep, diag.UnitBadBase, l.spanOf(d.Name), fmt.Sprintf("inheritance cycle through %s", d.Name)).Emit()
				break
			}
			seen[cls] = struct{}{}
			info, ok := l.in.ClassInfo(cls)
			if !ok {
				break
			}
			cls = info.Base
		}
	}
}

// roots resolves the requested roots; without any, every declaration of
// the unit is a root.
func (l *loader) roots(names []string) []types.TypeID {
	if len(names) == 0 {
		return append([]types.TypeID(nil), l.order...)
	}
	out := make([]types.TypeID, 0, len(names))
	for _, name := range names {
		id, err := ParseType(l.in, l.resolveName, name)
		if err != nil {
			diag.ReportError(l.rep, diag.UnitUnknownRoot, l.spanOf(name), err.Error()).Emit()
			continue
		}
		out = append(out, id)
	}
	return out
}
