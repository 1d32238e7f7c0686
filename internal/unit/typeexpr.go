package unit

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"rtgen/internal/types"
)

// ExprErrorKind separates syntax errors from unresolved names.
type ExprErrorKind uint8

const (
	ExprSyntax ExprErrorKind = iota + 1
	ExprUnknownName
)

// ExprError reports a bad type expression; Offset is a byte offset into
// the expression.
type ExprError struct {
	Kind   ExprErrorKind
	Expr   string
	Offset int
	Msg    string
}

func (e *ExprError) Error() string {
	return fmt.Sprintf("type %q at %d: %s", e.Expr, e.Offset, e.Msg)
}

// NameResolver maps a nominal name to its type.
type NameResolver func(name string) (types.TypeID, bool)

var builtinNames = map[string]func(types.Builtins) types.TypeID{
	"void":   func(b types.Builtins) types.TypeID { return b.Void },
	"bool":   func(b types.Builtins) types.TypeID { return b.Bool },
	"char":   func(b types.Builtins) types.TypeID { return b.Char },
	"byte":   func(b types.Builtins) types.TypeID { return b.Byte },
	"ubyte":  func(b types.Builtins) types.TypeID { return b.Ubyte },
	"short":  func(b types.Builtins) types.TypeID { return b.Short },
	"ushort": func(b types.Builtins) types.TypeID { return b.Ushort },
	"int":    func(b types.Builtins) types.TypeID { return b.Int },
	"uint":   func(b types.Builtins) types.TypeID { return b.Uint },
	"long":   func(b types.Builtins) types.TypeID { return b.Long },
	"ulong":  func(b types.Builtins) types.TypeID { return b.Ulong },
	"float":  func(b types.Builtins) types.TypeID { return b.Float },
	"double": func(b types.Builtins) types.TypeID { return b.Double },
}

// exprParser is a recursive-descent parser over
//
//	type   = primary { "*" | "[" "]" | "[" number "]" }
//	primary = ident | ("function" | "delegate") "(" [ type { "," type } ] ")" type
type exprParser struct {
	in      *types.Interner
	resolve NameResolver
	src     string
	pos     int
}

// ParseType parses and interns a type expression.
func ParseType(in *types.Interner, resolve NameResolver, expr string) (types.TypeID, error) {
	p := &exprParser{in: in, resolve: resolve, src: expr}
	id, err := p.parseType()
	if err != nil {
		return types.NoTypeID, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return types.NoTypeID, p.errorf(ExprSyntax, "unexpected %q", p.src[p.pos:])
	}
	return id, nil
}

func (p *exprParser) parseType() (types.TypeID, error) {
	id, err := p.parsePrimary()
	if err != nil {
		return types.NoTypeID, err
	}
	return p.parseSuffix(id)
}

func (p *exprParser) parsePrimary() (types.TypeID, error) {
	p.skipSpace()
	start := p.pos
	name := p.ident()
	if name == "" {
		if p.pos >= len(p.src) {
			return types.NoTypeID, p.errorf(ExprSyntax, "expected a type")
		}
		return types.NoTypeID, p.errorf(ExprSyntax, "expected a type, found %q", p.src[p.pos:p.pos+1])
	}
	switch name {
	case "function", "delegate":
		fn, err := p.parseSignature()
		if err != nil {
			return types.NoTypeID, err
		}
		if name == "delegate" {
			return p.in.Intern(types.MakeDelegate(fn)), nil
		}
		return fn, nil
	}
	if mk, ok := builtinNames[name]; ok {
		return mk(p.in.Builtins()), nil
	}
	if p.resolve != nil {
		if id, ok := p.resolve(name); ok {
			return id, nil
		}
	}
	p.pos = start
	return types.NoTypeID, p.errorf(ExprUnknownName, "unknown type %q", name)
}

func (p *exprParser) parseSignature() (types.TypeID, error) {
	if !p.accept('(') {
		return types.NoTypeID, p.errorf(ExprSyntax, "expected '(' after function keyword")
	}
	var params []types.TypeID
	if !p.accept(')') {
		for {
			param, err := p.parseType()
			if err != nil {
				return types.NoTypeID, err
			}
			params = append(params, param)
			if p.accept(')') {
				break
			}
			if !p.accept(',') {
				return types.NoTypeID, p.errorf(ExprSyntax, "expected ',' or ')' in parameter list")
			}
		}
	}
	result, err := p.parseType()
	if err != nil {
		return types.NoTypeID, err
	}
	return p.in.RegisterFn(params, result), nil
}

func (p *exprParser) parseSuffix(id types.TypeID) (types.TypeID, error) {
	for {
		switch {
		case p.accept('*'):
			id = p.in.Intern(types.MakePointer(id))
		case p.accept('['):
			if p.accept(']') {
				id = p.in.Intern(types.MakeArray(id))
				continue
			}
			n, err := p.number()
			if err != nil {
				return types.NoTypeID, err
			}
			if !p.accept(']') {
				return types.NoTypeID, p.errorf(ExprSyntax, "expected ']' after array size")
			}
			id = p.in.Intern(types.MakeStaticArray(id, n))
		default:
			return id, nil
		}
	}
}

func (p *exprParser) number() (uint64, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '_') {
		p.pos++
	}
	lit := strings.ReplaceAll(p.src[start:p.pos], "_", "")
	if lit == "" {
		return 0, p.errorf(ExprSyntax, "expected ']' or array size")
	}
	n, err := strconv.ParseUint(lit, 10, 64)
	if err != nil {
		p.pos = start
		return 0, p.errorf(ExprSyntax, "array size %q is out of range", lit)
	}
	return n, nil
}

// ident scans a possibly dotted identifier.
func (p *exprParser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		ok := r == '_' || unicode.IsLetter(r) || (p.pos > start && (unicode.IsDigit(r) || r == '.'))
		if !ok {
			break
		}
		p.pos += size
	}
	return p.src[start:p.pos]
}

func (p *exprParser) accept(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) errorf(kind ExprErrorKind, format string, args ...any) *ExprError {
	return &ExprError{Kind: kind, Expr: p.src, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}
