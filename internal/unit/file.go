package unit

// File is the TOML form of a translation unit.
type File struct {
	Module     string          `toml:"module"`
	Roots      []string        `toml:"roots"`
	Structs    []StructDecl    `toml:"struct"`
	Classes    []ClassDecl     `toml:"class"`
	Interfaces []InterfaceDecl `toml:"interface"`
	Enums      []EnumDecl      `toml:"enum"`
	Funcs      []FuncDecl      `toml:"func"`
}

type FieldDecl struct {
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	Default int64  `toml:"default"`
}

type StructDecl struct {
	Name   string            `toml:"name"`
	Fields []FieldDecl       `toml:"fields"`
	Hooks  map[string]string `toml:"hooks"`
	Align  int               `toml:"align"`
}

type ClassDecl struct {
	Name       string      `toml:"name"`
	Base       *string     `toml:"base"` // nil means Object
	Interfaces []string    `toml:"interfaces"`
	Fields     []FieldDecl `toml:"fields"`
	Methods    []string    `toml:"methods"`
	Dtor       string      `toml:"dtor"`
	Invariant  string      `toml:"invariant"`
	Ctor       string      `toml:"ctor"`
	Abstract   bool        `toml:"abstract"`
}

type InterfaceDecl struct {
	Name    string   `toml:"name"`
	Methods []string `toml:"methods"`
}

type EnumDecl struct {
	Name    string `toml:"name"`
	Base    string `toml:"base"`
	Default int64  `toml:"default"`
}

type FuncDecl struct {
	Name   string   `toml:"name"`
	Params []string `toml:"params"`
	Result string   `toml:"result"`
}
