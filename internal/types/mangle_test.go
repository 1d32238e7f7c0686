package types

import "testing"

func TestMangle(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	shape, _ := in.RegisterClass("app.shapes", "Shape")
	point, _ := in.RegisterStruct("app", "Point")
	color, _ := in.RegisterEnum("app", "Color", b.Ubyte)
	fn := in.RegisterFn([]TypeID{b.Int, b.Double}, b.Bool)

	tests := []struct {
		id   TypeID
		want string
	}{
		{b.Int, "i"},
		{b.Uint, "k"},
		{b.Ulong, "m"},
		{in.Intern(MakePointer(b.Char)), "Pa"},
		{in.Intern(MakeArray(b.Char)), "Aa"},
		{in.Intern(MakeStaticArray(b.Int, 4)), "G4i"},
		{shape, "C3app6shapes5Shape"},
		{point, "S3app5Point"},
		{color, "E3app5Color"},
		{fn, "FidZb"},
		{in.Intern(MakeDelegate(fn)), "DFidZb"},
	}
	for _, tt := range tests {
		if got := in.Mangle(tt.id); got != tt.want {
			t.Errorf("Mangle(%s) = %q, want %q", in.String(tt.id), got, tt.want)
		}
	}
}

func TestSymbolNames(t *testing.T) {
	in := NewInterner()
	shape, _ := in.RegisterClass("app", "Shape")
	if got := in.TypeInfoSymbol(in.Builtins().Int); got != "_D10TypeInfo_i6__initZ" {
		t.Fatalf("TypeInfoSymbol(int) = %q", got)
	}
	if got := in.ClassInfoSymbol(shape); got != "_D3app5Shape7__ClassZ" {
		t.Fatalf("ClassInfoSymbol = %q", got)
	}
	if got := in.VtblSymbol(shape); got != "_D3app5Shape6__vtblZ" {
		t.Fatalf("VtblSymbol = %q", got)
	}
	fn := in.RegisterFunc("app", "area", in.RegisterFn([]TypeID{shape}, in.Builtins().Double))
	if got := in.MangleFunc(fn); got != "_D3app4areaFC3app5ShapeZd" {
		t.Fatalf("MangleFunc = %q", got)
	}
}

func TestNamesAreNFCNormalized(t *testing.T) {
	in := NewInterner()
	// "é" precomposed vs "e" + combining acute accent
	a, _ := in.RegisterStruct("app", "Caf\u00e9")
	b, _ := in.RegisterStruct("app", "Cafe\u0301")
	if a != b {
		t.Fatalf("NFC-equivalent names must resolve to the same type")
	}
}

func TestStringAndArrayRole(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	iface, _ := in.RegisterClass(RuntimeModule, "Interface")
	if got := in.ArrayRole(b.Uint); got != "uint[]" {
		t.Fatalf("ArrayRole(uint) = %q", got)
	}
	if got := in.ArrayRole(iface); got != "object.Interface[]" {
		t.Fatalf("ArrayRole(Interface) = %q", got)
	}
	if got := in.String(in.Intern(MakePointer(b.Void))); got != "void*" {
		t.Fatalf("String(void*) = %q", got)
	}
}
