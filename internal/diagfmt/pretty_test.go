package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"rtgen/internal/diag"
)

func sampleBag() *diag.Bag {
	b := diag.NewBag(8)
	b.Add(diag.NewError(diag.UnitUnknownType, diag.Span{File: "units/app.toml", Line: 4, Col: 9}, "unknown type\n\"Sahpe\"").
		WithNote(diag.Span{File: "units/app.toml", Line: 2}, "did you mean \"Shape\"?"))
	b.Add(diag.New(diag.SevWarning, diag.ObsCacheHit, diag.Span{File: "units/app.toml"}, "reused cached IR"))
	return b
}

func TestShort(t *testing.T) {
	want := "error UNT2002 units/app.toml:4:9 unknown type \"Sahpe\"\n" +
		"note UNT2002 units/app.toml:2 did you mean \"Shape\"?\n" +
		"warning OBS6002 units/app.toml reused cached IR"
	if got := Short(sampleBag(), true); got != want {
		t.Fatalf("unexpected short output:\nwant:\n%s\n\ngot:\n%s", want, got)
	}
}

func TestPrettyWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	Pretty(&buf, sampleBag(), PrettyOpts{PathMode: PathModeBasename, ShowNotes: true})
	out := buf.String()
	if !strings.HasPrefix(out, "app.toml:4:9: ERROR UNT2002: unknown type \"Sahpe\"\n") {
		t.Fatalf("unexpected pretty output:\n%s", out)
	}
	if !strings.Contains(out, "  note: app.toml:2: did you mean") {
		t.Fatalf("note missing:\n%s", out)
	}
}

func TestPrettyClipsToWidth(t *testing.T) {
	var buf bytes.Buffer
	Pretty(&buf, sampleBag(), PrettyOpts{Width: 20})
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if len([]rune(line)) > 20 {
			t.Fatalf("line exceeds width: %q", line)
		}
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, sampleBag(), JSONOpts{Max: 1}); err != nil {
		t.Fatal(err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 || out.Diagnostics[0].Code != "UNT2002" || out.Diagnostics[0].Location.Line != 4 {
		t.Fatalf("unexpected JSON output: %+v", out)
	}
	if len(out.Diagnostics[0].Notes) != 0 {
		t.Fatalf("notes must be omitted unless requested")
	}
}
