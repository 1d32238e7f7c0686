package diag

import "testing"

func TestBagSortAndDedup(t *testing.T) {
	b := NewBag(10)
	b.Add(NewError(UnitUnknownType, Span{File: "b.toml", Line: 3}, "unknown type \"Foo\""))
	b.Add(New(SevWarning, UnitDuplicate, Span{File: "a.toml", Line: 7}, "dup"))
	b.Add(NewError(UnitParse, Span{File: "a.toml", Line: 7}, "bad"))
	b.Add(NewError(UnitUnknownType, Span{File: "b.toml", Line: 3}, "unknown type \"Foo\""))

	b.Dedup()
	if b.Len() != 3 {
		t.Fatalf("expected 3 diagnostics after dedup, got %d", b.Len())
	}
	b.Sort()
	items := b.Items()
	if items[0].Code != UnitParse || items[1].Code != UnitDuplicate || items[2].Primary.File != "b.toml" {
		t.Fatalf("unexpected order: %v", items)
	}
	if !b.HasErrors() || !b.HasWarnings() {
		t.Fatalf("expected errors and warnings")
	}
}

func TestBagLimit(t *testing.T) {
	b := NewBag(1)
	if !b.Add(NewError(CfgParse, Span{}, "one")) {
		t.Fatalf("first diagnostic should fit")
	}
	if b.Add(NewError(CfgParse, Span{}, "two")) {
		t.Fatalf("second diagnostic should be dropped")
	}
	other := NewBag(4)
	other.Add(NewError(CfgInvalid, Span{}, "three"))
	b.Merge(other)
	if b.Len() != 2 || b.Cap() != 2 {
		t.Fatalf("merge should grow the limit, len=%d cap=%d", b.Len(), b.Cap())
	}
}

func TestCodeIDs(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{CfgParse, "CFG1001"},
		{UnitUnknownType, "UNT2002"},
		{LayRecursiveUnsized, "LAY3001"},
		{RttiProtocol, "RTI4001"},
		{IOWriteFileError, "IO5002"},
		{UnknownCode, "E0000"},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.want {
			t.Errorf("%d.ID() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	b := NewBag(4)
	rb := ReportError(NewDedupReporter(BagReporter{Bag: b}), RttiShapeMismatch, Span{File: "u.toml"}, "mismatch").
		WithNote(Span{File: "u.toml", Line: 2}, "declared here")
	rb.Emit()
	rb.Emit()
	if b.Len() != 1 {
		t.Fatalf("expected exactly one diagnostic, got %d", b.Len())
	}
	if got := b.Items()[0].Notes; len(got) != 1 {
		t.Fatalf("expected the note to be kept, got %v", got)
	}
}

func TestSeverityFor(t *testing.T) {
	cases := map[Code]Severity{
		ObsTimings:        SevInfo,
		ObsCacheHit:       SevInfo,
		UnitInfo:          SevInfo,
		UnitUnknownRoot:   SevError,
		RttiShapeMismatch: SevError,
		IOWriteFileError:  SevError,
	}
	for code, want := range cases {
		if got := SeverityFor(code); got != want {
			t.Fatalf("SeverityFor(%s) = %s, want %s", code.ID(), got, want)
		}
	}
	if SevWarning.Label() != "warning" || Severity(9).Label() != "unknown" {
		t.Fatalf("unexpected labels %q %q", SevWarning.Label(), Severity(9).Label())
	}
}
