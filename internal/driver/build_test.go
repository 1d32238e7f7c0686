package driver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rtgen/internal/buildpipeline"
	"rtgen/internal/config"
	"rtgen/internal/dcache"
	"rtgen/internal/diag"
	"rtgen/internal/trace"
)

const listUnit = `
module = "app.list"
roots  = ["Node", "Pair"]

[[struct]]
name = "Pair"
fields = [{ name = "a", type = "int" }, { name = "b", type = "Node" }]

[[class]]
name = "Node"
fields  = [{ name = "next", type = "Node" }, { name = "value", type = "long" }]
methods = ["visit"]

[[func]]
name = "visit"
params = ["Node"]
`

func writeUnit(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(out string) config.Config {
	cfg := config.Default()
	cfg.Emit.Out = out
	cfg.Emit.Jobs = 2
	return cfg
}

func TestBuildWritesIR(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "list.toml", listUnit)
	rec := &buildpipeline.Recorder{}
	res, err := Build(context.Background(), Request{
		Units:  []string{path},
		Config: testConfig(filepath.Join(dir, "out")),
		Sink:   rec,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", res.Bag().Items())
	}
	u := res.Units[0]
	if u.Output != filepath.Join(dir, "out", "list.ll") || u.Module != "app.list" {
		t.Fatalf("unexpected result %+v", u)
	}
	if u.Stats.ClassInfos != 1 || u.Stats.TypeInfos < 2 {
		t.Fatalf("unexpected stats %+v", u.Stats)
	}
	data, err := os.ReadFile(u.Output)
	if err != nil {
		t.Fatal(err)
	}
	ir := string(data)
	for _, want := range []string{"; target x86_64-linux-gnu", "4Node7__ClassZ", "4Pair6__initZ", "linkonce_odr constant"} {
		if !strings.Contains(ir, want) {
			t.Fatalf("IR lacks %q:\n%s", want, ir)
		}
	}
	events := rec.Events()
	if len(events) == 0 || events[0].Status != buildpipeline.StatusQueued {
		t.Fatalf("first event should queue the unit: %+v", events)
	}
	last := events[len(events)-1]
	if last.Status != buildpipeline.StatusDone || !last.Finished() || last.Descriptors == 0 {
		t.Fatalf("last event = %+v", last)
	}
}

func TestBuildReusesCache(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "list.toml", listUnit)
	cache, err := dcache.Open(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	req := Request{Units: []string{path}, Config: testConfig(filepath.Join(dir, "out")), Cache: cache}
	first, err := Build(context.Background(), req)
	if err != nil || first.HasErrors() {
		t.Fatalf("first build failed: %v", err)
	}
	if first.Units[0].Cached {
		t.Fatalf("first build cannot be cached")
	}
	if err := os.Remove(first.Units[0].Output); err != nil {
		t.Fatal(err)
	}

	rec := &buildpipeline.Recorder{}
	req.Sink = rec
	second, err := Build(context.Background(), req)
	if err != nil || second.HasErrors() {
		t.Fatalf("second build failed: %v", err)
	}
	u := second.Units[0]
	if !u.Cached || len(u.Symbols) != len(first.Units[0].Symbols) {
		t.Fatalf("expected a cache hit with the same symbols, got %+v", u)
	}
	if _, err := os.Stat(u.Output); err != nil {
		t.Fatalf("cached IR not rewritten: %v", err)
	}
	events := rec.Events()
	if events[len(events)-1].Status != buildpipeline.StatusCached {
		t.Fatalf("expected a cached event, got %+v", events[len(events)-1])
	}

	off := false
	req.Config.Emit.Cache = &off
	third, _ := Build(context.Background(), req)
	if third.Units[0].Cached {
		t.Fatalf("cache = false must bypass the cache")
	}
}

func TestBuildCacheKeyIncludesUnitPath(t *testing.T) {
	dir := t.TempDir()
	cache, err := dcache.Open(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	first := writeUnit(t, dir, "list.toml", listUnit)
	if err := os.Mkdir(filepath.Join(dir, "copy"), 0o755); err != nil {
		t.Fatal(err)
	}
	second := writeUnit(t, filepath.Join(dir, "copy"), "other.toml", listUnit)

	req := Request{Units: []string{first}, Config: testConfig(filepath.Join(dir, "out")), Cache: cache}
	if res, err := Build(context.Background(), req); err != nil || res.HasErrors() {
		t.Fatalf("first build failed: %v", err)
	}
	req.Units = []string{second}
	res, err := Build(context.Background(), req)
	if err != nil || res.HasErrors() {
		t.Fatalf("second build failed: %v", err)
	}
	u := res.Units[0]
	if u.Cached {
		t.Fatalf("same source at another path must not reuse the cache entry")
	}
	data, err := os.ReadFile(u.Output)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "other.toml") || strings.Contains(string(data), "list.toml") {
		t.Fatalf("source_filename should name the unit itself:\n%s", data)
	}
}

func TestBuildRejectsSharedOutput(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"a", "b"} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	one := writeUnit(t, filepath.Join(dir, "a"), "list.toml", listUnit)
	two := writeUnit(t, filepath.Join(dir, "b"), "list.toml", listUnit)
	other := writeUnit(t, dir, "pair.toml", listUnit)
	rec := &buildpipeline.Recorder{}
	res, err := Build(context.Background(), Request{
		Units:  []string{one, two, other},
		Config: testConfig(filepath.Join(dir, "out")),
		Sink:   rec,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range res.Units[:2] {
		if u.Output != "" || u.Bag.Len() != 1 || u.Bag.Items()[0].Code != diag.CfgOutputClash {
			t.Fatalf("clashing unit %s should fail with CfgOutputClash, got %+v", u.Path, u.Bag.Items())
		}
	}
	if !strings.Contains(res.Units[0].Bag.Items()[0].Message, two) {
		t.Fatalf("message should name the other unit: %s", res.Units[0].Bag.Items()[0].Message)
	}
	if res.Units[2].Output == "" || res.Units[2].Bag.HasErrors() {
		t.Fatalf("unrelated unit should still build: %v", res.Units[2].Bag.Items())
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "list.ll")); !os.IsNotExist(err) {
		t.Fatalf("no unit may write the shared output, stat err = %v", err)
	}
	errored := 0
	for _, ev := range rec.Events() {
		if ev.Status == buildpipeline.StatusError {
			errored++
		}
	}
	if errored != 2 {
		t.Fatalf("expected 2 error events, got %d", errored)
	}
}

func TestBuildKeepsGoingAfterFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeUnit(t, dir, "list.toml", listUnit)
	bad := writeUnit(t, dir, "bad.toml", "module = \"app.bad\"\nroots = [\"Missing\"]\n")
	res, err := Build(context.Background(), Request{
		Units:   []string{bad, good},
		Config:  testConfig(filepath.Join(dir, "out")),
		Timings: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasErrors() {
		t.Fatalf("bad unit should fail")
	}
	if res.Units[0].Output != "" || !res.Units[0].Bag.HasErrors() {
		t.Fatalf("bad unit result %+v", res.Units[0])
	}
	if res.Units[1].Output == "" || res.Units[1].Bag.HasErrors() {
		t.Fatalf("good unit should still build: %v", res.Units[1].Bag.Items())
	}
	var codes []diag.Code
	for _, d := range res.Bag().Items() {
		codes = append(codes, d.Code)
	}
	if !hasCode(codes, diag.UnitUnknownRoot) || !hasCode(codes, diag.ObsTimings) {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Target.PtrSize = 2
	_, err := Build(context.Background(), Request{Config: cfg})
	if err == nil {
		t.Fatalf("expected a configuration error")
	}
	if d := ErrorDiagnostic("rtgen.toml", err); d.Code != diag.CfgInvalid {
		t.Fatalf("code = %s", d.Code.ID())
	}
}

func TestBuildCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "list.toml", listUnit)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, Request{Units: []string{path}, Config: testConfig(filepath.Join(dir, "out"))})
	if err == nil {
		t.Fatalf("cancelled build should report the context error")
	}
}

func TestBuildTraceSpans(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "list.toml", listUnit)
	ring := trace.NewRingTracer(256, trace.LevelDebug)
	ctx := trace.WithTracer(context.Background(), ring)
	if _, err := Build(ctx, Request{Units: []string{path}, Config: testConfig(filepath.Join(dir, "out"))}); err != nil {
		t.Fatal(err)
	}
	seen := map[trace.Scope]bool{}
	for _, ev := range ring.Snapshot() {
		seen[ev.Scope] = true
	}
	if !seen[trace.ScopeDriver] || !seen[trace.ScopeUnit] || !seen[trace.ScopeDescriptor] {
		t.Fatalf("missing scopes in %v", seen)
	}
}

func TestGenerateInMemory(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "list.toml", listUnit)
	cfg := testConfig(filepath.Join(dir, "out"))
	cfg.Target = config.TargetConfig{Triple: "i386-linux-gnu", PtrSize: 4}
	gen, bag := Generate(context.Background(), path, cfg)
	if gen == nil {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if !strings.Contains(gen.IR, "; target i386-linux-gnu, pointer size 4") {
		t.Fatalf("IR header:\n%s", gen.IR)
	}
	if countDescriptors(gen.Symbols) != gen.Stats.TypeInfos+gen.Stats.ClassInfos {
		t.Fatalf("descriptor symbols %d disagree with stats %+v", countDescriptors(gen.Symbols), gen.Stats)
	}
	if _, err := os.Stat(filepath.Join(dir, "out")); !os.IsNotExist(err) {
		t.Fatalf("Generate must not write output, stat err = %v", err)
	}
}

func TestOutputPath(t *testing.T) {
	if got := OutputPath("build", "units/app.shapes.toml"); got != filepath.Join("build", "app.shapes.ll") {
		t.Fatalf("OutputPath = %s", got)
	}
}

func hasCode(codes []diag.Code, want diag.Code) bool {
	for _, c := range codes {
		if c == want {
			return true
		}
	}
	return false
}
