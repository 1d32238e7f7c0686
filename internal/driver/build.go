package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/llir/llvm/ir/enum"
	"golang.org/x/sync/errgroup"

	"rtgen/internal/backend/llvm"
	"rtgen/internal/buildpipeline"
	"rtgen/internal/config"
	"rtgen/internal/dcache"
	"rtgen/internal/diag"
	"rtgen/internal/layout"
	"rtgen/internal/observ"
	"rtgen/internal/trace"
	"rtgen/internal/typeinfo"
	"rtgen/internal/unit"
)

// Request describes one build.
type Request struct {
	Units  []string
	Config config.Config
	// Cache is consulted and filled when non-nil and the configuration
	// enables caching.
	Cache *dcache.Cache
	Sink  buildpipeline.ProgressSink
	// Timings attaches an ObsTimings diagnostic to every unit.
	Timings bool
}

// UnitResult is the outcome of one unit.
type UnitResult struct {
	Path    string
	Module  string
	Output  string // written .ll path, empty on failure
	Bag     *diag.Bag
	Symbols []llvm.Symbol
	Stats   typeinfo.Stats
	Cached  bool
	Elapsed time.Duration
}

// Result collects unit outcomes in request order.
type Result struct {
	Units []UnitResult
}

// HasErrors reports whether any unit failed.
func (r *Result) HasErrors() bool {
	for i := range r.Units {
		if r.Units[i].Bag != nil && r.Units[i].Bag.HasErrors() {
			return true
		}
	}
	return false
}

// Bag merges the diagnostics of every unit.
func (r *Result) Bag() *diag.Bag {
	total := 0
	for i := range r.Units {
		if r.Units[i].Bag != nil {
			total += r.Units[i].Bag.Len()
		}
	}
	out := diag.NewBag(total + 1)
	for i := range r.Units {
		out.Merge(r.Units[i].Bag)
	}
	out.Sort()
	return out
}

// Build generates descriptors for every unit of req, up to JobCount units
// at a time. Unit failures land in the unit's bag; the returned error is
// reserved for cancellation and setup failures.
func Build(ctx context.Context, req Request) (*Result, error) {
	if err := req.Config.Validate(); err != nil {
		return nil, err
	}
	linkage, err := llvm.ParseLinkage(req.Config.Emit.Linkage)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(req.Config.Emit.Out, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "build", trace.CurrentSpan(ctx).SpanID).
		WithExtra("units", fmt.Sprint(len(req.Units)))
	ctx = trace.WithSpan(ctx, span)

	sink := req.Sink
	if sink == nil {
		sink = buildpipeline.FuncSink(nil)
	}
	for _, path := range req.Units {
		sink.OnEvent(buildpipeline.Event{File: path, Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusQueued})
	}

	res := &Result{Units: make([]UnitResult, len(req.Units))}
	b := &builder{
		cfg:     req.Config,
		target:  req.Config.LayoutTarget(),
		linkage: linkage,
		sink:    sink,
		timings: req.Timings,
	}
	if req.Cache != nil && req.Config.CacheEnabled() {
		b.cache = req.Cache
	}

	clashes := outputClashes(req.Config.Emit.Out, req.Units)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(req.Config.JobCount())
	for i, path := range req.Units {
		if others, ok := clashes[i]; ok {
			res.Units[i] = b.clash(path, others)
			continue
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res.Units[i] = b.unit(gctx, path)
			return nil
		})
	}
	err = g.Wait()
	failed := 0
	for i := range res.Units {
		if res.Units[i].Bag != nil && res.Units[i].Bag.HasErrors() {
			failed++
		}
	}
	span.End(fmt.Sprintf("failed=%d", failed))
	if err != nil {
		return res, err
	}
	return res, nil
}

type builder struct {
	cfg     config.Config
	target  layout.Target
	linkage enum.Linkage
	cache   *dcache.Cache
	sink    buildpipeline.ProgressSink
	timings bool
}

// settings is everything besides the unit source that shapes emitted IR.
// Path ends up in source_filename.
type settings struct {
	Path    string `msgpack:"path"`
	Triple  string `msgpack:"triple"`
	PtrSize int    `msgpack:"ptr_size"`
	Linkage string `msgpack:"linkage"`
}

// outputClashes maps the index of every unit whose output file is shared
// with another unit to the paths of those other units.
func outputClashes(dir string, units []string) map[int][]string {
	byOutput := make(map[string][]int, len(units))
	for i, path := range units {
		dest := OutputPath(dir, path)
		byOutput[dest] = append(byOutput[dest], i)
	}
	clashes := make(map[int][]string)
	for _, idx := range byOutput {
		if len(idx) < 2 {
			continue
		}
		for _, i := range idx {
			for _, j := range idx {
				if j != i {
					clashes[i] = append(clashes[i], units[j])
				}
			}
		}
	}
	return clashes
}

func (b *builder) clash(path string, others []string) UnitResult {
	dest := OutputPath(b.cfg.Emit.Out, path)
	bag := diag.NewBag(1)
	diag.ReportError(diag.BagReporter{Bag: bag}, diag.CfgOutputClash, diag.Span{File: path},
		fmt.Sprintf("output %s is also produced by %s; rename one of the units", dest, strings.Join(others, ", "))).Emit()
	err := fmt.Errorf("output %s is shared", dest)
	b.emit(path, buildpipeline.StageLoad, buildpipeline.StatusError, err, 0, 0)
	return UnitResult{Path: path, Bag: bag}
}

func (b *builder) emit(path string, stage buildpipeline.Stage, status buildpipeline.Status, err error, elapsed time.Duration, n int) {
	b.sink.OnEvent(buildpipeline.Event{
		File:        path,
		Stage:       stage,
		Status:      status,
		Err:         err,
		Elapsed:     elapsed,
		Descriptors: n,
	})
}

func (b *builder) unit(ctx context.Context, path string) UnitResult {
	start := time.Now()
	out := UnitResult{Path: path}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeUnit, "unit", trace.CurrentSpan(ctx).SpanID).WithExtra("path", path)
	timer := observ.NewTimer()

	fail := func(stage buildpipeline.Stage, err error) UnitResult {
		out.Elapsed = time.Since(start)
		b.emit(path, stage, buildpipeline.StatusError, err, out.Elapsed, 0)
		b.attachTimings(&out, timer)
		span.End("error")
		return out
	}

	b.emit(path, buildpipeline.StageLoad, buildpipeline.StatusWorking, nil, 0, 0)
	var u *unit.Unit
	loadIdx := timer.Begin("load")
	u, out.Bag = unit.Load(path, b.target)
	if u == nil {
		timer.End(loadIdx, "failed")
		return fail(buildpipeline.StageLoad, errors.New("unit did not load"))
	}
	timer.End(loadIdx, "")
	out.Module = u.Module

	key, keyErr := dcache.KeyFor(u.Source, settings{
		Path:    u.Path,
		Triple:  b.cfg.Target.Triple,
		PtrSize: b.cfg.Target.PtrSize,
		Linkage: b.cfg.Emit.Linkage,
	})
	if b.cache != nil && keyErr == nil {
		if p, hit, err := b.cache.Get(key); err == nil && hit {
			out.Symbols = p.Symbols
			out.Cached = true
			if err := b.write(u, p.IR, &out, timer); err != nil {
				return fail(buildpipeline.StageWrite, err)
			}
			diag.ReportInfo(diag.BagReporter{Bag: out.Bag}, diag.ObsCacheHit, diag.Span{File: path}, "descriptors reused from the build cache").Emit()
			out.Elapsed = time.Since(start)
			b.emit(path, buildpipeline.StageWrite, buildpipeline.StatusCached, nil, out.Elapsed, countDescriptors(p.Symbols))
			b.attachTimings(&out, timer)
			span.End("cached")
			return out
		}
	}

	b.emit(path, buildpipeline.StageGenerate, buildpipeline.StatusWorking, nil, time.Since(start), 0)
	gen, stage, err := generate(u, b.target, b.linkage, tracer, span.ID(), timer, func(stage buildpipeline.Stage) {
		b.emit(path, stage, buildpipeline.StatusWorking, nil, time.Since(start), 0)
	})
	if err != nil {
		report(out.Bag, path, err)
		return fail(stage, err)
	}
	out.Stats = gen.Stats
	out.Symbols = gen.Symbols
	ir := gen.IR
	if err := b.write(u, ir, &out, timer); err != nil {
		return fail(buildpipeline.StageWrite, err)
	}
	if b.cache != nil && keyErr == nil {
		payload := &dcache.Payload{Unit: path, Module: u.Module, IR: ir, Symbols: out.Symbols, Created: time.Now()}
		if err := b.cache.Put(key, payload); err != nil {
			diag.ReportWarning(diag.BagReporter{Bag: out.Bag}, diag.IOWriteFileError, diag.Span{File: path}, "build cache: "+err.Error()).Emit()
		}
	}
	out.Elapsed = time.Since(start)
	b.emit(path, buildpipeline.StageWrite, buildpipeline.StatusDone, nil, out.Elapsed, countDescriptors(out.Symbols))
	b.attachTimings(&out, timer)
	span.WithExtra("typeinfos", fmt.Sprint(out.Stats.TypeInfos)).End("ok")
	return out
}

// Generated is the in-memory output of one unit.
type Generated struct {
	Unit    *unit.Unit
	IR      string
	Symbols []llvm.Symbol
	Stats   typeinfo.Stats
}

// Generate loads the unit at path and builds its descriptors without
// writing anything or touching the cache. The result is nil when the bag
// holds errors.
func Generate(ctx context.Context, path string, cfg config.Config) (*Generated, *diag.Bag) {
	linkage, err := llvm.ParseLinkage(cfg.Emit.Linkage)
	if err != nil {
		bag := diag.NewBag(1)
		bag.Add(ErrorDiagnostic(path, err))
		return nil, bag
	}
	target := cfg.LayoutTarget()
	u, bag := unit.Load(path, target)
	if u == nil {
		return nil, bag
	}
	tracer := trace.FromContext(ctx)
	gen, _, err := generate(u, target, linkage, tracer, trace.CurrentSpan(ctx).SpanID, observ.NewTimer(), nil)
	if err != nil {
		report(bag, path, err)
		return nil, bag
	}
	return gen, bag
}

// generate runs the generator and renders IR. On failure it returns the
// stage that failed.
func generate(u *unit.Unit, target layout.Target, linkage enum.Linkage, tracer trace.Tracer, parent uint64, timer *observ.Timer, onStage func(buildpipeline.Stage)) (*Generated, buildpipeline.Stage, error) {
	mod := llvm.NewModule(u.Types, target, llvm.WithLinkage(linkage), llvm.WithSourceFilename(u.Path))
	gen := typeinfo.New(mod, layout.New(target, u.Types), u.Runtime, typeinfo.WithTracer(tracer, parent))
	if err := timer.Measure("generate", func() error { return gen.Generate(u.Roots) }); err != nil {
		return nil, buildpipeline.StageGenerate, err
	}
	if onStage != nil {
		onStage(buildpipeline.StageEmit)
	}
	out := &Generated{Unit: u, Stats: gen.Stats()}
	if err := timer.Measure("emit", func() error {
		var err error
		out.IR, err = mod.Emit()
		return err
	}); err != nil {
		return nil, buildpipeline.StageEmit, err
	}
	out.Symbols = mod.Symbols()
	return out, buildpipeline.StageWrite, nil
}

func (b *builder) write(u *unit.Unit, ir string, out *UnitResult, timer *observ.Timer) error {
	b.emit(u.Path, buildpipeline.StageWrite, buildpipeline.StatusWorking, nil, 0, 0)
	dest := OutputPath(b.cfg.Emit.Out, u.Path)
	err := timer.Measure("write", func() error {
		return os.WriteFile(dest, []byte(ir), 0o600)
	})
	if err != nil {
		diag.ReportError(diag.BagReporter{Bag: out.Bag}, diag.IOWriteFileError, diag.Span{File: dest}, err.Error()).Emit()
		return err
	}
	out.Output = dest
	return nil
}

func (b *builder) attachTimings(out *UnitResult, timer *observ.Timer) {
	if !b.timings {
		return
	}
	rep := timer.Report()
	appendTimingDiagnostic(out.Bag, timingPayload{Kind: "unit", Path: out.Path, TotalMS: rep.TotalMS, Phases: rep.Phases})
}

// OutputPath maps a unit file to its .ll file under dir.
func OutputPath(dir, unitPath string) string {
	base := filepath.Base(unitPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+".ll")
}

func countDescriptors(syms []llvm.Symbol) int {
	n := 0
	for _, s := range syms {
		if s.Kind == llvm.SymbolDescriptor {
			n++
		}
	}
	return n
}
