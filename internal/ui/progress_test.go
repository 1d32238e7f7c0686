package ui

import (
	"math"
	"strings"
	"testing"

	"rtgen/internal/buildpipeline"
)

func TestSummaryTracksLastStatus(t *testing.T) {
	units := []string{"a.toml", "b.toml", "c.toml"}
	events := []buildpipeline.Event{
		{File: "a.toml", Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusQueued},
		{File: "a.toml", Stage: buildpipeline.StageGenerate, Status: buildpipeline.StatusWorking},
		{File: "a.toml", Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusDone, Descriptors: 7},
		{File: "b.toml", Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusCached, Descriptors: 3},
		{File: "c.toml", Stage: buildpipeline.StageGenerate, Status: buildpipeline.StatusWorking},
		{File: "unknown.toml", Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusError},
	}
	out := Summary(units, events, 80)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 rows, got %q", out)
	}
	checks := []struct{ status, count string }{{"done", "7"}, {"cached", "3"}, {"generating", ""}}
	for i, c := range checks {
		if !strings.Contains(lines[i], c.status) || (c.count != "" && !strings.Contains(lines[i], " "+c.count+" ")) {
			t.Fatalf("row %d = %q, want status %s count %s", i, lines[i], c.status, c.count)
		}
	}
}

func TestOverallProgress(t *testing.T) {
	items := []unitItem{{finished: true}, {stage: buildpipeline.StageGenerate}}
	if got := overall(items); math.Abs(got-0.7) > 1e-9 {
		t.Fatalf("overall = %v", got)
	}
	if overall(nil) != 0 {
		t.Fatalf("empty progress should be zero")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("units/very/long/path.toml", 10); got != "units/v..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}
