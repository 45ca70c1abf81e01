package pipeline

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/liunuozhi/pdf2zh-app/internal/types"
)

func TestResolvePages(t *testing.T) {
	cases := []struct {
		name     string
		selected []int
		total    int
		want     []int
	}{
		{"empty means all", nil, 3, []int{1, 2, 3}},
		{"out of range dropped", []int{0, 3, 99}, 5, []int{3}},
		{"duplicates collapse", []int{2, 2, 1}, 5, []int{1, 2}},
		{"all invalid", []int{-1, 0, 6}, 5, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := resolvePages(tc.selected, tc.total)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("resolvePages(%v, %d) = %v, want %v", tc.selected, tc.total, got, tc.want)
			}
		})
	}
}

func TestProgressMonotonic(t *testing.T) {
	var events []types.ProgressEvent
	p := &progress{emit: func(ev types.ProgressEvent) { events = append(events, ev) }}

	p.report("load_model", 0, 0, 0)
	p.report("load_pdf", 0, 2, 5)
	p.report("rasterize", 1, 2, 10)
	p.report("detect_layout", 1, 2, 18.5)
	p.report("stale", 1, 2, 12) // must clamp, never go backwards
	p.report("write_pdf", 2, 2, 95)
	p.report("complete", 2, 2, 100)

	last := -1.0
	for _, ev := range events {
		if ev.Percent < last {
			t.Errorf("percent regressed: %v after %v (%s)", ev.Percent, last, ev.Stage)
		}
		last = ev.Percent
	}
	if last != 100 {
		t.Errorf("final percent = %v, want 100", last)
	}
}

// TestPageSchedule verifies the per-page percentage layout for a 2-page run.
func TestPageSchedule(t *testing.T) {
	n := 2
	for i := 0; i < n; i++ {
		base := 10 + float64(i)/float64(n)*85
		step := 85 / float64(n)
		ticks := []float64{base, base + 0.2*step, base + 0.4*step, base + 0.6*step}
		for j := 1; j < len(ticks); j++ {
			if ticks[j] <= ticks[j-1] {
				t.Errorf("page %d ticks not increasing: %v", i, ticks)
			}
		}
		if ticks[3] >= 95 {
			t.Errorf("page %d last tick %v crosses the write stage", i, ticks[3])
		}
	}
}

func TestAbortFlag(t *testing.T) {
	var f AbortFlag
	if f.Aborted() {
		t.Error("fresh flag reports aborted")
	}
	f.Abort()
	if !f.Aborted() {
		t.Error("flag did not stick")
	}
}

func TestRun_AssetValidation(t *testing.T) {
	dir := t.TempDir()

	_, err := Run(context.Background(), Request{
		InputPath:  filepath.Join(dir, "in.pdf"),
		OutputPath: filepath.Join(dir, "out.pdf"),
	})
	if err == nil {
		t.Fatal("expected missing-asset failure")
	}
	pe, ok := err.(*types.PipelineError)
	if !ok || pe.Kind != types.ErrAssetMissing {
		t.Errorf("got %T %v, want AssetMissing", err, err)
	}
}
