package screenquery

import (
	"context"
	"strings"
	"testing"
)

type fakeEvaluator struct {
	result jsResult
	err    error
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, expression string, out interface{}) error {
	if f.err != nil {
		return f.err
	}
	if dst, ok := out.(*jsResult); ok {
		*dst = f.result
	}
	return nil
}

func TestGetBracketsTrueWidth(t *testing.T) {
	ev := &fakeEvaluator{result: jsResult{
		WidthLow: 1275, WidthHigh: 1285,
		HeightLow: 795, HeightHigh: 805,
		Pointer: "fine",
	}}
	r, err := Get(context.Background(), ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.WidthLow > 1280 || r.WidthHigh < 1280 {
		t.Errorf("expected bracket to contain 1280, got [%d, %d]", r.WidthLow, r.WidthHigh)
	}
	if r.WidthHigh-r.WidthLow > 10 {
		t.Errorf("bracket wider than 10px: %d", r.WidthHigh-r.WidthLow)
	}
	if r.Pointer != "fine" {
		t.Errorf("expected pointer fine, got %s", r.Pointer)
	}
}

func TestGetUnobservableFeatureFallsBackToSentinel(t *testing.T) {
	ev := &fakeEvaluator{result: jsResult{}}
	r, err := Get(context.Background(), ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Orientation != NotObservable {
		t.Errorf("expected not-observable sentinel, got %s", r.Orientation)
	}
}

func TestProberScriptProbesDppxTableDescending(t *testing.T) {
	if !strings.Contains(proberScript, "[4, 3.5, 3, 2.75, 2.5, 2.25, 2, 1.75, 1.5, 1.25, 1, 0.75, 0.5]") {
		t.Errorf("expected descending pixel-ratio table in prober script")
	}
}
