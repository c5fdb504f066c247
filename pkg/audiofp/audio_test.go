package audiofp

import (
	"context"
	"testing"

	"fpcore/internal/environment"
)

type fakeEvaluator struct {
	value   float64
	err     error
	calls   int
}

func (f *fakeEvaluator) EvaluateAsync(ctx context.Context, expression string, out interface{}) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if dst, ok := out.(*struct {
		Value float64 `json:"value"`
	}); ok {
		dst.Value = f.value
	}
	return nil
}

func TestGetSuspendingHostShortCircuits(t *testing.T) {
	env := environment.Class{IsMobile: true, IsWebKit: true, BrowserMajorVersion: 11}
	res := Get(&fakeEvaluator{}, env)
	if res.Special != KnownForSuspending {
		t.Fatalf("expected KnownForSuspending, got %+v", res)
	}
	if res.Producer != nil {
		t.Errorf("expected nil producer on suspending host")
	}
}

func TestProducerMemoizesAcrossCalls(t *testing.T) {
	ev := &fakeEvaluator{value: 3.14}
	env := environment.Class{}
	res := Get(ev, env)
	if res.Producer == nil {
		t.Fatalf("expected a producer for non-suspending host")
	}

	v1, err := res.Producer.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v2, err := res.Producer.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v1 != v2 {
		t.Errorf("expected memoized identical values, got %v and %v", v1, v2)
	}
	if ev.calls != 1 {
		t.Errorf("expected exactly one underlying evaluation, got %d", ev.calls)
	}
}

func TestProducerValueNonNegative(t *testing.T) {
	ev := &fakeEvaluator{value: 0}
	res := Get(ev, environment.Class{})
	v, err := res.Producer.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v < 0 {
		t.Errorf("expected non-negative value, got %v", v)
	}
}
