package webrtcfp

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeEvaluator struct {
	result jsResult
	err    error
	delay  time.Duration
}

func (f *fakeEvaluator) EvaluateAsync(ctx context.Context, expression string, out interface{}) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return f.err
	}
	if dst, ok := out.(*jsResult); ok {
		*dst = f.result
	}
	return nil
}

func TestGetUnsupportedHostResolvesFast(t *testing.T) {
	ev := &fakeEvaluator{result: jsResult{Supported: false}}
	start := time.Now()
	r, err := Get(context.Background(), ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 10*time.Millisecond {
		t.Errorf("expected near-instant resolution for unsupported host")
	}
	if r.Supported {
		t.Errorf("expected Supported=false")
	}
	if len(r.LocalIPv4) != 0 || len(r.LocalIPv6) != 0 {
		t.Errorf("expected empty IP slices, got %+v", r)
	}
}

func TestGetFiltersPublicAndLinkLocalAddresses(t *testing.T) {
	ev := &fakeEvaluator{result: jsResult{
		Supported: true,
		LocalIPv4: []string{"192.168.1.42", "8.8.8.8", "10.0.0.5", "192.168.1.42"},
		LocalIPv6: []string{"fe80::1", "2001:db8::1"},
	}}
	r, err := Get(context.Background(), ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.LocalIPv4) != 2 {
		t.Fatalf("expected 2 deduplicated private IPv4s, got %v", r.LocalIPv4)
	}
	for _, ip := range r.LocalIPv4 {
		if ip == "8.8.8.8" {
			t.Errorf("public IP leaked into result: %v", r.LocalIPv4)
		}
	}
	if len(r.LocalIPv6) != 1 || r.LocalIPv6[0] != "2001:db8::1" {
		t.Errorf("expected only non-link-local IPv6, got %v", r.LocalIPv6)
	}
}

func TestGetTransportFailureNeverThrows(t *testing.T) {
	ev := &fakeEvaluator{err: errors.New("tab crashed")}
	r, err := Get(context.Background(), ev)
	if err == nil {
		t.Fatalf("expected transport error to propagate to caller")
	}
	if !r.Supported {
		t.Errorf("expected fallback Supported=true per spec failure contract")
	}
	if r.LocalIPv4 == nil || r.LocalIPv6 == nil {
		t.Errorf("expected non-nil empty slices on failure, got %+v", r)
	}
}
