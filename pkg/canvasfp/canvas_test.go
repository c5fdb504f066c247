package canvasfp

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"fpcore/internal/environment"
)

var dataURLRe = regexp.MustCompile(`^data:image/png;base64,[0-9A-Za-z+/]+={0,2}$`)

type fakeEvaluator struct {
	result jsResult
	err    error
}

func (f *fakeEvaluator) EvaluateAsync(ctx context.Context, expression string, out interface{}) error {
	if f.err != nil {
		return f.err
	}
	if dst, ok := out.(*jsResult); ok {
		*dst = f.result
	}
	return nil
}

func samplePNGDataURL(body string) string {
	return "data:image/png;base64," + strings.Repeat(body, 300)
}

func TestGetNoiselessHost(t *testing.T) {
	ev := &fakeEvaluator{result: jsResult{
		Winding:  true,
		Geometry: samplePNGDataURL("AAAA"),
		Text:     samplePNGDataURL("BBBB"),
	}}
	fp, err := Get(context.Background(), ev, environment.Class{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fp.Winding {
		t.Errorf("expected winding true")
	}
	if !dataURLRe.MatchString(fp.Geometry) || !dataURLRe.MatchString(fp.Text) {
		t.Errorf("expected valid PNG data-URLs, got %+v", fp)
	}
}

func TestGetUnstableHost(t *testing.T) {
	ev := &fakeEvaluator{result: jsResult{Winding: true, Geometry: Unstable, Text: Unstable}}
	fp, err := Get(context.Background(), ev, environment.Class{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fp.Geometry != Unstable || fp.Text != Unstable {
		t.Errorf("expected both fields Unstable, got %+v", fp)
	}
}

func TestGetTransportFailureDowngrades(t *testing.T) {
	ev := &fakeEvaluator{err: errors.New("context canceled")}
	fp, err := Get(context.Background(), ev, environment.Class{})
	if err == nil {
		t.Fatalf("expected transport error to propagate")
	}
	if fp.Geometry != Unsupported || fp.Text != Unsupported {
		t.Errorf("expected Unsupported sentinels on transport failure, got %+v", fp)
	}
}

func TestBuildScriptSelectsDenoisePath(t *testing.T) {
	safariScript := buildScript(true)
	if !strings.Contains(safariScript, "denoise3x3(geomCanvas)") {
		t.Errorf("expected denoise path script to call denoise3x3")
	}
	if !strings.Contains(safariScript, "if (true) {") {
		t.Errorf("expected denoise=true to enable the denoise branch")
	}
	plainScript := buildScript(false)
	if !strings.Contains(plainScript, "if (false) {") {
		t.Errorf("expected denoise=false to disable the denoise branch")
	}
	if !strings.Contains(plainScript, "text1 !== text2") {
		t.Errorf("expected non-denoise path to double-encode for unstable detection")
	}
}
