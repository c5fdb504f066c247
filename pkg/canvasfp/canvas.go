// Package canvasfp implements the canvas entropy source: two fixed
// reference scenes (text, geometry), a winding-rule feature test, and the
// 3x3 spatial-oversampling denoise exploit that defeats WebKit 616+'s
// clamped per-pixel readback noise.
//
// Grounded on the teacher's pkg/canvas/fingerprint.go (CDP-evaluated canvas
// JS, chromedp.Evaluate usage) run in the opposite direction: the teacher
// injects canvas noise, this package reads a canvas back and removes it.
package canvasfp

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fpcore/internal/environment"
	"fpcore/internal/logger"
)

// Sentinel values for CanvasFingerprint's string fields, per spec §3.
const (
	Unsupported = "Unsupported"
	Skipped     = "Skipped"
	Unstable    = "Unstable"
)

// Fingerprint is the result of one canvas collection (spec §3's
// CanvasFingerprint). Geometry and Text are either a PNG data-URL or one of
// the sentinel strings above.
type Fingerprint struct {
	Winding  bool   `json:"winding"`
	Geometry string `json:"geometry"`
	Text     string `json:"text"`
}

// jsResult mirrors the JSON shape the in-page script resolves with.
type jsResult struct {
	Winding  bool   `json:"winding"`
	Geometry string `json:"geometry"`
	Text     string `json:"text"`
	Denoised bool   `json:"denoised"`
}

// Evaluator runs a JS expression in a live tab and decodes its resolved
// value into out. Satisfied by cmd/fpcollect's tabEvaluator, which forwards
// to browser.EvaluateAsync; declared as an interface here so this package
// never imports internal/browser directly, matching the teacher's
// convention of small per-file dependencies.
type Evaluator interface {
	EvaluateAsync(ctx context.Context, expression string, out interface{}) error
}

// Get runs the canvas source against the given tab. env selects the
// denoise path; the returned error is a transport/CDP failure only (context
// canceled, tab crashed) — a fingerprinting failure always downgrades to a
// sentinel per spec §7 and is never surfaced as an error.
func Get(ctx context.Context, ev Evaluator, env environment.Class) (Fingerprint, error) {
	log := logger.Default().WithSource("canvas")
	script := buildScript(env.ShouldDenoiseCanvas())

	var raw jsResult
	if err := ev.EvaluateAsync(ctx, script, &raw); err != nil {
		log.Warn("canvas evaluation transport failure", zap.Error(err))
		return Fingerprint{Winding: false, Geometry: Unsupported, Text: Unsupported}, err
	}

	fp := Fingerprint{Winding: raw.Winding, Geometry: raw.Geometry, Text: raw.Text}
	if fp.Geometry == Unstable || fp.Text == Unstable {
		log.Debug("canvas host reported unclampable readback noise")
	}
	log.Debug("canvas collected", zap.Bool("denoised", raw.Denoised), zap.Bool("winding", fp.Winding))
	return fp, nil
}

// buildScript renders the full render-denoise-encode pipeline as a single
// async IIFE. denoise selects the Safari 17+/WebKit 616+ 3x3 oversample
// path; otherwise the non-Safari-17 double-encode unstable-detection path
// runs instead.
func buildScript(denoise bool) string {
	return fmt.Sprintf(`(async function(){
  function makeCanvas(w, h) {
    var c = document.createElement('canvas');
    c.width = w; c.height = h;
    return c;
  }

  function testWinding(ctx) {
    ctx.beginPath();
    ctx.rect(0, 0, 10, 10);
    ctx.rect(2, 2, 6, 6);
    try {
      return !ctx.isPointInPath(5, 5, 'evenodd');
    } catch (e) {
      return false;
    }
  }

  function renderText(c) {
    var ctx = c.getContext('2d');
    if (!ctx) return null;
    ctx.textBaseline = 'alphabetic';
    ctx.fillStyle = '#f60';
    ctx.fillRect(100, 1, 62, 20);
    ctx.fillStyle = '#069';
    ctx.font = '11pt "Times New Roman"';
    ctx.fillText('Cwm fjordbank gly %s', 2, 15);
    ctx.fillStyle = 'rgba(102, 204, 0, 0.2)';
    ctx.font = '18pt Arial';
    ctx.fillText('Cwm fjordbank gly %s', 4, 45);
    return ctx;
  }

  function renderGeometry(c) {
    var ctx = c.getContext('2d');
    if (!ctx) return null;
    ctx.globalCompositeOperation = 'multiply';
    ctx.fillStyle = '#f2f';
    ctx.beginPath(); ctx.arc(40, 40, 40, 0, Math.PI * 2, true); ctx.closePath(); ctx.fill();
    ctx.fillStyle = '#2ff';
    ctx.beginPath(); ctx.arc(80, 40, 40, 0, Math.PI * 2, true); ctx.closePath(); ctx.fill();
    ctx.fillStyle = '#ff2';
    ctx.beginPath(); ctx.arc(60, 80, 40, 0, Math.PI * 2, true); ctx.closePath(); ctx.fill();
    ctx.fillStyle = '#f9c';
    ctx.beginPath(); ctx.arc(60, 60, 60, 0, Math.PI * 2, true);
    ctx.arc(60, 60, 20, 0, Math.PI * 2, true);
    ctx.fill('evenodd');
    return ctx;
  }

  function denoise3x3(src) {
    var w = src.width, h = src.height;
    var scratch = makeCanvas(w * 3, h * 3);
    var sctx = scratch.getContext('2d');
    if (!sctx) return src.toDataURL('image/png');
    sctx.imageSmoothingEnabled = false;
    sctx.drawImage(src, 0, 0, w * 3, h * 3);
    var scratchData;
    try {
      scratchData = sctx.getImageData(0, 0, w * 3, h * 3);
    } catch (e) {
      return src.toDataURL('image/png');
    }
    var out = makeCanvas(w, h);
    var octx = out.getContext('2d');
    var outData = octx.createImageData(w, h);
    for (var y = 0; y < h; y++) {
      for (var x = 0; x < w; x++) {
        var sx = 3 * x + 1, sy = 3 * y + 1;
        var si = (sy * scratch.width + sx) * 4;
        var di = (y * w + x) * 4;
        outData.data[di] = scratchData.data[si];
        outData.data[di + 1] = scratchData.data[si + 1];
        outData.data[di + 2] = scratchData.data[si + 2];
        outData.data[di + 3] = scratchData.data[si + 3];
      }
    }
    octx.putImageData(outData, 0, 0);
    return out.toDataURL('image/png');
  }

  function encodeDirect(c) {
    try {
      return c.toDataURL('image/png');
    } catch (e) {
      return '%s';
    }
  }

  try {
    var textCanvas = makeCanvas(240, 60);
    var geomCanvas = makeCanvas(122, 110);
    var textCtx = renderText(textCanvas);
    var geomCtx = renderGeometry(geomCanvas);
    if (!textCtx || !geomCtx) {
      return {winding: false, geometry: '%s', text: '%s', denoised: false};
    }

    var winding = testWinding(geomCtx);

    if (%s) {
      var geometry = denoise3x3(geomCanvas);
      var text = denoise3x3(textCanvas);
      return {winding: winding, geometry: geometry, text: text, denoised: true};
    }

    var text1 = encodeDirect(textCanvas);
    var text2 = encodeDirect(textCanvas);
    if (text1 !== text2) {
      return {winding: winding, geometry: '%s', text: '%s', denoised: false};
    }
    var geometry = encodeDirect(geomCanvas);
    return {winding: winding, geometry: geometry, text: text1, denoised: false};
  } catch (e) {
    return {winding: false, geometry: '%s', text: '%s', denoised: false};
  }
})()`,
		"😃", "😃",
		Unsupported,
		Unsupported, Unsupported,
		boolStr(denoise),
		Unstable, Unstable,
		Unsupported, Unsupported,
	)
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
