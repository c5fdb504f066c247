// Package screenquery implements the screen media-query prober: dimension
// binary searches, fixed-order feature enumeration, and table-driven
// pixel-ratio/color-depth probes, entirely through window.matchMedia.
//
// Grounded on the teacher's pkg/browser/pool.go window-size handling and
// pkg/session/chromedp.go's applyScreenResolution (both of which treat
// screen dimensions as a host property to set); this package instead reads
// dimensions back out through the one API spec §4.3 allows.
package screenquery

import "context"

// Not observable sentinel for feature fields whose matchMedia probe table
// produced no match. PixelRatio falls back to window.devicePixelRatio (or 1)
// and ColorDepthBits to 0 instead.
const NotObservable = "not-observable"

// Result is spec §3's ScreenMediaQueries record.
type Result struct {
	WidthLow, WidthHigh   int `json:"-"`
	HeightLow, HeightHigh int `json:"-"`

	Orientation     string `json:"orientation"`
	DisplayMode     string `json:"display_mode"`
	Pointer         string `json:"pointer"`
	Hover           string `json:"hover"`
	AnyPointer      string `json:"any_pointer"`
	AnyHover        string `json:"any_hover"`
	OverflowBlock   string `json:"overflow_block"`
	OverflowInline  string `json:"overflow_inline"`
	Update          string `json:"update"`
	Scripting       string `json:"scripting"`
	PixelRatio      float64 `json:"pixel_ratio"`
	ColorDepthBits  int     `json:"color_depth_bits"`
}

// jsResult is the wire shape the in-page script resolves with.
type jsResult struct {
	WidthLow       int     `json:"width_low"`
	WidthHigh      int     `json:"width_high"`
	HeightLow      int     `json:"height_low"`
	HeightHigh     int     `json:"height_high"`
	Orientation    string  `json:"orientation"`
	DisplayMode    string  `json:"display_mode"`
	Pointer        string  `json:"pointer"`
	Hover          string  `json:"hover"`
	AnyPointer     string  `json:"any_pointer"`
	AnyHover       string  `json:"any_hover"`
	OverflowBlock  string  `json:"overflow_block"`
	OverflowInline string  `json:"overflow_inline"`
	Update         string  `json:"update"`
	Scripting      string  `json:"scripting"`
	PixelRatio     float64 `json:"pixel_ratio"`
	ColorDepthBits int     `json:"color_depth_bits"`
}

// Evaluator runs a synchronous JS expression and decodes its value into out.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, out interface{}) error
}

// Get runs the full prober in one round trip: both the lower-bound
// (min-<dim>) and upper-bound (max-<dim>) binary searches per dimension,
// the ten feature enumerations, and the pixel-ratio/color-depth table
// probes all execute inside the evaluated script, since N separate
// chromedp round trips would violate spec §5's "≪ 50ms" expectation.
func Get(ctx context.Context, ev Evaluator) (Result, error) {
	var raw jsResult
	if err := ev.Evaluate(ctx, proberScript, &raw); err != nil {
		return Result{}, err
	}
	return Result{
		WidthLow:       raw.WidthLow,
		WidthHigh:      raw.WidthHigh,
		HeightLow:      raw.HeightLow,
		HeightHigh:     raw.HeightHigh,
		Orientation:    nonEmpty(raw.Orientation),
		DisplayMode:    nonEmpty(raw.DisplayMode),
		Pointer:        nonEmpty(raw.Pointer),
		Hover:          nonEmpty(raw.Hover),
		AnyPointer:     nonEmpty(raw.AnyPointer),
		AnyHover:       nonEmpty(raw.AnyHover),
		OverflowBlock:  nonEmpty(raw.OverflowBlock),
		OverflowInline: nonEmpty(raw.OverflowInline),
		Update:         nonEmpty(raw.Update),
		Scripting:      nonEmpty(raw.Scripting),
		PixelRatio:     raw.PixelRatio,
		ColorDepthBits: raw.ColorDepthBits,
	}, nil
}

func nonEmpty(s string) string {
	if s == "" {
		return NotObservable
	}
	return s
}

const proberScript = `(function(){
  function matches(q) {
    try { return window.matchMedia(q).matches; } catch (e) { return false; }
  }

  function binarySearchLower(dim) {
    var low = 0, high = 8192;
    while (high - low > 10) {
      var mid = Math.floor((low + high) / 2);
      if (matches('(min-' + dim + ': ' + mid + 'px)')) {
        low = mid;
      } else {
        high = mid;
      }
    }
    return low;
  }

  function binarySearchUpper(dim) {
    var low = 0, high = 8192;
    while (high - low > 10) {
      var mid = Math.floor((low + high) / 2);
      if (matches('(max-' + dim + ': ' + mid + 'px)')) {
        high = mid;
      } else {
        low = mid;
      }
    }
    return high;
  }

  function bracket(dim) {
    return [binarySearchLower(dim), binarySearchUpper(dim)];
  }

  function probeFirst(prefix, values) {
    for (var i = 0; i < values.length; i++) {
      if (matches('(' + prefix + ': ' + values[i] + ')')) {
        return values[i];
      }
    }
    return '';
  }

  function probePixelRatio() {
    var table = [4, 3.5, 3, 2.75, 2.5, 2.25, 2, 1.75, 1.5, 1.25, 1, 0.75, 0.5];
    for (var i = 0; i < table.length; i++) {
      if (matches('(min-resolution: ' + table[i] + 'dppx)')) {
        return table[i];
      }
    }
    return window.devicePixelRatio || 1;
  }

  function probeColorDepth() {
    var table = [48, 30, 24, 16, 12, 8, 4, 1];
    for (var i = 0; i < table.length; i++) {
      if (matches('(color: ' + table[i] + ')')) {
        return table[i];
      }
    }
    return 0;
  }

  var wb = bracket('width');
  var hb = bracket('height');

  return {
    width_low: wb[0], width_high: wb[1],
    height_low: hb[0], height_high: hb[1],
    orientation: probeFirst('orientation', ['portrait', 'landscape']),
    display_mode: probeFirst('display-mode', ['fullscreen', 'standalone', 'minimal-ui', 'browser']),
    pointer: probeFirst('pointer', ['none', 'coarse', 'fine']),
    hover: probeFirst('hover', ['none', 'hover']),
    any_pointer: probeFirst('any-pointer', ['fine', 'coarse', 'none']),
    any_hover: probeFirst('any-hover', ['hover', 'none']),
    overflow_block: probeFirst('overflow-block', ['none', 'scroll', 'optional-paged', 'paged']),
    overflow_inline: probeFirst('overflow-inline', ['none', 'scroll']),
    update: probeFirst('update', ['none', 'slow', 'fast']),
    scripting: probeFirst('scripting', ['none', 'initial-only', 'enabled']),
    pixel_ratio: probePixelRatio(),
    color_depth_bits: probeColorDepth()
  };
})()`
