// Package audiofp implements the audio entropy source: an offline
// oscillator-through-biquad-filter graph reduced to a single scalar, with
// the mobile-WebKit-suspending short-circuit and a memoizing Producer so
// repeated calls never re-run the graph.
//
// Grounded on the teacher's pkg/canvas/fingerprint.go InjectAudioFingerprint
// (AudioContext/createOscillator manipulation via chromedp.Evaluate), run in
// the opposite direction: the teacher perturbs the oscillator to defeat
// fingerprinting, this package runs one to produce a signal.
package audiofp

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"fpcore/internal/environment"
	"fpcore/internal/logger"
)

// Fixed graph parameters (spec §4.2: "exact biquad/oscillator parameters
// are fixed constants; any implementation must match them to yield
// comparable fingerprints" — open question: absolute cross-implementation
// comparability is not guaranteed, only internal reproducibility).
const (
	sampleRate       = 44100
	renderDuration   = 1.0 // seconds of offline audio to render
	oscillatorType   = "triangle"
	oscillatorFreq   = 10000
	biquadType       = "lowpass"
	biquadFrequency  = 1000
	tailWindowStart  = 4500
	tailWindowLength = 100
)

// SpecialFingerprint tags a non-producer audio result.
type SpecialFingerprint string

// KnownForSuspending is returned when the host is known to suspend the
// offline audio context indefinitely outside a user gesture (spec §4.2).
const KnownForSuspending SpecialFingerprint = "KnownForSuspending"

// Evaluator runs an async JS expression in a live tab and decodes its
// resolved value into out.
type Evaluator interface {
	EvaluateAsync(ctx context.Context, expression string, out interface{}) error
}

// Producer is a deferred, memoized computation: the first Get runs the
// offline audio graph exactly once (guarded by sync.Once); every subsequent
// Get, on the same Producer, returns the identical cached value without
// re-entering the pipeline. This satisfies spec §8's
// "await p() === await p()" property by construction.
type Producer struct {
	once  sync.Once
	value float64
	err   error
	ev    Evaluator
}

// Get resolves the producer's value, running the underlying audio graph on
// the first call only.
func (p *Producer) Get(ctx context.Context) (float64, error) {
	p.once.Do(func() {
		var raw struct {
			Value float64 `json:"value"`
		}
		if err := p.ev.EvaluateAsync(ctx, audioScript(), &raw); err != nil {
			p.err = err
			return
		}
		p.value = raw.Value
	})
	return p.value, p.err
}

// Result is the tagged-variant return of Get: exactly one
// of Special or Producer is set, matching spec §3's disjoint union.
type Result struct {
	Special  SpecialFingerprint
	Producer *Producer
}

// Get runs the audio source's suspending-host check and, if the host is
// not known-broken, returns a Producer bound to ev. No audio context is
// allocated until the Producer's first Get call.
func Get(ev Evaluator, env environment.Class) Result {
	log := logger.Default().WithSource("audio")
	if env.IsSuspendingAudioHost() {
		log.Debug("audio short-circuited: known-suspending mobile WebKit host",
			zap.Int("browser_major_version", env.BrowserMajorVersion))
		return Result{Special: KnownForSuspending}
	}
	return Result{Producer: &Producer{ev: ev}}
}

// audioScript renders the offline oscillator/biquad graph once and reduces
// the output buffer to a single non-negative scalar by summing the
// absolute values of a fixed tail window.
func audioScript() string {
	frames := int(sampleRate * renderDuration)
	return fmt.Sprintf(`(async function(){
  try {
    var OfflineCtx = window.OfflineAudioContext || window.webkitOfflineAudioContext;
    if (!OfflineCtx) { return {value: 0}; }
    var ctx = new OfflineCtx(1, %d, %d);
    var osc = ctx.createOscillator();
    osc.type = '%s';
    osc.frequency.value = %d;
    var biquad = ctx.createBiquadFilter();
    biquad.type = '%s';
    biquad.frequency.value = %d;
    osc.connect(biquad);
    biquad.connect(ctx.destination);
    osc.start(0);
    var buffer = await ctx.startRendering();
    var data = buffer.getChannelData(0);
    var start = %d, len = %d;
    var sum = 0;
    for (var i = start; i < start + len && i < data.length; i++) {
      sum += Math.abs(data[i]);
    }
    return {value: sum};
  } catch (e) {
    return {value: 0};
  }
})()`, frames, sampleRate, oscillatorType, oscillatorFreq, biquadType, biquadFrequency, tailWindowStart, tailWindowLength)
}
