package browser

import (
	"context"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// EvaluateAsync runs expression as a JS IIFE returning a Promise, waits for
// it to settle, and unmarshals the resolved value into out. The canvas,
// audio, WebRTC, battery and network sources are evaluated through this
// (via cmd/fpcollect's tabEvaluator) instead of the teacher's fire-and-forget
// chromedp.Evaluate(script, nil), because their collection is expressed as
// "await this async function."
func EvaluateAsync(ctx context.Context, expression string, out interface{}) error {
	return chromedp.Run(ctx, chromedp.Evaluate(expression, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true).WithReturnByValue(true)
	}))
}

// Evaluate runs a synchronous JS expression and unmarshals its value into
// out. Used by the media-query source, which spec §5 classifies as fully
// synchronous, and by cmd/fpcollect's user-agent read.
func Evaluate(ctx context.Context, expression string, out interface{}) error {
	return chromedp.Run(ctx, chromedp.Evaluate(expression, out))
}
