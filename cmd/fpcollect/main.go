// fpcollect is a small operational entrypoint: it opens one pooled browser
// tab, runs every tab-based entropy source against it concurrently, and
// prints the combined per-source results as JSON on stdout. The
// TLS-fingerprint source, which fetches over HTTP rather than through the
// tab, is not collected. It performs no aggregation
// into a composite fingerprint hash (that is a caller's concern per spec
// §1) — it only shapes and reports independent source outputs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fpcore/internal/browser"
	"fpcore/internal/config"
	"fpcore/internal/environment"
	"fpcore/internal/logger"
	"fpcore/internal/metrics"
	"fpcore/internal/statusws"
	"fpcore/pkg/audiofp"
	"fpcore/pkg/canvasfp"
	"fpcore/pkg/screenquery"
	"fpcore/pkg/trivialfp"
	"fpcore/pkg/webrtcfp"
)

// report is the combined per-source JSON shape fpcollect emits on stdout.
type report struct {
	Environment environment.Class      `json:"environment"`
	Canvas      canvasfp.Fingerprint   `json:"canvas"`
	AudioValue  *float64               `json:"audio_value,omitempty"`
	AudioKind   string                 `json:"audio_kind"`
	Screen      screenquery.Result     `json:"screen"`
	WebRTC      webrtcfp.Result        `json:"webrtc"`
	Battery     trivialfp.BatteryInfo  `json:"battery"`
	Network     trivialfp.NetworkInfo  `json:"network"`
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on, empty disables")
	statusAddr := flag.String("status-addr", "", "address to serve /status websocket on, empty disables")
	timeout := flag.Duration("timeout", 20*time.Second, "overall collection timeout")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fpcollect: load config: %v\n", err)
			os.Exit(1)
		}
		cfg = *loaded
	}
	cfg.LoadFromEnv()
	trivialfp.Configure(cfg.TLS)

	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fpcollect: init logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	reloadCtx, reloadCancel := context.WithCancel(context.Background())
	defer reloadCancel()
	if *configPath != "" {
		reloader, err := config.NewReloader(*configPath, trivialfp.Configure)
		if err != nil {
			log.Warn("config hot-reload disabled", zap.Error(err))
		} else {
			go reloader.Run(reloadCtx)
		}
	}

	var collector *metrics.Collector
	if *metricsAddr != "" {
		collector = metrics.New(prometheus.DefaultRegisterer)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Info("serving metrics")
			_ = http.ListenAndServe(*metricsAddr, mux)
		}()
	}

	var hub *statusws.Hub
	if *statusAddr != "" {
		hub = statusws.NewHub()
		go func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/status", hub.Handler)
			log.Info("serving status websocket")
			_ = http.ListenAndServe(*statusAddr, mux)
		}()
	}

	pool, err := browser.New(browser.PoolConfig{
		MaxInstances:   cfg.Browser.PoolSize,
		MinInstances:   1,
		AcquireTimeout: time.Duration(cfg.Browser.AcquireTimeout) * time.Second,
		ProxyURL:       cfg.Browser.ProxyURL,
		Headless:       cfg.Browser.Headless,
		WindowWidth:    cfg.Browser.WindowWidth,
		WindowHeight:   cfg.Browser.WindowHeight,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "fpcollect: start browser pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	inst, err := pool.Acquire(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fpcollect: acquire tab: %v\n", err)
		os.Exit(1)
	}
	defer pool.Release(inst)

	ev := tabEvaluator{}
	var hasWindowSafari bool
	_ = ev.Evaluate(inst.Ctx, "typeof window.safari !== 'undefined'", &hasWindowSafari)
	env := environment.Classify(readUserAgent(inst.Ctx, ev), environment.FeatureProbe{HasWindowSafari: hasWindowSafari})

	var (
		wg  sync.WaitGroup
		out report
		mu  sync.Mutex
	)

	run := func(name string, fn func() metrics.Outcome) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			outcome := fn()
			dur := time.Since(start)
			if collector != nil {
				collector.Observe(name, outcome, dur)
			}
			if hub != nil {
				hub.Publish(statusws.SourceEvent{Source: name, Outcome: string(outcome), DurationMS: dur.Milliseconds(), Timestamp: time.Now()})
			}
		}()
	}

	run("canvas", func() metrics.Outcome {
		fp, err := canvasfp.Get(inst.Ctx, ev, env)
		mu.Lock()
		out.Canvas = fp
		mu.Unlock()
		if err != nil {
			return metrics.OutcomeTransportErr
		}
		if fp.Geometry == canvasfp.Unsupported || fp.Geometry == canvasfp.Unstable ||
			fp.Text == canvasfp.Unsupported || fp.Text == canvasfp.Unstable {
			return metrics.OutcomeSentinel
		}
		return metrics.OutcomeOK
	})
	run("audio", func() metrics.Outcome {
		res := audiofp.Get(ev, env)
		mu.Lock()
		defer mu.Unlock()
		if res.Producer != nil {
			v, err := res.Producer.Get(inst.Ctx)
			out.AudioValue = &v
			out.AudioKind = "producer"
			if err != nil {
				return metrics.OutcomeTransportErr
			}
			return metrics.OutcomeOK
		}
		out.AudioKind = string(res.Special)
		return metrics.OutcomeSentinel
	})
	run("screen", func() metrics.Outcome {
		r, err := screenquery.Get(inst.Ctx, ev)
		mu.Lock()
		out.Screen = r
		mu.Unlock()
		if err != nil {
			return metrics.OutcomeTransportErr
		}
		return metrics.OutcomeOK
	})
	run("webrtc", func() metrics.Outcome {
		r, err := webrtcfp.Get(inst.Ctx, ev)
		mu.Lock()
		out.WebRTC = r
		mu.Unlock()
		if err != nil {
			return metrics.OutcomeTransportErr
		}
		if !r.Supported {
			return metrics.OutcomeSentinel
		}
		return metrics.OutcomeOK
	})
	run("battery", func() metrics.Outcome {
		b := trivialfp.GetBattery(inst.Ctx, ev)
		mu.Lock()
		out.Battery = b
		mu.Unlock()
		if !b.Supported {
			return metrics.OutcomeSentinel
		}
		return metrics.OutcomeOK
	})
	run("network", func() metrics.Outcome {
		n := trivialfp.GetNetworkInformation(inst.Ctx, ev)
		mu.Lock()
		out.Network = n
		mu.Unlock()
		if !n.Supported {
			return metrics.OutcomeSentinel
		}
		return metrics.OutcomeOK
	})

	wg.Wait()
	out.Environment = env

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "fpcollect: encode report: %v\n", err)
		os.Exit(1)
	}
}

// tabEvaluator adapts chromedp's package-level Evaluate helpers to the
// small Evaluator interfaces each source package declares. It carries no
// state: every call takes its own context (a leased browser.Instance's
// Ctx), matching how internal/browser.EvaluateAsync/Evaluate are already
// scoped.
type tabEvaluator struct{}

func (e tabEvaluator) EvaluateAsync(ctx context.Context, expression string, out interface{}) error {
	return browser.EvaluateAsync(ctx, expression, out)
}

func (e tabEvaluator) Evaluate(ctx context.Context, expression string, out interface{}) error {
	return browser.Evaluate(ctx, expression, out)
}

func readUserAgent(ctx context.Context, ev tabEvaluator) string {
	var ua string
	_ = ev.Evaluate(ctx, "navigator.userAgent", &ua)
	return ua
}
