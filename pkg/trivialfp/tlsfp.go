package trivialfp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"fpcore/internal/config"
	"fpcore/internal/logger"
)

// TLSFingerprint is spec §4.5/§6's TLS-endpoint result: a permissive
// JA3/JA4 field-name union parsed from the configured endpoint's JSON
// response. Fields are empty when the endpoint omitted them.
type TLSFingerprint struct {
	Success bool
	JA3Hash string
	JA3Full string
	JA4     string
	Error   string
}

// wireResponse accepts any of the field-name aliases a caller-configured
// TLS-fingerprint endpoint might use, modeled on the permissive union in
// spec §4.5/§6 (grounded, as a field-naming reference only, on
// _examples/other_examples' fingerprint-collector JA3Entry/JA4Database
// shape — this package has no persisted database, only a live fetch).
type wireResponse struct {
	JA3      string `json:"ja3"`
	JA3Hash  string `json:"ja3_hash"`
	JA3HashC string `json:"ja3Hash"`
	JA3Full  string `json:"ja3_full"`
	JA3FullC string `json:"ja3Full"`
	JA3String string `json:"ja3_string"`
	JA4      string `json:"ja4"`
}

var (
	optionsMu sync.RWMutex
	options   = config.DefaultTLSFingerprintOptions()
	limiter   = rate.NewLimiter(rate.Limit(options.RequestsPerSec), 1)
)

// Configure overwrites the process-wide TLS-fingerprint options (spec §9's
// "configuration entity with a set operation and a read-only view"). Safe
// to call concurrently with GetTLSFingerprint; the only process-wide
// mutable state in this library.
func Configure(opts config.TLSFingerprintOptions) {
	optionsMu.Lock()
	defer optionsMu.Unlock()
	options = opts
	limiter = rate.NewLimiter(rate.Limit(maxFloat(opts.RequestsPerSec, 0.1)), 1)
}

func currentOptions() config.TLSFingerprintOptions {
	optionsMu.RLock()
	defer optionsMu.RUnlock()
	return options
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// GetTLSFingerprint performs the configured GET against the TLS endpoint
// with credentials omitted, caching disabled, and a default 3000ms
// timeout. It always resolves with a result record; it never returns a Go
// error — a failed fetch, timeout, or non-2xx response populates
// Success=false and Error instead, per spec §7's "Transient I/O... mapped
// into the return record's success=false, error=<message> fields."
func GetTLSFingerprint(ctx context.Context) TLSFingerprint {
	log := logger.Default().WithSource("tlsfp")
	opts := currentOptions()

	if opts.Endpoint == "" {
		return TLSFingerprint{Success: false, Error: "no endpoint configured"}
	}

	optionsMu.RLock()
	lim := limiter
	optionsMu.RUnlock()
	if err := lim.Wait(ctx); err != nil {
		log.Warn("tls fingerprint rate limiter wait failed", zap.Error(err))
		return TLSFingerprint{Success: false, Error: err.Error()}
	}

	reqCtx, cancel := context.WithTimeout(ctx, opts.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, opts.Endpoint, nil)
	if err != nil {
		return TLSFingerprint{Success: false, Error: err.Error()}
	}
	req.Header.Set("Cache-Control", "no-store")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{
		// credentials: omit — a bare client with no cookie jar never
		// sends or stores cookies across requests.
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Warn("tls fingerprint fetch failed", zap.Error(err))
		return TLSFingerprint{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return TLSFingerprint{Success: false, Error: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	var wr wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return TLSFingerprint{Success: false, Error: err.Error()}
	}

	return TLSFingerprint{
		Success: true,
		JA3Hash: firstNonEmpty(wr.JA3Hash, wr.JA3HashC, wr.JA3),
		JA3Full: firstNonEmpty(wr.JA3Full, wr.JA3FullC, wr.JA3String),
		JA4:     wr.JA4,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
