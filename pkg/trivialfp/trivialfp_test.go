package trivialfp

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"fpcore/internal/config"
)

type fakeEvaluator struct {
	battery batteryJSResult
	network networkJSResult
	useNet  bool
	err     error
}

func (f *fakeEvaluator) EvaluateAsync(ctx context.Context, expression string, out interface{}) error {
	if f.err != nil {
		return f.err
	}
	if f.useNet {
		if dst, ok := out.(*networkJSResult); ok {
			*dst = f.network
		}
		return nil
	}
	if dst, ok := out.(*batteryJSResult); ok {
		*dst = f.battery
	}
	return nil
}

func TestGetBatteryRoundsLevelAndTimes(t *testing.T) {
	ev := &fakeEvaluator{battery: batteryJSResult{
		Supported: true, Level: 0.43, Charging: true,
		ChargingTime: 605, ChargingFinite: true,
		DischargingTime: 0, DischargeFinite: false,
	}}
	info := GetBattery(context.Background(), ev)
	if !info.Supported {
		t.Fatalf("expected supported battery")
	}
	if math.Abs(info.Level-0.45) > 1e-9 {
		t.Errorf("expected level 0.43 rounded to nearest 0.05 (0.45), got %v", info.Level)
	}
	if math.Mod(info.ChargingTime, 60) > 1e-9 {
		t.Errorf("expected charging time rounded to nearest 60, got %v", info.ChargingTime)
	}
	if !math.IsNaN(info.DischargingTime) {
		t.Errorf("expected NaN for non-finite discharging time, got %v", info.DischargingTime)
	}
}

func TestGetBatteryUnsupported(t *testing.T) {
	ev := &fakeEvaluator{battery: batteryJSResult{Supported: false}}
	info := GetBattery(context.Background(), ev)
	if info.Supported {
		t.Errorf("expected unsupported battery")
	}
	if !math.IsNaN(info.ChargingTime) || !math.IsNaN(info.DischargingTime) {
		t.Errorf("expected NaN times on unsupported host")
	}
}

func TestGetNetworkInformationRoundsRTT(t *testing.T) {
	ev := &fakeEvaluator{useNet: true, network: networkJSResult{
		Supported: true, EffectiveType: "4g", RTT: 113, RTTFinite: true, Downlink: 10,
	}}
	info := GetNetworkInformation(context.Background(), ev)
	if !info.Supported {
		t.Fatalf("expected supported network info")
	}
	if math.Mod(info.RTT, 25) > 1e-9 {
		t.Errorf("expected RTT rounded to nearest 25, got %v", info.RTT)
	}
}

func TestGetTLSFingerprintNoEndpointConfigured(t *testing.T) {
	Configure(config.DefaultTLSFingerprintOptions())
	r := GetTLSFingerprint(context.Background())
	if r.Success {
		t.Fatalf("expected failure with no endpoint configured")
	}
	if r.Error == "" {
		t.Errorf("expected a non-empty error message")
	}
}

func TestGetTLSFingerprintParsesFieldNameUnion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"ja3Hash": "abc123",
			"ja4":     "t13d...",
		})
	}))
	defer srv.Close()

	Configure(config.TLSFingerprintOptions{Endpoint: srv.URL, TimeoutMS: 3000, RequestsPerSec: 100})
	r := GetTLSFingerprint(context.Background())
	if !r.Success {
		t.Fatalf("expected success, got error: %s", r.Error)
	}
	if r.JA3Hash != "abc123" {
		t.Errorf("expected ja3Hash alias to populate JA3Hash, got %q", r.JA3Hash)
	}
	if r.JA4 != "t13d..." {
		t.Errorf("expected ja4 to populate JA4, got %q", r.JA4)
	}
}

func TestGetTLSFingerprintNeverThrowsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	Configure(config.TLSFingerprintOptions{Endpoint: srv.URL, TimeoutMS: 3000, RequestsPerSec: 100})
	r := GetTLSFingerprint(context.Background())
	if r.Success {
		t.Fatalf("expected failure on 500 response")
	}
}
