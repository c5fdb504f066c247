// Package trivialfp implements the trivial property sources that spec §4.5
// specifies only by interface: Battery, NetworkInformation, and the
// TLS-fingerprint fetch wrapper.
package trivialfp

import (
	"context"
	"math"

	"fpcore/internal/logger"
)

// BatteryInfo is spec §4.5's Battery result. ChargingTime and
// DischargingTime are NaN when the host has no Battery API or the value is
// non-finite; without a Battery API, Supported is false and Level is 0.
type BatteryInfo struct {
	Supported       bool
	Level           float64 // rounded to nearest 1/20 (5%)
	Charging        bool
	ChargingTime    float64 // rounded to nearest 60s; NaN if unobservable
	DischargingTime float64 // rounded to nearest 60s; NaN if unobservable
}

type batteryJSResult struct {
	Supported       bool    `json:"supported"`
	Level           float64 `json:"level"`
	Charging        bool    `json:"charging"`
	ChargingTime    float64 `json:"charging_time"`
	DischargingTime float64 `json:"discharging_time"`
	ChargingFinite  bool    `json:"charging_finite"`
	DischargeFinite bool    `json:"discharge_finite"`
}

// Evaluator runs an async JS expression in a live tab and decodes its
// resolved value into out.
type Evaluator interface {
	EvaluateAsync(ctx context.Context, expression string, out interface{}) error
}

// GetBattery reads navigator.getBattery() and applies the stability
// rounding spec §4.5 requires (raw values change every second otherwise).
func GetBattery(ctx context.Context, ev Evaluator) BatteryInfo {
	log := logger.Default().WithSource("battery")
	var raw batteryJSResult
	if err := ev.EvaluateAsync(ctx, batteryScript, &raw); err != nil {
		log.Debug("battery evaluation failed, reporting unsupported")
		return BatteryInfo{ChargingTime: math.NaN(), DischargingTime: math.NaN()}
	}
	if !raw.Supported {
		return BatteryInfo{ChargingTime: math.NaN(), DischargingTime: math.NaN()}
	}

	info := BatteryInfo{
		Supported: true,
		Level:     roundToStep(raw.Level, 0.05),
		Charging:  raw.Charging,
	}
	if raw.ChargingFinite {
		info.ChargingTime = roundToStep(raw.ChargingTime, 60)
	} else {
		info.ChargingTime = math.NaN()
	}
	if raw.DischargeFinite {
		info.DischargingTime = roundToStep(raw.DischargingTime, 60)
	} else {
		info.DischargingTime = math.NaN()
	}
	return info
}

func roundToStep(v, step float64) float64 {
	return math.Round(v/step) * step
}

const batteryScript = `(async function(){
  try {
    if (!navigator.getBattery) return {supported: false};
    var b = await navigator.getBattery();
    var chargingFinite = isFinite(b.chargingTime);
    var dischargeFinite = isFinite(b.dischargingTime);
    return {
      supported: true,
      level: b.level,
      charging: b.charging,
      charging_time: chargingFinite ? b.chargingTime : 0,
      discharging_time: dischargeFinite ? b.dischargingTime : 0,
      charging_finite: chargingFinite,
      discharge_finite: dischargeFinite
    };
  } catch (e) {
    return {supported: false};
  }
})()`
