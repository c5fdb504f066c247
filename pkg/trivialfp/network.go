package trivialfp

import (
	"context"
	"math"
)

// NetworkInfo is spec §4.5's NetworkInformation result.
type NetworkInfo struct {
	Supported    bool
	EffectiveType string
	RTT          float64 // rounded to nearest 25ms; NaN if unobservable
	Downlink     float64
	SaveData     bool
}

type networkJSResult struct {
	Supported     bool    `json:"supported"`
	EffectiveType string  `json:"effective_type"`
	RTT           float64 `json:"rtt"`
	RTTFinite     bool    `json:"rtt_finite"`
	Downlink      float64 `json:"downlink"`
	SaveData      bool    `json:"save_data"`
}

// GetNetworkInformation reads navigator.connection (including
// vendor-prefixed variants), rounding rtt to the nearest 25ms per spec
// §4.5. This source is fully synchronous on the host but still evaluated
// via EvaluateAsync for a uniform Evaluator interface across trivialfp.
func GetNetworkInformation(ctx context.Context, ev Evaluator) NetworkInfo {
	var raw networkJSResult
	if err := ev.EvaluateAsync(ctx, networkScript, &raw); err != nil {
		return NetworkInfo{RTT: math.NaN()}
	}
	if !raw.Supported {
		return NetworkInfo{RTT: math.NaN()}
	}
	info := NetworkInfo{
		Supported:     true,
		EffectiveType: raw.EffectiveType,
		Downlink:      raw.Downlink,
		SaveData:      raw.SaveData,
	}
	if raw.RTTFinite {
		info.RTT = roundToStep(raw.RTT, 25)
	} else {
		info.RTT = math.NaN()
	}
	return info
}

const networkScript = `(function(){
  try {
    var conn = navigator.connection || navigator.mozConnection || navigator.webkitConnection;
    if (!conn) return {supported: false};
    var rttFinite = isFinite(conn.rtt);
    return {
      supported: true,
      effective_type: conn.effectiveType || '',
      rtt: rttFinite ? conn.rtt : 0,
      rtt_finite: rttFinite,
      downlink: conn.downlink || 0,
      save_data: !!conn.saveData
    };
  } catch (e) {
    return {supported: false};
  }
})()`
