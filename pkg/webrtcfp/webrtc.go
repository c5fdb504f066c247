// Package webrtcfp implements the WebRTC IP gatherer: a time-bounded ICE
// candidate race that surfaces private local IPs while discarding STUN's
// public reflexive address, never rejecting regardless of host support.
//
// The candidate-line grammar this package's Go-side classification
// double-checks is grounded on pion/webrtc's SDP candidate parsing
// (_examples/other_examples pion-webrtc offer/answer test) as a reference
// for the wire shape, not as an import: the gatherer drives the real
// browser's WebRTC stack over CDP and only needs to recognize the strings
// that stack already produces.
package webrtcfp

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"fpcore/internal/logger"
)

// Result is spec §3's WebRTCIPs record.
type Result struct {
	LocalIPv4 []string `json:"local_ipv4"`
	LocalIPv6 []string `json:"local_ipv6"`
	Supported bool     `json:"supported"`
}

type jsResult struct {
	LocalIPv4 []string `json:"local_ipv4"`
	LocalIPv6 []string `json:"local_ipv6"`
	Supported bool     `json:"supported"`
}

// Evaluator runs an async JS expression in a live tab and decodes its
// resolved value into out.
type Evaluator interface {
	EvaluateAsync(ctx context.Context, expression string, out interface{}) error
}

// Get runs the ICE-gathering race. It resolves within ~1000ms under every
// condition per spec §4.4 and never returns a fingerprinting error; the
// returned error is a CDP transport failure only, in which case Result is
// the documented setup-failure fallback: Supported=true with empty IP lists.
func Get(ctx context.Context, ev Evaluator) (Result, error) {
	log := logger.Default().WithSource("webrtc")
	start := time.Now()

	var raw jsResult
	if err := ev.EvaluateAsync(ctx, gatherScript, &raw); err != nil {
		log.Warn("webrtc evaluation transport failure", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return Result{Supported: true, LocalIPv4: []string{}, LocalIPv6: []string{}}, err
	}

	v4, v6 := classify(raw)
	log.Debug("webrtc collected",
		zap.Bool("supported", raw.Supported),
		zap.Int("ipv4_count", len(v4)),
		zap.Int("ipv6_count", len(v6)),
		zap.Duration("elapsed", time.Since(start)))
	return Result{Supported: raw.Supported, LocalIPv4: v4, LocalIPv6: v6}, nil
}

// classify applies the classification rule (private IPv4 ranges,
// non-link-local IPv6) with net.ParseIP and deduplicates the result. The
// in-page script only sorts extracted addresses by family; public IPv4 and
// link-local IPv6 addresses are dropped here.
func classify(raw jsResult) (v4 []string, v6 []string) {
	seen4 := make(map[string]bool)
	seen6 := make(map[string]bool)

	for _, s := range raw.LocalIPv4 {
		ip := net.ParseIP(s)
		if ip == nil || ip.To4() == nil {
			continue
		}
		if !isPrivateIPv4(ip) {
			continue
		}
		if !seen4[s] {
			seen4[s] = true
			v4 = append(v4, s)
		}
	}
	for _, s := range raw.LocalIPv6 {
		ip := net.ParseIP(s)
		if ip == nil || ip.To4() != nil {
			continue
		}
		if ip.IsLinkLocalUnicast() {
			continue
		}
		if !seen6[s] {
			seen6[s] = true
			v6 = append(v6, s)
		}
	}
	if v4 == nil {
		v4 = []string{}
	}
	if v6 == nil {
		v6 = []string{}
	}
	return v4, v6
}

var privateIPv4Blocks = []*net.IPNet{
	mustParseCIDR("10.0.0.0/8"),
	mustParseCIDR("172.16.0.0/12"),
	mustParseCIDR("192.168.0.0/16"),
	mustParseCIDR("169.254.0.0/16"),
}

func mustParseCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}

func isPrivateIPv4(ip net.IP) bool {
	for _, block := range privateIPv4Blocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// gatherScript resolves the vendor-prefixed RTCPeerConnection constructor,
// races ICE candidate gathering against a 1000ms deadline, and resolves
// with whatever was collected. Idempotent completion is guarded by the
// `done` boolean since end-of-candidates, oniceconnectionstatechange, and
// the deadline timer can all fire.
const gatherScript = `(function(){
  return new Promise(function(resolve){
    try {
      var RTCPC = window.RTCPeerConnection || window.webkitRTCPeerConnection || window.mozRTCPeerConnection;
      if (!RTCPC) {
        resolve({supported: false, local_ipv4: [], local_ipv6: []});
        return;
      }

      var v4 = new Set();
      var v6 = new Set();
      var done = false;
      var pc = new RTCPC({iceServers: [{urls: 'stun:stun.l.google.com:19302'}]});

      function finish() {
        if (done) return;
        done = true;
        try { pc.close(); } catch (e) {}
        resolve({
          supported: true,
          local_ipv4: Array.from(v4),
          local_ipv6: Array.from(v6)
        });
      }

      function handleCandidateLine(line) {
        if (!line) return;
        var v4m = line.match(/(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})/);
        var v6m = line.match(/([0-9a-fA-F]{1,4}(?::[0-9a-fA-F]{0,4}){2,7})/);
        if (v4m && v4m[1].indexOf('.local') === -1) {
          v4.add(v4m[1]);
        } else if (v6m && line.indexOf('.local') === -1) {
          v6.add(v6m[1]);
        }
      }

      pc.onicecandidate = function(e) {
        if (!e || !e.candidate || !e.candidate.candidate) {
          finish();
          return;
        }
        if (e.candidate.candidate.indexOf('.local') !== -1) {
          return;
        }
        handleCandidateLine(e.candidate.candidate);
      };
      pc.onicegatheringstatechange = function() {
        if (pc.iceGatheringState === 'complete') finish();
      };
      pc.oniceconnectionstatechange = function() {
        if (pc.iceConnectionState === 'failed' || pc.iceConnectionState === 'closed') finish();
      };

      pc.createDataChannel('');
      pc.createOffer().then(function(offer) {
        return pc.setLocalDescription(offer);
      }).catch(function() {
        finish();
      });

      setTimeout(finish, 1000);
    } catch (e) {
      resolve({supported: true, local_ipv4: [], local_ipv6: []});
    }
  });
})()`
