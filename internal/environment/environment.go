// Package environment classifies a browser host from its user-agent string
// and a small set of in-page feature probes. It is the "environment oracle"
// every entropy source consults before deciding whether to attempt a
// collection, short-circuit to a sentinel, or take a denoise code path.
//
// The version tables here are grounded in the same iOS Safari / WebKit
// release corpus the teacher repository used to *emulate* device identities
// (see pkg/mobile/safari.go in the reference tree); this package runs that
// knowledge in the opposite direction, parsing a real user-agent instead of
// fabricating one.
package environment

import (
	"regexp"
	"strconv"
	"strings"
)

// Class is the derived, immutable record every source receives as input.
// It is computed once per top-level collection, never cached across calls,
// matching the data-model lifecycle in the core specification.
type Class struct {
	IsWebKit            bool
	IsSafariWebKit      bool
	IsWebKit616OrNewer  bool
	IsSafari            bool
	IsSamsungInternet   bool
	IsMobile            bool
	BrowserMajorVersion int
}

var (
	webkitRe     = regexp.MustCompile(`AppleWebKit/(\d+)`)
	safariRe     = regexp.MustCompile(`Version/(\d+)(?:\.\d+)*(?: Mobile/\S+)? Safari`)
	samsungRe    = regexp.MustCompile(`SamsungBrowser/(\d+)`)
	chromeRe     = regexp.MustCompile(`Chrom(?:e|ium)/(\d+)`)
	firefoxRe    = regexp.MustCompile(`Firefox/(\d+)`)
	mobileTokens = []string{"Mobile", "Android", "iPhone", "iPad", "iPod"}
)

// webkit616 is the AppleWebKit build number at which Safari 17 shipped; the
// canvas denoise exploit targets exactly this boundary (spec: "WebKit 616+
// on Safari-WebKit hosts").
const webkit616 = 616

// FeatureProbe carries the small number of in-page feature tests the oracle
// cannot derive from the user-agent string alone (e.g. `window.safari`
// presence, used to disambiguate genuine Safari from WebKit-based wrappers
// that spoof the UA). Every field defaults to its zero value when the host
// does not support running the probe at all.
type FeatureProbe struct {
	HasWindowSafari bool
}

// Classify derives an immutable Class from a raw navigator.userAgent string
// and an optional feature probe. It never fails: an unparseable UA simply
// yields a Class with every field at its conservative (non-WebKit,
// non-mobile, version 0) zero value, so callers never need an error path
// here, matching the "no source may throw" propagation policy for the
// oracle's consumers.
func Classify(userAgent string, probe FeatureProbe) Class {
	ua := userAgent

	c := Class{
		IsWebKit:          webkitRe.MatchString(ua),
		IsSamsungInternet: samsungRe.MatchString(ua),
		IsMobile:          containsAny(ua, mobileTokens),
	}

	if m := webkitRe.FindStringSubmatch(ua); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			c.IsWebKit616OrNewer = n >= webkit616
		}
	}

	// "Safari" alone appears in nearly every WebKit UA string (including
	// Chrome's, for legacy compatibility); genuine Safari is WebKit plus a
	// Version/X token and the absence of a Chrome/Chromium/SamsungBrowser
	// marker that would indicate a different rendering engine wearing the
	// UA string.
	isChromeLike := chromeRe.MatchString(ua) || c.IsSamsungInternet
	isFirefoxLike := firefoxRe.MatchString(ua)
	c.IsSafari = c.IsWebKit && safariRe.MatchString(ua) && !isChromeLike && !isFirefoxLike
	c.IsSafariWebKit = c.IsSafari || (c.IsWebKit && probe.HasWindowSafari && !isChromeLike)

	c.BrowserMajorVersion = browserMajorVersion(ua, c, isChromeLike, isFirefoxLike)

	return c
}

func browserMajorVersion(ua string, c Class, isChromeLike, isFirefoxLike bool) int {
	switch {
	case c.IsSamsungInternet:
		if m := samsungRe.FindStringSubmatch(ua); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	case isChromeLike:
		if m := chromeRe.FindStringSubmatch(ua); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	case isFirefoxLike:
		if m := firefoxRe.FindStringSubmatch(ua); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	case c.IsSafari:
		if m := safariRe.FindStringSubmatch(ua); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 0
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// IsSuspendingAudioHost reports the class of host the audio source must
// short-circuit on: mobile WebKit older than Safari 12, which is known to
// suspend the offline audio context indefinitely outside of a user gesture.
func (c Class) IsSuspendingAudioHost() bool {
	return c.IsMobile && c.IsWebKit && c.BrowserMajorVersion > 0 && c.BrowserMajorVersion < 12
}

// IsNoisyAudioHost reports hosts known to inject unclampable audio noise,
// for which the stabilizer's memoize-after-first-call policy is the only
// available defense (Safari 17+ desktop/mobile, Samsung Internet 26+).
func (c Class) IsNoisyAudioHost() bool {
	if c.IsSafariWebKit && c.IsWebKit616OrNewer {
		return true
	}
	if c.IsSamsungInternet && c.BrowserMajorVersion >= 26 {
		return true
	}
	return false
}

// ShouldDenoiseCanvas reports whether the 3x3 spatial-oversample exploit
// should be used for the canvas source, versus the unstable-detection
// double-encode path.
func (c Class) ShouldDenoiseCanvas() bool {
	return c.IsSafariWebKit && c.IsWebKit616OrNewer
}
