package environment

import "testing"

const (
	uaSafari17Mac     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/617.1.17 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"
	uaSafari11iOS      = "Mozilla/5.0 (iPhone; CPU iPhone OS 11_4 like Mac OS X) AppleWebKit/604.1.38 (KHTML, like Gecko) Version/11.0 Mobile/15E148 Safari/604.1"
	uaChromeDesktop   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	uaSamsungInternet = "Mozilla/5.0 (Linux; Android 14) AppleWebKit/537.36 (KHTML, like Gecko) SamsungBrowser/27.0 Chrome/122.0.0.0 Mobile Safari/537.36"
	uaFirefoxDesktop  = "Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0"
)

func TestClassifySafari17Mac(t *testing.T) {
	c := Classify(uaSafari17Mac, FeatureProbe{HasWindowSafari: true})
	if !c.IsWebKit || !c.IsSafari || !c.IsSafariWebKit {
		t.Fatalf("expected Safari/WebKit classification, got %+v", c)
	}
	if !c.IsWebKit616OrNewer {
		t.Errorf("expected WebKit 616+, got version below threshold: %+v", c)
	}
	if c.IsMobile {
		t.Errorf("desktop UA misclassified as mobile")
	}
	if !c.ShouldDenoiseCanvas() {
		t.Errorf("Safari 17 desktop should take the denoise path")
	}
	if !c.IsNoisyAudioHost() {
		t.Errorf("Safari 17 should be treated as a noisy audio host")
	}
}

func TestClassifyMobileSafari11(t *testing.T) {
	c := Classify(uaSafari11iOS, FeatureProbe{HasWindowSafari: true})
	if !c.IsMobile {
		t.Fatalf("expected mobile classification for iPhone UA")
	}
	if c.BrowserMajorVersion != 11 {
		t.Errorf("expected major version 11, got %d", c.BrowserMajorVersion)
	}
	if !c.IsSuspendingAudioHost() {
		t.Errorf("mobile WebKit < 12 must be flagged as a suspending audio host")
	}
}

func TestClassifyChromeDesktopIsNotSafari(t *testing.T) {
	c := Classify(uaChromeDesktop, FeatureProbe{})
	if c.IsSafari || c.IsSafariWebKit {
		t.Fatalf("Chrome UA (which also contains \"Safari\") must not classify as Safari: %+v", c)
	}
	if c.ShouldDenoiseCanvas() {
		t.Errorf("Chrome should never take the Safari denoise path")
	}
}

func TestClassifySamsungInternet(t *testing.T) {
	c := Classify(uaSamsungInternet, FeatureProbe{})
	if !c.IsSamsungInternet {
		t.Fatalf("expected Samsung Internet classification")
	}
	if c.BrowserMajorVersion != 27 {
		t.Errorf("expected major version 27, got %d", c.BrowserMajorVersion)
	}
	if !c.IsNoisyAudioHost() {
		t.Errorf("Samsung Internet 26+ should be a noisy audio host")
	}
}

func TestClassifyFirefoxIsNeitherWebKitNorSafari(t *testing.T) {
	c := Classify(uaFirefoxDesktop, FeatureProbe{})
	if c.IsWebKit || c.IsSafari {
		t.Fatalf("Firefox must not classify as WebKit/Safari: %+v", c)
	}
	if c.BrowserMajorVersion != 124 {
		t.Errorf("expected major version 124, got %d", c.BrowserMajorVersion)
	}
}

func TestClassifyNeverPanicsOnGarbageUA(t *testing.T) {
	inputs := []string{"", "not a user agent", "AppleWebKit/", "Version/ Safari"}
	for _, ua := range inputs {
		c := Classify(ua, FeatureProbe{})
		if c.BrowserMajorVersion < 0 {
			t.Errorf("unexpected negative version for input %q", ua)
		}
	}
}
