// Package session owns the live Chrome session: launch flags, consent
// walls, navigation pacing, scrolling and snapshots. It hands raw HTML
// to the extract package and never parses anything itself.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/rs/zerolog"

	"github.com/map-harvest/harvest/internal/ratelimit"
	"github.com/map-harvest/harvest/internal/retry"
)

// Options configures a browser session.
type Options struct {
	Headless   bool
	UserAgent  string
	Proxy      string
	ChromePath string
	DebugDir   string

	// NavTimeout bounds a single navigation including its settle wait.
	NavTimeout time.Duration
	// MaxScrolls caps the results-feed scroll loop.
	MaxScrolls int
	// RateRPS and RateBurst tune the per-host navigation limiter.
	RateRPS   float64
	RateBurst int

	// Stopped reports whether the run has been asked to halt. Polled
	// inside long waits. Never nil after Launch.
	Stopped func() bool
}

const (
	defaultNavTimeout = 60 * time.Second
	defaultMaxScrolls = 25
	defaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Session is one headless Chrome instance. Not safe for concurrent use;
// the engine drives it from a single goroutine.
type Session struct {
	opts    Options
	ctx     context.Context
	cancels []context.CancelFunc
	limiter ratelimit.RateLimiter
	retry   retry.Config
	log     zerolog.Logger
}

// Launch starts Chrome with a hardened flag set and a Turkish locale so
// the page renders the selectors and labels extraction expects.
func Launch(ctx context.Context, opts Options, log zerolog.Logger) (*Session, error) {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = defaultNavTimeout
	}
	if opts.MaxScrolls <= 0 {
		opts.MaxScrolls = defaultMaxScrolls
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Stopped == nil {
		opts.Stopped = func() bool { return false }
	}
	if opts.RateRPS <= 0 {
		opts.RateRPS = 0.5
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 2
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-client-side-phishing-detection", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-ipc-flooding-protection", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("force-color-profile", "srgb"),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("window-size", "1920,1080"),
		chromedp.Flag("lang", "tr-TR"),
		chromedp.Flag("accept-lang", "tr-TR,tr"),
		chromedp.UserAgent(opts.UserAgent),
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	}

	chromePath := opts.ChromePath
	if chromePath == "" {
		chromePath = FindChrome()
	}
	if chromePath != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(chromePath)}, allocOpts...)
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		opts:    opts,
		ctx:     browserCtx,
		cancels: []context.CancelFunc{browserCancel, allocCancel},
		limiter: ratelimit.NewDomainLimiter(opts.RateRPS, opts.RateBurst),
		retry:   retry.DefaultConfig(),
		log:     log.With().Str("component", "session").Logger(),
	}

	// Start the browser and pin the timezone to match the locale.
	err := chromedp.Run(browserCtx,
		emulation.SetTimezoneOverride("Europe/Istanbul"),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	s.log.Info().Bool("headless", opts.Headless).Str("chrome", chromePath).Msg("browser session started")
	return s, nil
}

// Close shuts the browser down. Safe to call more than once.
func (s *Session) Close() error {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	return nil
}

// navigate paces, retries and settles a navigation, then clears any
// consent wall that got in the way.
func (s *Session) navigate(ctx context.Context, url string, settle time.Duration) error {
	if err := s.limiter.Wait(ctx, url); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	return retry.WithRetry(ctx, s.retry, func() error {
		if s.opts.Stopped() {
			return retry.Permanent(context.Canceled)
		}
		runCtx, cancel := context.WithTimeout(s.ctx, s.opts.NavTimeout)
		defer cancel()

		if err := chromedp.Run(runCtx,
			chromedp.Navigate(url),
			chromedp.Sleep(settle),
		); err != nil {
			return fmt.Errorf("navigate %s: %w", url, err)
		}
		return s.acceptConsent()
	})
}

// snapshot returns the page's full outer HTML.
func (s *Session) snapshot() (string, error) {
	runCtx, cancel := context.WithTimeout(s.ctx, s.opts.NavTimeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("capture page: %w", err)
	}
	return html, nil
}

// location returns the page's current URL.
func (s *Session) location() (string, error) {
	runCtx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	var url string
	if err := chromedp.Run(runCtx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// clickIfPresent clicks the first match via JS and reports whether
// anything matched. Missing elements are not an error; half the detail
// page is optional.
func (s *Session) clickIfPresent(selector string) bool {
	runCtx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.click();
		return true;
	})()`, selector)

	var clicked bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &clicked)); err != nil {
		s.log.Debug().Err(err).Str("selector", selector).Msg("click failed")
		return false
	}
	return clicked
}

// sendEscape dismisses an overlay.
func (s *Session) sendEscape() {
	runCtx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	_ = chromedp.Run(runCtx, chromedp.KeyEvent(kb.Escape))
}

// pause sleeps unless the run is stopped first.
func (s *Session) pause(d time.Duration) bool {
	const tick = 100 * time.Millisecond
	for waited := time.Duration(0); waited < d; waited += tick {
		if s.opts.Stopped() {
			return false
		}
		step := tick
		if remaining := d - waited; remaining < tick {
			step = remaining
		}
		time.Sleep(step)
	}
	return !s.opts.Stopped()
}

// CaptureDebugShot writes a full-page screenshot into the debug
// directory. A session without a debug directory ignores the call.
func (s *Session) CaptureDebugShot(_ context.Context, name string) error {
	if s.opts.DebugDir == "" {
		return nil
	}
	runCtx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
	defer cancel()

	var png []byte
	if err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&png)); err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}

	if err := os.MkdirAll(s.opts.DebugDir, 0o755); err != nil {
		return fmt.Errorf("debug dir: %w", err)
	}
	file := filepath.Join(s.opts.DebugDir, fmt.Sprintf("%s-%s.png", name, time.Now().Format("20060102-150405")))
	if err := os.WriteFile(file, png, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	s.log.Debug().Str("file", file).Msg("debug screenshot saved")
	return nil
}
