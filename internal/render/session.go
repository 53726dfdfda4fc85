package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"signagerec/internal/config"
	"signagerec/internal/logging"
)

// hideChromeScript removes everything that would betray a browser in the recording.
const hideChromeScript = `(() => {
  const style = document.createElement('style');
  style.textContent = 'html, body { overflow: hidden !important; } ' +
    '::-webkit-scrollbar { display: none !important; } ' +
    '* { cursor: none !important; }';
  (document.head || document.documentElement).appendChild(style);
  return true;
})()`

// Options configures a Chrome render session.
type Options struct {
	Display           string
	Width             int
	Height            int
	ExecPath          string
	ExtraFlags        []string
	LaunchTimeout     time.Duration
	NavigationTimeout time.Duration
	DurationWait      time.Duration
	DurationSelector  string
	CacheBustParam    string
}

// OptionsFromConfig maps configuration onto session options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Display:           cfg.Display.ID,
		Width:             cfg.Display.Width,
		Height:            cfg.Display.Height,
		ExecPath:          cfg.Browser.ExecPath,
		ExtraFlags:        append([]string(nil), cfg.Browser.ExtraFlags...),
		LaunchTimeout:     cfg.LaunchTimeout(),
		NavigationTimeout: cfg.NavigationTimeout(),
		DurationWait:      cfg.DurationWait(),
		DurationSelector:  cfg.Content.DurationSelector,
		CacheBustParam:    cfg.Content.CacheBustParam,
	}
}

// Page is one open render session.
type Page interface {
	// Load navigates to base with a cache-busting parameter and returns the URL loaded.
	Load(ctx context.Context, base string) (string, error)
	ReadDuration(ctx context.Context) (int, error)
	Close() error
}

// Launcher opens render sessions.
type Launcher interface {
	Open(ctx context.Context) (Page, error)
}

// Chrome launches sessions backed by a local Chrome or Chromium.
type Chrome struct {
	opts   Options
	logger *slog.Logger
}

// NewChrome returns a launcher using opts.
func NewChrome(opts Options, logger *slog.Logger) *Chrome {
	return &Chrome{opts: opts, logger: logging.NewComponentLogger(logger, "render")}
}

// Session is a single Chrome tab owned by one capture attempt.
type Session struct {
	opts   Options
	logger *slog.Logger

	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	idle        *idleWatcher

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// Open launches Chrome, prepares the tab and returns the session. Launch is
// bounded by Options.LaunchTimeout.
func (c *Chrome) Open(ctx context.Context) (Page, error) {
	logger := logging.WithContext(ctx, c.logger)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(c.opts)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug("chrome protocol error", logging.String("detail", fmt.Sprintf(format, args...)))
		}),
	)

	session := &Session{
		opts:        c.opts,
		logger:      logger,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		idle:        newIdleWatcher(),
		closed:      make(chan struct{}),
	}
	session.listen()

	logger.Info("launching browser",
		logging.String("display", c.opts.Display),
		logging.Int("width", c.opts.Width),
		logging.Int("height", c.opts.Height),
	)

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(tabCtx, session.prepare()...)
	}()

	var timeout <-chan time.Time
	if c.opts.LaunchTimeout > 0 {
		timer := time.NewTimer(c.opts.LaunchTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-done:
		if err != nil {
			_ = session.Close()
			if ctx.Err() != nil {
				return nil, fmt.Errorf("launch browser: %w", ctx.Err())
			}
			return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
		}
	case <-timeout:
		_ = session.Close()
		return nil, fmt.Errorf("%w after %s", ErrLaunchTimeout, c.opts.LaunchTimeout)
	case <-ctx.Done():
		_ = session.Close()
		return nil, fmt.Errorf("launch browser: %w", ctx.Err())
	}

	logger.Debug("browser ready")
	return session, nil
}

// prepare disables caching, clears state and turns on interception and
// lifecycle events before any navigation.
func (s *Session) prepare() []chromedp.Action {
	return []chromedp.Action{
		chromedp.EmulateViewport(int64(s.opts.Width), int64(s.opts.Height)),
		network.Enable(),
		network.SetCacheDisabled(true),
		network.SetExtraHTTPHeaders(extraHeaders()),
		network.ClearBrowserCache(),
		network.ClearBrowserCookies(),
		page.SetLifecycleEventsEnabled(true),
		fetch.Enable(),
	}
}

func (s *Session) listen() {
	chromedp.ListenTarget(s.tabCtx, func(ev any) {
		switch e := ev.(type) {
		case *fetch.EventRequestPaused:
			var headers network.Headers
			if e.Request != nil {
				headers = e.Request.Headers
			}
			entries := mergeNoCache(headers)
			requestID := e.RequestID
			// Handlers run on the event loop; commands must be issued elsewhere.
			go func() {
				c := chromedp.FromContext(s.tabCtx)
				if c == nil || c.Target == nil {
					return
				}
				executor := cdp.WithExecutor(s.tabCtx, c.Target)
				if err := fetch.ContinueRequest(requestID).WithHeaders(entries).Do(executor); err != nil && s.tabCtx.Err() == nil {
					s.logger.Debug("continue intercepted request failed", logging.Error(err))
				}
			}()
		case *page.EventLifecycleEvent:
			s.idle.observe(string(e.FrameID), string(e.LoaderID), e.Name)
		}
	})
}

// Load navigates to base plus a cache-busting parameter, waits for network
// idle, then hides scrollbars and the cursor.
func (s *Session) Load(ctx context.Context, base string) (string, error) {
	if s.isClosed() {
		return "", ErrClosed
	}
	target, err := BuildURL(base, s.opts.CacheBustParam, time.Now())
	if err != nil {
		return "", err
	}

	navCtx, cancel := s.boundedContext(ctx, s.opts.NavigationTimeout)
	defer cancel()

	s.logger.Info("navigating", logging.String("url", target))
	idle := s.idle.arm()
	started := time.Now()
	if err := chromedp.Run(navCtx, chromedp.Navigate(target)); err != nil {
		return target, s.navigationError(ctx, navCtx, err)
	}

	select {
	case <-idle:
	case <-navCtx.Done():
		return target, s.navigationError(ctx, navCtx, navCtx.Err())
	}

	var injected bool
	if err := chromedp.Run(navCtx, chromedp.Evaluate(hideChromeScript, &injected)); err != nil {
		return target, s.navigationError(ctx, navCtx, fmt.Errorf("inject style overrides: %w", err))
	}

	s.logger.Info("page settled", logging.Duration("elapsed", time.Since(started)))
	return target, nil
}

// ReadDuration waits up to Options.DurationWait for the duration field and
// returns its integer value.
func (s *Session) ReadDuration(ctx context.Context) (int, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}
	selector := strings.TrimSpace(s.opts.DurationSelector)
	waitCtx, cancel := s.boundedContext(ctx, s.opts.DurationWait)
	defer cancel()

	var raw string
	err := chromedp.Run(waitCtx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Value(selector, &raw, chromedp.ByQuery),
	)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return 0, fmt.Errorf("read duration: %w", ctx.Err())
		case errors.Is(waitCtx.Err(), context.DeadlineExceeded):
			return 0, fmt.Errorf("%w: %s within %s", ErrDurationFieldTimeout, selector, s.opts.DurationWait)
		default:
			return 0, fmt.Errorf("read duration: %w", err)
		}
	}

	seconds, err := ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	s.logger.Info("duration read", logging.Int("seconds", seconds))
	return seconds, nil
}

// Close tears down the tab and the browser. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		if err := chromedp.Cancel(s.tabCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("close browser: %w", err)
		}
		s.tabCancel()
		s.allocCancel()
	})
	return s.closeErr
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// boundedContext derives from the tab so chromedp keeps its browser, adds an
// optional deadline and follows cancellation of the caller's ctx.
func (s *Session) boundedContext(ctx context.Context, limit time.Duration) (context.Context, context.CancelFunc) {
	var bounded context.Context
	var cancel context.CancelFunc
	if limit > 0 {
		bounded, cancel = context.WithTimeout(s.tabCtx, limit)
	} else {
		bounded, cancel = context.WithCancel(s.tabCtx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return bounded, func() {
		stop()
		cancel()
	}
}

func (s *Session) navigationError(ctx, navCtx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("navigate: %w", ctx.Err())
	case errors.Is(navCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %s", ErrNavigationTimeout, s.opts.NavigationTimeout)
	default:
		return fmt.Errorf("%w: %w", ErrNavigation, err)
	}
}
