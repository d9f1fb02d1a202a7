// Package browser drives a headless Chrome for sites that only work with script enabled.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/williampepple1/salvage-yard-monitor/internal/config"
)

// ErrNotFound is returned when a selector matches nothing
var ErrNotFound = errors.New("element not found")

// Driver is the narrow browser surface the car-part adapter needs
type Driver interface {
	Navigate(ctx context.Context, url string) error
	SelectByValue(ctx context.Context, sel, value string) error
	// SelectByText picks the first option whose text contains contains (case-insensitive)
	SelectByText(ctx context.Context, sel, contains string) (bool, error)
	SetValue(ctx context.Context, sel, value string) error
	Click(ctx context.Context, sel string) error
	ClickNth(ctx context.Context, sel string, n int) error
	Exists(ctx context.Context, sel string) bool
	// TakeAlert waits up to wait for a dialog and returns its message. The dialog is accepted.
	TakeAlert(ctx context.Context, wait time.Duration) (string, bool)
	HTML(ctx context.Context) (string, error)
	URL(ctx context.Context) string
	Close() error
}

// Session is a Driver backed by a single long-lived chromedp browser
type Session struct {
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc

	timeout time.Duration
	settle  time.Duration
	alerts  chan string
	logger  *slog.Logger

	closeOnce sync.Once
}

// Open starts a browser. The caller must Close it.
func Open(ctx context.Context, cfg config.BrowserConfig, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Configure browser options
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	s := &Session{
		browserCtx:    browserCtx,
		cancelAlloc:   cancelAlloc,
		cancelBrowser: cancelBrowser,
		timeout:       cfg.WaitTime,
		settle:        1500 * time.Millisecond,
		alerts:        make(chan string, 4),
		logger:        logger,
	}
	if s.timeout <= 0 {
		s.timeout = 10 * time.Second
	}

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			select {
			case s.alerts <- e.Message:
			default:
			}
			// Listener callbacks must not block on the browser
			go func() {
				if err := chromedp.Run(browserCtx, page.HandleJavaScriptDialog(true)); err != nil {
					logger.Debug("accept dialog", "error", err)
				}
			}()
		}
	})

	// Launch the browser now so start-up failures surface here
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return s, nil
}

// run executes actions bounded by the session timeout and ctx
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.browserCtx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *Session) eval(ctx context.Context, script string, out interface{}) error {
	return s.run(ctx, chromedp.Evaluate(script, out))
}

func quote(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// Navigate loads url and waits for the body
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// SelectByValue sets a select's value and fires its change handler
func (s *Session) SelectByValue(ctx context.Context, sel, value string) error {
	script := fmt.Sprintf(`(function(){
		var el = document.querySelector(%s);
		if (!el) return false;
		el.value = %s;
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`, quote(sel), quote(value))
	var ok bool
	if err := s.eval(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", sel, ErrNotFound)
	}
	return s.pause(ctx)
}

// SelectByText selects the first option containing text
func (s *Session) SelectByText(ctx context.Context, sel, contains string) (bool, error) {
	script := fmt.Sprintf(`(function(){
		var el = document.querySelector(%s);
		if (!el) return false;
		var want = %s.toLowerCase();
		for (var i = 0; i < el.options.length; i++) {
			if (el.options[i].text.toLowerCase().indexOf(want) >= 0) {
				el.selectedIndex = i;
				el.dispatchEvent(new Event('change', {bubbles: true}));
				return true;
			}
		}
		return false;
	})()`, quote(sel), quote(contains))
	var ok bool
	if err := s.eval(ctx, script, &ok); err != nil {
		return false, err
	}
	if ok {
		return true, s.pause(ctx)
	}
	return false, nil
}

// SetValue replaces the value of a text input
func (s *Session) SetValue(ctx context.Context, sel, value string) error {
	return s.run(ctx, chromedp.SetValue(sel, value, chromedp.ByQuery))
}

// Click clicks the first match and lets the next page settle
func (s *Session) Click(ctx context.Context, sel string) error {
	if err := s.run(ctx, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return err
	}
	return s.pause(ctx)
}

// ClickNth clicks the n-th (0-based) match
func (s *Session) ClickNth(ctx context.Context, sel string, n int) error {
	script := fmt.Sprintf(`(function(){
		var els = document.querySelectorAll(%s);
		if (els.length <= %d) return false;
		els[%d].click();
		return true;
	})()`, quote(sel), n, n)
	var ok bool
	if err := s.eval(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s[%d]: %w", sel, n, ErrNotFound)
	}
	return s.pause(ctx)
}

// Exists reports whether sel matches anything on the current page
func (s *Session) Exists(ctx context.Context, sel string) bool {
	var ok bool
	script := fmt.Sprintf(`document.querySelector(%s) !== null`, quote(sel))
	return s.eval(ctx, script, &ok) == nil && ok
}

// TakeAlert waits for a dialog opened since the last call
func (s *Session) TakeAlert(ctx context.Context, wait time.Duration) (string, bool) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case msg := <-s.alerts:
		return msg, true
	case <-timer.C:
		return "", false
	case <-ctx.Done():
		return "", false
	}
}

// HTML returns the current document's markup
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// URL returns the current location, or "" if it cannot be read
func (s *Session) URL(ctx context.Context) string {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return ""
	}
	return loc
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancelBrowser()
		s.cancelAlloc()
	})
	return nil
}

func (s *Session) pause(ctx context.Context) error {
	timer := time.NewTimer(s.settle)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
