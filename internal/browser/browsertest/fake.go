// Package browsertest provides a scripted browser.Driver for adapter tests.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/williampepple1/salvage-yard-monitor/internal/browser"
)

// Click describes the state of the fake page when something was clicked
type Click struct {
	Selector string
	// Count is the number of clicks since the last navigation, this one included
	Count    int
	Selected map[string]string
	Values   map[string]string
	HTML     string
}

// Fake is a browser held entirely in memory. Selectors are evaluated against the
// current markup with goquery, so pages only need the elements the flow touches.
type Fake struct {
	// Pages maps a navigated URL to its markup
	Pages map[string]string
	// OnClick returns the page a click leads to. Returning false keeps the current page.
	OnClick func(c Click) (string, bool)
	// Alerts are handed out one per TakeAlert call
	Alerts []string

	mu       sync.Mutex
	url      string
	html     string
	clicks   int
	selected map[string]string
	values   map[string]string
	actions  []string
	closed   int
}

var _ browser.Driver = (*Fake)(nil)

func (f *Fake) doc() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(f.html))
}

func (f *Fake) find(sel string) *goquery.Selection {
	doc, err := f.doc()
	if err != nil {
		return &goquery.Selection{}
	}
	return doc.Find(sel)
}

func (f *Fake) record(format string, args ...interface{}) {
	if f.selected == nil {
		f.selected = map[string]string{}
		f.values = map[string]string{}
	}
	f.actions = append(f.actions, fmt.Sprintf(format, args...))
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("navigate %s", url)
	html, ok := f.Pages[url]
	if !ok {
		return fmt.Errorf("navigate %s: no such page", url)
	}
	f.url, f.html, f.clicks = url, html, 0
	f.selected = map[string]string{}
	f.values = map[string]string{}
	return nil
}

func (f *Fake) SelectByValue(ctx context.Context, sel, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.find(sel).Length() == 0 {
		return fmt.Errorf("%s: %w", sel, browser.ErrNotFound)
	}
	f.record("select %s %s", sel, value)
	f.selected[sel] = value
	return nil
}

func (f *Fake) SelectByText(ctx context.Context, sel, contains string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := strings.ToLower(contains)
	var picked string
	found := false
	f.find(sel).First().Find("option").EachWithBreak(func(_ int, o *goquery.Selection) bool {
		if text := strings.TrimSpace(o.Text()); strings.Contains(strings.ToLower(text), want) {
			picked, found = text, true
		}
		return !found
	})
	if found {
		f.record("select %s %s", sel, picked)
		f.selected[sel] = picked
	}
	return found, nil
}

func (f *Fake) SetValue(ctx context.Context, sel, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.find(sel).Length() == 0 {
		return fmt.Errorf("%s: %w", sel, browser.ErrNotFound)
	}
	f.record("set %s %s", sel, value)
	f.values[sel] = value
	return nil
}

func (f *Fake) Click(ctx context.Context, sel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.find(sel).Length() == 0 {
		return fmt.Errorf("%s: %w", sel, browser.ErrNotFound)
	}
	f.clicks++
	f.record("click %s", sel)
	if f.OnClick == nil {
		return nil
	}
	next, ok := f.OnClick(Click{
		Selector: sel,
		Count:    f.clicks,
		Selected: copyMap(f.selected),
		Values:   copyMap(f.values),
		HTML:     f.html,
	})
	if ok {
		f.html = next
	}
	return nil
}

func (f *Fake) ClickNth(ctx context.Context, sel string, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.find(sel).Length() <= n {
		return fmt.Errorf("%s[%d]: %w", sel, n, browser.ErrNotFound)
	}
	f.record("click %s %d", sel, n)
	return nil
}

func (f *Fake) Exists(ctx context.Context, sel string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(sel).Length() > 0
}

func (f *Fake) TakeAlert(ctx context.Context, wait time.Duration) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Alerts) == 0 {
		return "", false
	}
	msg := f.Alerts[0]
	f.Alerts = f.Alerts[1:]
	f.record("alert %s", msg)
	return msg, true
}

func (f *Fake) HTML(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.html, nil
}

func (f *Fake) URL(ctx context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// Actions returns every recorded action in order
func (f *Fake) Actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.actions))
	copy(out, f.actions)
	return out
}

// Closed reports how many times Close was called
func (f *Fake) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
