package adapters

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/williampepple1/salvage-yard-monitor/internal/browser"
	"github.com/williampepple1/salvage-yard-monitor/internal/config"
	"github.com/williampepple1/salvage-yard-monitor/internal/fetch"
)

// Deps are the collaborators handed to every adapter
type Deps struct {
	Fetcher fetch.Fetcher
	Logger  *slog.Logger
	Target  Target
	// OpenDriver starts a browser for the car-part adapter. Nil uses a chromedp session.
	OpenDriver func(ctx context.Context) (browser.Driver, error)
}

// Registry holds the adapters in their fixed registration order
type Registry struct {
	order    []string
	adapters map[string]Adapter
	// owned is what New created and Close releases
	owned []io.Closer
}

// New creates the registry of every supported site. The car-part adapter drives a
// browser when cfg.Browser.Enabled is set and falls back to plain form posts otherwise.
func New(cfg *config.AppConfig, deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Target == (Target{}) {
		deps.Target = TargetFromConfig(cfg.Search)
	}
	if deps.OpenDriver == nil {
		browserCfg, logger := cfg.Browser, deps.Logger
		deps.OpenDriver = func(ctx context.Context) (browser.Driver, error) {
			return browser.Open(ctx, browserCfg, logger)
		}
	}

	r := &Registry{adapters: make(map[string]Adapter)}
	// own gives each adapter its own client, pool and limiter unless a fetcher was injected
	own := func() Deps {
		d := deps
		if d.Fetcher == nil {
			client := fetch.New(fetch.OptionsFromConfig(cfg, deps.Logger))
			r.owned = append(r.owned, client)
			d.Fetcher = client
		}
		return d
	}

	r.add(NewRow52(own()))
	r.add(NewFenix(own()))
	r.add(NewUWrenchIt(own()))
	r.add(NewKennyUPull(own()))
	r.add(NewUPullPay(own()))
	r.add(NewUPullM(own()))
	r.add(NewWilberts(own()))
	r.add(NewLKQ(own(), cfg.Sites))
	r.add(NewNVPAP(own()))
	r.add(NewPullNSave(own()))
	if cfg.Browser.Enabled {
		r.add(NewCarPart(own(), cfg.Browser))
	} else {
		r.add(NewCarPartHTTP(own(), cfg.Sites))
	}
	return r
}

// NewFrom builds a registry from ready-made adapters, keeping their order
func NewFrom(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range adapters {
		r.add(a)
	}
	return r
}

func (r *Registry) add(a Adapter) {
	if _, dup := r.adapters[a.Name()]; !dup {
		r.order = append(r.order, a.Name())
	}
	r.adapters[a.Name()] = a
}

// Names returns the registry keys in order
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns the adapter registered under name
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// All returns the adapters in order
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.adapters[name])
	}
	return out
}

// Close releases the collaborators New created
func (r *Registry) Close() error {
	var errs []error
	for _, c := range r.owned {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.owned = nil
	return errors.Join(errs...)
}
