// Package fetch is the HTTP collaborator used by site adapters.
//
// Failures never surface as errors: a network error or a non-2xx status is
// logged and reported as a nil *Response.
package fetch

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/williampepple1/salvage-yard-monitor/internal/config"
	"github.com/williampepple1/salvage-yard-monitor/internal/proxy"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("internal/fetch")

// Response is a successful fetch
type Response struct {
	StatusCode int
	Body       string
	URL        string
}

// Fetcher performs GET and form POST requests
type Fetcher interface {
	Get(ctx context.Context, rawURL string, query url.Values) *Response
	PostForm(ctx context.Context, rawURL string, form url.Values) *Response
}

// Options configures a Client
type Options struct {
	Timeout    time.Duration
	Retries    int
	RetryWait  time.Duration
	Interval   time.Duration
	UserAgents []string
	Proxy      *proxy.Manager
	Logger     *slog.Logger
}

// OptionsFromConfig builds Options from the scraper and proxy sections
func OptionsFromConfig(cfg *config.AppConfig, logger *slog.Logger) Options {
	return Options{
		Timeout:    cfg.Scraper.RequestTimeout,
		Retries:    cfg.Scraper.MaxRetries,
		RetryWait:  cfg.Scraper.RetryDelay,
		Interval:   cfg.Scraper.RateLimit,
		UserAgents: cfg.Scraper.UserAgents,
		Proxy:      proxy.NewManager(&cfg.Proxies, rand.NewSource(time.Now().UnixNano())),
		Logger:     logger,
	}
}

// Client is a resty-backed Fetcher with retries, user-agent rotation and a politeness limiter
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	agents  []string
	logger  *slog.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

// New creates a Client. Each adapter owns its own Client.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(4 * opts.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= http.StatusInternalServerError || r.StatusCode() == http.StatusTooManyRequests
		})
	if opts.Proxy.Enabled() {
		client.SetTransport(&http.Transport{Proxy: opts.Proxy.ProxyFunc()})
	}

	var limiter *rate.Limiter
	if opts.Interval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Interval), 1)
	}

	return &Client{
		http:    client,
		limiter: limiter,
		agents:  opts.UserAgents,
		logger:  logger,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Get fetches rawURL with optional query parameters
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) *Response {
	return c.do(ctx, http.MethodGet, rawURL, func(r *resty.Request) {
		if len(query) > 0 {
			r.SetQueryParamsFromValues(query)
		}
	})
}

// PostForm submits form as application/x-www-form-urlencoded
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values) *Response {
	return c.do(ctx, http.MethodPost, rawURL, func(r *resty.Request) {
		r.SetFormDataFromValues(form)
	})
}

// Close releases pooled connections
func (c *Client) Close() error {
	c.http.GetClient().CloseIdleConnections()
	return nil
}

func (c *Client) userAgent() string {
	if len(c.agents) == 0 {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agents[c.rand.Intn(len(c.agents))]
}

func (c *Client) do(ctx context.Context, method, rawURL string, prepare func(*resty.Request)) *Response {
	ctx, span := tracer.Start(ctx, "http "+method)
	defer span.End()
	span.SetAttributes(attribute.String("http.url", rawURL))

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.WarnContext(ctx, "request not sent", "method", method, "url", rawURL, "err", err)
			span.SetStatus(codes.Error, "rate limiter")
			return nil
		}
	}

	req := c.http.R().SetContext(ctx)
	if ua := c.userAgent(); ua != "" {
		req.SetHeader("User-Agent", ua)
	}
	prepare(req)

	res, err := req.Execute(method, rawURL)
	if err != nil {
		c.logger.ErrorContext(ctx, "request failed", "method", method, "url", rawURL, "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil
	}
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode()))

	if !res.IsSuccess() {
		c.logger.WarnContext(ctx, "non-2xx response", "method", method, "url", rawURL, "status", res.StatusCode())
		span.SetStatus(codes.Error, res.Status())
		return nil
	}

	finalURL := rawURL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalURL = res.RawResponse.Request.URL.String()
	}
	c.logger.InfoContext(ctx, "fetched", "method", method, "url", finalURL, "status", res.StatusCode(), "bytes", len(res.Body()))

	return &Response{
		StatusCode: res.StatusCode(),
		Body:       res.String(),
		URL:        finalURL,
	}
}
