// Package collyfetcher implements the existence probe and page fetcher
// using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/theresaanna/san-x-monitor/internal/monitor"
)

// DefaultUserAgent identifies as a desktop browser to pass basic bot filters.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	// ProbeTimeout bounds existence checks. Default: 10s.
	ProbeTimeout time.Duration
	// FetchTimeout bounds content fetches. Default: 30s.
	FetchTimeout time.Duration
	// MaxBodyBytes caps response bodies. 0 means colly's default (unlimited).
	MaxBodyBytes int
}

func (c *Config) defaults() {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 10 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
}

// Fetcher implements monitor.Prober and monitor.Fetcher. Probe and fetch
// use separate base collectors because timeouts and redirect policy live on
// the HTTP backend that clones share.
type Fetcher struct {
	cfg       Config
	probeBase *colly.Collector
	fetchBase *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	cfg.defaults()

	probe := newCollector(cfg)
	probe.SetRequestTimeout(cfg.ProbeTimeout)
	probe.SetRedirectHandler(func(_ *http.Request, _ []*http.Request) error {
		return http.ErrUseLastResponse
	})

	fetch := newCollector(cfg)
	fetch.SetRequestTimeout(cfg.FetchTimeout)

	return &Fetcher{
		cfg:       cfg,
		probeBase: probe,
		fetchBase: fetch,
	}
}

func newCollector(cfg Config) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.Async(false),
	)
	// The probe and the fetch hit the same URL within one run.
	c.AllowURLRevisit = true
	// Statuses are judged here, not by colly.
	c.ParseHTTPErrorResponse = true
	c.DetectCharset = true
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	if cfg.MaxBodyBytes > 0 {
		c.MaxBodySize = cfg.MaxBodyBytes
	}
	c.WithTransport(newHTTPTransport())
	return c
}

// Exists issues a HEAD request without following redirects. Only a 2xx
// answer counts as present.
func (f *Fetcher) Exists(ctx context.Context, rawURL string) (bool, error) {
	collector := f.probeBase.Clone()

	var (
		status   int
		fetchErr error
	)
	f.configureHooks(collector, "probe", rawURL, &status, nil, &fetchErr)

	if err := run(ctx, func() error { return collector.Head(rawURL) }); err != nil && fetchErr == nil {
		fetchErr = classify("probe", rawURL, status, err)
	}
	if fetchErr != nil {
		return false, fetchErr
	}
	if !isSuccess(status) {
		return false, &monitor.HTTPStatusError{Op: "probe", URL: rawURL, StatusCode: status}
	}
	return true, nil
}

// Fetch executes a single HTTP GET and returns the decoded body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (monitor.Page, error) {
	collector := f.fetchBase.Clone()

	var (
		status   int
		body     []byte
		fetchErr error
	)
	start := time.Now()
	f.configureHooks(collector, "fetch", rawURL, &status, &body, &fetchErr)

	if err := run(ctx, func() error { return collector.Visit(rawURL) }); err != nil && fetchErr == nil {
		fetchErr = classify("fetch", rawURL, status, err)
	}
	if fetchErr != nil {
		return monitor.Page{}, fetchErr
	}
	if !isSuccess(status) {
		return monitor.Page{}, &monitor.HTTPStatusError{Op: "fetch", URL: rawURL, StatusCode: status}
	}
	return monitor.Page{
		URL:        rawURL,
		StatusCode: status,
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}

func (f *Fetcher) configureHooks(
	hooks collectorHooks,
	op string,
	rawURL string,
	status *int,
	body *[]byte,
	fetchErr *error,
) {
	hooks.OnResponse(func(r *colly.Response) {
		*status = r.StatusCode
		if body != nil {
			*body = append([]byte(nil), r.Body...)
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		code := 0
		if r != nil {
			code = r.StatusCode
		}
		*status = code
		*fetchErr = classify(op, rawURL, code, err)
	})
}

// run executes a blocking collector call, honouring ctx cancellation.
func run(ctx context.Context, visit func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- visit()
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly request canceled: %w", ctx.Err())
	case err := <-done:
		return err
	}
}

// classify maps collector failures onto the monitor error taxonomy: a
// received status becomes HTTPStatusError, everything else TransportError.
func classify(op, rawURL string, status int, err error) error {
	if status > 0 && !isSuccess(status) {
		return &monitor.HTTPStatusError{Op: op, URL: rawURL, StatusCode: status}
	}
	var statusErr *monitor.HTTPStatusError
	var transportErr *monitor.TransportError
	if errors.As(err, &statusErr) || errors.As(err, &transportErr) {
		return err
	}
	return &monitor.TransportError{Op: op, URL: rawURL, Err: err}
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}
