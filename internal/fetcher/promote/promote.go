package promote

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/theresaanna/san-x-monitor/internal/monitor"
)

// Fetcher tries the static fetcher first and promotes to the renderer
// when the heuristic flags the page.
type Fetcher struct {
	static    monitor.Fetcher
	renderer  monitor.Fetcher
	heuristic *Heuristic
	logger    *zap.Logger
}

// New builds a promoting fetcher.
func New(static, renderer monitor.Fetcher, heuristic *Heuristic, logger *zap.Logger) *Fetcher {
	if heuristic == nil {
		heuristic = NewHeuristic(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{static: static, renderer: renderer, heuristic: heuristic, logger: logger}
}

// Fetch implements monitor.Fetcher. Static failures are returned as-is. Once
// a page is promoted, a failed render fails the fetch: the static shell is
// never fingerprinted in place of the rendered page.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (monitor.Page, error) {
	page, err := f.static.Fetch(ctx, rawURL)
	if err != nil {
		return monitor.Page{}, err
	}
	if f.renderer == nil || !f.heuristic.ShouldPromote(page) {
		return page, nil
	}

	f.logger.Info("promoting fetch to headless renderer", zap.String("url", rawURL))
	rendered, err := f.renderer.Fetch(ctx, rawURL)
	if err != nil {
		f.logger.Warn("headless render failed", zap.String("url", rawURL), zap.Error(err))
		return monitor.Page{}, renderError(rawURL, err)
	}
	rendered.Duration += page.Duration
	return rendered, nil
}

func renderError(rawURL string, err error) error {
	var (
		transportErr *monitor.TransportError
		statusErr    *monitor.HTTPStatusError
	)
	if errors.As(err, &transportErr) || errors.As(err, &statusErr) {
		return err
	}
	return &monitor.TransportError{Op: "render", URL: rawURL, Err: err}
}
