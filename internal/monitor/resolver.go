package monitor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ExistsFunc reports whether a URL is reachable.
type ExistsFunc func(ctx context.Context, rawURL string) bool

// ResolverConfig describes where release pages live.
type ResolverConfig struct {
	// BaseURL is the storefront origin, e.g. "https://shop.san-x.co.jp".
	BaseURL string
	// FeaturePath prefixes the period label, e.g. "/feature/index/".
	FeaturePath string
	// GenericURL is used when no period page exists.
	GenericURL string
	// GenericLabel is the sentinel period label of GenericURL.
	GenericLabel string
}

// Resolver maps dates to monitor targets. It never performs I/O itself.
type Resolver struct {
	base         string
	featurePath  string
	genericURL   string
	genericLabel string
}

// NewResolver validates cfg and builds a Resolver.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if strings.TrimSpace(cfg.GenericURL) == "" {
		return nil, fmt.Errorf("generic url is required")
	}
	if strings.TrimSpace(cfg.GenericLabel) == "" {
		return nil, fmt.Errorf("generic label is required")
	}
	path := "/" + strings.Trim(cfg.FeaturePath, "/") + "/"
	if path == "//" {
		path = "/"
	}
	return &Resolver{
		base:         base,
		featurePath:  path,
		genericURL:   cfg.GenericURL,
		genericLabel: cfg.GenericLabel,
	}, nil
}

// TargetFor returns the target of a specific period.
func (r *Resolver) TargetFor(p Period) Target {
	label := p.String()
	return Target{
		Period: p,
		Label:  label,
		URL:    r.base + r.featurePath + label,
	}
}

// CurrentTarget returns the target for the month containing today.
func (r *Resolver) CurrentTarget(today time.Time) Target {
	return r.TargetFor(PeriodOf(today))
}

// GenericTarget returns the catch-all fallback target.
func (r *Resolver) GenericTarget() Target {
	return Target{
		Label:   r.genericLabel,
		URL:     r.genericURL,
		Generic: true,
	}
}

// FallbackTarget tries the previous month, then the next month, and
// finally returns the generic target. Previous wins when both exist.
func (r *Resolver) FallbackTarget(ctx context.Context, today time.Time, exists ExistsFunc) Target {
	current := PeriodOf(today)
	for _, p := range []Period{current.Prev(), current.Next()} {
		candidate := r.TargetFor(p)
		if exists != nil && exists(ctx, candidate.URL) {
			return candidate
		}
	}
	return r.GenericTarget()
}
