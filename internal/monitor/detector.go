package monitor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/theresaanna/san-x-monitor/internal/metrics"
)

// DetectorConfig holds presentation settings for notifications.
type DetectorConfig struct {
	// SiteName is the retailer name used in notification subjects.
	SiteName string
}

// Detector runs one check: resolve, fingerprint, compare, notify, persist.
type Detector struct {
	cfg           DetectorConfig
	resolver      *Resolver
	prober        Prober
	fingerprinter *ContentFingerprinter
	store         StateStore
	notifier      Notifier
	clock         Clock
	ids           IDGenerator
	logger        *zap.Logger
}

// NewDetector constructs a Detector. notifier may be nil, in which case
// notifications are logged and skipped.
func NewDetector(
	cfg DetectorConfig,
	resolver *Resolver,
	prober Prober,
	fingerprinter *ContentFingerprinter,
	store StateStore,
	notifier Notifier,
	clock Clock,
	ids IDGenerator,
	logger *zap.Logger,
) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "San-X"
	}
	metrics.Init()
	return &Detector{
		cfg:           cfg,
		resolver:      resolver,
		prober:        prober,
		fingerprinter: fingerprinter,
		store:         store,
		notifier:      notifier,
		clock:         clock,
		ids:           ids,
		logger:        logger,
	}
}

// Classify applies the change-detection precedence to a successful fetch.
// prev is nil when no usable state exists.
func Classify(prev *State, url string, fp Fingerprint) Status {
	switch {
	case prev == nil:
		return StatusFirstRun
	case prev.URL != url:
		return StatusPeriodRollover
	case prev.Fingerprint != fp:
		return StatusContentChanged
	default:
		return StatusNoChange
	}
}

// Run performs one full check cycle. It never returns an error: failures
// are logged and reflected in the Outcome.
func (d *Detector) Run(ctx context.Context) Outcome {
	runID := d.newRunID()
	log := d.logger.With(zap.String("run_id", runID))
	now := d.clock.Now()

	target := d.resolve(ctx, now, log)
	out := Outcome{RunID: runID, Target: target}
	log.Info("checking releases page",
		zap.String("period", target.Label),
		zap.String("url", target.URL),
		zap.Time("at", now),
	)

	snap, err := d.fingerprinter.Fingerprint(ctx, target.URL)
	metrics.ObserveFetch(target.URL, fetchStatus(err), snap.FetchedIn)
	if err != nil {
		out.Status = StatusFetchFailed
		out.Err = err
		log.Error("failed to fetch page content; state left untouched",
			zap.String("url", target.URL),
			zap.String("cause", errorKind(err)),
			zap.Error(err),
		)
		metrics.ObserveRun(string(out.Status))
		return out
	}
	out.Fingerprint = snap.Fingerprint

	prev := d.loadState(ctx, log)
	out.Previous = prev
	fields := []zap.Field{
		zap.String("current_hash", string(snap.Fingerprint)),
		zap.String("current_url", target.URL),
		zap.String("strategy", snap.Strategy),
	}
	if prev != nil {
		fields = append(fields,
			zap.String("previous_hash", string(prev.Fingerprint)),
			zap.String("previous_url", prev.URL),
		)
	}
	log.Info("page fingerprinted", fields...)

	out.Status = Classify(prev, target.URL, snap.Fingerprint)
	switch out.Status {
	case StatusFirstRun:
		log.Info("first run; storing initial fingerprint")
	case StatusPeriodRollover:
		log.Info("monitored page switched",
			zap.String("from", prev.Period),
			zap.String("to", target.Label),
		)
	case StatusContentChanged:
		log.Info("content has changed")
	default:
		log.Info("no changes detected")
	}

	if out.Status.ShouldNotify() {
		out.Notified, out.NotifyErr = d.notify(ctx, out.Status, target, runID, now, log)
	}

	next := State{
		Fingerprint: snap.Fingerprint,
		URL:         target.URL,
		Period:      target.Label,
		LastCheck:   now,
	}
	if err := d.store.Save(ctx, next); err != nil {
		out.SaveErr = err
		metrics.ObserveStateError("save")
		log.Error("failed to save state", zap.Error(err))
	}

	metrics.ObserveRun(string(out.Status))
	log.Info("check completed", zap.String("status", string(out.Status)), zap.Bool("notified", out.Notified))
	return out
}

func (d *Detector) resolve(ctx context.Context, now time.Time, log *zap.Logger) Target {
	exists := d.existsFunc(log)
	target := d.resolver.CurrentTarget(now)
	if exists(ctx, target.URL) {
		return target
	}
	log.Info("current period page unavailable; trying fallback", zap.String("period", target.Label))
	fallback := d.resolver.FallbackTarget(ctx, now, exists)
	log.Info("using fallback target",
		zap.String("period", fallback.Label),
		zap.String("url", fallback.URL),
		zap.Bool("generic", fallback.Generic),
	)
	return fallback
}

func (d *Detector) existsFunc(log *zap.Logger) ExistsFunc {
	return func(ctx context.Context, rawURL string) bool {
		ok, err := d.prober.Exists(ctx, rawURL)
		var statusErr *HTTPStatusError
		switch {
		case err == nil && ok:
			metrics.ObserveProbe("found")
			return true
		case errors.As(err, &statusErr):
			metrics.ObserveProbe("absent")
			log.Debug("page absent", zap.String("url", rawURL), zap.Int("status", statusErr.StatusCode))
		case err != nil:
			metrics.ObserveProbe("error")
			log.Warn("existence check failed", zap.String("url", rawURL), zap.Error(err))
		default:
			metrics.ObserveProbe("absent")
		}
		return false
	}
}

func (d *Detector) loadState(ctx context.Context, log *zap.Logger) *State {
	prev, err := d.store.Load(ctx)
	switch {
	case err == nil:
		return &prev
	case errors.Is(err, ErrNoState):
		return nil
	default:
		metrics.ObserveStateError("load")
		log.Warn("previous state unreadable; treating as first run", zap.Error(err))
		return nil
	}
}

func (d *Detector) notify(
	ctx context.Context,
	status Status,
	target Target,
	runID string,
	now time.Time,
	log *zap.Logger,
) (bool, error) {
	if d.notifier == nil {
		log.Warn("notification due but no channels configured")
		return false, nil
	}
	n := BuildNotification(d.cfg.SiteName, status, target, runID, now)
	if err := d.notifier.Notify(ctx, n); err != nil {
		log.Warn("notification delivery failed", zap.Error(err))
		return false, err
	}
	log.Info("notification sent", zap.String("subject", n.Subject))
	return true, nil
}

func (d *Detector) newRunID() string {
	if d.ids == nil {
		return ""
	}
	id, err := d.ids.NewID()
	if err != nil {
		d.logger.Warn("run id generation failed", zap.Error(err))
		return ""
	}
	return id
}

func fetchStatus(err error) string {
	if err == nil {
		return "ok"
	}
	return errorKind(err)
}

func errorKind(err error) string {
	var (
		transportErr *TransportError
		statusErr    *HTTPStatusError
		parseErr     *ParseError
	)
	switch {
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &statusErr):
		return "http_status"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.Is(err, ErrEmptyContent):
		return "empty"
	default:
		return "other"
	}
}
