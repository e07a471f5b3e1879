// Package app wires configuration into the monitor's long-lived services,
// acting as a dependency injection container for a single check run.
package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/theresaanna/san-x-monitor/internal/clock/system"
	"github.com/theresaanna/san-x-monitor/internal/config"
	"github.com/theresaanna/san-x-monitor/internal/extract"
	collyfetcher "github.com/theresaanna/san-x-monitor/internal/fetcher/colly"
	"github.com/theresaanna/san-x-monitor/internal/fetcher/headless"
	"github.com/theresaanna/san-x-monitor/internal/fetcher/promote"
	"github.com/theresaanna/san-x-monitor/internal/hash/md5"
	"github.com/theresaanna/san-x-monitor/internal/id/uuid"
	"github.com/theresaanna/san-x-monitor/internal/monitor"
	"github.com/theresaanna/san-x-monitor/internal/notify"
	"github.com/theresaanna/san-x-monitor/internal/notify/email"
	notifypubsub "github.com/theresaanna/san-x-monitor/internal/notify/pubsub"
	"github.com/theresaanna/san-x-monitor/internal/state/gcs"
	"github.com/theresaanna/san-x-monitor/internal/state/local"
	"github.com/theresaanna/san-x-monitor/internal/state/memory"
	"github.com/theresaanna/san-x-monitor/internal/state/postgres"
)

// App holds the services built from configuration.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	detector *monitor.Detector
	store    monitor.StateStore
	notifier *notify.Multi
	closers  []func() error
}

// Store exposes the configured state backend.
func (a *App) Store() monitor.StateStore {
	return a.store
}

// Detector exposes the change detector.
func (a *App) Detector() *monitor.Detector {
	return a.detector
}

// New validates cfg and builds every service. It fails fast if a backend
// cannot be initialized; already-built services are closed on failure.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	clock, err := system.NewInZone(cfg.Monitor.Timezone)
	if err != nil {
		return nil, fmt.Errorf("monitor.timezone: %w", err)
	}

	resolver, err := monitor.NewResolver(monitor.ResolverConfig{
		BaseURL:      cfg.Monitor.BaseURL,
		FeaturePath:  cfg.Monitor.FeaturePath,
		GenericURL:   cfg.Monitor.GenericURL,
		GenericLabel: cfg.Monitor.GenericLabel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize resolver: %w", err)
	}

	prober := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.HTTP.UserAgent,
		RespectRobots: cfg.HTTP.RespectRobots,
		ProbeTimeout:  cfg.HTTP.ProbeTimeout,
		FetchTimeout:  cfg.HTTP.FetchTimeout,
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
	})

	fetcher, err := a.buildFetcher(prober)
	if err != nil {
		return nil, err
	}

	a.store, err = a.buildStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state store: %w", err)
	}

	a.notifier, err = a.buildNotifier(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notifications: %w", err)
	}
	// A typed nil must not reach the detector.
	var notifier monitor.Notifier
	if a.notifier.Len() > 0 {
		notifier = a.notifier
	} else {
		logger.Warn("no notification channels enabled; changes will only be logged")
	}

	fingerprinter := monitor.NewContentFingerprinter(fetcher, extract.New(cfg.Monitor.Selectors), md5.New())
	a.detector = monitor.NewDetector(
		monitor.DetectorConfig{SiteName: cfg.Monitor.Name},
		resolver,
		prober,
		fingerprinter,
		a.store,
		notifier,
		clock,
		uuid.New(),
		logger,
	)

	logger.Info("monitor initialized",
		zap.String("site", cfg.Monitor.Name),
		zap.String("renderer", cfg.HTTP.Renderer),
		zap.String("state_provider", cfg.State.Provider),
		zap.Int("notification_channels", a.notifier.Len()),
	)
	return a, nil
}

// Run performs one check cycle.
func (a *App) Run(ctx context.Context) monitor.Outcome {
	return a.detector.Run(ctx)
}

func (a *App) buildFetcher(static *collyfetcher.Fetcher) (monitor.Fetcher, error) {
	if a.cfg.HTTP.Renderer == config.RendererStatic {
		return static, nil
	}
	f, err := headless.NewChromedp(headless.Config{
		UserAgent:         a.cfg.HTTP.UserAgent,
		NavigationTimeout: a.cfg.Headless.NavigationTimeout,
		SettleDelay:       a.cfg.Headless.SettleDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize headless renderer: %w", err)
	}
	a.closers = append(a.closers, func() error {
		f.Close()
		return nil
	})
	if a.cfg.HTTP.Renderer == config.RendererAuto {
		return promote.New(static, f, promote.NewHeuristic(a.cfg.Headless.PromotionThreshold), a.logger), nil
	}
	return f, nil
}

func (a *App) buildStore(ctx context.Context) (monitor.StateStore, error) {
	cfg := a.cfg.State
	switch cfg.Provider {
	case config.ProviderLocal:
		store, err := local.New(local.Config{Path: cfg.Local.Path})
		if err != nil {
			return nil, err
		}
		a.logger.Info("using local state file", zap.String("path", store.Path()))
		return store, nil
	case config.ProviderGCS:
		a.logger.Info("using GCS state object",
			zap.String("bucket", cfg.GCS.Bucket),
			zap.String("object", cfg.GCS.Object),
		)
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return gcs.New(client, gcs.Config{Bucket: cfg.GCS.Bucket, Object: cfg.GCS.Object})
	case config.ProviderPostgres:
		a.logger.Info("connecting to PostgreSQL state table", zap.String("table", cfg.Postgres.Table))
		store, err := postgres.New(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			Table:           cfg.Postgres.Table,
			MaxConns:        cfg.Postgres.MaxConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		return store, nil
	case config.ProviderMemory:
		a.logger.Warn("using in-memory state; nothing survives this process")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown state provider: %s", cfg.Provider)
	}
}

func (a *App) buildNotifier(ctx context.Context) (*notify.Multi, error) {
	var channels []notify.Channel

	if e := a.cfg.Notify.Email; e.Enabled {
		n, err := email.New(email.Config{
			Host:      e.SMTPHost,
			Port:      e.SMTPPort,
			Sender:    e.Sender,
			Password:  e.Password,
			Recipient: e.Recipient,
		})
		if err != nil {
			return nil, err
		}
		channels = append(channels, n)
	}

	if p := a.cfg.Notify.PubSub; p.Enabled {
		client, err := pubsub.NewClient(ctx, p.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to create pubsub client: %w", err)
		}
		a.closers = append(a.closers, client.Close)

		topic := client.Topic(p.TopicID)
		exists, err := topic.Exists(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to check for topic existence: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("pubsub topic '%s' does not exist in project '%s'", p.TopicID, p.ProjectID)
		}
		n, err := notifypubsub.New(topic)
		if err != nil {
			return nil, err
		}
		// Flush the topic before the client closes.
		a.closers = append(a.closers, func() error {
			n.Close()
			return nil
		})
		channels = append(channels, n)
	}

	return notify.NewMulti(a.logger, channels...), nil
}

// Close shuts down services in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
}
