// Package cmd defines the sanx-monitor command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theresaanna/san-x-monitor/internal/app"
	"github.com/theresaanna/san-x-monitor/internal/config"
	"github.com/theresaanna/san-x-monitor/internal/logging"
	"github.com/theresaanna/san-x-monitor/internal/metrics"
)

// newRootCmd creates the root command. It takes no arguments or flags:
// everything comes from the config file and environment.
func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sanx-monitor",
		Short: "Checks the San-X monthly new releases page for changes.",
		Long: `sanx-monitor resolves this month's San-X "new releases" feature page,
fingerprints its product listing and compares it with the previous run.
When the page changes, or the monitor switches to a new month's page, a
notification is sent. Run it from cron; each invocation performs one check.

Configuration is read from sanx-monitor.yaml (or SANX_CONFIG_FILE) and
SANX_* environment variables. SENDER_EMAIL, EMAIL_PASSWORD and
RECIPIENT_EMAIL supply the SMTP credentials.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCheck,
	}
}

// runCheck performs one cycle. Only bootstrap problems are returned as
// errors; a failed check is logged and the command still succeeds.
func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		// Sync fails on some terminals; nothing useful can be done about it.
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer a.Close()

	out := a.Run(ctx)
	fields := []zap.Field{
		zap.String("run_id", out.RunID),
		zap.String("status", string(out.Status)),
		zap.String("period", out.Target.Label),
		zap.String("url", out.Target.URL),
		zap.Bool("notified", out.Notified),
	}
	if out.Err != nil {
		fields = append(fields, zap.NamedError("fetch_error", out.Err))
	}
	if out.NotifyErr != nil {
		fields = append(fields, zap.NamedError("notify_error", out.NotifyErr))
	}
	if out.SaveErr != nil {
		fields = append(fields, zap.NamedError("save_error", out.SaveErr))
	}
	logger.Info("run finished", fields...)

	if err := metrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		logger.Warn("failed to push metrics", zap.Error(err))
	}
	return nil
}

// Execute runs the root command and exits non-zero on bootstrap failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "sanx-monitor: %v\n", err)
		stop()
		os.Exit(1)
	}
}
