// Package config loads and validates monitor configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/theresaanna/san-x-monitor/internal/clock/system"
	"github.com/theresaanna/san-x-monitor/internal/extract"
	collyfetcher "github.com/theresaanna/san-x-monitor/internal/fetcher/colly"
	"github.com/theresaanna/san-x-monitor/internal/logging"
)

// Renderer and state provider names accepted in configuration.
const (
	RendererStatic   = "static"
	RendererHeadless = "headless"
	RendererAuto     = "auto"

	ProviderLocal    = "local"
	ProviderGCS      = "gcs"
	ProviderPostgres = "postgres"
	ProviderMemory   = "memory"
)

// Config captures all monitor configuration knobs loaded via Viper.
type Config struct {
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Headless HeadlessConfig `mapstructure:"headless"`
	State    StateConfig    `mapstructure:"state"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  logging.Config `mapstructure:"logging"`
}

// MonitorConfig describes the site being watched.
type MonitorConfig struct {
	Name         string   `mapstructure:"name"`
	BaseURL      string   `mapstructure:"base_url"`
	FeaturePath  string   `mapstructure:"feature_path"`
	GenericURL   string   `mapstructure:"generic_url"`
	GenericLabel string   `mapstructure:"generic_label"`
	Timezone     string   `mapstructure:"timezone"`
	Selectors    []string `mapstructure:"selectors"`
}

// HTTPConfig configures probing and fetching.
type HTTPConfig struct {
	UserAgent     string        `mapstructure:"user_agent"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	Renderer      string        `mapstructure:"renderer"`
	MaxBodyBytes  int           `mapstructure:"max_body_bytes"`
	RespectRobots bool          `mapstructure:"respect_robots"`
}

// HeadlessConfig configures the chromedp renderer.
type HeadlessConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	// PromotionThreshold is the body size below which script-heavy static
	// pages are re-rendered when the renderer is "auto".
	PromotionThreshold int `mapstructure:"promotion_threshold"`
}

// StateConfig selects and configures the state backend.
type StateConfig struct {
	Provider string              `mapstructure:"provider"`
	Local    LocalStateConfig    `mapstructure:"local"`
	GCS      GCSStateConfig      `mapstructure:"gcs"`
	Postgres PostgresStateConfig `mapstructure:"postgres"`
}

// LocalStateConfig locates the JSON state file.
type LocalStateConfig struct {
	Path string `mapstructure:"path"`
}

// GCSStateConfig locates the state object.
type GCSStateConfig struct {
	Bucket string `mapstructure:"bucket"`
	Object string `mapstructure:"object"`
}

// PostgresStateConfig controls the Postgres state table.
type PostgresStateConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// NotifyConfig lists the notification channels.
type NotifyConfig struct {
	Email  EmailConfig  `mapstructure:"email"`
	PubSub PubSubConfig `mapstructure:"pubsub"`
}

// EmailConfig holds SMTP settings. Credentials normally come from the
// SENDER_EMAIL, EMAIL_PASSWORD and RECIPIENT_EMAIL environment variables.
type EmailConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	SMTPHost  string `mapstructure:"smtp_host"`
	SMTPPort  int    `mapstructure:"smtp_port"`
	Sender    string `mapstructure:"sender"`
	Password  string `mapstructure:"password"`
	Recipient string `mapstructure:"recipient"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// MetricsConfig controls the end-of-run Pushgateway push.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// Load builds a Config from disk/environment. With an empty path the
// SANX_CONFIG_FILE variable is consulted, then sanx-monitor.{yaml,json,toml}
// is searched in the usual locations; no file at all is fine.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SANX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if path == "" {
		path = v.GetString("config_file")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("sanx-monitor")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/sanx-monitor/")
		v.AddConfigPath("$HOME/.sanx-monitor")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// bindLegacyEnv maps the environment names used by the original cron setup.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"notify.email.sender":    {"SANX_NOTIFY_EMAIL_SENDER", "SENDER_EMAIL"},
		"notify.email.password":  {"SANX_NOTIFY_EMAIL_PASSWORD", "EMAIL_PASSWORD"},
		"notify.email.recipient": {"SANX_NOTIFY_EMAIL_RECIPIENT", "RECIPIENT_EMAIL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("monitor.name", "San-X")
	v.SetDefault("monitor.base_url", "https://shop.san-x.co.jp")
	v.SetDefault("monitor.feature_path", "/feature/index/")
	v.SetDefault("monitor.generic_url", "https://shop.san-x.co.jp/category/new")
	v.SetDefault("monitor.generic_label", "general_new")
	v.SetDefault("monitor.timezone", "Local")
	v.SetDefault("monitor.selectors", extract.DefaultSelectors)
	v.SetDefault("http.user_agent", collyfetcher.DefaultUserAgent)
	v.SetDefault("http.probe_timeout", 10*time.Second)
	v.SetDefault("http.fetch_timeout", 30*time.Second)
	v.SetDefault("http.renderer", RendererStatic)
	v.SetDefault("http.max_body_bytes", 10<<20)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("headless.navigation_timeout", 45*time.Second)
	v.SetDefault("headless.settle_delay", 500*time.Millisecond)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("state.provider", ProviderLocal)
	v.SetDefault("state.local.path", "sanx_hash.json")
	v.SetDefault("state.gcs.object", "sanx_hash.json")
	v.SetDefault("state.postgres.table", "monitor_state")
	v.SetDefault("state.postgres.max_conns", 2)
	v.SetDefault("state.postgres.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("notify.email.enabled", true)
	v.SetDefault("notify.email.smtp_host", "smtp.gmail.com")
	v.SetDefault("notify.email.smtp_port", 587)
	v.SetDefault("notify.pubsub.enabled", false)
	v.SetDefault("metrics.job", "sanx_monitor")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := validateURL("monitor.base_url", c.Monitor.BaseURL); err != nil {
		return err
	}
	if err := validateURL("monitor.generic_url", c.Monitor.GenericURL); err != nil {
		return err
	}
	if strings.TrimSpace(c.Monitor.GenericLabel) == "" {
		return fmt.Errorf("monitor.generic_label must not be empty")
	}
	if _, err := system.NewInZone(c.Monitor.Timezone); err != nil {
		return fmt.Errorf("monitor.timezone: %w", err)
	}
	if c.HTTP.ProbeTimeout <= 0 {
		return fmt.Errorf("http.probe_timeout must be > 0")
	}
	if c.HTTP.FetchTimeout <= 0 {
		return fmt.Errorf("http.fetch_timeout must be > 0")
	}
	if c.HTTP.ProbeTimeout >= c.HTTP.FetchTimeout {
		return fmt.Errorf("http.probe_timeout (%s) must be shorter than http.fetch_timeout (%s)",
			c.HTTP.ProbeTimeout, c.HTTP.FetchTimeout)
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("http.max_body_bytes must be >= 0")
	}
	switch c.HTTP.Renderer {
	case RendererStatic, RendererHeadless, RendererAuto:
	default:
		return fmt.Errorf("http.renderer must be one of %q, %q, %q; got %q",
			RendererStatic, RendererHeadless, RendererAuto, c.HTTP.Renderer)
	}

	switch c.State.Provider {
	case ProviderLocal:
		if strings.TrimSpace(c.State.Local.Path) == "" {
			return fmt.Errorf("state.local.path is required for the local provider")
		}
	case ProviderGCS:
		if c.State.GCS.Bucket == "" || c.State.GCS.Object == "" {
			return fmt.Errorf("state.gcs.bucket and state.gcs.object are required for the gcs provider")
		}
	case ProviderPostgres:
		if c.State.Postgres.DSN == "" {
			return fmt.Errorf("state.postgres.dsn is required for the postgres provider")
		}
		if c.State.Postgres.MaxConns < 0 || c.State.Postgres.MaxConnLifetime < 0 {
			return fmt.Errorf("state.postgres.max_conns and state.postgres.max_conn_lifetime must be >= 0")
		}
	case ProviderMemory:
	default:
		return fmt.Errorf("state.provider %q is not supported", c.State.Provider)
	}

	if c.Notify.Email.Enabled {
		e := c.Notify.Email
		if e.SMTPHost == "" || e.SMTPPort <= 0 {
			return fmt.Errorf("notify.email.smtp_host and notify.email.smtp_port must be set when email is enabled")
		}
		var missing []string
		if e.Sender == "" {
			missing = append(missing, "SENDER_EMAIL")
		}
		if e.Password == "" {
			missing = append(missing, "EMAIL_PASSWORD")
		}
		if e.Recipient == "" {
			missing = append(missing, "RECIPIENT_EMAIL")
		}
		if len(missing) > 0 {
			return fmt.Errorf("notify.email is enabled but %s not set", strings.Join(missing, ", "))
		}
	}
	if c.Notify.PubSub.Enabled && (c.Notify.PubSub.ProjectID == "" || c.Notify.PubSub.TopicID == "") {
		return fmt.Errorf("notify.pubsub.project_id and notify.pubsub.topic_id must be set when pubsub is enabled")
	}

	if c.Metrics.PushgatewayURL != "" {
		if err := validateURL("metrics.pushgateway_url", c.Metrics.PushgatewayURL); err != nil {
			return err
		}
	}
	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
	}
	return nil
}
