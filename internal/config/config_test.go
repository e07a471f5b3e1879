package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsWithLegacyEnv(t *testing.T) {
	t.Setenv("SENDER_EMAIL", "monitor@example.com")
	t.Setenv("EMAIL_PASSWORD", "app-password")
	t.Setenv("RECIPIENT_EMAIL", "fan@example.com")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Monitor.BaseURL != "https://shop.san-x.co.jp" || cfg.Monitor.FeaturePath != "/feature/index/" {
		t.Fatalf("unexpected monitor defaults: %+v", cfg.Monitor)
	}
	if cfg.Monitor.GenericLabel != "general_new" {
		t.Fatalf("expected generic label default, got %q", cfg.Monitor.GenericLabel)
	}
	if len(cfg.Monitor.Selectors) == 0 || cfg.Monitor.Selectors[0] != ".feature-products" {
		t.Fatalf("expected default selectors, got %v", cfg.Monitor.Selectors)
	}
	if cfg.HTTP.ProbeTimeout != 10*time.Second || cfg.HTTP.FetchTimeout != 30*time.Second {
		t.Fatalf("unexpected timeouts: %+v", cfg.HTTP)
	}
	if cfg.State.Provider != ProviderLocal || cfg.State.Local.Path != "sanx_hash.json" {
		t.Fatalf("unexpected state defaults: %+v", cfg.State)
	}
	if cfg.State.Postgres.MaxConns != 2 || cfg.State.Postgres.MaxConnLifetime != 30*time.Minute {
		t.Fatalf("unexpected postgres pool defaults: %+v", cfg.State.Postgres)
	}
	if !cfg.Notify.Email.Enabled || cfg.Notify.Email.SMTPHost != "smtp.gmail.com" || cfg.Notify.Email.SMTPPort != 587 {
		t.Fatalf("unexpected email defaults: %+v", cfg.Notify.Email)
	}
	if cfg.Notify.Email.Sender != "monitor@example.com" ||
		cfg.Notify.Email.Password != "app-password" ||
		cfg.Notify.Email.Recipient != "fan@example.com" {
		t.Fatalf("expected legacy env credentials, got %+v", cfg.Notify.Email)
	}
	if cfg.Metrics.Job != "sanx_monitor" || cfg.Metrics.PushgatewayURL != "" {
		t.Fatalf("unexpected metrics defaults: %+v", cfg.Metrics)
	}
}

func TestLoadMissingEmailCredentials(t *testing.T) {
	t.Setenv("SENDER_EMAIL", "")
	t.Setenv("EMAIL_PASSWORD", "")
	t.Setenv("RECIPIENT_EMAIL", "")
	t.Chdir(t.TempDir())

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for missing email credentials")
	}
	for _, want := range []string{"SENDER_EMAIL", "EMAIL_PASSWORD", "RECIPIENT_EMAIL"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in error, got %v", want, err)
		}
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Setenv("SANX_STATE_LOCAL_PATH", "/var/lib/sanx/state.json")
	t.Setenv("SANX_STATE_POSTGRES_MAX_CONNS", "5")

	dir := t.TempDir()
	path := filepath.Join(dir, "sanx-monitor.yaml")
	configYAML := `
monitor:
  name: San-X JP
  timezone: Asia/Tokyo
  selectors: [".products", "main"]
http:
  probe_timeout: 5s
  fetch_timeout: 1m
  renderer: headless
headless:
  navigation_timeout: 20s
state:
  provider: local
notify:
  email:
    enabled: false
  pubsub:
    enabled: true
    project_id: demo
    topic_id: sanx-releases
metrics:
  pushgateway_url: http://pushgateway:9091
logging:
  development: true
  level: debug
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Monitor.Name != "San-X JP" || cfg.Monitor.Timezone != "Asia/Tokyo" {
		t.Fatalf("expected monitor overrides, got %+v", cfg.Monitor)
	}
	if len(cfg.Monitor.Selectors) != 2 || cfg.Monitor.Selectors[1] != "main" {
		t.Fatalf("expected selector override, got %v", cfg.Monitor.Selectors)
	}
	if cfg.HTTP.ProbeTimeout != 5*time.Second || cfg.HTTP.FetchTimeout != time.Minute {
		t.Fatalf("expected duration overrides, got %+v", cfg.HTTP)
	}
	if cfg.HTTP.Renderer != RendererHeadless || cfg.Headless.NavigationTimeout != 20*time.Second {
		t.Fatalf("expected headless renderer, got %+v / %+v", cfg.HTTP, cfg.Headless)
	}
	if cfg.State.Local.Path != "/var/lib/sanx/state.json" {
		t.Fatalf("expected env override for state path, got %q", cfg.State.Local.Path)
	}
	if cfg.State.Postgres.MaxConns != 5 {
		t.Fatalf("expected env override for postgres max_conns, got %d", cfg.State.Postgres.MaxConns)
	}
	if cfg.Notify.Email.Enabled || !cfg.Notify.PubSub.Enabled || cfg.Notify.PubSub.TopicID != "sanx-releases" {
		t.Fatalf("unexpected notify config: %+v", cfg.Notify)
	}
	if !cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadConfigFileFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("notify:\n  email:\n    enabled: false\nstate:\n  provider: memory\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("SANX_CONFIG_FILE", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.State.Provider != ProviderMemory {
		t.Fatalf("expected memory provider from env-named file, got %q", cfg.State.Provider)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Monitor: MonitorConfig{
			BaseURL:      "https://shop.san-x.co.jp",
			GenericURL:   "https://shop.san-x.co.jp/category/new",
			GenericLabel: "general_new",
		},
		HTTP:  HTTPConfig{ProbeTimeout: time.Second, FetchTimeout: 2 * time.Second, Renderer: RendererStatic},
		State: StateConfig{Provider: ProviderMemory},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "relative base url", mutate: func(c *Config) { c.Monitor.BaseURL = "/shop" }, want: "monitor.base_url"},
		{name: "bad generic url", mutate: func(c *Config) { c.Monitor.GenericURL = "" }, want: "monitor.generic_url"},
		{name: "empty generic label", mutate: func(c *Config) { c.Monitor.GenericLabel = " " }, want: "monitor.generic_label"},
		{name: "unknown timezone", mutate: func(c *Config) { c.Monitor.Timezone = "Mars/Olympus" }, want: "monitor.timezone"},
		{name: "probe timeout", mutate: func(c *Config) { c.HTTP.ProbeTimeout = 0 }, want: "http.probe_timeout"},
		{name: "fetch timeout", mutate: func(c *Config) { c.HTTP.FetchTimeout = 0 }, want: "http.fetch_timeout"},
		{
			name:   "probe not shorter than fetch",
			mutate: func(c *Config) { c.HTTP.ProbeTimeout = 3 * time.Second },
			want:   "must be shorter than http.fetch_timeout",
		},
		{name: "renderer", mutate: func(c *Config) { c.HTTP.Renderer = "lynx" }, want: "http.renderer"},
		{name: "provider", mutate: func(c *Config) { c.State.Provider = "s3" }, want: "state.provider"},
		{name: "local path", mutate: func(c *Config) { c.State.Provider = ProviderLocal }, want: "state.local.path"},
		{name: "gcs bucket", mutate: func(c *Config) { c.State.Provider = ProviderGCS }, want: "state.gcs.bucket"},
		{name: "postgres dsn", mutate: func(c *Config) { c.State.Provider = ProviderPostgres }, want: "state.postgres.dsn"},
		{
			name: "postgres pool limits",
			mutate: func(c *Config) {
				c.State.Provider = ProviderPostgres
				c.State.Postgres = PostgresStateConfig{DSN: "postgres://localhost/sanx", MaxConns: -1}
			},
			want: "state.postgres.max_conns",
		},
		{
			name: "email credentials",
			mutate: func(c *Config) {
				c.Notify.Email = EmailConfig{Enabled: true, SMTPHost: "smtp.gmail.com", SMTPPort: 587, Sender: "a@b.c"}
			},
			want: "EMAIL_PASSWORD, RECIPIENT_EMAIL",
		},
		{name: "pubsub topic", mutate: func(c *Config) { c.Notify.PubSub.Enabled = true }, want: "notify.pubsub"},
		{name: "pushgateway", mutate: func(c *Config) { c.Metrics.PushgatewayURL = "pushgateway" }, want: "metrics.pushgateway_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
