package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alertcore/alertcore/pkg/logging"
	"github.com/alertcore/alertcore/pkg/types"
)

// Default values for the server configuration.
const (
	DefaultGRPCPort         = 50051
	DefaultHTTPPort         = 8080
	DefaultNotifyMode       = NotifyModePool
	DefaultNotifyWorkers    = 4
	DefaultNotifyQueueSize  = 64
	DefaultClearedRetention = 24 * time.Hour
	DefaultWSInterval       = 5 * time.Second
)

// Notification executor modes.
const (
	NotifyModePool   = "pool"
	NotifyModeDirect = "direct"
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. The `agent:` key in the same file is ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// GRPCPort is the port the gRPC ingestion endpoint listens on (default 50051).
	GRPCPort int `yaml:"grpc_port"`

	// HTTPPort is the port the REST API, metrics and WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how the server authenticates incoming gRPC clients.
	Auth AuthConfig `yaml:"auth"`

	// Notify selects how receivers are invoked.
	Notify NotifyConfig `yaml:"notify"`

	// Retention controls how long cleared alerts stay in the store.
	Retention RetentionConfig `yaml:"retention"`

	// WS controls the WebSocket hub.
	WS WSConfig `yaml:"ws"`

	// Log configures the root logger.
	Log logging.Config `yaml:"log"`

	// Descriptors are registered at startup and again on every reload.
	// A type that is already registered keeps its first descriptor.
	Descriptors []DescriptorConfig `yaml:"descriptors"`

	// Webhooks receive the pending alert count on every change.
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AuthConfig controls client authentication on the gRPC ingestion endpoint.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv names the environment variable holding the accepted API key.
	// During rotation it may hold several keys separated by commas.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the gRPC metadata key to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// NotifyConfig selects the notification executor.
type NotifyConfig struct {
	// Mode is one of: pool | direct. Direct runs receivers on the mutating
	// goroutine and is meant for debugging.
	Mode string `yaml:"mode"`

	// Workers is the number of pool goroutines.
	Workers int `yaml:"workers"`

	// QueueSize is the pool's task buffer. It should be at least the number
	// of receivers so that mutations never wait for a free slot.
	QueueSize int `yaml:"queue_size"`
}

// RetentionConfig controls removal of cleared alerts.
type RetentionConfig struct {
	// Cleared is how long an alert whose latest state is CLEARED is kept.
	// Zero disables the sweep.
	Cleared time.Duration `yaml:"cleared"`
}

// WSConfig controls the WebSocket hub.
type WSConfig struct {
	// Interval is how often the latest pending count is re-sent to clients.
	Interval time.Duration `yaml:"interval"`
}

// DescriptorConfig is the YAML form of a types.Descriptor.
type DescriptorConfig struct {
	Type              string            `yaml:"type"`
	ContentType       string            `yaml:"content_type"`
	Description       string            `yaml:"description"`
	Respondable       bool              `yaml:"respondable"`
	StateContentTypes map[string]string `yaml:"state_content_types"`
}

// Descriptor converts c to a types.Descriptor.
func (c DescriptorConfig) Descriptor() (types.Descriptor, error) {
	states := make(map[types.State]string, len(c.StateContentTypes))
	for name, ct := range c.StateContentTypes {
		s, err := types.ParseState(name)
		if err != nil {
			return types.Descriptor{}, err
		}
		states[s] = ct
	}
	return types.NewDescriptor(c.Type, c.ContentType, c.Description, c.Respondable, states), nil
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | pagerduty | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`

	// RatePerSec caps deliveries to this target. Zero means unlimited.
	RatePerSec float64 `yaml:"rate_per_sec"`

	// Burst is the limiter bucket size. Defaults to 1 when RatePerSec is set.
	Burst int `yaml:"burst"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// LoadEnv loads KEY=value pairs from the given .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("server config: load env file %q: %w", p, err)
		}
	}
	return nil
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCPort: DefaultGRPCPort,
			HTTPPort: DefaultHTTPPort,
			Notify: NotifyConfig{
				Mode:      DefaultNotifyMode,
				Workers:   DefaultNotifyWorkers,
				QueueSize: DefaultNotifyQueueSize,
			},
			Retention: RetentionConfig{Cleared: DefaultClearedRetention},
			WS:        WSConfig{Interval: DefaultWSInterval},
			Log:       logging.Defaults(),
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.GRPCPort <= 0 || s.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [1, 65535]", s.GRPCPort)
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	switch s.Notify.Mode {
	case NotifyModePool:
		if s.Notify.Workers <= 0 {
			return fmt.Errorf("server.notify.workers must be positive")
		}
		if s.Notify.QueueSize <= 0 {
			return fmt.Errorf("server.notify.queue_size must be positive")
		}
	case NotifyModeDirect:
	default:
		return fmt.Errorf("server.notify.mode %q unknown: want pool|direct", s.Notify.Mode)
	}
	if s.Retention.Cleared < 0 {
		return fmt.Errorf("server.retention.cleared must not be negative")
	}
	if s.WS.Interval <= 0 {
		return fmt.Errorf("server.ws.interval must be positive")
	}
	if err := s.Log.Validate(); err != nil {
		return fmt.Errorf("server.%w", err)
	}

	seen := make(map[string]bool, len(s.Descriptors))
	for i, d := range s.Descriptors {
		if d.Type == "" {
			return fmt.Errorf("server.descriptors[%d]: type is required", i)
		}
		if seen[d.Type] {
			return fmt.Errorf("server.descriptors[%d]: duplicate type %q", i, d.Type)
		}
		seen[d.Type] = true
		if _, err := d.Descriptor(); err != nil {
			return fmt.Errorf("server.descriptors[%d] %q: %w", i, d.Type, err)
		}
	}

	for i, wh := range s.Webhooks {
		switch wh.Type {
		case "teams", "slack", "pagerduty", "http":
		default:
			return fmt.Errorf("server.webhooks[%d]: unknown type %q", i, wh.Type)
		}
		if wh.URLEnv == "" {
			return fmt.Errorf("server.webhooks[%d]: url_env is required", i)
		}
		if wh.RatePerSec < 0 || wh.Burst < 0 {
			return fmt.Errorf("server.webhooks[%d]: rate_per_sec and burst must not be negative", i)
		}
	}
	return nil
}
