package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alertcore/alertcore/pkg/logging"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultBufferSize  = 1000
	DefaultSendTimeout = 10 * time.Second
	DefaultAuthHeader  = "x-api-key"
)

// Config is the top-level forwarder configuration. Other top-level keys in
// the same file (such as `server:`) are ignored.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all forwarder settings.
type AgentConfig struct {
	// ServerEndpoint is the gRPC address of alert-server (host:port).
	ServerEndpoint string `yaml:"server_endpoint"`

	// BufferSize is the maximum number of alerts held in memory while the
	// server is unreachable. The oldest is evicted when full.
	BufferSize int `yaml:"buffer_size"`

	// SendTimeout bounds a single RaiseAlert call.
	SendTimeout time.Duration `yaml:"send_timeout"`

	// ServerAuth configures how the forwarder authenticates to alert-server.
	ServerAuth AuthConfig `yaml:"server_auth"`

	// Log configures the root logger.
	Log logging.Config `yaml:"log"`
}

// AuthConfig specifies how the forwarder authenticates to the server.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header is the gRPC metadata key the API key is sent in.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			BufferSize:  DefaultBufferSize,
			SendTimeout: DefaultSendTimeout,
			ServerAuth:  AuthConfig{Header: DefaultAuthHeader},
			Log:         logging.Defaults(),
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := cfg.Agent
	if a.ServerEndpoint == "" {
		return fmt.Errorf("agent.server_endpoint is required")
	}
	if a.BufferSize <= 0 {
		return fmt.Errorf("agent.buffer_size must be positive")
	}
	if a.SendTimeout <= 0 {
		return fmt.Errorf("agent.send_timeout must be positive")
	}
	switch a.ServerAuth.Mode {
	case "mtls":
		if a.ServerAuth.CertFile == "" || a.ServerAuth.KeyFile == "" {
			return fmt.Errorf("agent.server_auth: mtls requires cert_file and key_file")
		}
	case "apikey":
		if a.ServerAuth.KeyEnv == "" {
			return fmt.Errorf("agent.server_auth: apikey requires key_env")
		}
	case "none", "":
	default:
		return fmt.Errorf("agent.server_auth: unknown mode %q", a.ServerAuth.Mode)
	}
	if err := a.Log.Validate(); err != nil {
		return fmt.Errorf("agent.%w", err)
	}
	return nil
}
