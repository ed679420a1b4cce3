// Package config loads the huectl configuration and credentials files.
package config

import (
	"crypto/x509"
	"os"
	"regexp"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	hue "github.com/lexfrei/go-hue"
	"github.com/lexfrei/go-hue/observability"
)

// Config represents the huectl configuration.
type Config struct {
	App         AppConfig       `yaml:"app"`
	Bridge      BridgeConfig    `yaml:"bridge"`
	Transport   TransportConfig `yaml:"transport"`
	Discovery   DiscoveryConfig `yaml:"discovery"`
	Pairing     PairingConfig   `yaml:"pairing"`
	Log         LogConfig       `yaml:"log"`
	Credentials string          `yaml:"credentials"` // Path of the credentials file
}

// AppConfig names the application towards the bridge.
type AppConfig struct {
	Name     string `yaml:"name"`
	Instance string `yaml:"instance"` // Defaults to the host name
}

// BridgeConfig selects a bridge without discovery.
type BridgeConfig struct {
	Address string `yaml:"address"`
	ID      string `yaml:"id"`
}

// TransportConfig contains request settings.
type TransportConfig struct {
	Timeout                Duration `yaml:"timeout"`
	MaxAttempts            int      `yaml:"max_attempts"`
	RequestsPerSecond      float64  `yaml:"requests_per_second"`
	GroupRequestsPerSecond float64  `yaml:"group_requests_per_second"`
	RootCA                 string   `yaml:"root_ca"` // PEM file; verification is skipped when empty
}

// DiscoveryConfig contains discovery settings.
type DiscoveryConfig struct {
	Timeout   Duration `yaml:"timeout"`
	Remote    bool     `yaml:"remote"`
	RemoteURL string   `yaml:"remote_url"`
}

// PairingConfig contains pairing settings.
type PairingConfig struct {
	Timeout      Duration `yaml:"timeout"`
	PollInterval Duration `yaml:"poll_interval"`
	ClientKey    bool     `yaml:"client_key"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	Colors bool   `yaml:"colors"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return errors.Wrap(err, "duration must be a string")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", s)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}

	cfg.setDefaults()

	if cfg.Transport.MaxAttempts < 0 {
		return nil, errors.New("transport.max_attempts must not be negative")
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "huectl"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Discovery.Timeout == 0 {
		c.Discovery.Timeout = Duration(hue.DefaultDiscoveryTimeout)
	}
	if c.Credentials == "" {
		c.Credentials = DefaultCredentialsPath()
	}
}

// ClientConfig translates the file settings into client settings.
func (c *Config) ClientConfig(logger observability.Logger, metrics observability.MetricsRecorder) (*hue.ClientConfig, error) {
	out := &hue.ClientConfig{
		AppName:                c.App.Name,
		InstanceName:           c.App.Instance,
		GenerateClientKey:      c.Pairing.ClientKey,
		PollInterval:           c.Pairing.PollInterval.Duration(),
		PairingTimeout:         c.Pairing.Timeout.Duration(),
		Timeout:                c.Transport.Timeout.Duration(),
		MaxAttempts:            c.Transport.MaxAttempts,
		RequestsPerSecond:      c.Transport.RequestsPerSecond,
		GroupRequestsPerSecond: c.Transport.GroupRequestsPerSecond,
		DiscoveryTimeout:       c.Discovery.Timeout.Duration(),
		RemoteDiscovery:        c.Discovery.Remote,
		RemoteDiscoveryURL:     c.Discovery.RemoteURL,
		Logger:                 logger,
		Metrics:                metrics,
	}

	if c.Transport.RootCA != "" {
		pem, err := os.ReadFile(c.Transport.RootCA)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read root CA")
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Newf("no certificates found in %s", c.Transport.RootCA)
		}
		out.RootCAs = pool
	}

	return out, nil
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
