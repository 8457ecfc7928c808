package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults keep the hub operable with zero configuration
const (
	DefaultListenAddr           = ":8080"
	DefaultDataDir              = "./data"
	DefaultLogLevel             = "info"
	DefaultReconnectDelay       = 5 * time.Second
	DefaultReconnectMaxAttempts = 10
	DefaultPublishMaxAttempts   = 3
	DefaultRetryBaseDelay       = 500 * time.Millisecond
	DefaultRetryMaxDelay        = 5 * time.Second
	DefaultRetentionDays        = 7
	DefaultReplayBatchSize      = 100
	DefaultPollInterval         = 5 * time.Second
	DefaultMaxPayloadBytes      = 7500
)

// Config holds all Dishpatch configuration
type Config struct {
	// DatabaseURL is the Postgres connection string used for both the
	// transient transport and the durable event log. Empty means run
	// with the embedded bolt event log and no live transport.
	DatabaseURL string `yaml:"database_url"`

	// DataDir holds the embedded event log database when no Postgres
	// URL is configured
	DataDir string `yaml:"data_dir"`

	// ListenAddr is the health/metrics HTTP listen address
	ListenAddr string `yaml:"listen_addr"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	// Reconnection controller
	ReconnectDelay       time.Duration `yaml:"reconnect_delay"`
	ReconnectMaxAttempts int           `yaml:"reconnect_max_attempts"`

	// Publish retry policy: delays follow min(base * 2^(attempt-1), cap)
	PublishMaxAttempts int           `yaml:"publish_max_attempts"`
	RetryBaseDelay     time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay      time.Duration `yaml:"retry_max_delay"`

	// Durable event log
	RetentionDays   int `yaml:"retention_days"`
	ReplayBatchSize int `yaml:"replay_batch_size"`

	// PollInterval is the recommended fallback poll interval handed to
	// fan-out consumers that cannot hold a live channel
	PollInterval time.Duration `yaml:"poll_interval"`

	// MaxPayloadBytes caps the transient payload size; larger events
	// are sent as thin stand-ins (Postgres rejects NOTIFY payloads of
	// 8000 bytes or more)
	MaxPayloadBytes int `yaml:"max_payload_bytes"`
}

// Default returns the zero-configuration defaults
func Default() Config {
	return Config{
		DataDir:              DefaultDataDir,
		ListenAddr:           DefaultListenAddr,
		LogLevel:             DefaultLogLevel,
		ReconnectDelay:       DefaultReconnectDelay,
		ReconnectMaxAttempts: DefaultReconnectMaxAttempts,
		PublishMaxAttempts:   DefaultPublishMaxAttempts,
		RetryBaseDelay:       DefaultRetryBaseDelay,
		RetryMaxDelay:        DefaultRetryMaxDelay,
		RetentionDays:        DefaultRetentionDays,
		ReplayBatchSize:      DefaultReplayBatchSize,
		PollInterval:         DefaultPollInterval,
		MaxPayloadBytes:      DefaultMaxPayloadBytes,
	}
}

// Load builds the configuration: defaults, overridden by an optional
// YAML file, overridden by DISHPATCH_* environment variables. A missing
// file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	envString("DISHPATCH_DATABASE_URL", &c.DatabaseURL)
	envString("DISHPATCH_DATA_DIR", &c.DataDir)
	envString("DISHPATCH_LISTEN_ADDR", &c.ListenAddr)
	envString("DISHPATCH_LOG_LEVEL", &c.LogLevel)

	if v := os.Getenv("DISHPATCH_LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DISHPATCH_LOG_JSON: %w", err)
		}
		c.LogJSON = b
	}

	if err := envDuration("DISHPATCH_RECONNECT_DELAY", &c.ReconnectDelay); err != nil {
		return err
	}
	if err := envInt("DISHPATCH_RECONNECT_MAX_ATTEMPTS", &c.ReconnectMaxAttempts); err != nil {
		return err
	}
	if err := envInt("DISHPATCH_PUBLISH_MAX_ATTEMPTS", &c.PublishMaxAttempts); err != nil {
		return err
	}
	if err := envDuration("DISHPATCH_RETRY_BASE_DELAY", &c.RetryBaseDelay); err != nil {
		return err
	}
	if err := envDuration("DISHPATCH_RETRY_MAX_DELAY", &c.RetryMaxDelay); err != nil {
		return err
	}
	if err := envInt("DISHPATCH_RETENTION_DAYS", &c.RetentionDays); err != nil {
		return err
	}
	if err := envInt("DISHPATCH_REPLAY_BATCH_SIZE", &c.ReplayBatchSize); err != nil {
		return err
	}
	if err := envDuration("DISHPATCH_POLL_INTERVAL", &c.PollInterval); err != nil {
		return err
	}
	if err := envInt("DISHPATCH_MAX_PAYLOAD_BYTES", &c.MaxPayloadBytes); err != nil {
		return err
	}
	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
