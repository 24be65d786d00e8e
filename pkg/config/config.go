package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envConfigPath         = "VENUEBOT_CONFIG"
	envTelegramToken      = "TELEGRAM_TOKEN"
	envFoursquareClientID = "FOURSQUARE_CLIENT_ID"
	envFoursquareSecret   = "FOURSQUARE_SECRET"
	envRedisURL           = "REDIS_URL"
	envWorker             = "WORKER"
	envGatewayPort        = "VENUEBOT_GATEWAY_PORT"
)

const (
	DefaultFoursquareBaseURL = "https://api.foursquare.com/v2"
	DefaultFoursquareVersion = "20160820"
	DefaultFoursquareSection = "food"
	DefaultFoursquareLimit   = 3
	DefaultQueueKey          = "messages"
	DefaultPollIntervalMs    = 200
	DefaultRequestTimeout    = 10
	DefaultMessageTimeout    = 60
	DefaultGatewayHost       = "0.0.0.0"
	DefaultGatewayPort       = 18790
	DefaultWorkerGatewayPort = 18791
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Telegram   TelegramConfig   `json:"telegram"`
	Foursquare FoursquareConfig `json:"foursquare"`
	Redis      RedisConfig      `json:"redis"`
	Worker     WorkerConfig     `json:"worker"`
	Gateway    GatewayConfig    `json:"gateway"`
	Logging    LoggingConfig    `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// TelegramConfig configures the bot token and Bot API client behavior.
type TelegramConfig struct {
	Token                 string `json:"token"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// FoursquareConfig holds venue API credentials and the fixed explore query.
type FoursquareConfig struct {
	BaseURL               string `json:"base_url"`
	ClientID              string `json:"client_id"`
	ClientSecret          string `json:"client_secret"`
	Version               string `json:"version"`
	Section               string `json:"section"`
	Limit                 int    `json:"limit"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// RedisConfig locates the shared queue and session store.
type RedisConfig struct {
	URL      string `json:"url"`
	QueueKey string `json:"queue_key"`
}

// WorkerConfig selects worker mode and tunes the dequeue loop.
type WorkerConfig struct {
	Enabled               bool `json:"enabled"`
	PollIntervalMillis    int  `json:"poll_interval_ms"`
	MessageTimeoutSeconds int  `json:"message_timeout_seconds"`
}

// GatewayConfig configures HTTP status server bind settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// PollInterval returns the empty-queue backoff as a duration.
func (w WorkerConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalMillis) * time.Millisecond
}

// MessageTimeout bounds the handling of one dequeued message.
func (w WorkerConfig) MessageTimeout() time.Duration {
	return time.Duration(w.MessageTimeoutSeconds) * time.Second
}

// RequestTimeout bounds one venue API call.
func (f FoursquareConfig) RequestTimeout() time.Duration {
	return time.Duration(f.RequestTimeoutSeconds) * time.Second
}

// RequestTimeout bounds one Bot API call.
func (t TelegramConfig) RequestTimeout() time.Duration {
	return time.Duration(t.RequestTimeoutSeconds) * time.Second
}

// LoadConfig resolves config.json, unmarshals it, and applies environment overrides.
//
// A .env file in the working directory is loaded first when present. Without
// an explicit VENUEBOT_CONFIG, a missing config.json is not an error and the
// configuration is built from defaults and the environment alone.
func LoadConfig() (*Config, error) {
	return load(nil)
}

// LoadConfigForMode is LoadConfig with worker mode forced before defaults apply,
// so mode-dependent defaults follow the command line.
func LoadConfigForMode(worker bool) (*Config, error) {
	return load(&worker)
}

func load(worker *bool) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	configPath, err := findConfigPath()
	switch {
	case errors.Is(err, errConfigNotFound):
	case err != nil:
		return nil, err
	default:
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if worker != nil {
		cfg.Worker.Enabled = *worker
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}

// ApplyDefaults fills zero values with the built-in query and loop settings.
func (c *Config) ApplyDefaults() {
	if c == nil {
		return
	}

	if strings.TrimSpace(c.Foursquare.BaseURL) == "" {
		c.Foursquare.BaseURL = DefaultFoursquareBaseURL
	}
	if strings.TrimSpace(c.Foursquare.Version) == "" {
		c.Foursquare.Version = DefaultFoursquareVersion
	}
	if strings.TrimSpace(c.Foursquare.Section) == "" {
		c.Foursquare.Section = DefaultFoursquareSection
	}
	if c.Foursquare.Limit <= 0 {
		c.Foursquare.Limit = DefaultFoursquareLimit
	}
	if c.Foursquare.RequestTimeoutSeconds <= 0 {
		c.Foursquare.RequestTimeoutSeconds = DefaultRequestTimeout
	}
	if c.Telegram.RequestTimeoutSeconds <= 0 {
		c.Telegram.RequestTimeoutSeconds = DefaultRequestTimeout
	}
	if strings.TrimSpace(c.Redis.QueueKey) == "" {
		c.Redis.QueueKey = DefaultQueueKey
	}
	if c.Worker.PollIntervalMillis <= 0 {
		c.Worker.PollIntervalMillis = DefaultPollIntervalMs
	}
	if c.Worker.MessageTimeoutSeconds <= 0 {
		c.Worker.MessageTimeoutSeconds = DefaultMessageTimeout
	}
	if strings.TrimSpace(c.Gateway.Host) == "" {
		c.Gateway.Host = DefaultGatewayHost
	}
	if c.Gateway.Port <= 0 {
		c.Gateway.Port = DefaultPort(c.Worker.Enabled)
	}
}

// DefaultPort is the status server port for a mode. Ingress and worker differ
// so both processes can share a host.
func DefaultPort(worker bool) int {
	if worker {
		return DefaultWorkerGatewayPort
	}

	return DefaultGatewayPort
}

// Validate reports missing settings required by the selected mode.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is required")
	}

	var missing []string
	if strings.TrimSpace(c.Telegram.Token) == "" {
		missing = append(missing, "telegram.token")
	}
	if strings.TrimSpace(c.Redis.URL) == "" {
		missing = append(missing, "redis.url")
	}
	if c.Worker.Enabled {
		if strings.TrimSpace(c.Foursquare.ClientID) == "" {
			missing = append(missing, "foursquare.client_id")
		}
		if strings.TrimSpace(c.Foursquare.ClientSecret) == "" {
			missing = append(missing, "foursquare.client_secret")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	return nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramToken)); token != "" {
		cfg.Telegram.Token = token
	}
	if clientID := strings.TrimSpace(os.Getenv(envFoursquareClientID)); clientID != "" {
		cfg.Foursquare.ClientID = clientID
	}
	if secret := strings.TrimSpace(os.Getenv(envFoursquareSecret)); secret != "" {
		cfg.Foursquare.ClientSecret = secret
	}
	if redisURL := strings.TrimSpace(os.Getenv(envRedisURL)); redisURL != "" {
		cfg.Redis.URL = redisURL
	}

	// Any non-empty WORKER value selects worker mode.
	if strings.TrimSpace(os.Getenv(envWorker)) != "" {
		cfg.Worker.Enabled = true
	}

	if value := strings.TrimSpace(os.Getenv(envGatewayPort)); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("%s must be a port number, got %q", envGatewayPort, value)
		}
		cfg.Gateway.Port = port
	}

	return nil
}

var errConfigNotFound = errors.New("config.json not found")

// findConfigPath resolves the active config file location.
//
// Precedence is VENUEBOT_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", errConfigNotFound
}
