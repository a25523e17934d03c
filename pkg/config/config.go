package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFaviconAPI    = "https://favicon.cccyun.cc/${hostname}"
	DefaultLinkIcon      = "/static/default_link.svg"
	DefaultErrorIcon     = "/static/default_error.svg"
	DefaultBackground    = "/static/default_bg.svg"
	DefaultHealthTimeout = 3 * time.Second

	// Outbound health probes running at once, across all viewers.
	DefaultHealthConcurrency = 16
	// Health results of a viewer nobody has rendered for or listened to
	// this long are dropped.
	DefaultHealthIdle = 15 * time.Minute

	// Browser namespaces idle this long are purged from storage.
	DefaultSessionRetention = 90 * 24 * time.Hour
)

type Config struct {
	Port          string        `yaml:"port"`
	APIBaseURL    string        `yaml:"api_base_url"`
	StorageURL    string        `yaml:"storage_url"`
	AppEnv        string        `yaml:"app_env"`
	BaseURL       string        `yaml:"base_url"`
	JWTSecret     string        `yaml:"jwt_secret"`
	FaviconAPI    string        `yaml:"favicon_api"`
	HealthTimeout time.Duration `yaml:"health_timeout"`
	ToastDuration time.Duration `yaml:"toast_duration"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`

	SessionRetention time.Duration `yaml:"session_retention"`

	// ConfigPath is the YAML overlay the values were read from, if any.
	ConfigPath string `yaml:"-"`
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		APIBaseURL:    getEnv("API_BASE_URL", "http://localhost:8000/api"),
		StorageURL:    getEnv("STORAGE_URL", "file:onepanel.sqlite"),
		AppEnv:        getEnv("APP_ENV", "local"),
		BaseURL:       getEnv("BASE_URL", "http://localhost:8080"),
		JWTSecret:     getEnv("JWT_SECRET", "secret"),
		FaviconAPI:    getEnv("FAVICON_API", DefaultFaviconAPI),
		HealthTimeout: getDuration("HEALTH_TIMEOUT", DefaultHealthTimeout),
		ToastDuration: getDuration("TOAST_DURATION", 1500*time.Millisecond),
		HTTPTimeout:   getDuration("HTTP_TIMEOUT", 15*time.Second),

		SessionRetention: getDuration("SESSION_RETENTION", DefaultSessionRetention),
	}

	if path := os.Getenv("ONEPANEL_CONFIG"); path != "" {
		_ = cfg.overlay(path)
	}
	return cfg
}

// overlay applies non-zero values from a YAML file on top of cfg.
func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	c.ConfigPath = path
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getDuration accepts Go duration strings ("3s") or plain milliseconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
