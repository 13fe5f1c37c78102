// Package config loads the explorer server configuration.
//
// Values are resolved in order: built-in defaults, an optional TOML file,
// environment variables, then command-line flags. Later sources override
// earlier ones only for the values they actually set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
)

// Config holds the server configuration.
type Config struct {
	// Port the HTTP server listens on.
	Port string

	// RedisURL is a redis:// URL or a host:port address. Empty disables
	// Redis; caching is then off and session state stays in memory.
	RedisURL string

	// SpaceX API client
	SpaceXBaseURL  string
	UserAgent      string
	RequestTimeout time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration

	// Logging
	LogLevel  string
	LogPretty bool
	LogFile   string

	// FavoritesFile, when set, stores one shared favorites list in a file
	// instead of per-session lists.
	FavoritesFile string

	// Scroll state
	ScrollStateTTL time.Duration
	PendingTimeout time.Duration

	// Statistics dataset fetch
	DatasetPageSize    int
	DatasetConcurrency int
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:               "8080",
		SpaceXBaseURL:      "https://api.spacexdata.com/v4",
		UserAgent:          "spacex-explorer/0.1.0",
		RequestTimeout:     30 * time.Second,
		MaxAttempts:        3,
		InitialBackoff:     1 * time.Second,
		LogLevel:           "info",
		ScrollStateTTL:     30 * time.Minute,
		PendingTimeout:     30 * time.Second,
		DatasetPageSize:    200,
		DatasetConcurrency: 4,
	}
}

// fileConfig mirrors Config in the TOML file. Durations are strings such as "30s".
type fileConfig struct {
	Port     string `toml:"port"`
	RedisURL string `toml:"redis_url"`

	SpaceX struct {
		BaseURL        string `toml:"base_url"`
		UserAgent      string `toml:"user_agent"`
		Timeout        string `toml:"timeout"`
		MaxAttempts    int    `toml:"max_attempts"`
		InitialBackoff string `toml:"initial_backoff"`
	} `toml:"spacex"`

	Log struct {
		Level  string `toml:"level"`
		Pretty *bool  `toml:"pretty"`
		File   string `toml:"file"`
	} `toml:"log"`

	Favorites struct {
		File string `toml:"file"`
	} `toml:"favorites"`

	Scroll struct {
		StateTTL       string `toml:"state_ttl"`
		PendingTimeout string `toml:"pending_timeout"`
	} `toml:"scroll"`

	Stats struct {
		PageSize    int `toml:"page_size"`
		Concurrency int `toml:"concurrency"`
	} `toml:"stats"`
}

// Load resolves the configuration from defaults, the TOML file named by
// --config or CONFIG_FILE, the environment and args.
func Load(args []string, getenv func(string) string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("spacex-explorer", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a TOML config file")
	port := fs.StringP("port", "p", cfg.Port, "HTTP listen port")
	redisURL := fs.String("redis-url", "", "Redis URL or host:port (empty disables Redis)")
	baseURL := fs.String("spacex-api", cfg.SpaceXBaseURL, "SpaceX API root")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	logPretty := fs.Bool("log-pretty", false, "human-readable console logs")
	logFile := fs.String("log-file", "", "also write JSON logs to this rotating file")
	favoritesFile := fs.String("favorites-file", "", "store one shared favorites list in this file")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	path := *configPath
	if path == "" {
		path = getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.loadEnv(getenv); err != nil {
		return Config{}, err
	}

	if fs.Changed("port") {
		cfg.Port = *port
	}
	if fs.Changed("redis-url") {
		cfg.RedisURL = *redisURL
	}
	if fs.Changed("spacex-api") {
		cfg.SpaceXBaseURL = *baseURL
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if fs.Changed("log-pretty") {
		cfg.LogPretty = *logPretty
	}
	if fs.Changed("log-file") {
		cfg.LogFile = *logFile
	}
	if fs.Changed("favorites-file") {
		cfg.FavoritesFile = *favoritesFile
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&c.Port, raw.Port)
	setString(&c.RedisURL, raw.RedisURL)
	setString(&c.SpaceXBaseURL, raw.SpaceX.BaseURL)
	setString(&c.UserAgent, raw.SpaceX.UserAgent)
	setInt(&c.MaxAttempts, raw.SpaceX.MaxAttempts)
	setString(&c.LogLevel, raw.Log.Level)
	if raw.Log.Pretty != nil {
		c.LogPretty = *raw.Log.Pretty
	}
	setString(&c.LogFile, raw.Log.File)
	setString(&c.FavoritesFile, raw.Favorites.File)
	setInt(&c.DatasetPageSize, raw.Stats.PageSize)
	setInt(&c.DatasetConcurrency, raw.Stats.Concurrency)

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"spacex.timeout", raw.SpaceX.Timeout, &c.RequestTimeout},
		{"spacex.initial_backoff", raw.SpaceX.InitialBackoff, &c.InitialBackoff},
		{"scroll.state_ttl", raw.Scroll.StateTTL, &c.ScrollStateTTL},
		{"scroll.pending_timeout", raw.Scroll.PendingTimeout, &c.PendingTimeout},
	}
	for _, d := range durations {
		if err := setDuration(d.dst, d.value); err != nil {
			return fmt.Errorf("config %s: %w", d.name, err)
		}
	}
	return nil
}

func (c *Config) loadEnv(getenv func(string) string) error {
	setString(&c.Port, getenv("PORT"))
	setString(&c.RedisURL, getenv("REDIS_URL"))
	setString(&c.SpaceXBaseURL, getenv("SPACEX_API_BASE"))
	setString(&c.UserAgent, getenv("USER_AGENT"))
	setString(&c.LogLevel, getenv("LOG_LEVEL"))
	setString(&c.LogFile, getenv("LOG_FILE"))
	setString(&c.FavoritesFile, getenv("FAVORITES_FILE"))

	if v := strings.TrimSpace(getenv("LOG_PRETTY")); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_PRETTY: %w", err)
		}
		c.LogPretty = pretty
	}
	if v := strings.TrimSpace(getenv("SPACEX_MAX_ATTEMPTS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SPACEX_MAX_ATTEMPTS: %w", err)
		}
		c.MaxAttempts = n
	}
	if err := setDuration(&c.RequestTimeout, getenv("SPACEX_TIMEOUT")); err != nil {
		return fmt.Errorf("SPACEX_TIMEOUT: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if strings.TrimSpace(c.SpaceXBaseURL) == "" {
		errs = append(errs, errors.New("spacex base url is required"))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_attempts must be >= 1 (got %d)", c.MaxAttempts))
	}
	if c.DatasetPageSize < 1 {
		errs = append(errs, fmt.Errorf("stats page_size must be >= 1 (got %d)", c.DatasetPageSize))
	}
	if c.DatasetConcurrency < 1 {
		errs = append(errs, fmt.Errorf("stats concurrency must be >= 1 (got %d)", c.DatasetConcurrency))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}

// RedisOptions parses RedisURL. It returns nil when Redis is disabled.
func (c Config) RedisOptions() (*redis.Options, error) {
	url := strings.TrimSpace(c.RedisURL)
	if url == "" {
		return nil, nil
	}
	if strings.Contains(url, "://") {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: url}, nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
