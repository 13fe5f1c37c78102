package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "explorer.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil, env(nil))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
port = "9000"
redis_url = "file-redis:6379"

[spacex]
base_url = "http://file.example/v4"
timeout = "5s"
max_attempts = 4

[log]
level = "debug"
pretty = true

[scroll]
pending_timeout = "10s"

[stats]
page_size = 50
`)

	cfg, err := Load(
		[]string{"--config", path, "--port", "9100"},
		env(map[string]string{
			"PORT":      "9050",
			"REDIS_URL": "env-redis:6379",
			"LOG_LEVEL": "warn",
		}),
	)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := Default()
	want.Port = "9100"
	want.RedisURL = "env-redis:6379"
	want.SpaceXBaseURL = "http://file.example/v4"
	want.RequestTimeout = 5 * time.Second
	want.MaxAttempts = 4
	want.LogLevel = "warn"
	want.LogPretty = true
	want.PendingTimeout = 10 * time.Second
	want.DatasetPageSize = 50

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ConfigFileFromEnv(t *testing.T) {
	path := writeConfig(t, `
[favorites]
file = "/var/lib/explorer/favorites.json"
`)

	cfg, err := Load(nil, env(map[string]string{"CONFIG_FILE": path}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.FavoritesFile != "/var/lib/explorer/favorites.json" {
		t.Errorf("Expected favorites file from config, got %q", cfg.FavoritesFile)
	}
}

func TestLoad_Errors(t *testing.T) {
	badDuration := writeConfig(t, "[scroll]\nstate_ttl = \"soon\"\n")
	badTOML := writeConfig(t, "port = \n")

	tests := []struct {
		name     string
		args     []string
		env      map[string]string
		contains string
	}{
		{"unknown_flag", []string{"--nope"}, nil, "parse flags"},
		{"missing_file", []string{"--config", "/does/not/exist.toml"}, nil, "read config"},
		{"bad_toml", []string{"--config", badTOML}, nil, "parse config"},
		{"bad_duration", []string{"--config", badDuration}, nil, "scroll.state_ttl"},
		{"bad_env_bool", nil, map[string]string{"LOG_PRETTY": "sometimes"}, "LOG_PRETTY"},
		{"bad_env_attempts", nil, map[string]string{"SPACEX_MAX_ATTEMPTS": "0"}, "max_attempts must be >= 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args, env(tt.env))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Expected error containing %q, got %v", tt.contains, err)
			}
		})
	}
}

func TestRedisOptions(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantAddr string
		wantDB   int
		wantNil  bool
	}{
		{name: "disabled", url: "", wantNil: true},
		{name: "address", url: "localhost:6379", wantAddr: "localhost:6379"},
		{name: "url", url: "redis://cache:6380/2", wantAddr: "cache:6380", wantDB: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := Config{RedisURL: tt.url}.RedisOptions()
			if err != nil {
				t.Fatalf("RedisOptions failed: %v", err)
			}
			if tt.wantNil {
				if opts != nil {
					t.Errorf("Expected nil options, got %+v", opts)
				}
				return
			}
			if opts.Addr != tt.wantAddr || opts.DB != tt.wantDB {
				t.Errorf("Expected %s db %d, got %s db %d", tt.wantAddr, tt.wantDB, opts.Addr, opts.DB)
			}
		})
	}
}

func TestRedisOptions_InvalidURL(t *testing.T) {
	if _, err := (Config{RedisURL: "http://localhost:6379"}).RedisOptions(); err == nil {
		t.Error("Expected error for non-redis scheme")
	}
}
