package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("EQUIPFIND_PORT", "9191")
	t.Setenv("EQUIPFIND_LOG_LEVEL", "debug")
	t.Setenv("EQUIPFIND_VOCABULARY_TTL", "30s")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Port != 9191 {
		t.Errorf("Port = %d, want 9191", cfg.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
	if cfg.Search.VocabularyTTL != 30*time.Second {
		t.Errorf("VocabularyTTL = %v, want 30s", cfg.Search.VocabularyTTL)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Search.VocabularyTTL != 45*time.Second {
		t.Errorf("VocabularyTTL = %v, want 45s", cfg.Search.VocabularyTTL)
	}
	if cfg.Search.CandidateLimit != 420 || cfg.Search.FallbackLimit != 520 {
		t.Errorf("limits = %d/%d, want 420/520", cfg.Search.CandidateLimit, cfg.Search.FallbackLimit)
	}
	if cfg.Search.Analyzer != "plain" {
		t.Errorf("Analyzer = %s, want plain", cfg.Search.Analyzer)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
host: "127.0.0.1"
port: 8888
grpc_port: 0
catalog:
  driver: sqlite3
  dsn: "file:catalog.db"
stats:
  backend: redis
  redis_url: "redis://cache:6379/1"
search:
  vocabulary_ttl: 1m
  analyzer: snowball
  language: french
log:
  level: warn
  format: json
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Host)
	}
	if cfg.Port != 8888 {
		t.Errorf("Port = %d, want 8888", cfg.Port)
	}
	if cfg.GRPCAddress() != "" {
		t.Errorf("GRPCAddress() = %q, want disabled", cfg.GRPCAddress())
	}
	if cfg.Catalog.Driver != "sqlite3" {
		t.Errorf("Catalog.Driver = %s, want sqlite3", cfg.Catalog.Driver)
	}
	if cfg.Stats.RedisURL != "redis://cache:6379/1" {
		t.Errorf("Stats.RedisURL = %s", cfg.Stats.RedisURL)
	}
	if cfg.Search.VocabularyTTL != time.Minute {
		t.Errorf("VocabularyTTL = %v, want 1m", cfg.Search.VocabularyTTL)
	}
	if cfg.Search.Language != "french" {
		t.Errorf("Language = %s, want french", cfg.Search.Language)
	}
	// Untouched sections keep their defaults.
	if cfg.Search.CandidateLimit != 420 {
		t.Errorf("CandidateLimit = %d, want default 420", cfg.Search.CandidateLimit)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load() with missing file should fail")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"invalid port", func(c *Config) { c.Port = 0 }, true},
		{"grpc port clash", func(c *Config) { c.GRPCPort = c.Port }, true},
		{"grpc disabled", func(c *Config) { c.GRPCPort = 0 }, false},
		{"invalid catalog driver", func(c *Config) { c.Catalog.Driver = "mysql" }, true},
		{"empty dsn", func(c *Config) { c.Catalog.DSN = "" }, true},
		{"invalid stats backend", func(c *Config) { c.Stats.Backend = "memcached" }, true},
		{"redis stats without url", func(c *Config) { c.Stats.Backend = "redis"; c.Stats.RedisURL = "" }, true},
		{"zero ttl", func(c *Config) { c.Search.VocabularyTTL = 0 }, true},
		{"fallback below candidate", func(c *Config) { c.Search.FallbackLimit = 100 }, true},
		{"suggest limit too high", func(c *Config) { c.Search.SuggestLimit = 21 }, true},
		{"unknown analyzer", func(c *Config) { c.Search.Analyzer = "spacy" }, true},
		{"snowball bad language", func(c *Config) { c.Search.Analyzer = "snowball"; c.Search.Language = "arabic" }, true},
		{"invalid bus type", func(c *Config) { c.Bus.Type = "nats" }, true},
		{"kafka without brokers", func(c *Config) { c.Bus.Type = "kafka" }, true},
		{"invalid log level", func(c *Config) { c.Log.Level = "invalid" }, true},
		{"negative rate limit", func(c *Config) { c.Security.RateLimit = -1 }, true},
		{"relative metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: 8080, GRPCPort: 9090}

	if addr := cfg.Address(); addr != "localhost:8080" {
		t.Errorf("Address() = %s, want localhost:8080", addr)
	}
	if addr := cfg.GRPCAddress(); addr != "localhost:9090" {
		t.Errorf("GRPCAddress() = %s, want localhost:9090", addr)
	}
}

func TestKafkaBrokerList(t *testing.T) {
	cfg := &Config{}
	cfg.Bus.KafkaBrokers = " kafka-1:9092, ,kafka-2:9092 "

	want := []string{"kafka-1:9092", "kafka-2:9092"}
	if got := cfg.KafkaBrokerList(); !reflect.DeepEqual(got, want) {
		t.Errorf("KafkaBrokerList() = %v, want %v", got, want)
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := &Config{}

	cfg.Log.Level = "debug"
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true for debug level")
	}

	cfg.Log.Level = "info"
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false for info level")
	}
}
