package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/rental-cache/internal/testutil"
	"github.com/Sternrassler/rental-cache/pkg/cache"
	"github.com/Sternrassler/rental-cache/pkg/logging"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q, want localhost:6379", cfg.Redis.Addr)
	}
	if cfg.Redis.DialTimeout != 5*time.Second {
		t.Errorf("Redis.DialTimeout = %v, want 5s", cfg.Redis.DialTimeout)
	}
	if cfg.Redis.ReadTimeout != time.Second || cfg.Redis.WriteTimeout != time.Second {
		t.Errorf("Redis read/write timeouts = %v/%v, want 1s/1s", cfg.Redis.ReadTimeout, cfg.Redis.WriteTimeout)
	}
	if cfg.Cache.DefaultTTL != cache.DefaultTTL {
		t.Errorf("Cache.DefaultTTL = %v, want %v", cfg.Cache.DefaultTTL, cache.DefaultTTL)
	}
	if cfg.Cache.Codec != cache.CodecJSON {
		t.Errorf("Cache.Codec = %q, want json", cfg.Cache.Codec)
	}
	if cfg.Cache.ScanCount != cache.DefaultScanCount {
		t.Errorf("Cache.ScanCount = %d, want %d", cfg.Cache.ScanCount, cache.DefaultScanCount)
	}
	if got := cfg.Cache.NamespaceTTLs["bank-slip"]; got != 30*time.Minute {
		t.Errorf("NamespaceTTLs[bank-slip] = %v, want 30m", got)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_READ_TIMEOUT", "250ms")
	t.Setenv("CACHE_KEY_PREFIX", "staging:")
	t.Setenv("CACHE_DEFAULT_TTL", "90s")
	t.Setenv("CACHE_NAMESPACE_TTLS", "analytics=1m, document=20m")
	t.Setenv("CACHE_CODEC", "msgpack")
	t.Setenv("CACHE_SCAN_COUNT", "100")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Redis.Addr != "redis.internal:6380" || cfg.Redis.DB != 3 {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if cfg.Redis.ReadTimeout != 250*time.Millisecond {
		t.Errorf("Redis.ReadTimeout = %v, want 250ms", cfg.Redis.ReadTimeout)
	}
	if cfg.Cache.KeyPrefix != "staging:" {
		t.Errorf("Cache.KeyPrefix = %q, want staging:", cfg.Cache.KeyPrefix)
	}
	if cfg.Cache.DefaultTTL != 90*time.Second {
		t.Errorf("Cache.DefaultTTL = %v, want 90s", cfg.Cache.DefaultTTL)
	}
	if len(cfg.Cache.NamespaceTTLs) != 2 || cfg.Cache.NamespaceTTLs["document"] != 20*time.Minute {
		t.Errorf("Cache.NamespaceTTLs = %v", cfg.Cache.NamespaceTTLs)
	}
	if cfg.Cache.Codec != "msgpack" || cfg.Cache.ScanCount != 100 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if !cfg.Log.Pretty || cfg.Log.Level != "debug" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.HTTPPort != "9090" {
		t.Errorf("HTTPPort = %q, want 9090", cfg.HTTPPort)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.yaml")
	content := "redis_addr: file-redis:6379\ncache_default_ttl: 2m\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// Environment overrides the file.
	t.Setenv("CACHE_DEFAULT_TTL", "3m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Redis.Addr != "file-redis:6379" {
		t.Errorf("Redis.Addr = %q, want file-redis:6379", cfg.Redis.Addr)
	}
	if cfg.Cache.DefaultTTL != 3*time.Minute {
		t.Errorf("Cache.DefaultTTL = %v, want 3m", cfg.Cache.DefaultTTL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown codec", key: "CACHE_CODEC", value: "gob"},
		{name: "zero default ttl", key: "CACHE_DEFAULT_TTL", value: "0s"},
		{name: "zero scan count", key: "CACHE_SCAN_COUNT", value: "0"},
		{name: "negative retries", key: "REDIS_MAX_RETRIES", value: "-1"},
		{name: "malformed namespace ttls", key: "CACHE_NAMESPACE_TTLS", value: "analytics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(""); err == nil {
				t.Errorf("Load() with %s=%q should fail", tt.key, tt.value)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() with missing config file should fail")
	}
}

func TestParseNamespaceTTLs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]time.Duration
		wantErr bool
	}{
		{name: "empty", raw: "", want: map[string]time.Duration{}},
		{
			name: "default policy",
			raw:  DefaultNamespaceTTLs,
			want: map[string]time.Duration{
				"analytics":     5 * time.Minute,
				"bank-slip":     30 * time.Minute,
				"document":      10 * time.Minute,
				"document-list": 10 * time.Minute,
				"property":      10 * time.Minute,
			},
		},
		{
			name: "nested namespace and spaces",
			raw:  " analytics:report = 1m , ",
			want: map[string]time.Duration{"analytics:report": time.Minute},
		},
		{name: "missing duration", raw: "analytics=", wantErr: true},
		{name: "missing namespace", raw: "=5m", wantErr: true},
		{name: "negative", raw: "analytics=-5m", wantErr: true},
		{name: "duplicate", raw: "analytics=1m,analytics=2m", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNamespaceTTLs(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNamespaceTTLs(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseNamespaceTTLs(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for ns, ttl := range tt.want {
				if got[ns] != ttl {
					t.Errorf("policy[%q] = %v, want %v", ns, got[ns], ttl)
				}
			}
		})
	}
}

func TestFormatNamespaceTTLs(t *testing.T) {
	policy, err := ParseNamespaceTTLs(DefaultNamespaceTTLs)
	if err != nil {
		t.Fatalf("ParseNamespaceTTLs() error = %v", err)
	}

	want := "analytics=5m0s,bank-slip=30m0s,document=10m0s,document-list=10m0s,property=10m0s"
	if got := FormatNamespaceTTLs(policy); got != want {
		t.Errorf("FormatNamespaceTTLs() = %q, want %q", got, want)
	}
}

func TestRedisOptions(t *testing.T) {
	t.Run("discrete fields", func(t *testing.T) {
		cfg := RedisConfig{
			Addr:        "cache:6379",
			Password:    "secret",
			DB:          2,
			DialTimeout: 3 * time.Second,
			PoolSize:    20,
		}

		opt, err := cfg.Options()
		if err != nil {
			t.Fatalf("Options() error = %v", err)
		}
		if opt.Addr != "cache:6379" || opt.Password != "secret" || opt.DB != 2 {
			t.Errorf("Options() = %+v", opt)
		}
		if opt.DialTimeout != 3*time.Second || opt.PoolSize != 20 {
			t.Errorf("DialTimeout/PoolSize = %v/%d", opt.DialTimeout, opt.PoolSize)
		}
		if opt.MaxRetries != -1 {
			t.Errorf("MaxRetries = %d, want -1 (disabled)", opt.MaxRetries)
		}
	})

	t.Run("url takes precedence", func(t *testing.T) {
		cfg := RedisConfig{
			URL:        "redis://user:pw@url-host:6390/4",
			Addr:       "ignored:6379",
			MaxRetries: 2,
		}

		opt, err := cfg.Options()
		if err != nil {
			t.Fatalf("Options() error = %v", err)
		}
		if opt.Addr != "url-host:6390" || opt.DB != 4 || opt.Username != "user" || opt.Password != "pw" {
			t.Errorf("Options() = %+v", opt)
		}
		if opt.MaxRetries != 2 {
			t.Errorf("MaxRetries = %d, want 2", opt.MaxRetries)
		}
	})

	t.Run("bad url", func(t *testing.T) {
		if _, err := (RedisConfig{URL: "http://nope"}).Options(); err == nil {
			t.Error("Options() with non-redis scheme should fail")
		}
	})
}

func TestCacheConfig(t *testing.T) {
	client, _ := testutil.NewRedis(t)

	t.Setenv("CACHE_CODEC", "msgpack")
	t.Setenv("CACHE_KEY_PREFIX", "test:")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cacheCfg, err := cfg.CacheConfig(client, testutil.NopLogger())
	if err != nil {
		t.Fatalf("CacheConfig() error = %v", err)
	}
	if cacheCfg.Codec.Name() != cache.CodecMsgpack {
		t.Errorf("Codec = %q, want msgpack", cacheCfg.Codec.Name())
	}
	if cacheCfg.KeyPrefix != "test:" {
		t.Errorf("KeyPrefix = %q, want test:", cacheCfg.KeyPrefix)
	}

	if _, err := cache.New(cacheCfg); err != nil {
		t.Errorf("cache.New(CacheConfig()) error = %v", err)
	}
}

func TestLoggingConfig(t *testing.T) {
	cfg := Config{Log: LogConfig{Level: "warn", Pretty: true}}

	got := cfg.LoggingConfig()
	if got.Level != logging.LevelWarn || !got.Pretty {
		t.Errorf("LoggingConfig() = %+v", got)
	}
}
