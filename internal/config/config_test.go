package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_PprofDefaultsAddrWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PPROF_ENABLED", "true")
	t.Setenv("PPROF_ADDR", "  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PprofAddr != ":6060" {
		t.Fatalf("expected default pprof addr :6060, got %q", cfg.PprofAddr)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("APP_SERVICE_NAME", "analytics-api-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "analytics-api-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_CORSOriginsDefaultAndParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("default wildcard", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
			t.Fatalf("unexpected default CORS origins: %+v", cfg.CORSAllowedOrigins)
		}
	})

	t.Run("comma separated parsing", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, http://localhost:5173 ")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 2 {
			t.Fatalf("unexpected CORS origins length: %d", len(cfg.CORSAllowedOrigins))
		}
		if cfg.CORSAllowedOrigins[0] != "https://a.example.com" {
			t.Fatalf("unexpected first CORS origin: %s", cfg.CORSAllowedOrigins[0])
		}
		if cfg.CORSAllowedOrigins[1] != "http://localhost:5173" {
			t.Fatalf("unexpected second CORS origin: %s", cfg.CORSAllowedOrigins[1])
		}
	})
}

func TestLoad_DBDisablePreparedBinaryResultParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("default true", func(t *testing.T) {
		t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.DBDisablePreparedBinary {
			t.Fatalf("expected DBDisablePreparedBinary=true by default")
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "not-bool")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid DB_DISABLE_PREPARED_BINARY_RESULT")
		}
	})
}

func TestLoad_CacheConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("CACHE_ENABLED", "")
		t.Setenv("CACHE_TTL", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.CacheEnabled {
			t.Fatalf("expected cache enabled by default")
		}
		if cfg.CacheTTL != 60*time.Second {
			t.Fatalf("unexpected default cache ttl: %s", cfg.CacheTTL)
		}
	})

	t.Run("invalid ttl", func(t *testing.T) {
		t.Setenv("CACHE_TTL", "bad")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid CACHE_TTL")
		}
	})
}

func TestLoad_StartGGConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.StartGGBaseURL != "https://api.start.gg/gql/alpha" {
			t.Fatalf("unexpected base url: %q", cfg.StartGGBaseURL)
		}
		if cfg.StartGGMaxAttempts != 10 {
			t.Fatalf("unexpected max attempts: %d", cfg.StartGGMaxAttempts)
		}
		if cfg.StartGGRequestsPerMinute != 75 {
			t.Fatalf("unexpected requests per minute: %d", cfg.StartGGRequestsPerMinute)
		}
		if cfg.StartGGCacheMaxAge != 168*time.Hour {
			t.Fatalf("unexpected cache max age: %s", cfg.StartGGCacheMaxAge)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("STARTGG_TOKEN", " token-123 ")
		t.Setenv("STARTGG_TIMEOUT", "45s")
		t.Setenv("STARTGG_MAX_ATTEMPTS", "3")
		t.Setenv("STARTGG_CACHE_DIR", "/var/cache/startgg")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.StartGGToken != "token-123" {
			t.Fatalf("unexpected token: %q", cfg.StartGGToken)
		}
		if cfg.StartGGTimeout != 45*time.Second {
			t.Fatalf("unexpected timeout: %s", cfg.StartGGTimeout)
		}
		if cfg.StartGGMaxAttempts != 3 {
			t.Fatalf("unexpected max attempts: %d", cfg.StartGGMaxAttempts)
		}
		if cfg.StartGGCacheDir != "/var/cache/startgg" {
			t.Fatalf("unexpected cache dir: %q", cfg.StartGGCacheDir)
		}
	})

	t.Run("invalid attempts", func(t *testing.T) {
		t.Setenv("STARTGG_MAX_ATTEMPTS", "0")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for STARTGG_MAX_ATTEMPTS=0")
		}
	})
}

func TestLoad_AnalyticsDefaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DefaultVideogameID != 1386 {
		t.Fatalf("unexpected default videogame: %d", cfg.DefaultVideogameID)
	}
	if cfg.DefaultMonthsBack != 6 {
		t.Fatalf("unexpected default months back: %d", cfg.DefaultMonthsBack)
	}
	if cfg.LargeEventThreshold != 32 {
		t.Fatalf("unexpected large event threshold: %d", cfg.LargeEventThreshold)
	}
	if cfg.SyncStaleAfter != 168*time.Hour {
		t.Fatalf("unexpected sync stale horizon: %s", cfg.SyncStaleAfter)
	}
	if cfg.SyncBundleWorkers != 4 {
		t.Fatalf("unexpected bundle workers: %d", cfg.SyncBundleWorkers)
	}
}

func TestLoad_RateLimitParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.RateLimitMax != 60 || cfg.RateLimitWindow != time.Minute {
			t.Fatalf("unexpected rate limit defaults: %d per %s", cfg.RateLimitMax, cfg.RateLimitWindow)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_MAX", "10")
		t.Setenv("RATE_LIMIT_WINDOW", "30s")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.RateLimitMax != 10 || cfg.RateLimitWindow != 30*time.Second {
			t.Fatalf("unexpected rate limit overrides: %d per %s", cfg.RateLimitMax, cfg.RateLimitWindow)
		}
	})

	t.Run("invalid window", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_WINDOW", "bad")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid RATE_LIMIT_WINDOW")
		}
	})
}
