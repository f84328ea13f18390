package config

import (
	"fmt"
	"os"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// validLogLevels are the accepted log level values.
var validLogLevels = []string{"debug", "info", "warn", "error"}

// durationEnvKeys lists all Config fields that are parsed as time.Duration.
var durationEnvKeys = []string{
	"QUOTE_CACHE_TTL",
	"QUOTE_MIN_INTERVAL",
	"QUOTE_TIMEOUT",
	"CACHE_SWEEP_INTERVAL",
	"READ_TIMEOUT",
	"WRITE_TIMEOUT",
	"IDLE_TIMEOUT",
	"SHUTDOWN_TIMEOUT",
}

// allEnvKeys is every config-related env var key.
var allEnvKeys = append([]string{
	"PORT", "LOG_LEVEL", "STORE", "MONGO_URI", "MONGO_DATABASE",
	"QUOTE_PROVIDER", "ALPHA_VANTAGE_API_KEY", "POLYGON_API_KEY", "QUOTE_BASE_URL",
	"QUOTE_CACHE_SIZE", "QUOTE_MAX_RETRIES", "STARTING_CASH", "PRICE_TOLERANCE",
	"GEMINI_API_KEY", "ADVICE_MODEL", "ADVICE_HISTORY", "CORS_ORIGIN",
}, durationEnvKeys...)

// unsetAllConfigEnv clears all config env vars and sets the default
// provider's key.
func unsetAllConfigEnv() {
	for _, key := range allEnvKeys {
		os.Unsetenv(key)
	}
	os.Setenv("ALPHA_VANTAGE_API_KEY", "test-key")
}

// genDurationString generates a valid Go duration string (e.g. "3s", "500ms", "2m").
func genDurationString() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		unit := rapid.SampledFrom([]string{"ms", "s", "m"}).Draw(t, "unit")
		val := rapid.IntRange(1, 600).Draw(t, "val")
		return fmt.Sprintf("%d%s", val, unit)
	})
}

// parseDurationOrDefault parses a duration string, returning the default if empty.
func parseDurationOrDefault(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, _ := time.ParseDuration(s)
	return d
}

func TestProperty_ValidConfigParsing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		// Empty string means "use default" (env var not set).
		portStr := rapid.OneOf(
			rapid.Just(""),
			rapid.Map(rapid.IntRange(1, 65535), func(v int) string { return fmt.Sprintf("%d", v) }),
		).Draw(t, "port")

		logLevel := rapid.OneOf(
			rapid.Just(""),
			rapid.SampledFrom(validLogLevels),
		).Draw(t, "logLevel")

		tolerance := rapid.OneOf(
			rapid.Just(""),
			rapid.Map(rapid.IntRange(1, 99), func(v int) string { return fmt.Sprintf("0.%02d", v) }),
		).Draw(t, "tolerance")

		durStrs := make(map[string]string, len(durationEnvKeys))
		for _, key := range durationEnvKeys {
			durStrs[key] = rapid.OneOf(
				rapid.Just(""),
				genDurationString(),
			).Draw(t, key)
		}

		if portStr != "" {
			os.Setenv("PORT", portStr)
		}
		if logLevel != "" {
			os.Setenv("LOG_LEVEL", logLevel)
		}
		if tolerance != "" {
			os.Setenv("PRICE_TOLERANCE", tolerance)
		}
		for _, key := range durationEnvKeys {
			if durStrs[key] != "" {
				os.Setenv(key, durStrs[key])
			}
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned error for valid inputs: %v", err)
		}

		expectedPort := 8080
		if portStr != "" {
			fmt.Sscanf(portStr, "%d", &expectedPort)
		}
		if cfg.Port != expectedPort {
			t.Fatalf("Port = %d, want %d", cfg.Port, expectedPort)
		}

		expectedLogLevel := "info"
		if logLevel != "" {
			expectedLogLevel = logLevel
		}
		if cfg.LogLevel != expectedLogLevel {
			t.Fatalf("LogLevel = %q, want %q", cfg.LogLevel, expectedLogLevel)
		}

		expectedTolerance := "0.05"
		if tolerance != "" {
			expectedTolerance = tolerance
		}
		if cfg.PriceTolerance.StringFixed(2) != expectedTolerance {
			t.Fatalf("PriceTolerance = %s, want %s", cfg.PriceTolerance, expectedTolerance)
		}

		type durField struct {
			envKey string
			got    time.Duration
			defVal time.Duration
		}
		durFields := []durField{
			{"QUOTE_CACHE_TTL", cfg.QuoteCacheTTL, 300 * time.Second},
			{"QUOTE_MIN_INTERVAL", cfg.QuoteMinInterval, 12 * time.Second},
			{"QUOTE_TIMEOUT", cfg.QuoteTimeout, 10 * time.Second},
			{"CACHE_SWEEP_INTERVAL", cfg.CacheSweepInterval, time.Minute},
			{"READ_TIMEOUT", cfg.ReadTimeout, 5 * time.Second},
			{"WRITE_TIMEOUT", cfg.WriteTimeout, max(30*time.Second, cfg.QuoteMinInterval*10)},
			{"IDLE_TIMEOUT", cfg.IdleTimeout, 60 * time.Second},
			{"SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout, 10 * time.Second},
		}
		for _, df := range durFields {
			expected := parseDurationOrDefault(durStrs[df.envKey], df.defVal)
			if df.got != expected {
				t.Fatalf("%s = %v, want %v (env=%q)", df.envKey, df.got, expected, durStrs[df.envKey])
			}
		}
	})
}

func TestProperty_InvalidPortReturnsError(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		invalidPort := rapid.OneOf(
			rapid.StringMatching(`[a-zA-Z]{1,10}`),
			rapid.Just("12.5"),
			rapid.Just("1.0e2"),
		).Filter(func(s string) bool {
			if s == "" {
				return false
			}
			_, err := fmt.Sscanf(s, "%d", new(int))
			return err != nil
		}).Draw(t, "invalidPort")

		os.Setenv("PORT", invalidPort)

		_, err := Load()
		if err == nil {
			t.Fatalf("Load() should return error for invalid PORT %q", invalidPort)
		}
	})
}

func TestProperty_InvalidLogLevelReturnsError(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		invalidLevel := rapid.StringMatching(`[a-z]{1,20}`).Filter(func(s string) bool {
			for _, v := range validLogLevels {
				if s == v {
					return false
				}
			}
			return s != ""
		}).Draw(t, "invalidLevel")

		os.Setenv("LOG_LEVEL", invalidLevel)

		_, err := Load()
		if err == nil {
			t.Fatalf("Load() should return error for invalid LOG_LEVEL %q", invalidLevel)
		}
	})
}

func TestProperty_ToleranceOutsideUnitIntervalReturnsError(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		tol := rapid.OneOf(
			rapid.Map(rapid.IntRange(1, 1000), func(v int) string { return fmt.Sprintf("%d", v) }),
			rapid.Map(rapid.IntRange(0, 1000), func(v int) string { return fmt.Sprintf("-0.%03d", v) }),
			rapid.Just("0"),
		).Draw(t, "tolerance")

		os.Setenv("PRICE_TOLERANCE", tol)

		if _, err := Load(); err == nil {
			t.Fatalf("Load() should return error for PRICE_TOLERANCE %q", tol)
		}
	})
}

func TestProperty_InvalidDurationReturnsError(t *testing.T) {
	for _, key := range durationEnvKeys {
		t.Run(key, func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				unsetAllConfigEnv()
				defer unsetAllConfigEnv()

				invalidDur := rapid.OneOf(
					rapid.StringMatching(`[a-zA-Z]{2,10}`),
					rapid.Just("notaduration"),
					rapid.Just("5x"),
					rapid.Just("abc123"),
				).Filter(func(s string) bool {
					if s == "" {
						return false
					}
					_, err := time.ParseDuration(s)
					return err != nil
				}).Draw(t, "invalidDuration")

				os.Setenv(key, invalidDur)

				_, err := Load()
				if err == nil {
					t.Fatalf("Load() should return error for invalid %s=%q", key, invalidDur)
				}
			})
		})
	}
}
