package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"sensetrack/internal/analysis/contexts"
	"sensetrack/internal/analysis/risk"
	"sensetrack/internal/analysis/transitions"
	"sensetrack/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Storage  StorageConfig
	Server   ServerConfig
	Log      LogConfig
	AI       AIConfig
	Analysis AnalysisConfig
	// Location is where logs are enriched and day boundaries fall
	Location *time.Location
}

// StorageConfig selects the persistence adapter
type StorageConfig struct {
	Driver string // memory, sqlite3 or postgres
	DSN    string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// LogConfig holds logger settings
type LogConfig struct {
	Mode  string
	Level string
}

// AIConfig holds narration settings. An empty key disables the LLM and
// narratives fall back to rule-based insights.
type AIConfig struct {
	OpenAIKey   string
	OpenAIModel string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	CacheTTL    time.Duration
}

// Enabled reports whether an LLM is configured
func (c AIConfig) Enabled() bool {
	return c.OpenAIKey != ""
}

// AnalysisConfig carries the analyzer configurations
type AnalysisConfig struct {
	Transitions transitions.Config
	Contexts    contexts.Config
	Risk        risk.Config
}

// Load reads a .env file when present, then configuration from the environment, and validates it
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from environment variables only
func FromEnv() (*Config, error) {
	config := &Config{
		Storage: loadStorageConfig(),
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		Log: LogConfig{
			Mode:  getEnvOrDefault("LOG_MODE", "dev"),
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
		AI:       loadAIConfig(),
		Analysis: loadAnalysisConfig(),
	}

	loc, err := time.LoadLocation(getEnvOrDefault("SENSETRACK_TIMEZONE", "Local"))
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to load timezone")
	}
	config.Location = loc

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadStorageConfig() StorageConfig {
	driver := strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", "sqlite3"))
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" && driver == "sqlite3" {
		dsn = getEnvOrDefault("SQLITE_PATH", "sensetrack.db")
	}
	return StorageConfig{Driver: driver, DSN: dsn}
}

func loadAIConfig() AIConfig {
	return AIConfig{
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: getEnvOrDefault("LLM_MODEL", "gpt-4.1-mini"),
		BaseURL:     getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		MaxTokens:   getEnvIntOrDefault("MAX_TOKENS", 800),
		Temperature: getEnvFloatOrDefault("TEMPERATURE", 0.3),
		Timeout:     getEnvDurationOrDefault("LLM_TIMEOUT", 30*time.Second),
		CacheTTL:    getEnvDurationOrDefault("INSIGHT_CACHE_TTL", 15*time.Minute),
	}
}

func loadAnalysisConfig() AnalysisConfig {
	tc := transitions.DefaultConfig()
	tc.MinSamplesForTrend = getEnvIntOrDefault("TRANSITION_MIN_SAMPLES", tc.MinSamplesForTrend)
	tc.TrendSignificanceThreshold = getEnvFloatOrDefault("TRANSITION_TREND_THRESHOLD", tc.TrendSignificanceThreshold)
	tc.TopTransitionsLimit = getEnvIntOrDefault("TRANSITION_TOP_LIMIT", tc.TopTransitionsLimit)
	tc.MaxHistoryEntries = getEnvIntOrDefault("TRANSITION_MAX_HISTORY", tc.MaxHistoryEntries)
	tc.IncludeWeekly = getEnvBoolOrDefault("TRANSITION_INCLUDE_WEEKLY", tc.IncludeWeekly)
	tc.IncludeMonthly = getEnvBoolOrDefault("TRANSITION_INCLUDE_MONTHLY", tc.IncludeMonthly)

	cc := contexts.DefaultConfig()
	cc.MinLogsPerContext = getEnvIntOrDefault("CONTEXT_MIN_LOGS", cc.MinLogsPerContext)
	cc.TopTriggersLimit = getEnvIntOrDefault("CONTEXT_TOP_TRIGGERS", cc.TopTriggersLimit)
	cc.SignificantDifferenceThreshold = getEnvFloatOrDefault("CONTEXT_DIFFERENCE_THRESHOLD", cc.SignificantDifferenceThreshold)

	rc := risk.DefaultConfig()
	rc.WindowDays = getEnvIntOrDefault("RISK_WINDOW_DAYS", rc.WindowDays)
	rc.MinSameWeekdayLogs = getEnvIntOrDefault("RISK_MIN_SAME_WEEKDAY_LOGS", rc.MinSameWeekdayLogs)
	rc.HighArousalThreshold = getEnvIntOrDefault("RISK_HIGH_AROUSAL", rc.HighArousalThreshold)

	return AnalysisConfig{Transitions: tc, Contexts: cc, Risk: rc}
}

func validateConfig(config *Config) error {
	switch config.Storage.Driver {
	case "memory", "sqlite3":
	case "postgres":
		if config.Storage.DSN == "" {
			return errors.ConfigInvalid("DATABASE_URL is required for the postgres driver")
		}
	default:
		return errors.ConfigInvalid("STORAGE_DRIVER must be memory, sqlite3 or postgres")
	}
	if config.AI.CacheTTL <= 0 {
		return errors.ConfigInvalid("INSIGHT_CACHE_TTL must be positive")
	}
	if err := config.Analysis.Transitions.Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if err := config.Analysis.Contexts.Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if err := config.Analysis.Risk.Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
