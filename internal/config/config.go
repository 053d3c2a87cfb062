package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"jizhang/internal/inference"
	"jizhang/internal/stats"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// AMQP (optional for the server, required by the worker)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Inference provider
	InferenceProvider string
	InferenceBaseURL  string
	InferenceModel    string
	InferenceAPIKey   string
	InferenceTimeout  time.Duration
	InferenceReferer  string
	InferenceTitle    string

	// Chart normalization
	ChartMaxSlices          int
	ChartMergeThreshold     float64
	ChartMinDisplayFraction float64

	// Chat and statistics
	ChatHistoryLimit int
	StatsCacheTTL    time.Duration

	// Google Sheets mirror (worker)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	LogLevel string
}

var (
	validBackends  = []string{"memory", "sqlite"}
	validProviders = []string{"openai", "gemini"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

func Load() *Config {
	defaults := stats.DefaultOptions()
	provider := inference.Kind(strings.ToLower(getEnv("INFERENCE_PROVIDER", string(inference.KindOpenAI))))

	return &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "sqlite"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/jizhang.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "jizhang"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),

		InferenceProvider: string(provider),
		InferenceBaseURL:  getEnv("INFERENCE_BASE_URL", inference.DefaultBaseURLFor(provider)),
		InferenceModel:    getEnv("INFERENCE_MODEL", inference.DefaultModelFor(provider)),
		InferenceAPIKey:   getEnv("INFERENCE_API_KEY", ""),
		InferenceTimeout:  getEnvDuration("INFERENCE_TIMEOUT", inference.DefaultTimeout),
		InferenceReferer:  getEnv("INFERENCE_REFERER", ""),
		InferenceTitle:    getEnv("INFERENCE_TITLE", "jizhang"),

		ChartMaxSlices:          getEnvInt("CHART_MAX_SLICES", defaults.MaxSlices),
		ChartMergeThreshold:     getEnvFloat("CHART_MERGE_THRESHOLD", defaults.MergeThreshold),
		ChartMinDisplayFraction: getEnvFloat("CHART_MIN_DISPLAY_FRACTION", defaults.MinDisplayFraction),

		ChatHistoryLimit: getEnvInt("CHAT_HISTORY_LIMIT", 300),
		StatsCacheTTL:    getEnvDuration("STATS_CACHE_TTL", 5*time.Minute),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !slices.Contains(validProviders, c.InferenceProvider) {
		errors = append(errors, fmt.Sprintf("invalid inference provider '%s': must be one of %v", c.InferenceProvider, validProviders))
	}
	if strings.TrimSpace(c.InferenceAPIKey) == "" {
		errors = append(errors, "INFERENCE_API_KEY is required")
	}
	if c.InferenceBaseURL != "" {
		if u, err := url.Parse(c.InferenceBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid inference base URL '%s': must be an http(s) URL", c.InferenceBaseURL))
		}
	}
	if c.InferenceProvider == string(inference.KindGemini) {
		if c.InferenceBaseURL == inference.DefaultBaseURL {
			errors = append(errors, "inference base URL points at OpenRouter but the provider is gemini")
		}
		if strings.Contains(c.InferenceModel, "/") {
			errors = append(errors, fmt.Sprintf("invalid gemini model '%s': looks like an OpenRouter model id", c.InferenceModel))
		}
	}
	if c.InferenceTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid inference timeout %v: must be at least 1 second", c.InferenceTimeout))
	} else if c.InferenceTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid inference timeout %v: must be at most 5 minutes", c.InferenceTimeout))
	}

	if c.ChartMaxSlices < 0 {
		errors = append(errors, fmt.Sprintf("invalid chart max slices %d: must not be negative", c.ChartMaxSlices))
	}
	if c.ChartMergeThreshold < 0 || c.ChartMergeThreshold >= 1 {
		errors = append(errors, fmt.Sprintf("invalid chart merge threshold %v: must be in [0, 1)", c.ChartMergeThreshold))
	}
	if c.ChartMinDisplayFraction < 0 || c.ChartMinDisplayFraction >= 1 {
		errors = append(errors, fmt.Sprintf("invalid chart minimum display fraction %v: must be in [0, 1)", c.ChartMinDisplayFraction))
	}

	if c.ChatHistoryLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid chat history limit %d: must be at least 1", c.ChatHistoryLimit))
	} else if c.ChatHistoryLimit > 10000 {
		errors = append(errors, fmt.Sprintf("invalid chat history limit %d: must be at most 10000", c.ChatHistoryLimit))
	}
	if c.StatsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid stats cache TTL %v: must not be negative", c.StatsCacheTTL))
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.LogLevel != "" && !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker checks the settings the mirror worker needs on top of Validate.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the worker")
	}
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided with a spreadsheet ID")
		}
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Inference returns the provider settings.
func (c *Config) Inference() inference.Config {
	return inference.Config{
		Kind:    inference.Kind(c.InferenceProvider),
		BaseURL: c.InferenceBaseURL,
		APIKey:  c.InferenceAPIKey,
		Model:   c.InferenceModel,
		Timeout: c.InferenceTimeout,
		Referer: c.InferenceReferer,
		Title:   c.InferenceTitle,
	}
}

// ChartOptions returns the normalizer settings.
func (c *Config) ChartOptions() stats.Options {
	return stats.Options{
		MaxSlices:          c.ChartMaxSlices,
		MergeThreshold:     c.ChartMergeThreshold,
		MinDisplayFraction: c.ChartMinDisplayFraction,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
