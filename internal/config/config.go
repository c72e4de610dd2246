package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDriveFileID = "1tB8RDy8I8iQLn7WFfeNlauWcHlHr-Cy7"

type Config struct {
	Port        int
	PublicURL   string
	DatabaseURL string

	SessionSecret      string
	GoogleClientID     string
	GoogleClientSecret string
	SessionTTL         time.Duration
	CookieSecure       bool
	AllowedUsersFile   string

	DriveFileID  string
	FetchTimeout time.Duration
	FetchRetries int
	CacheTTL     time.Duration

	OrdersSheet         string
	CustomersSheet      string
	CustomerNameColumn  string
	CustomerTotalColumn string
	SummaryColumn       string
	SummaryStartRow     int
	SummaryCells        int

	LogLevel    string
	Environment string
}

// ConfigError reports configuration the server cannot start without.
type ConfigError struct {
	Missing []string
	Reason  string
}

func (e *ConfigError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required configuration: %s (environment variable or .env)", strings.Join(e.Missing, ", "))
	}
	return e.Reason
}

// Load reads the process environment first and ./.env second.
func Load() (Config, error) {
	return LoadFrom(filepath.Join(".", ".env"))
}

func LoadFrom(envPath string) (Config, error) {
	values := map[string]string{}
	if _, err := os.Stat(envPath); err == nil {
		fileValues, err := godotenv.Read(envPath)
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", envPath, err)
		}
		values = fileValues
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("stat %s: %w", envPath, err)
	}

	lookup := func(key string) string {
		return firstNonEmpty(os.Getenv(key), values[key])
	}

	cfg := Config{
		PublicURL:           strings.TrimRight(lookup("PUBLIC_URL"), "/"),
		DatabaseURL:         lookup("DATABASE_URL"),
		SessionSecret:       lookup("SESSION_SECRET"),
		GoogleClientID:      lookup("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:  lookup("GOOGLE_CLIENT_SECRET"),
		AllowedUsersFile:    withDefault(lookup("ALLOWED_USERS_FILE"), "authorized_users.txt"),
		DriveFileID:         withDefault(lookup("DRIVE_FILE_ID"), defaultDriveFileID),
		OrdersSheet:         withDefault(lookup("ORDERS_SHEET"), "Orders"),
		CustomersSheet:      withDefault(lookup("CUSTOMERS_SHEET"), "Customers"),
		CustomerNameColumn:  withDefault(lookup("CUSTOMER_NAME_COLUMN"), "ORDERED BY"),
		CustomerTotalColumn: withDefault(lookup("CUSTOMER_TOTAL_COLUMN"), "TOTAL AMOUNT"),
		SummaryColumn:       strings.ToUpper(withDefault(lookup("SUMMARY_COLUMN"), "I")),
		LogLevel:            withDefault(lookup("LOG_LEVEL"), "info"),
		Environment:         withDefault(lookup("ENVIRONMENT"), "production"),
	}

	var missing []string
	for _, required := range []struct{ key, value string }{
		{"SESSION_SECRET", cfg.SessionSecret},
		{"GOOGLE_CLIENT_ID", cfg.GoogleClientID},
		{"GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret},
	} {
		if required.value == "" {
			missing = append(missing, required.key)
		}
	}
	if len(missing) > 0 {
		return Config{}, &ConfigError{Missing: missing}
	}

	var err error
	if cfg.Port, err = positiveInt(lookup("PORT"), "PORT", 8080); err != nil {
		return Config{}, err
	}
	if cfg.SummaryStartRow, err = positiveInt(lookup("SUMMARY_START_ROW"), "SUMMARY_START_ROW", 2); err != nil {
		return Config{}, err
	}
	if cfg.SummaryCells, err = positiveInt(lookup("SUMMARY_CELLS"), "SUMMARY_CELLS", 6); err != nil {
		return Config{}, err
	}
	if cfg.FetchRetries, err = nonNegativeInt(lookup("FETCH_RETRIES"), "FETCH_RETRIES", 2); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = positiveDuration(lookup("CACHE_TTL"), "CACHE_TTL", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.FetchTimeout, err = positiveDuration(lookup("FETCH_TIMEOUT"), "FETCH_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = positiveDuration(lookup("SESSION_TTL"), "SESSION_TTL", 30*24*time.Hour); err != nil {
		return Config{}, err
	}

	cfg.CookieSecure = strings.HasPrefix(cfg.PublicURL, "https://")
	if raw := lookup("COOKIE_SECURE"); raw != "" {
		secure, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, &ConfigError{Reason: fmt.Sprintf("invalid COOKIE_SECURE: %q", raw)}
		}
		cfg.CookieSecure = secure
	}

	return cfg, nil
}

func firstNonEmpty(candidates ...string) string {
	for _, candidate := range candidates {
		if value := strings.TrimSpace(candidate); value != "" {
			return value
		}
	}
	return ""
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func positiveInt(raw, key string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, &ConfigError{Reason: fmt.Sprintf("invalid %s: %q", key, raw)}
	}
	return value, nil
}

func nonNegativeInt(raw, key string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, &ConfigError{Reason: fmt.Sprintf("invalid %s: %q", key, raw)}
	}
	return value, nil
}

func positiveDuration(raw, key string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return 0, &ConfigError{Reason: fmt.Sprintf("invalid %s: %q", key, raw)}
	}
	return value, nil
}
