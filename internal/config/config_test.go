package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

var keys = []string{
	"PORT", "PUBLIC_URL", "DATABASE_URL", "SESSION_SECRET", "GOOGLE_CLIENT_ID",
	"GOOGLE_CLIENT_SECRET", "ALLOWED_USERS_FILE", "DRIVE_FILE_ID", "ORDERS_SHEET",
	"CUSTOMERS_SHEET", "CUSTOMER_NAME_COLUMN", "CUSTOMER_TOTAL_COLUMN", "SUMMARY_COLUMN",
	"SUMMARY_START_ROW", "SUMMARY_CELLS", "CACHE_TTL", "FETCH_TIMEOUT", "FETCH_RETRIES",
	"SESSION_TTL", "LOG_LEVEL", "ENVIRONMENT", "COOKIE_SECURE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	return path
}

func TestLoadFrom_MissingSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_CLIENT_ID", "client")

	_, err := LoadFrom(filepath.Join(t.TempDir(), ".env"))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got %v, want ConfigError", err)
	}
	want := []string{"SESSION_SECRET", "GOOGLE_CLIENT_SECRET"}
	if !reflect.DeepEqual(cfgErr.Missing, want) {
		t.Fatalf("got missing %v, want %v", cfgErr.Missing, want)
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	clearEnv(t)
	path := writeEnv(t, "SESSION_SECRET=s3cret\nGOOGLE_CLIENT_ID=\"client\"\nexport GOOGLE_CLIENT_SECRET='shh'\n")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SessionSecret != "s3cret" || cfg.GoogleClientID != "client" || cfg.GoogleClientSecret != "shh" {
		t.Fatalf("secrets not read from .env: %+v", cfg)
	}
	if cfg.Port != 8080 || cfg.CacheTTL != 10*time.Minute || cfg.FetchTimeout != 30*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.FetchRetries != 2 || cfg.SessionTTL != 30*24*time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.OrdersSheet != "Orders" || cfg.SummaryColumn != "I" || cfg.SummaryStartRow != 2 || cfg.SummaryCells != 6 {
		t.Fatalf("unexpected layout defaults: %+v", cfg)
	}
	if cfg.AllowedUsersFile != "authorized_users.txt" || cfg.DriveFileID == "" || cfg.CookieSecure {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFrom_EnvironmentWins(t *testing.T) {
	clearEnv(t)
	path := writeEnv(t, "SESSION_SECRET=file\nGOOGLE_CLIENT_ID=file\nGOOGLE_CLIENT_SECRET=file\nPORT=9000\n")
	t.Setenv("PORT", "7000")
	t.Setenv("PUBLIC_URL", "https://dash.example.com/")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("FETCH_RETRIES", "0")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 7000 {
		t.Fatalf("got port %d, want 7000", cfg.Port)
	}
	if cfg.PublicURL != "https://dash.example.com" || !cfg.CookieSecure {
		t.Fatalf("public url handling: %+v", cfg)
	}
	if cfg.CacheTTL != 90*time.Second || cfg.FetchRetries != 0 {
		t.Fatalf("got ttl %v retries %d", cfg.CacheTTL, cfg.FetchRetries)
	}
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	for key, value := range map[string]string{
		"PORT":          "-1",
		"CACHE_TTL":     "ten minutes",
		"FETCH_RETRIES": "-2",
		"COOKIE_SECURE": "maybe",
		"SUMMARY_CELLS": "0",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("SESSION_SECRET", "s")
			t.Setenv("GOOGLE_CLIENT_ID", "c")
			t.Setenv("GOOGLE_CLIENT_SECRET", "x")
			t.Setenv(key, value)

			_, err := LoadFrom(filepath.Join(t.TempDir(), ".env"))
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("got %v, want ConfigError", err)
			}
		})
	}
}
