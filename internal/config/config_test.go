package config

import (
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ANKR", "secret-key")
	t.Setenv("ANKR_REQUEST_TIMEOUT", "5s")
	t.Setenv("ANKR_BLOCKCHAINS", "eth, polygon,,bsc")
	t.Setenv("POSTGRES_HOST", "testhost")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, "9090")
	}
	if cfg.Ankr.APIKey != "secret-key" {
		t.Errorf("Ankr.APIKey = %q, want %q", cfg.Ankr.APIKey, "secret-key")
	}
	if cfg.Ankr.RequestTimeout != 5*time.Second {
		t.Errorf("Ankr.RequestTimeout = %v, want %v", cfg.Ankr.RequestTimeout, 5*time.Second)
	}
	if cfg.Ankr.PageSize != 10000 {
		t.Errorf("Ankr.PageSize = %d, want 10000", cfg.Ankr.PageSize)
	}
	if cfg.Ankr.MaxAttempts != 1 {
		t.Errorf("Ankr.MaxAttempts = %d, want 1", cfg.Ankr.MaxAttempts)
	}
	if got := cfg.Ankr.Blockchains; len(got) != 3 || got[0] != "eth" || got[1] != "polygon" || got[2] != "bsc" {
		t.Errorf("Ankr.Blockchains = %v, want [eth polygon bsc]", got)
	}
	if !cfg.Database.Postgres.Enabled() {
		t.Error("Postgres should be enabled when POSTGRES_HOST is set")
	}
	if cfg.Database.ClickHouse.Enabled() {
		t.Error("ClickHouse should be disabled without CLICKHOUSE_HOST")
	}
}

func TestLoadConfig_BudgetRequiresRedis(t *testing.T) {
	t.Setenv("BUDGET_ENABLED", "true")
	t.Setenv("REDIS_HOST", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when budget is enabled without redis")
	}
}

func TestLoadConfig_RejectsNonPositivePageSize(t *testing.T) {
	t.Setenv("ANKR_PAGE_SIZE", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for zero page size")
	}
}

func TestPostgresConfig_URL(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: "5432", Database: "nft", User: "u", Password: "p"}
	want := "postgres://u:p@db:5432/nft?sslmode=disable"
	if got := cfg.URL(); got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		want         int
	}{
		{
			name:         "returns integer when valid",
			key:          "TEST_INT",
			defaultValue: 100,
			envValue:     "200",
			want:         200,
		},
		{
			name:         "returns default when invalid",
			key:          "TEST_INT_INVALID",
			defaultValue: 100,
			envValue:     "invalid",
			want:         100,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_INT_NOTSET",
			defaultValue: 100,
			want:         100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			if got := getEnvAsInt(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnvAsInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue time.Duration
		want         time.Duration
	}{
		{name: "valid", envValue: "30s", defaultValue: 10 * time.Second, want: 30 * time.Second},
		{name: "invalid", envValue: "soon", defaultValue: 10 * time.Second, want: 10 * time.Second},
		{name: "unset", defaultValue: 10 * time.Second, want: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)

			if got := getEnvAsDuration("TEST_DURATION", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvAsDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "false")
	if getEnvAsBool("TEST_BOOL", true) {
		t.Error("getEnvAsBool() = true, want false")
	}

	t.Setenv("TEST_BOOL", "maybe")
	if !getEnvAsBool("TEST_BOOL", true) {
		t.Error("getEnvAsBool() should fall back to default on parse error")
	}
}

func TestGetEnvAsCostMap(t *testing.T) {
	t.Setenv("TEST_COSTS", "ankr_getNftTransfers=700, broken, other=-1,eth_call=20")

	got := getEnvAsCostMap("TEST_COSTS")
	if len(got) != 2 {
		t.Fatalf("getEnvAsCostMap() returned %d entries, want 2: %v", len(got), got)
	}
	if got["ankr_getNftTransfers"] != 700 {
		t.Errorf("ankr_getNftTransfers cost = %d, want 700", got["ankr_getNftTransfers"])
	}
	if got["eth_call"] != 20 {
		t.Errorf("eth_call cost = %d, want 20", got["eth_call"])
	}
}
