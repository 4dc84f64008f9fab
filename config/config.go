/*
Package config loads server configuration from a YAML file with environment
variable overrides.

PRECEDENCE:
  defaults < config.yaml < environment variables

The config file path itself comes from the -config flag or CONFIG_PATH. A
missing file is not an error; the server runs on defaults.
*/
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port   int    `yaml:"port"`
	DBPath string `yaml:"db_path"`

	// PolicyPath points at the labor-policy YAML. Empty means the built-in
	// fulltime baseline.
	PolicyPath string `yaml:"policy_path"`

	// WeeklyScanSchedule is a 5-field cron expression for the shortage scan.
	// Empty disables the scan.
	WeeklyScanSchedule string `yaml:"weekly_scan_schedule"`

	// HistoryWeeks is how many trailing weekly balances feed streak detection.
	HistoryWeeks int `yaml:"history_weeks"`

	// LedgerLookback bounds the entry scan for ledger computation.
	LedgerLookback int `yaml:"ledger_lookback"`

	Timezone string `yaml:"timezone"`
	Location *time.Location `yaml:"-"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads the config file (if present), applies env overrides, then
// defaults.
func Load(path string) (Config, error) {
	var cfg Config

	if path == "" {
		path = "config.yaml"
	}
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		path = envPath
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		log.Printf("Loaded config from %s", path)
	}

	envOverrideInt(&cfg.Port, "PORT")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.PolicyPath, "POLICY_PATH")
	envOverride(&cfg.WeeklyScanSchedule, "WEEKLY_SCAN_SCHEDULE")
	envOverrideInt(&cfg.HistoryWeeks, "HISTORY_WEEKS")
	envOverrideInt(&cfg.LedgerLookback, "LEDGER_LOOKBACK")
	envOverride(&cfg.Timezone, "TIMEZONE")

	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./urenwerk.db"
	}
	if cfg.HistoryWeeks == 0 {
		cfg.HistoryWeeks = 12
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Europe/Amsterdam"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg, nil
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
