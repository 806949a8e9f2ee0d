// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like PROOFING_ADDRESS_VENDOR
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay (config.development.yaml etc.), optional.
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the usual locations so the loader works from
// the repo root, cmd/ subdirectories, and test packages alike.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	for _, p := range possiblePaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "idv-workers"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Camunda.BrokerAddress == "" {
		cfg.Camunda.BrokerAddress = "localhost:26500"
	}
	if cfg.Camunda.MaxJobsActive <= 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.AuditIndex == "" {
		cfg.Database.Elasticsearch.AuditIndex = "proofing-events"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Proofing.SessionTTLSeconds <= 0 {
		cfg.Proofing.SessionTTLSeconds = 300
	}
	if cfg.Proofing.MaxAttempts == nil {
		cfg.Proofing.MaxAttempts = map[string]int{"phone": 5}
	}
	if cfg.Proofing.ResolutionVendor == "" {
		cfg.Proofing.ResolutionVendor = "mock"
	}
	if cfg.Proofing.StateIDVendor == "" {
		cfg.Proofing.StateIDVendor = "mock"
	}
	if cfg.Proofing.AddressVendor == "" {
		cfg.Proofing.AddressVendor = "mock"
	}
	if cfg.Proofing.Confirmation.CodeLength <= 0 {
		cfg.Proofing.Confirmation.CodeLength = 6
	}
	if cfg.Proofing.Confirmation.CodeTTLSeconds <= 0 {
		cfg.Proofing.Confirmation.CodeTTLSeconds = 600
	}
}

func validateConfig(cfg *Config) error {
	for _, key := range []string{
		cfg.Proofing.ResolutionVendor,
		cfg.Proofing.StateIDVendor,
		cfg.Proofing.AddressVendor,
	} {
		if key == "mock" {
			continue
		}
		if _, ok := cfg.Proofing.Vendors[key]; !ok {
			return fmt.Errorf("proofing vendor %q selected but not configured", key)
		}
	}
	for step, n := range cfg.Proofing.MaxAttempts {
		if n <= 0 {
			return fmt.Errorf("proofing max_attempts for step %q must be positive", step)
		}
	}
	return nil
}
