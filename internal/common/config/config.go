// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Proofing ProofingConfig          `mapstructure:"proofing"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	AWS      AWSConfig               `mapstructure:"aws"`
	Logging  LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	AuditIndex string   `mapstructure:"audit_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Proofing Configuration ---

// ProofingConfig holds the identity-proofing workflow settings: which vendor
// serves each stage, how long a capture session may live, and how many
// substantive attempts a step grants before it locks out.
type ProofingConfig struct {
	ResolutionVendor string `mapstructure:"resolution_vendor"`
	StateIDVendor    string `mapstructure:"state_id_vendor"`
	AddressVendor    string `mapstructure:"address_vendor"`

	SessionTTLSeconds int `mapstructure:"session_ttl_seconds"`

	// MaxAttempts is keyed by step name ("phone", "doc_auth", ...).
	MaxAttempts map[string]int `mapstructure:"max_attempts"`

	Vendors map[string]VendorConfig `mapstructure:"vendors"`

	Confirmation ConfirmationConfig `mapstructure:"confirmation"`
}

// SessionTTL returns the capture-session expiry window.
func (p ProofingConfig) SessionTTL() time.Duration {
	if p.SessionTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(p.SessionTTLSeconds) * time.Second
}

// MaxAttemptsFor returns the attempt budget for a step, falling back to a
// single attempt when the step is not configured.
func (p ProofingConfig) MaxAttemptsFor(step string) int {
	if n, ok := p.MaxAttempts[step]; ok && n > 0 {
		return n
	}
	return 1
}

// VendorConfig describes one configured proofing vendor.
type VendorConfig struct {
	Kind    string `mapstructure:"kind"` // "http" or "mock"
	Stage   string `mapstructure:"stage"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// TimeoutDuration returns the vendor call timeout, defaulting to 30s.
func (v VendorConfig) TimeoutDuration() time.Duration {
	if v.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(v.Timeout) * time.Millisecond
}

// ConfirmationConfig holds settings for the out-of-band confirmation
// handshake started after a successful address proof.
type ConfirmationConfig struct {
	CodeLength     int    `mapstructure:"code_length"`
	CodeTTLSeconds int    `mapstructure:"code_ttl_seconds"`
	SMSSenderID    string `mapstructure:"sms_sender_id"`
	FromEmail      string `mapstructure:"from_email"`
}

// CodeTTL returns the confirmation-code expiry window.
func (c ConfirmationConfig) CodeTTL() time.Duration {
	if c.CodeTTLSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.CodeTTLSeconds) * time.Second
}

// --- Integrations ---

type AWSConfig struct {
	Region string `mapstructure:"region"`
	SES    struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"ses"`
	SNS struct {
		Enabled            bool   `mapstructure:"enabled"`
		DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
	} `mapstructure:"sns"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
