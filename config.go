package approvalflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

// BackoffStrategy defines retry backoff behavior
type BackoffStrategy string

const (
	BackoffLinear      BackoffStrategy = "LINEAR"
	BackoffExponential BackoffStrategy = "EXPONENTIAL"
	BackoffNone        BackoffStrategy = "NONE"
)

// Config holds process configuration read from the environment
type Config struct {
	// HTTP
	ListenAddr    string `env:"APPROVALFLOW_LISTEN_ADDR" envDefault:":3000"`
	PublicBaseURL string `env:"APPROVALFLOW_PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`

	// Storage
	StoreBackend  string `env:"APPROVALFLOW_STORE" envDefault:"file"`
	DataPath      string `env:"APPROVALFLOW_DATA_PATH" envDefault:"./data/submissions.json"`
	SQLitePath    string `env:"APPROVALFLOW_SQLITE_PATH" envDefault:"./data/submissions.db"`
	DynamoDBTable string `env:"APPROVALFLOW_DYNAMODB_TABLE" envDefault:"approvalflow"`

	// Workflow boundary
	ManagerEmail      string        `env:"APPROVALFLOW_MANAGER_EMAIL"`
	ActionTokenSecret string        `env:"APPROVALFLOW_ACTION_TOKEN_SECRET"`
	ActionTokenTTL    time.Duration `env:"APPROVALFLOW_ACTION_TOKEN_TTL" envDefault:"168h"`
	AuthTokenSecret   string        `env:"APPROVALFLOW_AUTH_TOKEN_SECRET"`
	AuthTokenTTL      time.Duration `env:"APPROVALFLOW_AUTH_TOKEN_TTL" envDefault:"24h"`

	// Notifications
	NotifyMaxRetries int             `env:"APPROVALFLOW_NOTIFY_MAX_RETRIES" envDefault:"3"`
	NotifyRetryDelay time.Duration   `env:"APPROVALFLOW_NOTIFY_RETRY_DELAY" envDefault:"1s"`
	NotifyBackoff    BackoffStrategy `env:"APPROVALFLOW_NOTIFY_BACKOFF" envDefault:"LINEAR"`

	// Logging
	LogLevel  string `env:"APPROVALFLOW_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"APPROVALFLOW_LOG_FORMAT" envDefault:"console"`
}

// LoadConfig parses the environment and validates the result
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.NotifyBackoff = BackoffStrategy(strings.ToUpper(string(cfg.NotifyBackoff)))
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required values and enumerations
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendFile, BackendSQLite, BackendDynamoDB:
	default:
		return fmt.Errorf("APPROVALFLOW_STORE must be one of memory, file, sqlite, dynamodb; got %q", c.StoreBackend)
	}
	if c.StoreBackend == BackendFile && strings.TrimSpace(c.DataPath) == "" {
		return fmt.Errorf("APPROVALFLOW_DATA_PATH is required for the file store")
	}
	if c.StoreBackend == BackendSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("APPROVALFLOW_SQLITE_PATH is required for the sqlite store")
	}
	if c.StoreBackend == BackendDynamoDB && strings.TrimSpace(c.DynamoDBTable) == "" {
		return fmt.Errorf("APPROVALFLOW_DYNAMODB_TABLE is required for the dynamodb store")
	}
	if strings.TrimSpace(c.ActionTokenSecret) == "" {
		return fmt.Errorf("APPROVALFLOW_ACTION_TOKEN_SECRET is required")
	}
	if strings.TrimSpace(c.AuthTokenSecret) == "" {
		return fmt.Errorf("APPROVALFLOW_AUTH_TOKEN_SECRET is required")
	}
	if c.ActionTokenTTL <= 0 || c.AuthTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.NotifyMaxRetries < 0 {
		return fmt.Errorf("APPROVALFLOW_NOTIFY_MAX_RETRIES must not be negative")
	}
	switch c.NotifyBackoff {
	case BackoffLinear, BackoffExponential, BackoffNone:
	default:
		return fmt.Errorf("APPROVALFLOW_NOTIFY_BACKOFF must be LINEAR, EXPONENTIAL or NONE; got %q", c.NotifyBackoff)
	}
	return nil
}
