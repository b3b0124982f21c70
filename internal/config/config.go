package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/petshopone/fiscal-service/internal/types"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Secrets    SecretsConfig    `validate:"required"`
	Fiscal     FiscalConfig     `validate:"required"`
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string `validate:"required"`
	Port                   int    `validate:"required"`
	User                   string `validate:"required"`
	Password               string `validate:"required"`
	DBName                 string `validate:"required"`
	SSLMode                string `validate:"required"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" default:"10"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" default:"5"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" default:"60"`
	AutoMigrate            bool   `mapstructure:"auto_migrate" default:"false"`
}

// SecretsConfig holds key material for the credential vault.
// EncryptionKey is the preferred source: a base64 encoded 32 byte key.
// When it is empty the vault derives a key from AppSecret instead.
type SecretsConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
	AppSecret     string `mapstructure:"app_secret"`
}

// FiscalConfig tunes the NF-e distribution client and sync jobs.
type FiscalConfig struct {
	// Environment selects production or homologation webservices
	Environment types.Environment `validate:"required"`
	// CUFAutor is the numeric IBGE code of the authoring UF sent in
	// distribution queries. Defaults to 35 (SP).
	CUFAutor string `mapstructure:"cuf_autor" default:"35"`
	// RequestTimeoutSeconds is the per-request timeout against the webservice
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" default:"30"`
	// MaxRetries caps transport level retries per request
	MaxRetries int `mapstructure:"max_retries" default:"3"`
	// RequestsPerMinute throttles calls to the distribution service
	RequestsPerMinute int `mapstructure:"requests_per_minute" default:"20"`
	// SyncMaxDocs caps the number of new documents imported per sync run
	SyncMaxDocs int `mapstructure:"sync_max_docs" default:"200"`
	// SyncBudgetSeconds is the wall clock budget for a single sync run
	SyncBudgetSeconds int `mapstructure:"sync_budget_seconds" default:"240"`
	// StrictResponseParsing requires the full SOAP result wrapper
	// (nfeDistDFeInteresseResult/retDistDFeInt) instead of scanning
	// for known elements anywhere in the body.
	StrictResponseParsing bool `mapstructure:"strict_response_parsing"`
}

func (c FiscalConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c FiscalConfig) SyncBudget() time.Duration {
	if c.SyncBudgetSeconds <= 0 {
		return 4 * time.Minute
	}
	return time.Duration(c.SyncBudgetSeconds) * time.Second
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/fiscal-service")

	v.SetEnvPrefix("FISCAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(c *Configuration) {
	if c.Fiscal.CUFAutor == "" {
		c.Fiscal.CUFAutor = "35"
	}
	if c.Fiscal.RequestTimeoutSeconds == 0 {
		c.Fiscal.RequestTimeoutSeconds = 30
	}
	if c.Fiscal.MaxRetries == 0 {
		c.Fiscal.MaxRetries = 3
	}
	if c.Fiscal.RequestsPerMinute == 0 {
		c.Fiscal.RequestsPerMinute = 20
	}
	if c.Fiscal.SyncMaxDocs == 0 {
		c.Fiscal.SyncMaxDocs = 200
	}
	if c.Fiscal.SyncBudgetSeconds == 0 {
		c.Fiscal.SyncBudgetSeconds = 240
	}
	if c.Postgres.MaxOpenConns == 0 {
		c.Postgres.MaxOpenConns = 10
	}
	if c.Postgres.MaxIdleConns == 0 {
		c.Postgres.MaxIdleConns = 5
	}
	if c.Postgres.ConnMaxLifetimeMinutes == 0 {
		c.Postgres.ConnMaxLifetimeMinutes = 60
	}
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := c.Fiscal.Environment.Validate(); err != nil {
		return err
	}
	if c.Secrets.EncryptionKey == "" && c.Secrets.AppSecret == "" {
		return fmt.Errorf("secrets: either encryption_key or app_secret must be set")
	}
	return nil
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Secrets:    SecretsConfig{AppSecret: "local-dev-secret"},
		Fiscal: FiscalConfig{
			Environment:           types.EnvironmentHomologation,
			CUFAutor:              "35",
			RequestTimeoutSeconds: 30,
			MaxRetries:            3,
			RequestsPerMinute:     20,
			SyncMaxDocs:           200,
			SyncBudgetSeconds:     240,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
