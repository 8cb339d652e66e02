package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/BalanceBalls/timesheet-tracker/internal/frappe"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	FrappeURL       string        `env:"FRAPPE_URL,notEmpty"`
	FrappeUser      string        `env:"FRAPPE_USER"`
	FrappePassword  string        `env:"FRAPPE_PASSWORD"`
	FrappeAPIKey    string        `env:"FRAPPE_API_KEY"`
	FrappeAPISecret string        `env:"FRAPPE_API_SECRET"`
	FrappeTimeout   time.Duration `env:"FRAPPE_TIMEOUT" envDefault:"30s"`

	Timezone          string `env:"TIMEZONE" envDefault:"Local"`
	RepairConcurrency int    `env:"REPAIR_CONCURRENCY" envDefault:"4"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	DbDriver      string `env:"DB_DRIVER" envDefault:"sqlite"`
	DbDSN         string `env:"DB_DSN" envDefault:"timesheets.sqlite"`
	ReportFileDir string `env:"REPORT_FILE_DIR" envDefault:"./reports"`

	BotToken        string `env:"BOT_TOKEN"`
	BotChatID       int64  `env:"BOT_CHAT_ID" envDefault:"0"`
	CommandsTimeout int    `env:"COMMANDS_TIMEOUT" envDefault:"30"`

	location *time.Location
}

// Load reads the given .env files, if present, and then the environment.
// Variables already set in the environment win over the files.
func Load(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s file: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("unable to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if err := c.Credentials().Validate(); err != nil {
		return fmt.Errorf("invalid frappe credentials: %w", err)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	c.location = loc

	switch c.DbDriver {
	case DriverSqlite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported db driver %q", c.DbDriver)
	}

	if c.RepairConcurrency < 1 {
		return fmt.Errorf("repair concurrency must be positive, got %d", c.RepairConcurrency)
	}
	if c.CommandsTimeout < 1 {
		return fmt.Errorf("commands timeout must be positive, got %d", c.CommandsTimeout)
	}

	return nil
}

func (c *Config) Credentials() frappe.Credentials {
	return frappe.Credentials{
		Username:  c.FrappeUser,
		Password:  c.FrappePassword,
		APIKey:    c.FrappeAPIKey,
		APISecret: c.FrappeAPISecret,
	}
}

// Location is the parsed TIMEZONE.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// ValidateBot checks the settings only the Telegram front end needs.
func (c *Config) ValidateBot() error {
	if c.BotToken == "" {
		return errors.New("BOT_TOKEN is required to run the bot")
	}
	if c.BotChatID == 0 {
		return errors.New("BOT_CHAT_ID is required to run the bot")
	}
	return nil
}

func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandsTimeout) * time.Second
}
