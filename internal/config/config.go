package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = "monedero.yaml"

const dateFormat = "2006-01-02"

// Environment variables that override file values.
const (
	EnvDailyWithdrawalLimit = "MONEDERO_DAILY_WITHDRAWAL_LIMIT"
	EnvDailyDepositLimit    = "MONEDERO_DAILY_DEPOSIT_LIMIT"
	EnvInitialBalance       = "MONEDERO_INITIAL_BALANCE"
)

// Config represents the top-level monedero.yaml configuration.
type Config struct {
	Account AccountConfig `yaml:"account"`
	Limits  LimitsConfig  `yaml:"limits"`
	Clock   ClockConfig   `yaml:"clock"`
}

// AccountConfig describes the account a session starts with.
type AccountConfig struct {
	InitialBalance decimal.Decimal `yaml:"initial_balance"`
}

// LimitsConfig holds the daily business limits.
type LimitsConfig struct {
	DailyWithdrawal decimal.Decimal `yaml:"daily_withdrawal"`
	DailyDeposits   int             `yaml:"daily_deposits"`
}

// ClockConfig controls the simulated clock used by scripted sessions.
type ClockConfig struct {
	Start    string `yaml:"start,omitempty"` // "YYYY-MM-DD"; empty = today
	Location string `yaml:"location,omitempty"` // IANA name; empty = local time
}

// Load reads a monedero.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with the standard business limits.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			InitialBalance: decimal.Zero,
		},
		Limits: LimitsConfig{
			DailyWithdrawal: decimal.NewFromInt(1000),
			DailyDeposits:   3,
		},
	}
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values with any MONEDERO_* variables that are set.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(EnvDailyWithdrawalLimit); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", EnvDailyWithdrawalLimit, v, err)
		}
		cfg.Limits.DailyWithdrawal = d
	}
	if v := getenv(EnvDailyDepositLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", EnvDailyDepositLimit, v, err)
		}
		cfg.Limits.DailyDeposits = n
	}
	if v := getenv(EnvInitialBalance); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", EnvInitialBalance, v, err)
		}
		cfg.Account.InitialBalance = d
	}
	return nil
}

// Validate checks that the limits make sense.
func (c *Config) Validate() error {
	if c.Limits.DailyWithdrawal.IsNegative() {
		return fmt.Errorf("limits.daily_withdrawal must not be negative, got %s", c.Limits.DailyWithdrawal)
	}
	if c.Limits.DailyDeposits < 0 {
		return fmt.Errorf("limits.daily_deposits must not be negative, got %d", c.Limits.DailyDeposits)
	}
	if c.Clock.Start != "" {
		if _, err := c.StartDate(); err != nil {
			return err
		}
	}
	return nil
}

// Location resolves the clock location; empty means the local time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Clock.Location == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Clock.Location)
	if err != nil {
		return nil, fmt.Errorf("clock.location %q: %w", c.Clock.Location, err)
	}
	return loc, nil
}

// StartDate returns midnight of clock.start in the configured location.
// It returns the zero time if no start is configured.
func (c *Config) StartDate() (time.Time, error) {
	if c.Clock.Start == "" {
		return time.Time{}, nil
	}
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(dateFormat, c.Clock.Start, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("clock.start %q: %w", c.Clock.Start, err)
	}
	return t, nil
}
