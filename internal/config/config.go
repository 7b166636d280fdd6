package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

// Storage drivers selectable via STORAGE_DRIVER.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	ServerPort string

	StorageDriver string

	// DefaultDailyLimit is the system-wide daily withdrawal cap applied when
	// an account has no special limit of its own.
	DefaultDailyLimit string

	// Timezone is the reference location for the calendar-day rollover of the
	// daily withdrawal counters.
	Timezone string
}

func Load() *Config {
	return &Config{
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "password"),
		DBName:            getEnv("DB_NAME", "bank_ledger"),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		StorageDriver:     getEnv("STORAGE_DRIVER", StoragePostgres),
		DefaultDailyLimit: getEnv("LEDGER_DEFAULT_DAILY_LIMIT", "500"),
		Timezone:          getEnv("LEDGER_TIMEZONE", "UTC"),
	}
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

// Limits resolves the withdrawal policy settings into domain values.
func (c *Config) Limits() (domain.Limits, error) {
	limit, err := decimal.NewFromString(c.DefaultDailyLimit)
	if err != nil || !limit.IsPositive() {
		return domain.Limits{}, errors.NewAppErrorf(errors.InvalidInput,
			"LEDGER_DEFAULT_DAILY_LIMIT must be a positive decimal, got %q", c.DefaultDailyLimit)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return domain.Limits{}, errors.NewAppErrorf(errors.InvalidInput,
			"LEDGER_TIMEZONE is not a valid location: %q", c.Timezone)
	}
	return domain.Limits{
		DefaultDailyWithdrawal: limit,
		Location:               loc,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
