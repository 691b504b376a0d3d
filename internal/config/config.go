package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

var (
	ErrPollIntervalInvalid = errors.New("fulfillment poll interval must be positive")
	ErrDepositLimitInvalid = errors.New("deposit limit must be a positive amount")
)

type Config struct {
	ServerAddr              string        `env:"RUN_ADDRESS"`
	LogLevel                string        `env:"LOG_LEVEL"`
	LogFormat               string        `env:"LOG_FORMAT"`
	DatabaseURI             string        `env:"DATABASE_URI"`
	JWTSecretKey            string        `env:"JWT_SECRET_KEY"`
	DepositLimit            string        `env:"DEPOSIT_LIMIT"`
	FulfillmentURI          string        `env:"FULFILLMENT_SYSTEM_ADDRESS"`
	FulfillmentPollInterval time.Duration `env:"FULFILLMENT_POLL_INTERVAL"`
	FulfillmentWorkers      int           `env:"FULFILLMENT_WORKERS"`
	AdminEmail              string        `env:"ADMIN_EMAIL"`
	AdminPassword           string        `env:"ADMIN_PASSWORD"`
}

// NewConfig reads the configuration from command line flags, then from the
// environment, optionally seeded from a .env file. Environment wins.
func NewConfig() (Config, error) {
	return parse(flag.CommandLine, os.Args[1:])
}

func parse(fset *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{}

	fset.StringVar(&cfg.ServerAddr, "a", "0.0.0.0:8080", "server listening address [env:RUN_ADDRESS]")
	fset.StringVar(&cfg.LogLevel, "l", "info", "log output level [env:LOG_LEVEL]")
	fset.StringVar(&cfg.LogFormat, "f", "json", "log output format: json|text [env:LOG_FORMAT]")
	fset.StringVar(&cfg.DatabaseURI, "d", "", "database connection string, in-memory storage if empty [env:DATABASE_URI]")
	fset.StringVar(&cfg.JWTSecretKey, "s", "secretkey", "JWT secret to sign tokens [env:JWT_SECRET_KEY]")
	fset.StringVar(&cfg.DepositLimit, "m", "10000.00", "maximum single deposit amount [env:DEPOSIT_LIMIT]")
	fset.StringVar(&cfg.FulfillmentURI, "r", "", "fulfillment system URI, sync disabled if empty [env:FULFILLMENT_SYSTEM_ADDRESS]")
	fset.DurationVar(&cfg.FulfillmentPollInterval, "i", 10*time.Second,
		"fulfillment system poll interval [env:FULFILLMENT_POLL_INTERVAL]")
	fset.IntVar(&cfg.FulfillmentWorkers, "w", 2, "fulfillment sync workers [env:FULFILLMENT_WORKERS]")
	fset.StringVar(&cfg.AdminEmail, "admin-email", "", "email of the admin account created at start-up [env:ADMIN_EMAIL]")
	fset.StringVar(&cfg.AdminPassword, "admin-password", "", "password of the admin account [env:ADMIN_PASSWORD]")

	if err := fset.Parse(args); err != nil {
		return cfg, fmt.Errorf("fset.Parse: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("godotenv.Load: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("env.Parse: %w", err)
	}

	if cfg.FulfillmentWorkers < 1 {
		cfg.FulfillmentWorkers = 1
	}

	if cfg.FulfillmentPollInterval <= 0 {
		return cfg, fmt.Errorf("%w: %s", ErrPollIntervalInvalid, cfg.FulfillmentPollInterval)
	}

	limit, err := decimal.NewFromString(cfg.DepositLimit)
	if err != nil || !limit.IsPositive() {
		return cfg, fmt.Errorf("%w: %q", ErrDepositLimitInvalid, cfg.DepositLimit)
	}

	return cfg, nil
}
