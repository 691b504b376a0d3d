package config

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := parse(flag.NewFlagSet("test", flag.ContinueOnError), []string{})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "10000.00", cfg.DepositLimit)
	assert.Empty(t, cfg.DatabaseURI)
	assert.Empty(t, cfg.FulfillmentURI)
	assert.Equal(t, 10*time.Second, cfg.FulfillmentPollInterval)
	assert.Equal(t, 2, cfg.FulfillmentWorkers)
}

func TestParseFlags(t *testing.T) {
	cfg, err := parse(flag.NewFlagSet("test", flag.ContinueOnError), []string{
		"-a", "127.0.0.1:9000", "-l", "debug", "-m", "500", "-w", "0", "-i", "1m",
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "500", cfg.DepositLimit)
	assert.Equal(t, 1, cfg.FulfillmentWorkers)
	assert.Equal(t, time.Minute, cfg.FulfillmentPollInterval)
}

func TestParseEnvOverridesFlags(t *testing.T) {
	t.Setenv("RUN_ADDRESS", "0.0.0.0:7000")
	t.Setenv("FULFILLMENT_POLL_INTERVAL", "30s")
	t.Setenv("DATABASE_URI", "postgres://localhost/buggyvege")

	cfg, err := parse(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-a", "127.0.0.1:9000"})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:7000", cfg.ServerAddr)
	assert.Equal(t, 30*time.Second, cfg.FulfillmentPollInterval)
	assert.Equal(t, "postgres://localhost/buggyvege", cfg.DatabaseURI)
}

func TestParseRejectsNonPositivePollInterval(t *testing.T) {
	for _, interval := range []string{"0s", "-5s"} {
		t.Run(interval, func(t *testing.T) {
			t.Setenv("FULFILLMENT_POLL_INTERVAL", interval)

			_, err := parse(flag.NewFlagSet("test", flag.ContinueOnError), []string{})
			require.ErrorIs(t, err, ErrPollIntervalInvalid)
		})
	}
}

func TestParseRejectsInvalidDepositLimit(t *testing.T) {
	for _, limit := range []string{"0", "-10.00", "abc"} {
		t.Run(limit, func(t *testing.T) {
			_, err := parse(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-m", limit})
			require.ErrorIs(t, err, ErrDepositLimitInvalid)
		})
	}
}
