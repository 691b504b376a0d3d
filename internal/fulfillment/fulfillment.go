// Package fulfillment keeps order statuses in step with the external
// fulfillment system.
package fulfillment

import (
	"context"
	"log/slog"
	"time"

	"github.com/rzpatryk/BuggyVege/internal/fulfillment/fulfillclient"
	"github.com/rzpatryk/BuggyVege/internal/fulfillment/fulfillprocessor"
	"github.com/rzpatryk/BuggyVege/internal/httpclient"
	"github.com/rzpatryk/BuggyVege/internal/logger"
)

type Processor interface {
	Process(ctx context.Context) error
}

type Fulfillment struct {
	log          *slog.Logger
	pollInterval time.Duration
	processor    Processor
}

type Config struct {
	logger         *slog.Logger
	pollInterval   time.Duration
	fulfillmentURI string
	workers        int
}

func NewFulfillment(source fulfillprocessor.OrderSource, advancer fulfillprocessor.Advancer, opts ...Option) *Fulfillment {
	cfg := &Config{
		logger:         logger.Nop(),
		pollInterval:   10 * time.Second,
		fulfillmentURI: "http://localhost:8081",
		workers:        1,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	httpClient := httpclient.New(
		httpclient.WithLogger(cfg.logger),
		httpclient.WithBaseURL(cfg.fulfillmentURI),
	)

	client := fulfillclient.New(
		fulfillclient.WithLogger(cfg.logger),
		fulfillclient.WithClient(httpClient),
	)

	processor := fulfillprocessor.New(
		source,
		advancer,
		client,
		fulfillprocessor.WithLogger(cfg.logger),
		fulfillprocessor.WithPoolSize(cfg.workers),
	)

	return newWithProcessor(processor, cfg)
}

func newWithProcessor(processor Processor, cfg *Config) *Fulfillment {
	return &Fulfillment{
		log:          cfg.logger.With(slog.String("module", "fulfillment")),
		pollInterval: cfg.pollInterval,
		processor:    processor,
	}
}

type Option func(c *Config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPollInterval ignores non-positive intervals, which time.NewTicker rejects.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

func WithFulfillmentURI(uri string) Option {
	return func(c *Config) {
		c.fulfillmentURI = uri
	}
}

func WithWorkers(workers int) Option {
	return func(c *Config) {
		c.workers = workers
	}
}

// Run polls until ctx is done.
func (f *Fulfillment) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	f.log.Info("Start fulfillment daemon", slog.Duration("poll_interval", f.pollInterval))

	for {
		select {
		case <-ctx.Done():
			f.log.Info("Context done, stopping fulfillment daemon")

			return nil

		case <-ticker.C:
			if err := f.processor.Process(ctx); err != nil {
				f.log.Error("processor.Process", slog.Any("error", err))
			}
		}
	}
}
