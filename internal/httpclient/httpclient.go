// Package httpclient builds the resty clients used to talk to external systems.
package httpclient

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rzpatryk/BuggyVege/internal/logger"
)

type Config struct {
	logger             *slog.Logger
	baseURL            string
	timeout            time.Duration
	retryCount         int
	retryWaitTime      time.Duration
	retryMaxWaitTime   time.Duration
	retryAfterInterval time.Duration
}

type Option func(c *Config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Config) {
		c.baseURL = baseURL
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.timeout = timeout
	}
}

func WithRetryCount(count int) Option {
	return func(c *Config) {
		c.retryCount = count
	}
}

func WithRetryWaitTime(waitTime time.Duration) Option {
	return func(c *Config) {
		c.retryWaitTime = waitTime
	}
}

func WithRetryMaxWaitTime(maxWaitTime time.Duration) Option {
	return func(c *Config) {
		c.retryMaxWaitTime = maxWaitTime
	}
}

// WithRetryAfterInterval sets the step of the linear back-off between retries.
func WithRetryAfterInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.retryAfterInterval = interval
	}
}

func New(opts ...Option) *resty.Client {
	cfg := &Config{
		logger:             logger.Nop(),
		baseURL:            "",
		timeout:            10 * time.Second,
		retryCount:         3,
		retryWaitTime:      1 * time.Second,
		retryMaxWaitTime:   10 * time.Second,
		retryAfterInterval: 2 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	client := resty.New().
		SetLogger(&restyLogger{log: cfg.logger.With(slog.String("module", "httpclient"))}).
		SetBaseURL(cfg.baseURL).
		SetTimeout(cfg.timeout).
		SetRetryCount(cfg.retryCount).
		SetRetryWaitTime(cfg.retryWaitTime).
		SetRetryMaxWaitTime(cfg.retryMaxWaitTime).
		SetRetryAfter(retryAfterWithInterval(cfg.retryAfterInterval)).
		AddRetryCondition(func(_ *resty.Response, err error) bool {
			return isRetryableError(err)
		})

	return client
}

// retryAfterWithInterval waits attempt*interval before the next try.
func retryAfterWithInterval(interval time.Duration) resty.RetryAfterFunc {
	return func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
		if resp == nil || resp.Request == nil {
			return interval, nil
		}

		return time.Duration(resp.Request.Attempt) * interval, nil
	}
}

// isRetryableError reports whether err is a transport failure worth another attempt.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}

// restyLogger routes resty's own diagnostics into slog.
type restyLogger struct {
	log *slog.Logger
}

func (l *restyLogger) Errorf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...))
}

func (l *restyLogger) Warnf(format string, v ...any) {
	l.log.Warn(fmt.Sprintf(format, v...))
}

func (l *restyLogger) Debugf(format string, v ...any) {
	l.log.Debug(fmt.Sprintf(format, v...))
}
