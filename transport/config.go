package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-ps2000/logger"
)

// Default timing of the PS 2000 B USB interface.
const (
	DefaultResponseTimeout = 100 * time.Millisecond // first byte of an answer
	DefaultCharTimeout     = 50 * time.Millisecond  // silence between bytes of one answer
	DefaultMinInterval     = 50 * time.Millisecond  // gap the device needs between telegrams

	DefaultRetryLimit = 2 // retries after the first attempt
)

// Range limits of the options.
const (
	MinResponseTimeout = 5 * time.Millisecond
	MaxResponseTimeout = 10 * time.Second

	MinCharTimeout = 1 * time.Millisecond
	MaxCharTimeout = 5 * time.Second

	MaxMinInterval = 1 * time.Second

	MaxRetryLimit = 10
)

// Config holds the configuration of a transport session.
type Config struct {
	responseTimeout time.Duration
	charTimeout     time.Duration
	minInterval     time.Duration
	retryLimit      int

	logger logger.Logger
}

// NewConfig creates a configuration with the defaults, then applies opts in order.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		responseTimeout: DefaultResponseTimeout,
		charTimeout:     DefaultCharTimeout,
		minInterval:     DefaultMinInterval,
		retryLimit:      DefaultRetryLimit,
		logger:          logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// ResponseTimeout returns how long to wait for the first byte of an answer.
func (cfg *Config) ResponseTimeout() time.Duration { return cfg.responseTimeout }

// CharTimeout returns the longest silence tolerated inside one answer.
func (cfg *Config) CharTimeout() time.Duration { return cfg.charTimeout }

// MinInterval returns the minimum gap between two telegrams.
func (cfg *Config) MinInterval() time.Duration { return cfg.minInterval }

// RetryLimit returns the number of retries after the first attempt.
func (cfg *Config) RetryLimit() int { return cfg.retryLimit }

// Attempts returns the total number of attempts per exchange.
func (cfg *Config) Attempts() int { return cfg.retryLimit + 1 }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// Option is a functional option for configuring a transport session.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithResponseTimeout sets how long to wait for the first byte of an answer.
func WithResponseTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinResponseTimeout || d > MaxResponseTimeout {
			return fmt.Errorf("transport: response timeout %v out of range [%v, %v]", d, MinResponseTimeout, MaxResponseTimeout)
		}
		cfg.responseTimeout = d

		return nil
	})
}

// WithCharTimeout sets the longest silence tolerated between bytes of one answer.
func WithCharTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinCharTimeout || d > MaxCharTimeout {
			return fmt.Errorf("transport: char timeout %v out of range [%v, %v]", d, MinCharTimeout, MaxCharTimeout)
		}
		cfg.charTimeout = d

		return nil
	})
}

// WithMinInterval sets the minimum gap between two telegrams. 0 disables it.
func WithMinInterval(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 || d > MaxMinInterval {
			return fmt.Errorf("transport: min interval %v out of range [0, %v]", d, MaxMinInterval)
		}
		cfg.minInterval = d

		return nil
	})
}

// WithRetryLimit sets the number of retries after the first attempt.
func WithRetryLimit(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 0 || n > MaxRetryLimit {
			return fmt.Errorf("transport: retry limit %d out of range [0, %d]", n, MaxRetryLimit)
		}
		cfg.retryLimit = n

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("transport: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
