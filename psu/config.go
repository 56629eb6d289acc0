package psu

import (
	"errors"

	"github.com/arloliu/go-ps2000/logger"
	"github.com/arloliu/go-ps2000/scale"
	"github.com/arloliu/go-ps2000/transport"
)

// Config holds the options of a power supply session.
type Config struct {
	transportOpts  []transport.Option
	logger         logger.Logger
	profile        *scale.Profile
	releaseOnClose bool
}

func newConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		logger:         logger.GetLogger(),
		releaseOnClose: true,
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option is a functional option for Open.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithTransport passes options to the underlying transport session.
func WithTransport(opts ...transport.Option) Option {
	return optFunc(func(cfg *Config) error {
		cfg.transportOpts = append(cfg.transportOpts, opts...)
		return nil
	})
}

// WithLogger sets the logger of the session and its transport.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("psu: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithProfile skips reading the ratings from the device and uses p.
// The device type is still read to verify the link.
func WithProfile(p scale.Profile) Option {
	return optFunc(func(cfg *Config) error {
		if err := p.Validate(); err != nil {
			return err
		}
		cfg.profile = &p

		return nil
	})
}

// WithReleaseOnClose controls whether Close hands the device back to local
// control. It is enabled by default.
func WithReleaseOnClose(release bool) Option {
	return optFunc(func(cfg *Config) error {
		cfg.releaseOnClose = release
		return nil
	})
}
