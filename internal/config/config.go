// Package config loads the ps2000ctl configuration from a file, PS2000_*
// environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arloliu/go-ps2000/link"
	"github.com/arloliu/go-ps2000/transport"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. PS2000_SERIAL_BAUDRATE.
const EnvPrefix = "PS2000"

// SerialConfig holds the UART settings.
type SerialConfig struct {
	BaudRate int    `mapstructure:"baudRate"`
	DataBits int    `mapstructure:"dataBits"`
	Parity   string `mapstructure:"parity"`
	StopBits int    `mapstructure:"stopBits"`
}

// TransportConfig holds the exchange timing and retry policy.
type TransportConfig struct {
	ResponseTimeout time.Duration `mapstructure:"responseTimeout"`
	CharTimeout     time.Duration `mapstructure:"charTimeout"`
	MinInterval     time.Duration `mapstructure:"minInterval"`
	RetryLimit      int           `mapstructure:"retryLimit"`
}

// LumberjackConfig configures the rotating log file.
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig holds the log level, format and optional file sink.
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// SimulatorConfig configures the simulated device used by --simulate.
type SimulatorConfig struct {
	Model string  `mapstructure:"model"`
	Load  float64 `mapstructure:"load"`
}

// MetricsConfig configures the prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

// Config is the top-level configuration.
type Config struct {
	Port      string          `mapstructure:"port"`
	Node      int             `mapstructure:"node"`
	Simulate  bool            `mapstructure:"simulate"`
	Serial    SerialConfig    `mapstructure:"serial"`
	Transport TransportConfig `mapstructure:"transport"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// flagKeys maps flag names registered by RegisterFlags to config keys.
var flagKeys = map[string]string{
	"port":         "port",
	"node":         "node",
	"simulate":     "simulate",
	"baud":         "serial.baudRate",
	"parity":       "serial.parity",
	"retries":      "transport.retryLimit",
	"timeout":      "transport.responseTimeout",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"log-file":     "logging.file.filename",
	"metrics-addr": "metrics.addr",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("port", "p", "", "serial port of the power supply, e.g. /dev/ttyACM0")
	fs.Int("node", 0, "device node (output) address")
	fs.Bool("simulate", false, "talk to a simulated device instead of a serial port")
	fs.Int("baud", link.DefaultBaudRate, "serial baud rate")
	fs.String("parity", link.DefaultParity, "serial parity: none, odd, even, mark or space")
	fs.Int("retries", transport.DefaultRetryLimit, "retries after a lost or corrupt answer")
	fs.Duration("timeout", transport.DefaultResponseTimeout, "answer timeout")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "", "log format: json or console (default depends on ENV)")
	fs.String("log-file", "", "write logs to a rotating file instead of stderr")
	fs.String("metrics-addr", "", "serve prometheus metrics on this address, e.g. :9100")
}

// Load reads the configuration. path may be empty, in which case
// ps2000.yaml is looked up in the working directory and ~/.config/ps2000;
// a missing file is not an error. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ps2000")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/ps2000")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("node", 0)
	v.SetDefault("simulate", false)

	v.SetDefault("serial.baudRate", link.DefaultBaudRate)
	v.SetDefault("serial.dataBits", link.DefaultDataBits)
	v.SetDefault("serial.parity", link.DefaultParity)
	v.SetDefault("serial.stopBits", link.DefaultStopBits)

	v.SetDefault("transport.responseTimeout", transport.DefaultResponseTimeout)
	v.SetDefault("transport.charTimeout", transport.DefaultCharTimeout)
	v.SetDefault("transport.minInterval", transport.DefaultMinInterval)
	v.SetDefault("transport.retryLimit", transport.DefaultRetryLimit)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 28)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("simulator.model", "PS 2042-06B")
	v.SetDefault("simulator.load", 10.0)

	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks values the libraries would otherwise reject later.
func (c *Config) Validate() error {
	if c.Node < 0 || c.Node > 255 {
		return fmt.Errorf("config: node %d out of range [0, 255]", c.Node)
	}
	if !c.Simulate && c.Port == "" {
		return errors.New("config: a serial port is required unless simulating")
	}
	if _, err := c.SerialConfig().Mode(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := transport.NewConfig(c.TransportOptions()...); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	return nil
}

// SerialConfig returns the UART settings for link.OpenSerial.
func (c *Config) SerialConfig() link.SerialConfig {
	return link.SerialConfig{
		BaudRate: c.Serial.BaudRate,
		DataBits: c.Serial.DataBits,
		Parity:   c.Serial.Parity,
		StopBits: c.Serial.StopBits,
	}
}

// TransportOptions returns the transport settings as options.
func (c *Config) TransportOptions() []transport.Option {
	return []transport.Option{
		transport.WithResponseTimeout(c.Transport.ResponseTimeout),
		transport.WithCharTimeout(c.Transport.CharTimeout),
		transport.WithMinInterval(c.Transport.MinInterval),
		transport.WithRetryLimit(c.Transport.RetryLimit),
	}
}
