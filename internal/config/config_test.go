package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arloliu/go-ps2000/link"
	"github.com/arloliu/go-ps2000/transport"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ps2000.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--simulate"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.True(t, cfg.Simulate)
	assert.Equal(t, link.DefaultSerialConfig(), cfg.SerialConfig())
	assert.Equal(t, transport.DefaultResponseTimeout, cfg.Transport.ResponseTimeout)
	assert.Equal(t, transport.DefaultCharTimeout, cfg.Transport.CharTimeout)
	assert.Equal(t, transport.DefaultMinInterval, cfg.Transport.MinInterval)
	assert.Equal(t, transport.DefaultRetryLimit, cfg.Transport.RetryLimit)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "PS 2042-06B", cfg.Simulator.Model)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	path := writeConfig(t, `
port: /dev/ttyACM0
serial:
  baudRate: 57600
  parity: even
transport:
  responseTimeout: 250ms
  retryLimit: 4
logging:
  level: debug
`)
	t.Setenv("PS2000_TRANSPORT_RETRYLIMIT", "5")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--port", "/dev/ttyUSB1", "--log-level", "warn"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Port, "flag wins over file")
	assert.Equal(t, 57600, cfg.Serial.BaudRate)
	assert.Equal(t, "even", cfg.Serial.Parity)
	assert.Equal(t, 250*time.Millisecond, cfg.Transport.ResponseTimeout)
	assert.Equal(t, 5, cfg.Transport.RetryLimit, "env wins over file")
	assert.Equal(t, "warn", cfg.Logging.Level)

	tc, err := transport.NewConfig(cfg.TransportOptions()...)
	require.NoError(t, err)
	assert.Equal(t, 6, tc.Attempts())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing port", "node: 0\n"},
		{"node out of range", "port: /dev/ttyACM0\nnode: 300\n"},
		{"bad parity", "port: /dev/ttyACM0\nserial:\n  parity: sometimes\n"},
		{"retry limit too high", "port: /dev/ttyACM0\ntransport:\n  retryLimit: 99\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}
