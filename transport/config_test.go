package transport

import (
	"testing"
	"time"

	"github.com/arloliu/go-ps2000/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultResponseTimeout, cfg.ResponseTimeout())
	assert.Equal(t, DefaultCharTimeout, cfg.CharTimeout())
	assert.Equal(t, DefaultMinInterval, cfg.MinInterval())
	assert.Equal(t, DefaultRetryLimit, cfg.RetryLimit())
	assert.Equal(t, 3, cfg.Attempts())
	assert.NotNil(t, cfg.GetLogger())
}

func TestNewConfig_WithOptions(t *testing.T) {
	l := logger.NewMockLogger()
	cfg, err := NewConfig(
		WithResponseTimeout(time.Second),
		WithCharTimeout(10*time.Millisecond),
		WithMinInterval(0),
		WithRetryLimit(5),
		WithLogger(l),
	)
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.ResponseTimeout())
	assert.Equal(t, 10*time.Millisecond, cfg.CharTimeout())
	assert.Zero(t, cfg.MinInterval())
	assert.Equal(t, 6, cfg.Attempts())
	assert.Same(t, l, cfg.GetLogger())
}

func TestNewConfig_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"response timeout too short", WithResponseTimeout(time.Millisecond)},
		{"response timeout too long", WithResponseTimeout(time.Minute)},
		{"char timeout zero", WithCharTimeout(0)},
		{"char timeout too long", WithCharTimeout(time.Minute)},
		{"negative interval", WithMinInterval(-time.Millisecond)},
		{"interval too long", WithMinInterval(2 * time.Second)},
		{"negative retry limit", WithRetryLimit(-1)},
		{"retry limit too high", WithRetryLimit(MaxRetryLimit + 1)},
		{"nil logger", WithLogger(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestNew_NilLink(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
