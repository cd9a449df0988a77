package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penshort/teamkeys/internal/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.Config
		wantDebug bool
	}{
		{"production json", config.Config{AppEnv: "production", LogLevel: "info", LogFormat: "json"}, false},
		{"development console", config.Config{AppEnv: "development", LogLevel: "debug", LogFormat: "console"}, true},
		{"unknown level falls back to info", config.Config{AppEnv: "production", LogLevel: "loud", LogFormat: "json"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, zapLogger, err := newLogger(&tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, logger)
			require.NotNil(t, zapLogger)

			assert.Equal(t, tt.wantDebug, zapLogger.Core().Enabled(-1))
			assert.True(t, zapLogger.Core().Enabled(0))
		})
	}
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"postgres://app:hunter2@db:5432/keys", "postgres://app@db:5432/keys"},
		{"redis://:hunter2@cache:6379/0", "redis://redacted@cache:6379/0"},
		{"redis://cache:6379", "redis://cache:6379"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, redactURL(tt.in), tt.in)
	}
}

func TestSanitizeError(t *testing.T) {
	dsn := "postgres://app:hunter2@db:5432/keys"
	err := errors.New("dial " + dsn + " failed: password=hunter2")

	got := sanitizeError(err, dsn)
	assert.NotContains(t, got, "hunter2")
	assert.Contains(t, got, "postgres://app@db:5432/keys")
	assert.Equal(t, "", sanitizeError(nil))
}
