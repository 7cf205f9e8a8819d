package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/gothread/internal/thread/config"
)

func TestNewLoggerProduction(t *testing.T) {
	entry := NewLogger(config.Config{}, "1.2.3")

	assert.Equal(t, io.Discard, entry.Logger.Out)
	assert.Equal(t, logrus.ErrorLevel, entry.Logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, entry.Logger.Formatter)
	assert.Equal(t, "1.2.3", entry.Data["version"])
	assert.Equal(t, false, entry.Data["debug"])
}

func TestNewLoggerDebug(t *testing.T) {
	entry := NewLogger(config.Config{Debug: true}, "dev")

	assert.Equal(t, logrus.DebugLevel, entry.Logger.GetLevel())
	assert.Equal(t, true, entry.Data["debug"])
}

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"", logrus.DebugLevel},
		{"bogus", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"trace", logrus.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, getLogLevel(config.Config{LogLevel: tt.level}))
		})
	}
}

func TestDevelopmentLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newDevelopmentLogger(config.Config{Debug: true, LogLevel: "info"}, &buf)
	log.Formatter = &logrus.JSONFormatter{}

	log.WithField("ident", 42).Debug("hidden")
	log.WithField("ident", 42).Info("thread started")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "thread started", line["msg"])
	assert.Equal(t, float64(42), line["ident"])
}

func TestDiscard(t *testing.T) {
	entry := Discard()
	assert.Equal(t, io.Discard, entry.Logger.Out)
	entry.Error("dropped")
}
