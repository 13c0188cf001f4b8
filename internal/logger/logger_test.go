package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerSetsLevel(t *testing.T) {
	cases := []struct {
		input    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			logger := NewLogger(tc.input)
			assert.Equal(t, tc.expected, logger.GetLevel())
		})
	}
}

func TestNewLoggerDefaultsToInfoOnBadLevel(t *testing.T) {
	logger := NewLogger("not-a-level")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestNewLoggerUsesJSONFormatterInProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	logger := NewLogger("info")
	_, ok := logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok, "production logger should use the JSON formatter")
}

func TestRunLoggerCarriesRunFields(t *testing.T) {
	logger := NewLogger("info")
	entry := RunLogger(logger, "run-42", "sma_cross")

	require.NotNil(t, entry)
	assert.Equal(t, "run-42", entry.Data["run_id"])
	assert.Equal(t, "sma_cross", entry.Data["strategy"])
}
