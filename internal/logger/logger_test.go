package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sgaunet/tapbump/internal/logger"
)

func TestNoLogger(t *testing.T) {
	log := logger.NoLogger()

	assert.NotNil(t, log, "NoLogger should not return nil")

	// NoLogger should not log anything; calling its methods must not panic.
	assert.NotPanics(t, func() {
		log.Debug("This is a debug message")
		log.Info("This is an info message")
		log.Warn("This is a warning message")
		log.Error("This is an error message")
	}, "NoLogger methods should not panic")
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		logLevel string
	}{
		{"debug"},
		{"info"},
		{"warn"},
		{"error"},
		{""}, // Default case
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			log := logger.NewLogger(tt.logLevel)
			assert.NotNil(t, log, "NewLogger should not return nil")

			assert.NotPanics(t, func() {
				log.Debug("This is a debug message")
				log.Info("This is an info message")
				log.Warn("This is a warning message")
				log.Error("This is an error message")
			}, "NewLogger methods should not panic")
		})
	}
}
