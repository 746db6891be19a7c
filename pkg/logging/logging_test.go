package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want logrus.Level
	}{
		{"default", DefaultConfig(), logrus.InfoLevel},
		{"warn", Config{Level: "warn"}, logrus.WarnLevel},
		{"verbose overrides", Config{Level: "error", Verbose: true}, logrus.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, closer, err := New(tt.cfg)
			require.NoError(t, err)
			defer closer.Close()
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewWritesFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.File = filepath.Join(t.TempDir(), "analyzer.log")

	logger, closer, err := New(cfg)
	require.NoError(t, err)
	logger.WithField("frame", 12).Info("Projector: Homography fitted")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Homography fitted")
	assert.Contains(t, string(b), "frame:12")
}
