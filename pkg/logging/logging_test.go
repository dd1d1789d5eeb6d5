package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestFileLogger_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")

	file, logger, err := FileLogger(logrus.InfoLevel, FileOptions{Path: path, MaxSizeMB: 1})
	require.NoError(t, err)
	require.NotNil(t, file)

	logger.WithField("request_id", "abc").Info("submitted")
	require.NoError(t, file.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"request_id":"abc"`)
	require.Contains(t, string(data), `"msg":"submitted"`)
}

func TestFileLogger_EmptyPathFallsBackToConsole(t *testing.T) {
	file, logger, err := FileLogger(logrus.DebugLevel, FileOptions{})
	require.NoError(t, err)
	require.Nil(t, file)
	require.Equal(t, logrus.DebugLevel, logger.GetLevel())
}
