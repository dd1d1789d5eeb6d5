package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()

	requireWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/test\n\ngo 1.22\n")
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "F3MAP_TEST_ENV_LOAD=ok\n")

	sub := filepath.Join(tmp, "pkg", "crud")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(sub))

	_ = os.Unsetenv("F3MAP_TEST_ENV_LOAD")
	t.Cleanup(func() { _ = os.Unsetenv("F3MAP_TEST_ENV_LOAD") })

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "ok", os.Getenv("F3MAP_TEST_ENV_LOAD"))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LOG_PATH", filepath.Join(t.TempDir(), "app.log"))

	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	t.Cleanup(c.Unload)

	require.Equal(t, "authorized", c.UpdateRequests.AutoApproveMode)
	require.True(t, c.UpdateRequests.DirectCommit)
	require.Equal(t, "memory", c.OrgCacheBackend)
	require.Equal(t, "localhost:3200", c.SocketAddress)
	require.Equal(t, logrus.ErrorLevel, c.LogrusLogLevel())
	require.NotNil(t, c.Logger())
}

func TestLoad_RejectsUnknownAutoApproveMode(t *testing.T) {
	t.Setenv("LOG_PATH", filepath.Join(t.TempDir(), "app.log"))
	t.Setenv("AUTO_APPROVE_MODE", "anyone")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "AUTO_APPROVE_MODE")
}

func TestLoad_RejectsUnknownCacheBackend(t *testing.T) {
	t.Setenv("LOG_PATH", filepath.Join(t.TempDir(), "app.log"))
	t.Setenv("ORG_CACHE_BACKEND", "memcached")

	_, err := Load()
	require.Error(t, err)
}

func TestRateLimitOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    RateLimitOptions
		wantErr bool
	}{
		{name: "memory", opts: RateLimitOptions{SubmitRPM: 60, Storage: "memory"}},
		{name: "negative", opts: RateLimitOptions{SubmitRPM: -1, Storage: "memory"}, wantErr: true},
		{name: "unknown storage", opts: RateLimitOptions{SubmitRPM: 1, Storage: "disk"}, wantErr: true},
		{name: "redis without url", opts: RateLimitOptions{SubmitRPM: 1, Storage: "redis"}, wantErr: true},
		{name: "redis", opts: RateLimitOptions{SubmitRPM: 1, Storage: "redis", RedisURL: "redis://localhost:6379"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCORSOptions_Origins(t *testing.T) {
	require.Equal(t, []string{"https://map.f3nation.com", "http://localhost:3000"},
		CORSOptions{AllowedOrigins: "https://map.f3nation.com, http://localhost:3000"}.Origins())
	require.Empty(t, CORSOptions{}.Origins())
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
