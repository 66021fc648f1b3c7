package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, env := range envBindings {
		t.Setenv(env, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.False(t, cfg.IsDev(), "an unset ENVIRONMENT must not enable debug logging")
	assert.Equal(t, "prod", cfg.Server.Environment)
	assert.Equal(t, "./models/mnist.onnx", cfg.Model.Path)
	assert.Equal(t, "uploads", cfg.Upload.Dir)
	assert.False(t, cfg.Upload.KeepFiles)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, 4096, cfg.Upload.MaxDimension)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"*"}, cfg.Origins())
}

func TestLoadFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("ENVIRONMENT", "dev")
	t.Setenv("UPLOAD_KEEP_FILES", "true")
	t.Setenv("UPLOAD_MAX_BYTES", "1024")
	t.Setenv("UPLOAD_MAX_DIMENSION", "512")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("SERVER_IDLE_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr())
	assert.True(t, cfg.IsDev())
	assert.True(t, cfg.Upload.KeepFiles)
	assert.Equal(t, int64(1024), cfg.Upload.MaxBytes)
	assert.Equal(t, 512, cfg.Upload.MaxDimension)
	assert.Equal(t, 5*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Origins())
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
