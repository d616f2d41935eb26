package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	uploads := filepath.Join(t.TempDir(), "uploads")
	dir := writeConfig(t, `
database:
  driver: postgres
jwt:
  secret: short
storage:
  local_path: `+uploads+`
verification:
  documents:
    - title: Photo ID
      verification_required: true
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 72*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, int64(900), cfg.Course.MaximumIdleTimeSeconds)
	assert.Equal(t, 4, cfg.Course.DefaultAnswerLength)
	assert.Equal(t, 60.0, cfg.Course.PassingPercentage)
	require.Len(t, cfg.Verification.Documents, 1)
	assert.True(t, cfg.Verification.Documents[0].VerificationRequired)
	assert.DirExists(t, uploads)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	dir := writeConfig(t, "storage:\n  type: minio\n")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("COURSE_SESSION_STORE", "memory")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "memory", cfg.Session.Store)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "server:\n  mode: release\njwt:\n  secret: short\nstorage:\n  type: minio\n"))
	assert.ErrorContains(t, err, "JWT secret is too short")

	_, err = LoadConfig(writeConfig(t, "database:\n  driver: sqlite\nstorage:\n  type: minio\n"))
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = LoadConfig(t.TempDir())
	assert.Error(t, err, "config file is required")
}
