package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "https://api.mistral.ai/v1", cfg.Oracle.BaseURL)
	assert.Equal(t, "mistral-small-latest", cfg.Oracle.Model)
	assert.InDelta(t, 0.70, cfg.Validation.AcceptThreshold, 0.001)
	assert.InDelta(t, 0.50, cfg.Validation.VerifyFloor, 0.001)
	assert.Equal(t, 3, cfg.Corrections.MaxHints)
	assert.Contains(t, cfg.Corrections.Keywords, "liefertermin")
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  http_port: 9100
validation:
  accept_threshold: 0.8
  verify_floor: 0.4
oracle:
  model: mistral-large-latest
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.HTTPPort)
	assert.InDelta(t, 0.8, cfg.Validation.AcceptThreshold, 0.001)
	assert.InDelta(t, 0.4, cfg.Validation.VerifyFloor, 0.001)
	assert.Equal(t, "mistral-large-latest", cfg.Oracle.Model)
	// Verifier model defaults to the primary model.
	assert.Equal(t, "mistral-large-latest", cfg.Oracle.VerifierModel)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 9100\n"), 0o600))

	t.Setenv("SERVER_HTTP_PORT", "9200")
	t.Setenv("ORACLE_API_KEY", "test-key-1234567890")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.HTTPPort)
	assert.Equal(t, "test-key-1234567890", cfg.Oracle.APIKey.Value())
	// The secret never leaks through its string form.
	assert.Equal(t, "[REDACTED]", cfg.Oracle.APIKey.String())
}

func TestLoadExplicitZeroVerifyFloor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("validation:\n  verify_floor: 0\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Validation.VerifyFloor, "an explicit zero floor must survive defaulting")
	assert.InDelta(t, 0.70, cfg.Validation.AcceptThreshold, 0.001)

	t.Setenv("VALIDATION_VERIFY_FLOOR", "0")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Zero(t, cfg.Validation.VerifyFloor)
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		floor     float64
	}{
		{"threshold above one", 1.5, 0.5},
		{"floor above threshold", 0.6, 0.7},
		{"floor equals threshold", 0.6, 0.6},
		{"negative floor", 0.7, -0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			applyDefaults(&cfg)
			cfg.Validation.AcceptThreshold = tt.threshold
			cfg.Validation.VerifyFloor = tt.floor
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnvTransform(t *testing.T) {
	assert.Equal(t, "server.http_port", envTransform("SERVER_HTTP_PORT"))
	assert.Equal(t, "oracle.api_key", envTransform("ORACLE_API_KEY"))
	assert.Equal(t, "validation.accept_threshold", envTransform("VALIDATION_ACCEPT_THRESHOLD"))
	assert.Equal(t, "default", envTransform("DEFAULT"))
}
