package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ui2sql-backend/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENVIRONMENT", "LOG_LEVEL", "MAX_UPLOAD_MB",
		"ANALYSIS_DELAY", "GENERATION_DELAY", "EXECUTION_DELAY", "SERVICE_TIMEOUT", "MOCK_FAIL_STAGE"} {
		t.Setenv(key, "")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, 3*time.Second, cfg.AnalysisDelay)
	assert.Equal(t, 2*time.Second, cfg.GenerationDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.ExecutionDelay)
	assert.Equal(t, 30*time.Second, cfg.ServiceTimeout)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "2")
	t.Setenv("ANALYSIS_DELAY", "250")
	t.Setenv("EXECUTION_DELAY", "1s")
	t.Setenv("MOCK_FAIL_STAGE", "Execute")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, int64(2*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, 250*time.Millisecond, cfg.AnalysisDelay)
	assert.Equal(t, time.Second, cfg.ExecutionDelay)
	assert.Equal(t, "execute", cfg.MockFailStage)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "lots")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate_UnknownFailStage(t *testing.T) {
	cfg := &config.Config{Port: "8080", MaxUploadBytes: 1, MockFailStage: "render"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MOCK_FAIL_STAGE")
}
