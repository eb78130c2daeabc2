package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"front", "side", "three-quarter"}, cfg.Angles)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.True(t, cfg.AutoVideo)
	assert.Equal(t, 0, cfg.AngleRetries)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.WebAddr)
	assert.Equal(t, 300*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 1200*time.Millisecond, cfg.MediaGroupDebounce)
}

func TestLoad_ClampsAndParses(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("MAX_CONCURRENT", "0")
	t.Setenv("ANGLE_RETRIES", "-2")
	t.Setenv("POLL_INTERVAL_SECONDS", "nope")
	t.Setenv("MAX_POLL_MINUTES", "15")
	t.Setenv("STUDIO_ANGLES", " Front, ,back ")
	t.Setenv("AUTO_VIDEO", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.MaxConcurrent)
	assert.Equal(t, 0, cfg.AngleRetries)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 15*time.Minute, cfg.MaxPollDuration)
	assert.Equal(t, []string{"front", "back"}, cfg.Angles)
	assert.False(t, cfg.AutoVideo)
}
