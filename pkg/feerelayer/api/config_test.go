package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, config.BaseURL)
	assert.Equal(t, 30*time.Second, config.Timeout)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv(envBaseURL, "http://localhost:8080")
	t.Setenv(envTimeout, "5s")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", config.BaseURL)
	assert.Equal(t, 5*time.Second, config.Timeout)
}
