package api

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// DefaultBaseURL is the production relayer endpoint.
	DefaultBaseURL = "https://fee-relayer.solana.p2p.org"

	defaultTimeout = 30 * time.Second

	envBaseURL = "FEE_RELAYER_BASE_URL"
	envTimeout = "FEE_RELAYER_TIMEOUT"
)

// Config holds the relayer client configuration.
type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadConfig builds a Config from the environment, falling back to defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("timeout", defaultTimeout)

	if err := v.BindEnv("base_url", envBaseURL); err != nil {
		return nil, errors.Wrap(err, "failed to bind base url env")
	}
	if err := v.BindEnv("timeout", envTimeout); err != nil {
		return nil, errors.Wrap(err, "failed to bind timeout env")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	return &config, nil
}
