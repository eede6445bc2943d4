package apiclient

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// ExecutorConfig is the file form of ExecutorSettings.
type ExecutorConfig struct {
	BaseURL         string            `yaml:"baseURL"`
	Timeout         time.Duration     `yaml:"timeout"`
	Headers         map[string]string `yaml:"headers"`
	RateLimit       float64           `yaml:"rateLimit"`
	Burst           int               `yaml:"burst"`
	RequestIDHeader string            `yaml:"requestIDHeader"`
	AcceptEncoding  *string           `yaml:"acceptEncoding"`
	Only2xx         bool              `yaml:"only2xx"`
}

// LoadExecutorConfig reads a YAML executor config, then applies
// ROUTECLIENT_* environment overrides. A missing file yields an empty config.
func LoadExecutorConfig(path string) (*ExecutorConfig, error) {
	cfg := &ExecutorConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse executor config: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read executor config: %w", err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(c *ExecutorConfig) error {
	if v, ok := os.LookupEnv("ROUTECLIENT_BASE_URL"); ok {
		c.BaseURL = v
	}
	if v, ok := os.LookupEnv("ROUTECLIENT_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ROUTECLIENT_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v, ok := os.LookupEnv("ROUTECLIENT_RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ROUTECLIENT_RATE_LIMIT: %w", err)
		}
		c.RateLimit = f
	}
	if v, ok := os.LookupEnv("ROUTECLIENT_REQUEST_ID_HEADER"); ok {
		c.RequestIDHeader = v
	}
	return nil
}

// Options converts the config into executor options. Zero fields keep the
// defaults of DefaultExecutorSettings.
func (c *ExecutorConfig) Options() []ExecutorOption {
	var opts []ExecutorOption
	if c.BaseURL != "" {
		opts = append(opts, WithBaseURL(c.BaseURL))
	}
	if c.Timeout > 0 {
		opts = append(opts, WithTimeout(c.Timeout))
	}
	for k, v := range c.Headers {
		opts = append(opts, WithHeader(k, v))
	}
	if c.RateLimit > 0 {
		opts = append(opts, WithRateLimit(rate.Limit(c.RateLimit), c.Burst))
	}
	if c.RequestIDHeader != "" {
		opts = append(opts, WithRequestIDHeader(c.RequestIDHeader))
	}
	if c.AcceptEncoding != nil {
		opts = append(opts, WithAcceptEncoding(*c.AcceptEncoding))
	}
	if c.Only2xx {
		opts = append(opts, WithStatusPolicy(Only2xx))
	}
	return opts
}
