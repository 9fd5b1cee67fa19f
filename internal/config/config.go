// Package config loads scraper settings from an optional YAML file and
// the environment, with the environment winning.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/asurada/appstore-spending/internal/scraper/appstore"
)

type Config struct {
	// Endpoint is the purchase-search API to observe and fetch from.
	Endpoint string `yaml:"endpoint"`
	Referrer string `yaml:"referrer"`

	// ThrottleMS is the fixed inter-page delay.
	ThrottleMS int `yaml:"throttle_ms"`

	// Headless controls the observed browser window. Credential capture
	// needs the user to log in, so the default is a visible window.
	Headless bool `yaml:"headless"`

	// ChromeBin overrides browser autodetection when set.
	ChromeBin string `yaml:"chrome_bin"`
}

func Default() Config {
	return Config{
		Endpoint:   appstore.DefaultEndpoint,
		Referrer:   appstore.DefaultReferrer,
		ThrottleMS: 400,
		Headless:   false,
	}
}

func (c Config) Throttle() time.Duration {
	return time.Duration(c.ThrottleMS) * time.Millisecond
}

// Load reads the YAML file at path (missing file is fine, defaults
// apply), then applies APPSTORE_* environment overrides. A .env file in
// the working directory is honored if present.
func Load(path string) (Config, error) {
	// Best effort; absence of a .env file is the normal case.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if cfg.ThrottleMS < 0 {
		return Config{}, fmt.Errorf("throttle_ms must not be negative, got %d", cfg.ThrottleMS)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("APPSTORE_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("APPSTORE_REFERRER"); v != "" {
		c.Referrer = v
	}
	if v := os.Getenv("APPSTORE_THROTTLE_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("APPSTORE_THROTTLE_MS: %w", err)
		}
		c.ThrottleMS = ms
	}
	if v := os.Getenv("APPSTORE_HEADLESS"); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("APPSTORE_HEADLESS: %w", err)
		}
		c.Headless = headless
	}
	if v := os.Getenv("APPSTORE_CHROME_BIN"); v != "" {
		c.ChromeBin = v
	}
	return nil
}
