package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		// APIURL is the base URL for the pull endpoints; the websocket URL
		// is derived from it unless WSURL overrides it.
		APIURL string `yaml:"api_url"`
		WSURL  string `yaml:"ws_url"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Leaderboard struct {
		TTL string `yaml:"ttl"`
	} `yaml:"leaderboard"`
	Client struct {
		RequestTimeout string `yaml:"request_timeout"`
	} `yaml:"client"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// WSBase returns the websocket base URL, falling back to the API URL (the
// dialer rewrites the scheme).
func (c Config) WSBase() string {
	if c.Server.WSURL != "" {
		return c.Server.WSURL
	}
	return c.Server.APIURL
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
