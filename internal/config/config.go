package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		Token   string `yaml:"token"`
		AdminID int64  `yaml:"admin_id"`
	} `yaml:"telegram"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Game struct {
		Duration string `yaml:"duration"`
	} `yaml:"game"`
	Leaderboard struct {
		TTL   string `yaml:"ttl"`
		Limit int    `yaml:"limit"`
	} `yaml:"leaderboard"`
}

// Load reads YAML config from path; the Telegram token and admin id may be
// overridden by the TG_TOKEN and ADMIN_ID environment variables.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if token := os.Getenv("TG_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if admin := os.Getenv("ADMIN_ID"); admin != "" {
		if id, err := strconv.ParseInt(admin, 10, 64); err == nil {
			cfg.Telegram.AdminID = id
		}
	}
	return cfg, nil
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
