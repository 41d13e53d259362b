package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

type OllamaConfig struct {
	URL   string `json:"url"`   // base URL, e.g. http://localhost:11434
	Model string `json:"model"` // e.g. llama3.1:8b
}

// GenerateURL returns the non-streaming completion endpoint.
func (o OllamaConfig) GenerateURL() string {
	return o.URL + "/api/generate"
}

type TutorConfig struct {
	XPPerMilestone    int     `json:"xp_per_milestone"`
	QualityConfidence float64 `json:"quality_confidence"`
	HistoryWindow     int     `json:"history_window"`
	HistoryMaxChars   int     `json:"history_max_chars"`
	LeaderboardLimit  int     `json:"leaderboard_limit"`
	LeaderboardTTLSec int     `json:"leaderboard_ttl_seconds"`
}

type Config struct {
	Postgres struct {
		DSN string `json:"dsn"`
	} `json:"postgres"`
	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
	Ollama OllamaConfig `json:"ollama"`
	Tutor  TutorConfig  `json:"tutor"`
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads config.json from disk (singleton)
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		raw, err := os.ReadFile(path)
		if err != nil {
			cfgErr = fmt.Errorf("failed to read config file: %w", err)
			return
		}
		var c Config
		if err := json.Unmarshal(raw, &c); err != nil {
			cfgErr = fmt.Errorf("invalid config format: %w", err)
			return
		}
		// Minimal validation
		if c.Ollama.URL == "" || c.Ollama.Model == "" {
			cfgErr = errors.New("ollama url and model must be set in config")
			return
		}
		applyDefaults(&c)
		cfg = &c
	})
	return cfg, cfgErr
}

func applyDefaults(c *Config) {
	if c.Tutor.XPPerMilestone <= 0 {
		c.Tutor.XPPerMilestone = 100
	}
	if c.Tutor.QualityConfidence <= 0 {
		c.Tutor.QualityConfidence = 0.6
	}
	if c.Tutor.HistoryWindow <= 0 {
		c.Tutor.HistoryWindow = 6
	}
	if c.Tutor.HistoryMaxChars <= 0 {
		c.Tutor.HistoryMaxChars = 4000
	}
	if c.Tutor.LeaderboardLimit <= 0 {
		c.Tutor.LeaderboardLimit = 100
	}
	if c.Tutor.LeaderboardTTLSec <= 0 {
		c.Tutor.LeaderboardTTLSec = 30
	}
}

// GetConfig returns the loaded config (must call LoadConfig first)
func GetConfig() *Config {
	return cfg
}

// ResetConfigForTest resets the singleton state (for testing only)
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}
