package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all recall configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Decay     DecayConfig     `yaml:"decay"`
	Graph     GraphConfig     `yaml:"graph"`
	Review    ReviewConfig    `yaml:"review"`
	Reminders ReminderConfig  `yaml:"reminders"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Tracker   TrackerConfig   `yaml:"tracker"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type DecayConfig struct {
	HalfLifeHours   float64 `yaml:"half_life_hours"`  // retention half-life without exposure
	ReviewThreshold float64 `yaml:"review_threshold"` // scores below this are review-urgent
	MaxIntervalDays float64 `yaml:"max_interval_days"`
}

type GraphConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"` // minimum cosine for a semantic edge
}

type ReviewConfig struct {
	Algorithm string `yaml:"algorithm"` // "sm2" or "leitner"
}

type ReminderConfig struct {
	Sink            string   `yaml:"sink"` // "log", "webhook", "command", "none"
	CooldownMinutes int      `yaml:"cooldown_minutes"`
	WebhookURL      string   `yaml:"webhook_url"`
	Command         []string `yaml:"command"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "auto", "ollama", "hash"
	OllamaURL string `yaml:"ollama_url"`
	Model     string `yaml:"model"` // Ollama embedding model, e.g. "nomic-embed-text"
	HashDims  int    `yaml:"hash_dims"`
}

type TrackerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	SweepSchedule    string `yaml:"sweep_schedule"`    // cron expression
	BackfillSchedule string `yaml:"backfill_schedule"` // cron expression
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37878,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Decay: DecayConfig{
			HalfLifeHours:   168, // one week
			ReviewThreshold: 0.6,
			MaxIntervalDays: 30,
		},
		Graph: GraphConfig{
			SimilarityThreshold: 0.7,
		},
		Review: ReviewConfig{
			Algorithm: "sm2",
		},
		Reminders: ReminderConfig{
			Sink:            "log",
			CooldownMinutes: 60,
		},
		Embedding: EmbeddingConfig{
			Provider:  "auto",
			OllamaURL: "http://localhost:11434",
			Model:     "nomic-embed-text",
			HashDims:  256,
		},
		Tracker: TrackerConfig{
			Enabled:          true,
			SweepSchedule:    "* * * * *",
			BackfillSchedule: "0 * * * *",
		},
	}
}

// Load reads a YAML config file and merges it over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Decay.HalfLifeHours <= 0 {
		return fmt.Errorf("decay.half_life_hours must be positive, got %v", c.Decay.HalfLifeHours)
	}
	if c.Decay.ReviewThreshold <= 0 || c.Decay.ReviewThreshold > 1 {
		return fmt.Errorf("decay.review_threshold must be in (0, 1], got %v", c.Decay.ReviewThreshold)
	}
	if c.Graph.SimilarityThreshold < 0 || c.Graph.SimilarityThreshold > 1 {
		return fmt.Errorf("graph.similarity_threshold must be in [0, 1], got %v", c.Graph.SimilarityThreshold)
	}
	switch c.Review.Algorithm {
	case "sm2", "leitner":
	default:
		return fmt.Errorf("review.algorithm must be sm2 or leitner, got %q", c.Review.Algorithm)
	}
	switch c.Reminders.Sink {
	case "log", "webhook", "command", "none":
	default:
		return fmt.Errorf("reminders.sink must be log, webhook, command, or none, got %q", c.Reminders.Sink)
	}
	if c.Reminders.Sink == "webhook" && c.Reminders.WebhookURL == "" {
		return fmt.Errorf("reminders.webhook_url required for webhook sink")
	}
	if c.Reminders.Sink == "command" && len(c.Reminders.Command) == 0 {
		return fmt.Errorf("reminders.command required for command sink")
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
