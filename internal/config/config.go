// Package config loads persona-memory settings from an optional YAML file
// and PERSONA_MEMORY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/persona-memory/internal/embedding"
	"github.com/rcliao/persona-memory/internal/llm"
	"github.com/rcliao/persona-memory/internal/logging"
	"github.com/rcliao/persona-memory/internal/model"
	"github.com/rcliao/persona-memory/internal/schedule"
	"github.com/rcliao/persona-memory/internal/store"
	"github.com/rcliao/persona-memory/internal/trigger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PERSONA_MEMORY_"

type Config struct {
	Storage   Storage          `yaml:"storage" envPrefix:"STORAGE_"`
	Memory    Memory           `yaml:"memory" envPrefix:"MEMORY_"`
	Triggers  Triggers         `yaml:"triggers" envPrefix:"TRIGGERS_"`
	Sessions  Sessions         `yaml:"sessions" envPrefix:"SESSIONS_"`
	Embedding embedding.Config `yaml:"embedding" envPrefix:"EMBEDDING_"`
	LLM       llm.Config       `yaml:"llm" envPrefix:"LLM_"`
	Log       logging.Config   `yaml:"log" envPrefix:"LOG_"`
	// RolesFile is an optional YAML file of extra roles loaded at startup.
	RolesFile string `yaml:"roles_file" env:"ROLES_FILE"`
}

type Storage struct {
	// Backend is memory or sqlite.
	Backend string `yaml:"backend" env:"BACKEND"`
	Path    string `yaml:"path" env:"PATH"`
}

type Memory struct {
	TTL store.TTL `yaml:"ttl" envPrefix:"TTL_"`
	// SweepSchedule is a cron expression for the expiry sweep. Empty
	// disables it.
	SweepSchedule string `yaml:"sweep_schedule" env:"SWEEP_SCHEDULE"`
	// RelevantLimit is how many ranked memories join a prompt.
	RelevantLimit int `yaml:"relevant_limit" env:"RELEVANT_LIMIT"`
	// ContextLimit is how many of the role's own memories join a prompt.
	ContextLimit int `yaml:"context_limit" env:"CONTEXT_LIMIT"`
	// DigestBudget bounds each memory digest in tokens.
	DigestBudget int `yaml:"digest_budget" env:"DIGEST_BUDGET"`
}

type Triggers struct {
	DiversityBonus  float64 `yaml:"diversity_bonus" env:"DIVERSITY_BONUS"`
	HysteresisRatio float64 `yaml:"hysteresis_ratio" env:"HYSTERESIS_RATIO"`
	// Domains replaces the built-in domain keyword groups when set.
	Domains map[string][]string `yaml:"domains"`
}

type Sessions struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	EvictSchedule string        `yaml:"evict_schedule" env:"EVICT_SCHEDULE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	tr := trigger.DefaultOptions()
	return &Config{
		Storage: Storage{
			Backend: "sqlite",
			Path:    filepath.Join(home, ".persona-memory", "memory.db"),
		},
		Memory: Memory{
			TTL:           store.DefaultTTL(),
			SweepSchedule: "*/15 * * * *",
			RelevantLimit: 5,
			ContextLimit:  10,
			DigestBudget:  1000,
		},
		Triggers: Triggers{
			DiversityBonus:  tr.DiversityBonus,
			HysteresisRatio: tr.HysteresisRatio,
		},
		Sessions: Sessions{
			IdleTimeout:   24 * time.Hour,
			EvictSchedule: "0 * * * *",
		},
		Embedding: embedding.Config{Provider: "hash", CacheSize: 1024},
		LLM:       llm.Config{Provider: "echo", MaxTokens: llm.DefaultMaxTokens},
		Log:       logging.Config{Level: "warn"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for sqlite: %w", model.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("storage.backend %q (want memory or sqlite): %w", c.Storage.Backend, model.ErrInvalidInput)
	}
	ttl := c.Memory.TTL
	if ttl.Session < 0 || ttl.User < 0 || ttl.Knowledge < 0 {
		return fmt.Errorf("memory.ttl must not be negative: %w", model.ErrInvalidInput)
	}
	if r := c.Triggers.HysteresisRatio; r <= 0 || r > 1 {
		return fmt.Errorf("triggers.hysteresis_ratio %v outside (0,1]: %w", r, model.ErrInvalidInput)
	}
	if c.Triggers.DiversityBonus < 0 {
		return fmt.Errorf("triggers.diversity_bonus must not be negative: %w", model.ErrInvalidInput)
	}
	if c.Sessions.IdleTimeout < 0 {
		return fmt.Errorf("sessions.idle_timeout must not be negative: %w", model.ErrInvalidInput)
	}
	for name, expr := range map[string]string{
		"memory.sweep_schedule":   c.Memory.SweepSchedule,
		"sessions.evict_schedule": c.Sessions.EvictSchedule,
	} {
		if expr == "" {
			continue
		}
		if err := schedule.Validate(expr); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// TriggerOptions converts the trigger section for the detector.
func (c *Config) TriggerOptions() trigger.Options {
	opts := trigger.DefaultOptions()
	opts.DiversityBonus = c.Triggers.DiversityBonus
	opts.HysteresisRatio = c.Triggers.HysteresisRatio
	if len(c.Triggers.Domains) > 0 {
		opts.Domains = c.Triggers.Domains
	}
	return opts
}
