package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/persona-memory/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, time.Hour, cfg.Memory.TTL.Session)
	assert.Equal(t, 0.8, cfg.Triggers.HysteresisRatio)
	assert.Equal(t, 2.0, cfg.Triggers.DiversityBonus)
	assert.Equal(t, 5, cfg.Memory.RelevantLimit)
	assert.Equal(t, 10, cfg.Memory.ContextLimit)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Memory, cfg.Memory)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: memory
memory:
  ttl:
    session: 30m
  relevant_limit: 3
triggers:
  hysteresis_ratio: 0.5
  domains:
    robotics: ["robot", "actuator"]
sessions:
  idle_timeout: 2h
llm:
  provider: echo
`)
	t.Setenv("PERSONA_MEMORY_TRIGGERS_DIVERSITY_BONUS", "3")
	t.Setenv("PERSONA_MEMORY_EMBEDDING_PROVIDER", "none")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Memory.TTL.Session)
	assert.Equal(t, 30*24*time.Hour, cfg.Memory.TTL.User, "unset keys keep defaults")
	assert.Equal(t, 3, cfg.Memory.RelevantLimit)
	assert.Equal(t, 2*time.Hour, cfg.Sessions.IdleTimeout)
	assert.Equal(t, 3.0, cfg.Triggers.DiversityBonus)
	assert.Equal(t, "none", cfg.Embedding.Provider)

	opts := cfg.TriggerOptions()
	assert.Equal(t, 0.5, opts.HysteresisRatio)
	assert.Equal(t, map[string][]string{"robotics": {"robot", "actuator"}}, opts.Domains)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"backend", "storage:\n  backend: redis\n"},
		{"ratio zero", "triggers:\n  hysteresis_ratio: 0\n"},
		{"ratio above one", "triggers:\n  hysteresis_ratio: 1.5\n"},
		{"negative ttl", "memory:\n  ttl:\n    user: -1h\n"},
		{"schedule", "memory:\n  sweep_schedule: every tuesday\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoadInvalidWrapsInput(t *testing.T) {
	_, err := Load(writeConfig(t, "storage:\n  backend: redis\n"))
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestLoadBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "storage: [\n"))
	assert.Error(t, err)
}
