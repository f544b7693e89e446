package config

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valid() Config {
	return Config{Bind: "0.0.0.0", Port: 8080, HostKey: "secret", Provider: "openai"}
}

func TestValidate(t *testing.T) {
	cfg := valid()
	require.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.HostKey = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Provider = "bard"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Provider = "ollama"
	assert.NoError(t, cfg.Validate())
}

func TestWatcherIntervalDefaults(t *testing.T) {
	cfg := &Config{}
	Register(&cobra.Command{}, cfg)

	assert.Equal(t, time.Second, cfg.DeadlineInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.TallyInterval)
	assert.Equal(t, time.Second, cfg.StatsInterval)
}

func TestAddr(t *testing.T) {
	cfg := Config{Bind: "127.0.0.1", Port: 3000}
	assert.Equal(t, "127.0.0.1:3000", cfg.Addr())
}
