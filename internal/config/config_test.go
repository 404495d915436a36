package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-channels/internal/chat"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	req := require.New(t)
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(&logger, path)
	req.NoError(err)
	req.Equal(path, resolved)
	req.FileExists(path)
	req.Equal(Default(), cfg)

	// The written file must load back to the same values.
	again, _, err := Load(&logger, path)
	req.NoError(err)
	req.Equal(cfg, again)
}

func TestLoadReplacesDefaultChannels(t *testing.T) {
	req := require.New(t)
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "config.yaml")
	req.NoError(os.WriteFile(path, []byte(`
addr: ":9000"
motd_delay: 300ms
channels:
  - id: 4
    name: Trade
    script: trade.lua
`), 0o600))

	cfg, _, err := Load(&logger, path)
	req.NoError(err)
	req.Equal(":9000", cfg.Addr)
	req.Equal(300*time.Millisecond, cfg.MOTDDelay)
	req.Equal(16, cfg.HookMaxDepth)
	req.Equal([]chat.StaticDefinition{{ID: 4, Name: "Trade", Script: "trade.lua"}}, cfg.StaticDefinitions())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9000\"\n"), 0o600))
	t.Setenv("WIRECHAT_ADDR", ":9100")

	cfg, _, err := Load(&logger, path)
	require.NoError(t, err)
	require.Equal(t, ":9100", cfg.Addr)
}

func TestValidateChannels(t *testing.T) {
	tests := []struct {
		name     string
		channels []Channel
		wantErr  bool
	}{
		{name: "defaults", channels: Default().Channels},
		{name: "guild id", channels: []Channel{{ID: 0, Name: "Guild"}}, wantErr: true},
		{name: "party id", channels: []Channel{{ID: 1, Name: "Party"}}, wantErr: true},
		{name: "private range", channels: []Channel{{ID: 100, Name: "Mine"}}, wantErr: true},
		{name: "empty name", channels: []Channel{{ID: 4}}, wantErr: true},
		{name: "duplicate id", channels: []Channel{{ID: 4, Name: "A"}, {ID: 4, Name: "B"}}, wantErr: true},
		{name: "bad script", channels: []Channel{{ID: 4, Name: "A", Script: "a.py"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Channels = tt.channels
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestWatchReportsChanges(t *testing.T) {
	req := require.New(t)
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "config.yaml")
	req.NoError(os.WriteFile(path, []byte("channels:\n  - id: 4\n    name: Trade\n"), 0o600))

	changes := make(chan Config, 16)
	req.NoError(Watch(&logger, path, func(cfg Config) { changes <- cfg }))

	req.NoError(os.WriteFile(path, []byte("channels:\n  - id: 4\n    name: Market\n"), 0o600))

	// A rewrite may surface as several events; wait for the final content.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if len(cfg.Channels) == 1 && cfg.Channels[0].Name == "Market" {
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}
