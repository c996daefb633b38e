package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leandrodaf/midistream/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := &Config{DeviceID: 2, Division: 480, Tempo: 400000, NoOpBuffer: 8, MetaNoOps: true, LogLevel: "debug", APIPort: 9000}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadKeepsDefaultsForOmittedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"deviceId": 1}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.DeviceID)
	assert.Equal(t, 64, cfg.NoOpBuffer)
	assert.Equal(t, 8080, cfg.APIPort)
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed", `{"deviceId": `},
		{"negative device", `{"deviceId": -1}`},
		{"negative tempo", `{"tempo": -5}`},
		{"unknown level", `{"logLevel": "loud"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]contracts.LogLevel{
		"":        contracts.InfoLevel,
		"info":    contracts.InfoLevel,
		"DEBUG":   contracts.DebugLevel,
		"warning": contracts.WarnLevel,
		"error":   contracts.ErrorLevel,
		"fatal":   contracts.FatalLevel,
	}
	for name, want := range tests {
		got, err := ParseLogLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLogLevel("verbose")
	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)
}

func TestStreamOptions(t *testing.T) {
	cfg := &Config{DeviceID: 3, Division: 192, LogLevel: "warn", MetaNoOps: true}

	var opts contracts.StreamOptions
	for _, opt := range cfg.StreamOptions() {
		opt(&opts)
	}

	assert.Equal(t, 3, opts.DeviceID)
	assert.Equal(t, 192, opts.Division)
	assert.Equal(t, 0, opts.Tempo)
	assert.Equal(t, contracts.WarnLevel, opts.LogLevel)
	assert.True(t, opts.MetaNoOps)
}
