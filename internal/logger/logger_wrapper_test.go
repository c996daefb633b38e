package logger

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leandrodaf/midistream/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func readEntries(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestFileDestinationAndLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.log")

	log := NewZapLogger()
	log.SetDestination(contracts.FileLog, path)
	log.SetLevel(contracts.WarnLevel)

	log.Info("dropped")
	log.Warn("notification dropped", log.Field().Int("buffer", 4), log.Field().Uint32("data", 7))
	log.Error("device call failed", log.Field().Error("error", errors.New("boom")))
	require.NoError(t, log.(*ZapLogger).Sync())

	entries := readEntries(t, path)
	require.Len(t, entries, 2)
	assert.Equal(t, "notification dropped", entries[0]["msg"])
	assert.Equal(t, float64(4), entries[0]["buffer"])
	assert.Equal(t, float64(7), entries[0]["data"])
	assert.Equal(t, "boom", entries[1]["error"])
}

func TestFileDestinationWithoutPathKeepsLogger(t *testing.T) {
	z := NewZapLogger().(*ZapLogger)
	before := z.current()
	z.SetDestination(contracts.FileLog)
	assert.Same(t, before, z.current())
}

func TestNopLoggerIgnoresDestination(t *testing.T) {
	log := NewNopLogger()
	log.SetDestination(contracts.FileLog, filepath.Join(t.TempDir(), "never.log"))
	log.Info("nothing", log.Field().Bool("ok", true))
	assert.Nil(t, log.(*ZapLogger).config)
}

func TestFieldsReachZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	z := &ZapLogger{logger: zap.New(core), level: zap.NewAtomicLevel()}

	f := z.Field()
	z.Debug("flush",
		f.String("op", "midiStreamOut"),
		f.Int64("bytes", 24),
		f.Uint8("type", 0x51),
		f.Uint64("total", 1<<40),
		f.Float64("ratio", 0.5),
		f.Bool("callback", true),
		z.Field())

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "midiStreamOut", fields["op"])
	assert.Equal(t, int64(24), fields["bytes"])
	assert.Equal(t, uint8(0x51), fields["type"])
	assert.Equal(t, uint64(1<<40), fields["total"])
	assert.Equal(t, 0.5, fields["ratio"])
	assert.Equal(t, true, fields["callback"])
	assert.Len(t, fields, 6)
}

func TestZapLevel(t *testing.T) {
	tests := map[contracts.LogLevel]zapcore.Level{
		contracts.InfoLevel:  zapcore.InfoLevel,
		contracts.DebugLevel: zapcore.DebugLevel,
		contracts.WarnLevel:  zapcore.WarnLevel,
		contracts.ErrorLevel: zapcore.ErrorLevel,
		contracts.FatalLevel: zapcore.FatalLevel,
	}
	for level, want := range tests {
		assert.Equal(t, want, zapLevel(level))
	}
}
