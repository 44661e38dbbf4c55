package logging

import (
	"bytes"
	stdLog "log"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.WarnLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"trace", zerolog.TraceLevel},
		{"nonsense", zerolog.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestLevelForVerbosity(t *testing.T) {
	assert.Equal(t, "warn", LevelForVerbosity("warn", 0))
	assert.Equal(t, "info", LevelForVerbosity("warn", 1))
	assert.Equal(t, "debug", LevelForVerbosity("warn", 2))
	assert.Equal(t, "trace", LevelForVerbosity("warn", 5))
}

func TestConfigureGlobalLogging(t *testing.T) {
	prev := getLogWriter()
	prevLogger := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetLogWriter(prev)
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	SetLogWriter(&buf)
	require.NoError(t, ConfigureGlobalLogging("info"))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	log.Debug().Msg("hidden")
	log.Info().Str("target", "10.0.0.1:443").Msg("visible")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), `"target":"10.0.0.1:443"`)
}

func TestStdLogRedirect(t *testing.T) {
	prev := getLogWriter()
	prevLogger := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetLogWriter(prev)
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
		stdLog.SetOutput(os.Stderr)
	})

	var buf bytes.Buffer
	SetLogWriter(&buf)
	require.NoError(t, ConfigureGlobalLogging("debug"))

	stdLog.Println("from a dependency")
	assert.Contains(t, buf.String(), "from a dependency")
	assert.Contains(t, buf.String(), `"source":"stdlog"`)
}
