// pkg/logging/logging.go
package logging

import (
	"io"
	stdLog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// logWriter stores the current log writer globally
	logWriter io.Writer
)

// stdLogWriter forwards stdlib log output (used by some dependencies) to zerolog.
type stdLogWriter struct {
	logger zerolog.Logger
}

func (w *stdLogWriter) Write(p []byte) (n int, err error) {
	w.logger.Debug().Str("source", "stdlog").Msg(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

// init keeps the CLI quiet until flags are parsed. Logs go to stderr so
// that stdout stays clean for json/yaml output.
func init() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	logWriter = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

// ConfigureGlobalLogging configures the global logging settings for the application.
func ConfigureGlobalLogging(levelStr string) error {
	level := parseLogLevel(levelStr)
	zerolog.SetGlobalLevel(level)

	logContext := zerolog.New(getLogWriter()).With().Timestamp()
	if level <= zerolog.DebugLevel {
		logContext = logContext.Caller()
	}

	log.Logger = logContext.Logger().Level(level)
	zerolog.DefaultContextLogger = &log.Logger

	stdLog.SetFlags(0)
	stdLog.SetOutput(&stdLogWriter{logger: log.Logger})

	return nil
}

// LevelForVerbosity maps a repeated -v flag onto a log level. Zero keeps base.
func LevelForVerbosity(base string, count int) string {
	switch {
	case count <= 0:
		return base
	case count == 1:
		return zerolog.InfoLevel.String()
	case count == 2:
		return zerolog.DebugLevel.String()
	default:
		return zerolog.TraceLevel.String()
	}
}

// parseLogLevel converts a string log level to zerolog.Level
func parseLogLevel(levelString string) zerolog.Level {
	if levelString == "" {
		levelString = "warn"
	}

	level, err := zerolog.ParseLevel(strings.ToLower(levelString))
	if err != nil {
		log.Error().Err(err).
			Str("logLevel", levelString).
			Msg("Invalid log level provided. Defaulting to warn level.")
		return zerolog.WarnLevel
	}
	return level
}

// getLogWriter returns the configured log writer
func getLogWriter() io.Writer {
	return logWriter
}

// SetLogWriter sets the global log writer
func SetLogWriter(w io.Writer) {
	logWriter = w
}
