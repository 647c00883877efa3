package util

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// AppName tags every log line.
const AppName = "ike-tube"

// NewLogger returns a logger at the given level. STAGE=local writes coloured
// console lines, any other stage writes JSON with UNIX timestamps. Output goes
// to stderr so command results on stdout stay machine readable.
func NewLogger(level zerolog.Level) zerolog.Logger {
	stage := os.Getenv("STAGE")

	var out io.Writer = os.Stderr
	if strings.EqualFold(stage, "local") {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("app", AppName).
		Str("stage", stage).
		Logger()
}

// NewLoggerFromEnv returns a logger whose level is read from LOG_LEVEL.
func NewLoggerFromEnv() zerolog.Logger {
	return NewLogger(LevelFromEnv("LOG_LEVEL", zerolog.ErrorLevel))
}

// LevelFromEnv returns the log level stored in key, or fallback when unset or unknown.
func LevelFromEnv(key string, fallback zerolog.Level) zerolog.Level {
	switch strings.ToLower(os.Getenv(key)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return fallback
	}
}
