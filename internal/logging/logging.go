package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps a config level name to a zerolog level. Unknown names
// fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup configures the global logger. format is "console" or "json";
// verbose forces debug level and adds caller information.
func Setup(level, format string, verbose bool) {
	SetupWriter(os.Stderr, level, format, verbose)
}

// SetupWriter is Setup with an explicit output.
func SetupWriter(w io.Writer, level, format string, verbose bool) {
	lvl := ParseLevel(level)
	if verbose {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)

	out := w
	if strings.ToLower(format) != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if verbose {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
}
