package observ

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogging configures the global zerolog logger. Call once from main
// before any component logs.
func InitLogging(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// Log emits a structured lifecycle event through the global logger.
func Log(event string, kv map[string]any) {
	emit(log.Info(), event, kv)
}

// Warn emits a degraded-path event: fallbacks, skipped input, rejects.
func Warn(event string, kv map[string]any) {
	emit(log.Warn(), event, kv)
}

// Debug emits per-tick detail, visible only at debug level.
func Debug(event string, kv map[string]any) {
	emit(log.Debug(), event, kv)
}

func emit(e *zerolog.Event, event string, kv map[string]any) {
	for k, v := range kv {
		e = e.Interface(k, v)
	}
	e.Msg(event)
}
