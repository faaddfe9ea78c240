package logging

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level is the verbosity chosen with repeated -v flags
type Level int

const (
	LevelNormal  Level = 0 // INFO and above
	LevelVerbose Level = 1 // DEBUG and above
	LevelTrace   Level = 2 // DEBUG plus per-column pruning detail and HTTP headers
)

const maxJSONLen = 2000

var currentLevel Level

// Logger is the global logger. It discards everything until Setup runs.
var Logger = zerolog.Nop()

// Setup points Logger at stderr with the given verbosity
func Setup(level Level) {
	SetupWriter(level, os.Stderr)
}

// SetupWriter is Setup with an explicit destination. Colors are only used on stderr.
func SetupWriter(level Level, out io.Writer) {
	currentLevel = level

	minLevel := zerolog.InfoLevel
	if level >= LevelVerbose {
		minLevel = zerolog.DebugLevel
	}

	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    out != os.Stderr,
	}).Level(minLevel).With().Timestamp().Logger()
}

// Stage returns a child logger tagging every event with a pipeline stage
// ("clean", "analyze", "charts", "cache", "serve").
func Stage(name string) zerolog.Logger {
	return Logger.With().Str("stage", name).Logger()
}

func IsVerbose() bool { return currentLevel >= LevelVerbose }

func IsTraceEnabled() bool { return currentLevel >= LevelTrace }

// ToJSON renders v for debug fields, truncating long values
func ToJSON(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "<marshal error>"
	}
	if len(b) > maxJSONLen {
		return string(b[:maxJSONLen]) + "...(truncated)"
	}
	return string(b)
}

func emit(ev *zerolog.Event, msg string, kv []any) {
	ev.Fields(kv).Msg(msg)
}

// Info, Debug, Warn and Error take slog-style alternating key/value pairs
func Info(msg string, kv ...any)  { emit(Logger.Info(), msg, kv) }
func Debug(msg string, kv ...any) { emit(Logger.Debug(), msg, kv) }
func Warn(msg string, kv ...any)  { emit(Logger.Warn(), msg, kv) }
func Error(msg string, kv ...any) { emit(Logger.Error(), msg, kv) }

// LeveledLogger adapts Logger to retryablehttp.LeveledLogger. The client's
// per-attempt debug chatter only shows at trace level.
type LeveledLogger struct{}

func (LeveledLogger) Error(msg string, kv ...any) { Error(msg, kv...) }
func (LeveledLogger) Info(msg string, kv ...any)  { Info(msg, kv...) }
func (LeveledLogger) Warn(msg string, kv ...any)  { Warn(msg, kv...) }

func (LeveledLogger) Debug(msg string, kv ...any) {
	if IsTraceEnabled() {
		Debug(msg, kv...)
	}
}
