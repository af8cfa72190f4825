package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"fleet-asset-report/internal/errors"

	"github.com/rs/zerolog"
)

var log = zerolog.New(os.Stderr).With().Timestamp().Logger()

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Init initializes the logger. Console output is human readable, otherwise
// one JSON object per line is written.
func Init(level string, console bool) error {
	var out io.Writer = os.Stderr
	if console {
		out = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}
	return InitWithWriter(out, level)
}

// InitWithWriter is Init with an explicit destination.
func InitWithWriter(out io.Writer, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	log = zerolog.New(out).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(lvl)

	return nil
}

// ParseLevel maps a configured level name to a zerolog level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, errors.New(errors.ErrInvalidConfig).WithData("log_level=" + level)
	}
}

// IsTerminal reports whether stderr looks like an interactive terminal.
func IsTerminal() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// Debug logs a debug message
func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	return &LogEvent{log.Error()}
}

// ErrorWithCode logs an error message with its error code
func ErrorWithCode(err error) *LogEvent {
	return &LogEvent{log.Error().
		Str("error_code", string(errors.CodeOf(err))).
		Err(err)}
}
