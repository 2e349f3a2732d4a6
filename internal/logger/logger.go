package logger

import (
	"io"
	"log/slog"
)

// New returns a JSON logger with timestamp/level/message keys.
func New(writer io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "timestamp"
			case slog.LevelKey:
				a.Key = "level"
			case slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	})
	return slog.New(handler)
}

// Init installs the JSON logger as the process default.
func Init(writer io.Writer, level slog.Level) *slog.Logger {
	l := New(writer, level)
	slog.SetDefault(l)
	return l
}
