package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger returns a zerolog Logger.
// APP_ENV=dev (or development) uses a human-friendly console writer.
// A non-empty file also writes JSON lines to a size-rotated log file.
func NewLogger(env, file string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if env == "dev" || env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	if file != "" {
		rotated := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, rotated)
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
