// Package logger builds the root zerolog logger from configuration.
// Components never import this package; they receive a zerolog.Logger by
// constructor injection and tag it with their component name.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New constructs the root logger. level is one of trace, debug, info,
// warn, error (unknown values fall back to info, loudly). When logFile is
// non-empty, entries are appended there as JSON in addition to the
// console writer on stderr.
func New(level, logFile string) (zerolog.Logger, error) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	var out io.Writer = console
	if logFile != "" {
		f, ferr := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if ferr != nil {
			return zerolog.Nop(), ferr
		}
		out = zerolog.MultiLevelWriter(console, f)
	}

	log := zerolog.New(out).Level(parsed).With().Timestamp().Logger()
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, using info")
	}
	return log, nil
}
