package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"poker-settle/internal/config"
)

var writer io.Writer = os.Stdout

// Init configures the global zerolog logger. When a log file is set, output
// goes to a size-capped file instead of stdout.
func Init(cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level))); err == nil && cfg.Level != "" {
		level = parsed
	}

	writer = os.Stdout
	if cfg.File != "" {
		if w, err := newCappedFileWriter(cfg.File, cfg.MaxMB); err == nil {
			writer = w
		} else {
			log.Error().Err(err).Str("path", cfg.File).Msg("log file unavailable, using stdout")
		}
	}
	out := writer
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: writer}
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// Writer exposes the current log destination so other logging stacks
// (request logging) can share it.
func Writer() io.Writer {
	return writer
}
