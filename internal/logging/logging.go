// Package logging builds the process logger.
//
// Stdout carries the MCP protocol, so logs go to stderr or a file.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger construction.
type Options struct {
	Level  string // trace, debug, info, warn, error
	File   string // optional log file; stderr when empty
	Pretty bool   // human-readable console output
}

// New creates a logger and returns a close function for any opened file.
func New(opts Options) (zerolog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	var output io.Writer = os.Stderr
	closeFn := func() error { return nil }
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = f
		closeFn = f.Close
	}
	if opts.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339, NoColor: opts.File != ""}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return logger, closeFn, nil
}

// ParseLevel converts a level name to a zerolog level. Empty means info.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}
