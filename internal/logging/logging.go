// Package logging builds the process logger: console output, an optional rotating
// JSON log file and an optional Graylog (GELF over UDP) sink.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const fileName = "flight-control.log"

type Options struct {
	Level string
	// Dir enables the rotating log file when non-empty.
	Dir string

	GraylogEnabled bool
	GraylogAddress string

	// Console defaults to os.Stdout.
	Console io.Writer
	NoColor bool
}

// ParseLevel maps a config level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToUpper(s) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger owns the sinks behind a zerolog.Logger.
type Logger struct {
	zerolog.Logger
	File    string
	closers []io.Closer
}

func New(opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.RFC3339,
		NoColor:    opts.NoColor,
	}}
	l := &Logger{}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log dir: %w", err)
		}
		file := &lumberjack.Logger{
			Filename: filepath.Join(opts.Dir, fileName),
			MaxSize:  64, // MB
			MaxAge:   14,
			Compress: true,
		}
		writers = append(writers, file)
		l.File = file.Filename
		l.closers = append(l.closers, file)
	}

	if opts.GraylogEnabled {
		gw, err := gelf.NewWriter(opts.GraylogAddress)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("connecting to graylog at %s: %w", opts.GraylogAddress, err)
		}
		writers = append(writers, gw)
		l.closers = append(l.closers, gw)
	}

	l.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opts.Level)).
		With().Timestamp().Logger()
	return l, nil
}

// Close releases the file and Graylog sinks.
func (l *Logger) Close() error {
	var errs []error
	for _, c := range l.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	l.closers = nil
	return errors.Join(errs...)
}
