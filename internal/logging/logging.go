// Package logging builds the process slog.Logger on top of zerolog.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

// Format selects the zerolog writer.
type Format string

const (
	// FormatText writes human-readable console lines.
	FormatText Format = "text"
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
)

// New returns a slog.Logger backed by zerolog writing to w.
func New(w io.Writer, format Format, level slog.Level) *slog.Logger {
	var zl zerolog.Logger
	switch format {
	case FormatJSON:
		zl = zerolog.New(w).With().Timestamp().Logger()
	default:
		output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Stamp}
		zl = zerolog.New(output).With().Timestamp().Logger()
	}

	return slog.New(zeroslog.NewHandler(zl, &zeroslog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(zeroslog.NewHandler(zerolog.Nop(), &zeroslog.HandlerOptions{Level: slog.LevelError}))
}
