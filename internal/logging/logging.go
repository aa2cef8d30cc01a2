// Package logging builds the zerolog logger used throughout the driver.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds a console-rendered zerolog.Logger at the given level.
//
// A nil/empty level falls back to "info", following the usual
// "nil means build a default" constructor convention.
func New(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	return zerolog.New(console).Level(lvl).With().Timestamp().Logger()
}

// WithRun annotates a logger with the run's platform and contract scope
// so every line in a (possibly concurrent) benchmark run can be traced
// back to the contract it belongs to.
func WithRun(l zerolog.Logger, platform, contract string) zerolog.Logger {
	return l.With().Str("platform", platform).Str("contract", contract).Logger()
}
