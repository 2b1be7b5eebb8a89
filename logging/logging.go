// Package logging holds the zerolog logger shared by corrfit packages.
//
// The library is silent by default. Applications that want diagnostics install
// their own logger once at startup:
//
//	logging.SetLogger(zerolog.New(os.Stderr).With().Timestamp().Logger())
//
// or use Setup for a console logger at a given verbosity.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	global = zerolog.Nop()
)

// SetLogger replaces the base logger used by every component.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	global = l
	mu.Unlock()
}

// Setup installs a human readable console logger writing to w.
//
// Verbosity 0 logs warnings, 1 info, 2 debug and anything higher trace.
// A nil writer means os.Stderr.
func Setup(w io.Writer, verbosity int) {
	if w == nil {
		w = os.Stderr
	}

	level := zerolog.WarnLevel
	switch {
	case verbosity == 1:
		level = zerolog.InfoLevel
	case verbosity == 2:
		level = zerolog.DebugLevel
	case verbosity > 2:
		level = zerolog.TraceLevel
	}

	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	l := zerolog.New(console).Level(level).With().Timestamp().Logger()
	if verbosity >= 2 {
		l = l.With().Caller().Logger()
	}

	SetLogger(l)
}

// Logger returns the current base logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	return global
}

// GetLogger returns a logger tagged with the given component name.
func GetLogger(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}
