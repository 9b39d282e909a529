// Package logging is a thin wrapper around zerolog, giving the MC Core and
// CLI one shared, structured logger instead of ad hoc fmt.Printf calls.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu  sync.Mutex
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

// SetOutput redirects the package logger's output, for tests and for
// callers that want plain JSON instead of the console writer (e.g. when
// piping to a log aggregator).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log = zerolog.New(w).With().Timestamp().Logger()
}

// Progress logs a repetition's MC loop progress: the original source
// printed this every 1000 steps, restored here as a structured event
// (§4.4 additions).
func Progress(repetition, step, accepted int, gof float64) {
	mu.Lock()
	l := log
	mu.Unlock()
	l.Info().
		Int("repetition", repetition).
		Int("step", step).
		Int("accepted", accepted).
		Float64("gof", gof).
		Msg("mc progress")
}

// RunSummary logs the outcome of a completed repetition.
func RunSummary(repetition, step, accepted int, gof float64) {
	mu.Lock()
	l := log
	mu.Unlock()
	l.Info().
		Int("repetition", repetition).
		Int("step", step).
		Int("accepted", accepted).
		Float64("gof", gof).
		Msg("mc repetition complete")
}

// Error logs a non-fatal error encountered for a repetition.
func Error(repetition int, err error) {
	mu.Lock()
	l := log
	mu.Unlock()
	l.Error().Int("repetition", repetition).Err(err).Msg("mc repetition failed")
}
