// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var initOnce sync.Once

// Init sets log.Logger to a console logger tagged with app, writing to w
// (stdout when nil). Only the first call has an effect.
func Init(app string, w io.Writer, verbose bool) zerolog.Logger {
	initOnce.Do(func() {
		if w == nil {
			w = os.Stdout
		}
		output := zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    w != os.Stdout,
		}
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		log.Logger = zerolog.New(output).Level(level).With().Timestamp().Str("app", app).Logger()
	})
	return log.Logger
}

// OpenFile opens path for appending log lines, creating it when missing.
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
