// internal/logger/logger.go
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger.
// Development gets colorized console output, production gets JSON lines.
func Init(production bool, level string) {
	InitWithWriter(os.Stderr, production, level)
}

// InitWithWriter is Init with an explicit output.
func InitWithWriter(out io.Writer, production bool, level string) {
	zerolog.TimeFieldFormat = time.RFC3339

	if production {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			With().Timestamp().Caller().Logger()
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
