package logger

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once sync.Once
	log  zerolog.Logger
)

// Get returns the process-wide logger. The first call decides the level:
// Get(true) enables debug output in a human-readable console format.
func Get(debug ...bool) zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339
		level := zerolog.InfoLevel
		if len(debug) > 0 && debug[0] {
			level = zerolog.DebugLevel
			log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}).
				Level(level).
				With().Timestamp().Caller().Logger()
			return
		}
		log = zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	})
	return log
}
