package observ

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. Pretty console output when
// requested, raw JSON otherwise so piped logs stay parseable.
func Init(pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// Log emits one structured event line with a stable "event" key.
func Log(event string, kv map[string]any) {
	e := log.Info()
	for k, v := range kv {
		e = e.Interface(k, v)
	}
	e.Msg(event)
}

// Warn is Log at warning severity.
func Warn(event string, kv map[string]any) {
	e := log.Warn()
	for k, v := range kv {
		e = e.Interface(k, v)
	}
	e.Msg(event)
}
