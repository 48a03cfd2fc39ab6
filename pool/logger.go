package pool

import (
	"os"

	"github.com/rs/zerolog"
)

// log is the package-wide structured logger, used for block growth,
// release and allocation-failure traces. It defaults to warn level on
// stderr; replace it with SetLogger to route traces into an
// application's own zerolog.Logger or to silence it in tests.
var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).
	Level(zerolog.WarnLevel).
	With().Timestamp().Str("component", "pool").Logger()

// SetLogger replaces the package-wide logger.
func SetLogger(l zerolog.Logger) {
	log = l
}
