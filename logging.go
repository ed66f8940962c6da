package reflection

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log is the package-level logger, grounded on the teacher's own
// ambient-logging convention (mod.go's zerolog.New(...).With().Timestamp()
// ... .Caller() chain): a console writer at info level by default,
// overridable with SetLogger. Recoverable decode paths - an unresolved
// type falling back to ObjectData, an unresolved member being discarded -
// log through this logger rather than returning harder errors, per
// spec.md §7's fatal-vs-recovered split.
var Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
	With().Timestamp().Logger().
	With().Caller().Logger().
	Level(zerolog.InfoLevel)

// SetLogger replaces the package-level logger, e.g. to redirect output
// or raise the level for a CLI tool.
func SetLogger(l zerolog.Logger) { Log = l }
