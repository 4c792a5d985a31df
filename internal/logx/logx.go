package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/smartfarm/advisor/internal/core"
)

type LoggerOpts struct {
	Environment core.Environment
	Output      io.Writer
}

// Init configures the global logger. Production emits JSON at info level,
// everything else gets a console writer at debug level.
func Init(opts LoggerOpts) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	if opts.Environment.IsProduction() {
		log.Logger = zerolog.New(out).With().Timestamp().Logger().Level(zerolog.InfoLevel)
		return
	}
	if opts.Environment == core.Testing {
		log.Logger = zerolog.New(out).With().Timestamp().Logger().Level(zerolog.WarnLevel)
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Caller().Logger().Level(zerolog.DebugLevel)
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
