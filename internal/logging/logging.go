package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	LevelKey   = "log.level"
	FormatKey  = "log.format"
	NoColorKey = "log.no_color"
)

// InitDefault sets up a console logger before flags and config are parsed,
// so early startup errors are still readable.
func InitDefault() {
	log.Logger = zerolog.New(consoleWriter(false)).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()
}

// Init configures the global logger from the bound viper keys.
func Init() {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString(LevelKey)))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	switch viper.GetString(FormatKey) {
	case "json":
		logger = zerolog.New(os.Stderr)
	default:
		logger = zerolog.New(consoleWriter(viper.GetBool(NoColorKey)))
	}

	log.Logger = logger.Level(level).With().Timestamp().Logger()
}

func consoleWriter(noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    noColor,
		TimeFormat: time.Kitchen,
	}
}
