package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var L = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

// Init points the logger at path (stdout when empty) and applies level.
func Init(path, level string) error {
	var w io.Writer = os.Stdout
	if path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		w = file
	}
	L = log.Output(zerolog.ConsoleWriter{Out: w, NoColor: path != ""})
	SetLevel(level)
	return nil
}

// SetLevel changes the global level; unknown values fall back to info.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func Info(v ...interface{}) { L.Info().Msg(fmt.Sprint(v...)) }
func Debugf(f string, v ...interface{}) { L.Debug().Msgf(f, v...) }
func Infof(f string, v ...interface{}) { L.Info().Msgf(f, v...) }
func Warnf(f string, v ...interface{}) { L.Warn().Msgf(f, v...) }
func Errorf(f string, v ...interface{}) { L.Error().Msgf(f, v...) }
