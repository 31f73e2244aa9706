package commands

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/satheeshds/cdaplus/config"
)

// logLevel is shared by the default logger so that a config reload can
// change verbosity without rebuilding the handler.
var logLevel = &slog.LevelVar{}

func setupLogging(level string) error {
	l, err := config.ParseLevel(level)
	if err != nil {
		return err
	}
	logLevel.Set(l)
	slog.SetDefault(slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      logLevel,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})))
	return nil
}

// applyLevel switches the log level after a config reload. Invalid levels
// are reported and ignored.
func applyLevel(level string) {
	l, err := config.ParseLevel(level)
	if err != nil {
		slog.Warn("ignoring logging.level", "error", err)
		return
	}
	if l != logLevel.Level() {
		logLevel.Set(l)
		slog.Info("log level changed", "level", l)
	}
}
