package cmdutil

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type loggerConfig struct {
	level  string
	format string
}

var loggerConfigInst = loggerConfig{
	level:  zerolog.InfoLevel.String(),
	format: "console",
}

func RegisterLoggerFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&loggerConfigInst.level,
		"level",
		loggerConfigInst.level,
		"what level to log at - maps to zerolog.Level",
	)
	cmd.PersistentFlags().StringVar(
		&loggerConfigInst.format,
		"log-format",
		loggerConfigInst.format,
		"log output format, console or json",
	)
}

func Logger() (zerolog.Logger, error) {
	var logger zerolog.Logger
	switch loggerConfigInst.format {
	case "console":
		logger = zerolog.New(zerolog.NewConsoleWriter())
	case "json":
		logger = zerolog.New(os.Stderr)
	default:
		return zerolog.Nop(), errors.Newf("unknown log format %q", loggerConfigInst.format)
	}
	logger = logger.With().Timestamp().Logger()
	lvl, err := zerolog.ParseLevel(loggerConfigInst.level)
	if err != nil {
		return logger, err
	}
	return logger.Level(lvl), err
}
