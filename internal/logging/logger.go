package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/edvin/vpanel/internal/config"
)

// NewLogger creates a structured zerolog.Logger tagged with the service
// name. When cfg.LogFile is set, output is also written to that file with
// size-based rotation.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *config.Config, stdout io.Writer) zerolog.Logger {
	var out io.Writer = stdout
	if cfg.LogFile != "" {
		out = zerolog.MultiLevelWriter(stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // MB
			MaxBackups: 7,
			MaxAge:     14, // days
			Compress:   true,
		})
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
