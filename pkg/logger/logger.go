package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration
type Config struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format     string `yaml:"format" default:"pretty" validate:"oneof=json pretty"`
	TimeFormat string `yaml:"time_format" default:"15:04:05"`
	// File is an optional rotated log file
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" default:"50" validate:"gte=1"`
	MaxAgeDays int    `yaml:"max_age_days" default:"14" validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "pretty",
		TimeFormat: "15:04:05",
		MaxSizeMB:  50,
		MaxAgeDays: 14,
	}
}

// New builds a logger writing to out, plus the rotated file when configured.
// JSON output is meant for Lambda where CloudWatch keeps the structure.
func New(cfg Config, out io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level: %w", err)
	}
	if out == nil {
		out = os.Stderr
	}

	var writers []io.Writer
	switch cfg.Format {
	case "pretty":
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: cfg.TimeFormat})
	case "json", "":
		writers = append(writers, out)
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", cfg.Format)
	}

	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxAge:     cfg.MaxAgeDays,
			MaxBackups: 5,
			Compress:   true,
		})
	}

	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}
