package logger

import (
    "io"
    "os"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
)

// New builds the process logger and installs it as the zerolog global.
// Dev gets a console writer with caller info; everything else is JSON on stdout.
func New(cfg config.Config) zerolog.Logger {
    logger := build(cfg, os.Stdout)
    log.Logger = logger
    return logger
}

func build(cfg config.Config, out io.Writer) zerolog.Logger {
    level, err := zerolog.ParseLevel(cfg.LogLevel)
    if err != nil || level == zerolog.NoLevel { level = zerolog.InfoLevel }

    if cfg.AppEnv == "dev" {
        cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
        return zerolog.New(cw).Level(level).With().Timestamp().Caller().Logger()
    }
    zerolog.TimeFieldFormat = time.RFC3339
    return zerolog.New(out).Level(level).With().Timestamp().Str("svc", "sprint-pulse").Str("env", cfg.AppEnv).Logger()
}
