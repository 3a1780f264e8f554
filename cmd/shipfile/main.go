package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/hpcloud/tail"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"

	"github.com/lokiship/lokiship"
)

// shipfile follows a single log file and ships every new line to a Loki
// endpoint through the async backend. Configuration comes from SHIPFILE_*
// environment variables, with an optional .env file.
type config struct {
	LokiURL   string `koanf:"loki_url" validate:"required,url"`
	File      string `koanf:"file" validate:"required"`
	Service   string `koanf:"service" validate:"required"`
	Username  string `koanf:"username"`
	Password  string `koanf:"password"`
	BatchSize int    `koanf:"batch_size" validate:"gt=0"`
	FromStart bool   `koanf:"from_start"`
}

func loadConfig(logger zerolog.Logger) config {
	// a missing .env file is fine, the environment may be set directly
	_ = godotenv.Load()

	k := koanf.New(".")
	err := k.Load(env.Provider("SHIPFILE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SHIPFILE_"))
	}), nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load environment variables")
	}

	cfg := config{
		LokiURL:   "http://localhost:3100",
		Service:   "shipfile",
		BatchSize: 50,
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		logger.Fatal().Err(err).Msg("could not unmarshal config")
	}

	if err := validator.New().Struct(&cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	return cfg
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	cfg := loadConfig(logger)

	builder := lokiship.NewBuilder().
		Endpoint(cfg.LokiURL).
		Network(lokiship.NetworkAsync).
		Format(lokiship.FormatJSON).
		IncludeLevel().
		Tag("service", cfg.Service).
		Tag("filename", cfg.File).
		FlushThreshold(cfg.BatchSize).
		Logger(logger)
	if cfg.Username != "" {
		builder.WithAuthentication(lokiship.AuthBasic, cfg.Username, cfg.Password)
	}

	sink, err := builder.Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("could not build sink")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		logger.Info().Msg("received shutdown signal")
		cancel()
	}()

	tailConfig := tail.Config{
		Follow: true,
		ReOpen: true,
		Logger: tail.DiscardingLogger,
	}
	if !cfg.FromStart {
		tailConfig.Location = &tail.SeekInfo{Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(cfg.File, tailConfig)
	if err != nil {
		logger.Fatal().Err(err).Str("file", cfg.File).Msg("could not tail file")
	}

	logger.Info().Str("file", cfg.File).Str("endpoint", cfg.LokiURL).Msg("shipping")
	ship(ctx, t, sink, cfg.Service, logger)

	_ = t.Stop()
	if err := sink.Close(); err != nil {
		logger.Warn().Err(err).Msg("final flush failed")
	}
	logger.Info().Msg("stopped")
}

func ship(ctx context.Context, t *tail.Tail, sink *lokiship.Sink, service string, logger zerolog.Logger) {
	for {
		select {
		case line, ok := <-t.Lines:
			if !ok {
				return
			}
			if line == nil {
				continue
			}
			if line.Err != nil {
				logger.Warn().Err(line.Err).Msg("error reading line")
				continue
			}

			rec := lokiship.LogRecord{
				Time:    line.Time,
				Level:   lokiship.LevelInfo,
				Target:  service,
				Message: line.Text,
			}
			if err := sink.Record(rec); err != nil {
				logger.Warn().Err(err).Msg("could not ship line")
			}
		case <-ctx.Done():
			return
		}
	}
}
