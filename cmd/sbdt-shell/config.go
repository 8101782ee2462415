package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/sbdt/storage"
	"github.com/opd-ai/sbdt/transport"
)

// Config holds the shell binary settings. Environment variables (and a .env
// file in the working directory) provide the values, command line flags
// override them.
type Config struct {
	LogLevel          string        `env:"SBDT_LOG_LEVEL,default=info" validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat         string        `env:"SBDT_LOG_FORMAT,default=text" validate:"oneof=text json"`
	BadgerPath        string        `env:"SBDT_BADGER_PATH"`
	SinkDir           string        `env:"SBDT_SINK_DIR"`
	MaxFileSize       uint64        `env:"SBDT_MAX_FILE_SIZE,default=16777216" validate:"gt=0"`
	KeyMode           string        `env:"SBDT_CHECKSUM_KEY_MODE,default=shared" validate:"oneof=shared per-file perfile"`
	QueueCapacity     int           `env:"SBDT_QUEUE_CAPACITY,default=32" validate:"min=1,max=4096"`
	ScratchBuffers    int           `env:"SBDT_SCRATCH_BUFFERS,default=3" validate:"min=1,max=64"`
	LinkType          string        `env:"SBDT_LINK_TYPE,default=ble" validate:"oneof=ble fsk lora"`
	IterationInterval time.Duration `env:"SBDT_ITERATION_INTERVAL,default=10ms" validate:"gt=0"`
	Color             bool          `env:"SBDT_COLOR,default=true"`
}

// loadConfig reads the environment, then applies the flags in args.
func loadConfig(args []string, usage io.Writer) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.WithField("function", "loadConfig").Debug("No .env file loaded")
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	fs := flag.NewFlagSet("sbdt-shell", flag.ContinueOnError)
	fs.SetOutput(usage)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")
	fs.StringVar(&cfg.BadgerPath, "badger", cfg.BadgerPath, "Checksum store directory (default: in memory)")
	fs.StringVar(&cfg.SinkDir, "sink", cfg.SinkDir, "Directory receiving completed files (default: disabled)")
	fs.Uint64Var(&cfg.MaxFileSize, "max-file-size", cfg.MaxFileSize, "Largest file the sink accepts")
	fs.StringVar(&cfg.KeyMode, "key-mode", cfg.KeyMode, "Checksum key mode (shared, per-file)")
	fs.IntVar(&cfg.QueueCapacity, "queue", cfg.QueueCapacity, "Event queue capacity")
	fs.IntVar(&cfg.ScratchBuffers, "scratch", cfg.ScratchBuffers, "Scratch buffer pool slots")
	fs.StringVar(&cfg.LinkType, "link", cfg.LinkType, "Simulated link type (ble, fsk, lora)")
	fs.DurationVar(&cfg.IterationInterval, "interval", cfg.IterationInterval, "Poll interval used while sending")
	fs.BoolVar(&cfg.Color, "color", cfg.Color, "Colorize shell status lines")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.KeyMode = strings.ToLower(cfg.KeyMode)
	cfg.LinkType = strings.ToLower(cfg.LinkType)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// keyMode returns the parsed checksum key mode.
func (c *Config) keyMode() storage.KeyMode {
	mode, err := storage.ParseKeyMode(c.KeyMode)
	if err != nil {
		return storage.KeyModeShared
	}
	return mode
}

func (c *Config) linkType() transport.LinkType {
	switch c.LinkType {
	case "fsk":
		return transport.LinkTypeFSK
	case "lora":
		return transport.LinkTypeLoRa
	default:
		return transport.LinkTypeBLE
	}
}

// setupLogging configures the global logrus logger.
func (c *Config) setupLogging(out io.Writer) error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(out)
	if c.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
