// Package logging builds the zerolog root logger shared by the server and
// the agent. Output goes to stdout (JSON, or a console writer) and, when a
// file is configured, to a size-rotated log file.
package logging

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Defaults applied by the YAML loaders when fields are absent.
const (
	DefaultLevel      = "info"
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 28
)

// Config controls logger construction.
type Config struct {
	// Level is one of: trace | debug | info | warn | error.
	Level string `yaml:"level"`

	// Console switches stdout to human-readable output.
	Console bool `yaml:"console"`

	// File, when set, also writes JSON logs to this path with rotation.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Defaults returns a Config with the package defaults.
func Defaults() Config {
	return Config{
		Level:      DefaultLevel,
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAgeDays: DefaultMaxAgeDays,
	}
}

// Validate reports an unusable Config.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	if c.File != "" && c.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be positive when log.file is set")
	}
	if c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("log.max_backups and log.max_age_days must not be negative")
	}
	return nil
}

// ParseLevel maps a config level name to a zerolog level. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, fmt.Errorf("log.level %q unknown: want trace|debug|info|warn|error", s)
	}
	return lvl, nil
}

// New builds a logger writing to stdout and, if cfg.File is set, to a
// rotating file. The returned Closer releases the file.
func New(cfg Config, stdout io.Writer, service string) (zerolog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	var out io.Writer = stdout
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339}
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out = zerolog.MultiLevelWriter(out, lj)
		closer = lj
	}

	logger := zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", service).
		Logger()
	return logger, closer, nil
}

// LevelSwitch is a zerolog hook that drops events below a minimum level
// which can be changed while the logger is in use.
type LevelSwitch struct {
	min atomic.Int32
}

// NewLevelSwitch returns a switch set to lvl.
func NewLevelSwitch(lvl zerolog.Level) *LevelSwitch {
	s := &LevelSwitch{}
	s.Set(lvl)
	return s
}

// Set changes the minimum level.
func (s *LevelSwitch) Set(lvl zerolog.Level) { s.min.Store(int32(lvl)) }

// Level returns the current minimum level.
func (s *LevelSwitch) Level() zerolog.Level { return zerolog.Level(s.min.Load()) }

// Run implements zerolog.Hook.
func (s *LevelSwitch) Run(e *zerolog.Event, lvl zerolog.Level, _ string) {
	if lvl < s.Level() {
		e.Discard()
	}
}

// Attach returns logger with its own level opened up and filtering
// delegated to s.
func (s *LevelSwitch) Attach(logger zerolog.Logger) zerolog.Logger {
	return logger.Level(zerolog.TraceLevel).Hook(s)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
