package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	"github.com/rs/zerolog/log"
)

// Logger wraps a configured zerolog.Logger.
type Logger struct {
	logger zerolog.Logger
	config *Config
}

// Config controls level, format and output target.
type Config struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // console, json
	Output     string `mapstructure:"output"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"timeFormat"`
	Caller     bool   `mapstructure:"caller"`
	Async      bool   `mapstructure:"async"`
}

// DefaultConfig returns sane console-logging defaults.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
		Caller:     true,
		Async:      false,
	}
}

// New builds a Logger and also installs it as the package-global and
// zerolog/log global logger.
func New(config *Config) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	zerolog.TimeFieldFormat = config.TimeFormat

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", config.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	switch strings.ToLower(config.Output) {
	case "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		if err := ensureDir(filepath.Dir(config.Output)); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.Output, err)
		}
		output = file
	}

	if config.Async {
		output = diode.NewWriter(output, 1000, 10*time.Millisecond, func(missed int) {
			fmt.Fprintf(os.Stderr, "logger dropped %d messages\n", missed)
		})
	}

	var zl zerolog.Logger
	switch strings.ToLower(config.Format) {
	case "console":
		zl = zerolog.New(zerolog.ConsoleWriter{Out: output, TimeFormat: config.TimeFormat})
	case "json":
		zl = zerolog.New(output)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", config.Format)
	}

	zl = zl.With().Timestamp().Logger()
	if config.Caller {
		zl = zl.With().Caller().Logger()
	}
	zl = zl.Level(level)

	log.Logger = zl
	l := &Logger{logger: zl, config: config}
	globalLogger = l
	return l, nil
}

// Zerolog exposes the underlying zerolog.Logger.
func (l *Logger) Zerolog() zerolog.Logger { return l.logger }

func (l *Logger) Debug(msg string)                           { l.logger.Debug().Msg(msg) }
func (l *Logger) Debugf(format string, args ...interface{})  { l.logger.Debug().Msgf(format, args...) }
func (l *Logger) Info(msg string)                            { l.logger.Info().Msg(msg) }
func (l *Logger) Infof(format string, args ...interface{})   { l.logger.Info().Msgf(format, args...) }
func (l *Logger) Warn(msg string)                            { l.logger.Warn().Msg(msg) }
func (l *Logger) Warnf(format string, args ...interface{})   { l.logger.Warn().Msgf(format, args...) }
func (l *Logger) Error(msg string)                           { l.logger.Error().Msg(msg) }
func (l *Logger) Errorf(format string, args ...interface{})  { l.logger.Error().Msgf(format, args...) }
func (l *Logger) ErrorWithErr(err error, msg string)         { l.logger.Error().Err(err).Msg(msg) }
func (l *Logger) Fatal(msg string)                           { l.logger.Fatal().Msg(msg) }
func (l *Logger) Fatalf(format string, args ...interface{})  { l.logger.Fatal().Msgf(format, args...) }

// WithField returns a child Logger carrying one structured field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger(), config: l.config}
}

// WithFields returns a child Logger carrying several structured fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{logger: ctx.Logger(), config: l.config}
}

// SetLevel adjusts the level of this logger instance.
func (l *Logger) SetLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %s: %w", level, err)
	}
	l.logger = l.logger.Level(lvl)
	l.config.Level = level
	return nil
}

func (l *Logger) GetLevel() string { return l.config.Level }

// Close is a no-op kept for interface symmetry; zerolog needs no teardown.
func (l *Logger) Close() error { return nil }

func ensureDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

var globalLogger *Logger

func InitGlobalLogger(config *Config) error {
	l, err := New(config)
	if err != nil {
		return err
	}
	globalLogger = l
	return nil
}

func Debug(msg string) {
	if globalLogger != nil {
		globalLogger.Debug(msg)
	}
}

func Debugf(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Debugf(format, args...)
	}
}

func Info(msg string) {
	if globalLogger != nil {
		globalLogger.Info(msg)
	}
}

func Infof(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Infof(format, args...)
	}
}

func Warn(msg string) {
	if globalLogger != nil {
		globalLogger.Warn(msg)
	}
}

func Warnf(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Warnf(format, args...)
	}
}

func Error(msg string) {
	if globalLogger != nil {
		globalLogger.Error(msg)
	}
}

func Errorf(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Errorf(format, args...)
	}
}

func ErrorWithErr(err error, msg string) {
	if globalLogger != nil {
		globalLogger.ErrorWithErr(err, msg)
	}
}
