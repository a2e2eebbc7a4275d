package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Config controls verbosity and the optional rotating log file.
type Config struct {
	// Verbosity is the -v count: 0 info, 1 debug, 2+ trace.
	Verbosity  int
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

var (
	baseLogger = newBaseLogger()
)

func newBaseLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceFormatting: true,
	})
	return l
}

// Init configures the shared logger. Loggers handed out by GetLogger before
// Init pick up the new settings since they share the base logger.
func Init(cfg Config) error {
	switch {
	case cfg.Verbosity >= 2:
		baseLogger.SetLevel(logrus.TraceLevel)
	case cfg.Verbosity == 1:
		baseLogger.SetLevel(logrus.DebugLevel)
	default:
		baseLogger.SetLevel(logrus.InfoLevel)
	}

	if cfg.File == "" {
		baseLogger.SetOutput(os.Stdout)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return err
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    orDefault(cfg.MaxSize, 5),
		MaxBackups: orDefault(cfg.MaxBackups, 10),
		MaxAge:     orDefault(cfg.MaxAge, 14),
	}

	baseLogger.SetOutput(io.MultiWriter(os.Stdout, rotator))
	return nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func GetLogger(prefix string) *logrus.Entry {
	return baseLogger.WithField("prefix", prefix)
}
