package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Log *logrus.Logger

func init() {
	// Packages that log before Init (tests, library callers) get a usable default.
	Log = logrus.New()
	Log.SetOutput(io.Discard)
}

// Init configures the global logger from LOG_LEVEL and LOG_FILE. When LOG_FILE
// is set, entries are written to stdout and a rotating file.
func Init() {
	Log = logrus.New()
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	var out io.Writer = os.Stdout
	if path := os.Getenv("LOG_FILE"); path != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	Log.SetOutput(out)

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	Log.SetLevel(logLevel)
}

// SetOutput redirects the global logger, used by the CLI to keep stdout clean.
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}

func WithField(key string, value interface{}) *logrus.Entry {
	return Log.WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}
