package logger

import (
	"io"
	"os"

	"roofing-estimator/internal/config"

	"github.com/sirupsen/logrus"
)

// Logger оборачивает logrus.Logger, чтобы сервисы зависели от нашего пакета, а не от logrus напрямую.
type Logger struct {
	*logrus.Logger
}

// New создает логгер по конфигурации.
// Неизвестный уровень превращается в info, недоступный файл в stdout.
func New(cfg *config.LoggerConfig) *Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	var output io.Writer = os.Stdout
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			log.WithError(err).Warn("Failed to open log file, falling back to stdout")
		} else {
			output = file
		}
	}
	log.SetOutput(output)

	return &Logger{Logger: log}
}

// NewNop возвращает логгер, который ничего не пишет. Используется в CLI и тестах.
func NewNop() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Logger{Logger: log}
}
