package infrastructure

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/krobus00/satoshi/internal/config"
	"github.com/krobus00/satoshi/internal/constant"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultLogFileMaxSizeMB = 100

// ConfigureLogger applies the log section of the config to the standard logrus logger.
func ConfigureLogger(cfg config.LogConfig, env string) error {
	logrus.SetReportCaller(cfg.ShowCaller)

	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(logLevel)

	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = "text"
		if env == constant.ProductionEnvironment {
			format = "json"
		}
	}

	switch format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	default:
		return fmt.Errorf("invalid log format '%s'", cfg.Format)
	}

	switch output := strings.TrimSpace(cfg.Output); output {
	case "stderr", "":
		logrus.SetOutput(os.Stderr)
	case "stdout":
		logrus.SetOutput(os.Stdout)
	default:
		if cfg.MaxAge > 0 {
			logrus.SetOutput(&lumberjack.Logger{
				Filename: output,
				MaxAge:   cfg.MaxAge,
				MaxSize:  defaultLogFileMaxSizeMB,
				Compress: true,
			})
			return nil
		}

		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file '%s': %w", output, err)
		}
		logrus.SetOutput(file)
	}

	return nil
}
