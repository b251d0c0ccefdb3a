// Package audit writes compliance events as JSON lines to a dedicated log
// file, separate from application logging. Entries carry aggregate counts
// only; actual PII values must never reach this log.
package audit

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rfqworks/rfqd/internal/config"
	"github.com/rfqworks/rfqd/internal/logging"
)

// Event types recorded by the pipeline.
const (
	EventIngestion    = "INGESTION"
	EventPIIMasking   = "PII_MASKING"
	EventAIProcessing = "AI_PROCESSING"
	EventVerification = "VERIFICATION"
	EventCorrection   = "CORRECTION"
)

// Statuses for audit entries.
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// Logger appends audit entries to a JSONL file. A disabled logger discards
// everything.
type Logger struct {
	audit *zap.Logger
	app   *logging.Logger
	file  *os.File
}

// New opens (or creates) the audit log file from cfg. When auditing is
// disabled, the returned logger is a no-op.
func New(cfg config.AuditConfig, app *logging.Logger) (*Logger, error) {
	if app == nil {
		app = logging.NewNop()
	}
	app = app.Named("audit")

	if !cfg.Enabled {
		return &Logger{audit: zap.NewNop(), app: app}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}
	file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.LevelKey = ""
	encoderCfg.CallerKey = ""
	encoderCfg.MessageKey = "event_type"

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), zapcore.InfoLevel)
	return &Logger{audit: zap.New(core), app: app, file: file}, nil
}

// LogEvent records one operational event. details must contain aggregate
// metadata only, never PII values.
func (l *Logger) LogEvent(eventType, fileName, status string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	l.audit.Info(eventType,
		zap.String("file_name", fileName),
		zap.String("status", status),
		zap.Any("details", details),
	)

	if status == StatusFailure {
		l.app.Error("audit event",
			zap.String("event_type", eventType),
			zap.String("file_name", fileName),
			zap.Any("details", details))
		return
	}
	l.app.Debug("audit event",
		zap.String("event_type", eventType),
		zap.String("file_name", fileName),
		zap.String("status", status))
}

// LogPIIMasking records masking stats for one document: counts per token
// type, no values.
func (l *Logger) LogPIIMasking(fileName string, stats map[string]int) {
	total := 0
	for _, n := range stats {
		total += n
	}
	l.LogEvent(EventPIIMasking, fileName, StatusSuccess, map[string]any{
		"total_tokens_masked": total,
		"token_types":         stats,
	})
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	syncErr := l.audit.Sync()
	if l.file != nil {
		if err := l.file.Close(); err != nil {
			return err
		}
	}
	return syncErr
}
