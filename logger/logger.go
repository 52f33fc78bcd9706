// Package logger owns the process-wide structured logger.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for structured logging.
const (
	FieldUserID     = "user_id"
	FieldJobID      = "job_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
	FieldKey        = "key"
	FieldBucket     = "bucket"
	FieldSize       = "size"
)

// Logger is the global logger. It is a no-op until Initialize runs so that
// packages can log from tests without setup.
var Logger = zap.NewNop().Sugar()

// Initialize installs a JSON logger in production and a console logger
// everywhere else.
func Initialize(production bool) error {
	var (
		zapLogger *zap.Logger
		err       error
	)
	if production {
		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		zapLogger, err = cfg.Build()
		if err != nil {
			return err
		}
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapLogger = zap.New(
			zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), zap.DebugLevel),
		)
	}
	Logger = zapLogger.Sugar()
	return nil
}

// Named returns a child logger tagged with a component name.
func Named(component string) *zap.SugaredLogger {
	return Logger.Named(component)
}

// Cleanup flushes any buffered log entries.
func Cleanup() {
	_ = Logger.Sync()
}
