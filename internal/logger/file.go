package logger

import (
	"path/filepath"

	"github.com/julianstephens/go-utils/helpers"
	goulog "github.com/julianstephens/go-utils/logger"
)

// FileConfig controls rotating file output.
type FileConfig struct {
	Dir        string
	FileName   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// FileLogger writes JSON entries to a rotating file through go-utils/logger.
type FileLogger struct {
	underlying *goulog.Logger
	minLevel   Level
	path       string
}

// NewFileLogger creates cfg.Dir if needed and starts logging to cfg.FileName inside it.
func NewFileLogger(cfg FileConfig, level Level) (*FileLogger, error) {
	if err := helpers.Ensure(cfg.Dir, true); err != nil {
		return nil, wrapLoggerErr("create file logger", ErrLogCreate, err, cfg.Dir)
	}

	path := filepath.Join(cfg.Dir, cfg.FileName)
	rotation := goulog.FileRotationConfig{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: &cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	// Zero means keep logs regardless of age.
	if cfg.MaxAgeDays > 0 {
		rotation.MaxAge = &cfg.MaxAgeDays
	}

	underlying := goulog.New()
	if err := underlying.SetLogLevel(level.String()); err != nil {
		return nil, wrapLoggerErr("create file logger", ErrLogCreate, err, path)
	}
	if err := underlying.SetFileOutputWithConfig(rotation); err != nil {
		return nil, wrapLoggerErr("create file logger", ErrLogCreate, err, path)
	}

	return &FileLogger{underlying: underlying, minLevel: level, path: path}, nil
}

// Path returns the active log file path.
func (fl *FileLogger) Path() string {
	return fl.path
}

func (fl *FileLogger) Debug(msg string, fields ...interface{}) {
	if fl.minLevel > LevelDebug {
		return
	}
	if len(fields) == 0 {
		fl.underlying.Debug(msg)
		return
	}
	fl.underlying.WithFields(fieldsToMap(fields)).Debug(msg)
}

func (fl *FileLogger) Info(msg string, fields ...interface{}) {
	if fl.minLevel > LevelInfo {
		return
	}
	if len(fields) == 0 {
		fl.underlying.Info(msg)
		return
	}
	fl.underlying.WithFields(fieldsToMap(fields)).Info(msg)
}

func (fl *FileLogger) Warn(msg string, fields ...interface{}) {
	if fl.minLevel > LevelWarn {
		return
	}
	if len(fields) == 0 {
		fl.underlying.Warn(msg)
		return
	}
	fl.underlying.WithFields(fieldsToMap(fields)).Warn(msg)
}

func (fl *FileLogger) Error(msg string, err error, fields ...interface{}) {
	fl.underlying.WithFields(fieldsToMap(append([]interface{}{"error", err}, fields...))).Error(msg)
}

// Close flushes and closes the log file.
func (fl *FileLogger) Close() error {
	if err := fl.underlying.Close(); err != nil {
		return wrapLoggerErr("close file logger", ErrLogClose, err, fl.path)
	}
	return nil
}
