package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type _Logger struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

var l *_Logger

// Debugf logger
func Debugf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Infof logger
func Infof(format string, args ...interface{}) {
	if l == nil {
		fmt.Printf(format+"\n", args...)
		return
	}
	l.sugar.Infof(format, args...)
}

// Warnf logger
func Warnf(format string, args ...interface{}) {
	if l == nil {
		fmt.Printf(format+"\n", args...)
		return
	}
	l.sugar.Warnf(format, args...)
}

// Errorf logger
func Errorf(format string, args ...interface{}) {
	if l == nil {
		debug.PrintStack()
		fmt.Printf(format+"\n", args...)
		return
	}
	l.sugar.Errorf(format, args...)
}

// Debug logger
func Debug(msg string, fields ...zapcore.Field) {
	if l == nil {
		return
	}
	l.logger.Debug(msg, fields...)
}

// Info logger
func Info(msg string, fields ...zapcore.Field) {
	if l == nil {
		fmt.Println(msg, fields)
		return
	}
	l.logger.Info(msg, fields...)
}

// Warn logger
func Warn(msg string, fields ...zapcore.Field) {
	if l == nil {
		fmt.Println(msg, fields)
		return
	}
	l.logger.Warn(msg, fields...)
}

// Error logger
func Error(msg string, fields ...zapcore.Field) {
	if l == nil {
		fmt.Println(msg, fields)
		return
	}
	l.logger.Error(msg, fields...)
}

// Fatal logger, log message then call os.Exit(1).
func Fatal(msg string, fields ...zapcore.Field) {
	if l == nil {
		fmt.Println(msg, fields)
		os.Exit(1)
	}
	l.logger.Fatal(msg, fields...)
}

// Zap returns the underlying logger, or a no-op logger before Init.
func Zap() *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.logger
}

// Sync flushes buffered entries.
func Sync() {
	if l != nil {
		_ = l.logger.Sync()
	}
}

// Init logger initialize
func Init(name string, config *viper.Viper) {
	zl := newLogger(name, config)
	l = &_Logger{
		logger: zl,
		sugar:  zl.Sugar(),
	}
	l.logger.Info("initialize logger", zap.String("name", name))
}

// SetLogger replaces the package logger, tests use it with zaptest/observer cores.
func SetLogger(zl *zap.Logger) {
	if zl == nil {
		l = nil
		return
	}
	l = &_Logger{logger: zl, sugar: zl.Sugar()}
}

func newLogger(name string, config *viper.Viper) *zap.Logger {
	level := config.GetString("logger.level")
	fileDir := config.GetString("logger.dir")
	rotation := config.GetBool("logger.rotation")
	stdout := config.GetBool("logger.stdout")

	zapLevel := zapcore.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "", "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		fmt.Println("Logger level invalid, must be one of: DEBUG, INFO, WARN, or ERROR")
	}

	consoleLogger := newJSONLogger(zapcore.Lock(os.Stdout), zapLevel)
	if len(fileDir) == 0 {
		return consoleLogger
	}

	file := filepath.Join(fileDir, name+".log")
	var fileLogger *zap.Logger
	if rotation {
		fileLogger = newRotatingFileLogger(config, consoleLogger, file, zapLevel)
	} else {
		fileLogger = newFileLogger(consoleLogger, file, zapLevel)
	}
	if fileLogger == nil {
		return consoleLogger
	}
	if stdout {
		return newMultiLogger(consoleLogger, fileLogger)
	}
	return fileLogger
}

func newFileLogger(consoleLogger *zap.Logger, fileName string, level zapcore.Level) *zap.Logger {
	if err := os.MkdirAll(filepath.Dir(fileName), 0755); err != nil {
		consoleLogger.Error("Could not create log directory", zap.Error(err))
		return nil
	}
	output, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		consoleLogger.Error("Could not create log file", zap.Error(err))
		return nil
	}
	return newJSONLogger(zapcore.Lock(output), level)
}

func newRotatingFileLogger(config *viper.Viper, consoleLogger *zap.Logger, fileName string, level zapcore.Level) *zap.Logger {
	if err := os.MkdirAll(filepath.Dir(fileName), 0755); err != nil {
		consoleLogger.Error("Could not create log directory", zap.Error(err))
		return nil
	}

	writeSyncer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    config.GetInt("logger.maxsize"),
		MaxAge:     config.GetInt("logger.maxage"),
		MaxBackups: config.GetInt("logger.maxbackups"),
		LocalTime:  config.GetBool("logger.localtime"),
		Compress:   config.GetBool("logger.compress"),
	})
	return newJSONLogger(writeSyncer, level)
}

func newMultiLogger(loggers ...*zap.Logger) *zap.Logger {
	cores := make([]zapcore.Core, 0, len(loggers))
	for _, logger := range loggers {
		cores = append(cores, logger.Core())
	}
	options := []zap.Option{zap.AddStacktrace(zap.ErrorLevel), zap.AddCaller(), zap.AddCallerSkip(1)}
	return zap.New(zapcore.NewTee(cores...), options...)
}

func newJSONLogger(output zapcore.WriteSyncer, level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(newJSONEncoder(), output, level)
	options := []zap.Option{zap.AddStacktrace(zap.ErrorLevel), zap.AddCaller(), zap.AddCallerSkip(1)}
	return zap.New(core, options...)
}

func newJSONEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	})
}
