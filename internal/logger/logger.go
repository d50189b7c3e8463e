package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wfunc/harvest-slot/internal/config"
)

var (
	logger *zap.Logger
	sugar  *zap.SugaredLogger
	level  = zap.NewAtomicLevel()
	once   sync.Once
	mu     sync.RWMutex

	// 模块日志器
	moduleLoggers map[string]*zap.Logger
)

// Init 初始化全局日志系统
func Init(cfg *config.LogConfig) error {
	var err error
	once.Do(func() {
		var l *zap.Logger
		var modules map[string]*zap.Logger
		l, modules, err = build(cfg, level)
		if err != nil {
			return
		}

		mu.Lock()
		logger = l
		sugar = l.Sugar()
		moduleLoggers = modules
		mu.Unlock()
	})
	return err
}

// New 按配置创建独立的日志器，不影响全局实例
func New(cfg *config.LogConfig) (*zap.Logger, error) {
	l, _, err := build(cfg, zap.NewAtomicLevelAt(parseLevel(cfg.Level)))
	return l, err
}

func build(cfg *config.LogConfig, atom zap.AtomicLevel) (*zap.Logger, map[string]*zap.Logger, error) {
	atom.SetLevel(parseLevel(cfg.Level))

	// 创建编码器配置
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	// 根据格式选择编码器
	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var cores []zapcore.Core
	console := consoleSink(cfg.Output)

	// 控制台输出
	if console != nil {
		cores = append(cores, zapcore.NewCore(encoder, console, atom))
	}

	// 文件输出
	if cfg.Output == "file" || cfg.Output == "both" {
		logDir := cfg.File.Path
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create log dir %s: %w", logDir, err)
		}

		// 文件写入器（支持日志轮转）
		fileWriter := &lumberjack.Logger{
			Filename:   filepath.Join(logDir, cfg.File.Filename),
			MaxSize:    cfg.File.MaxSize,    // MB
			MaxAge:     cfg.File.MaxAge,     // days
			MaxBackups: cfg.File.MaxBackups, // 保留文件数
			Compress:   cfg.File.Compress,   // 是否压缩
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(fileWriter), atom))

		// 错误日志单独成文件
		errorWriter := &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "error.log"),
			MaxSize:    cfg.File.MaxSize,
			MaxAge:     cfg.File.MaxAge,
			MaxBackups: cfg.File.MaxBackups,
			Compress:   cfg.File.Compress,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(errorWriter), zapcore.ErrorLevel))
	}

	l := zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	// 模块日志器，单独设置级别
	modules := make(map[string]*zap.Logger, len(cfg.Modules))
	if console != nil {
		for module, levelStr := range cfg.Modules {
			moduleCore := zapcore.NewCore(encoder, console, parseLevel(levelStr))
			modules[module] = zap.New(moduleCore, zap.AddCaller()).Named(module)
		}
	}

	return l, modules, nil
}

// consoleSink 控制台输出目标
func consoleSink(output string) zapcore.WriteSyncer {
	switch output {
	case "stdout", "both":
		return zapcore.Lock(os.Stdout)
	case "stderr", "":
		return zapcore.Lock(os.Stderr)
	default:
		return nil
	}
}

// parseLevel 解析日志级别
func parseLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// GetLogger 获取日志器
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		// 未初始化时使用默认配置
		defaultLogger, _ := zap.NewProduction()
		return defaultLogger
	}
	return logger
}

// GetSugar 获取Sugar日志器
func GetSugar() *zap.SugaredLogger {
	mu.RLock()
	s := sugar
	mu.RUnlock()
	if s == nil {
		return GetLogger().Sugar()
	}
	return s
}

// GetModuleLogger 获取模块日志器，未单独配置的模块返回带名称的全局日志器
func GetModuleLogger(module string) *zap.Logger {
	mu.RLock()
	moduleLogger, ok := moduleLoggers[module]
	mu.RUnlock()
	if ok {
		return moduleLogger
	}
	return GetLogger().Named(module)
}

// SetLevel 动态调整全局日志级别
func SetLevel(levelStr string) {
	level.SetLevel(parseLevel(levelStr))
}

// Sync 同步日志缓冲区
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()

	if logger != nil {
		return logger.Sync()
	}
	return nil
}

// Debug 输出调试日志
func Debug(msg string, fields ...zap.Field) {
	GetLogger().WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

// Info 输出信息日志
func Info(msg string, fields ...zap.Field) {
	GetLogger().WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

// Warn 输出警告日志
func Warn(msg string, fields ...zap.Field) {
	GetLogger().WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

// Error 输出错误日志
func Error(msg string, fields ...zap.Field) {
	GetLogger().WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

// Infof 格式化输出信息日志
func Infof(template string, args ...interface{}) {
	GetSugar().Infof(template, args...)
}

// LogError 记录错误日志
func LogError(err error, msg string, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	GetLogger().WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

// LogGameEvent 记录游戏事件
func LogGameEvent(event string, sessionID string, data map[string]interface{}) {
	GetModuleLogger("game").Info("game_event",
		zap.String("event", event),
		zap.String("session_id", sessionID),
		zap.Any("data", data),
	)
}

// LogDatabaseOperation 记录一条SQL，log 为空时使用 database 模块日志器
func LogDatabaseOperation(log *zap.Logger, sql string, rows int64, duration time.Duration, err error) {
	if log == nil {
		log = GetModuleLogger("database")
	}
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", duration),
	}

	if err != nil {
		fields = append(fields, zap.Error(err))
		log.Error("SQL执行错误", fields...)
	} else {
		log.Debug("SQL执行", fields...)
	}
}

// Cleanup 清理日志资源
func Cleanup() {
	if err := Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sync logger: %v\n", err)
	}
}
