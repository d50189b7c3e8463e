package database

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/harvest-slot/internal/config"
	apperrors "github.com/wfunc/harvest-slot/internal/errors"
	"github.com/wfunc/harvest-slot/internal/logger"
)

var (
	// DB 全局数据库实例
	DB *gorm.DB
	mu sync.Mutex
)

// IsMemoryDSN 是否为内存库DSN，对局记录只允许存在于会话内存中
func IsMemoryDSN(dsn string) bool {
	return dsn == ":memory:" ||
		strings.Contains(dsn, "mode=memory") ||
		strings.HasPrefix(dsn, "file::memory:")
}

// parseLogLevel 解析GORM日志级别
func parseLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent", "":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	default:
		return gormlogger.Info
	}
}

// Open 打开会话内存库并完成迁移
func Open(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !IsMemoryDSN(cfg.DSN) {
		return nil, apperrors.Newf(apperrors.ErrDatabaseConnect, "仅支持内存数据库: %s", cfg.DSN)
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
		Logger:                 NewGormLogger(log, parseLogLevel(cfg.LogLevel)),
		SkipDefaultTransaction: true, // 跳过默认事务
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "连接数据库失败")
	}

	// 获取底层SQL数据库实例
	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "获取数据库实例失败")
	}

	// 内存库在最后一个连接关闭时消失，固定单连接并且不过期
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.Ping(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "数据库连接测试失败")
	}

	if err := AutoMigrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	log.Debug("数据库连接成功", zap.String("dsn", cfg.DSN))
	return db, nil
}

// Init 初始化全局数据库连接
func Init(cfg *config.DatabaseConfig, log *zap.Logger) error {
	mu.Lock()
	defer mu.Unlock()

	db, err := Open(cfg, log)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Close 关闭全局数据库连接，内存中的对局记录随之清除
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if DB == nil {
		return nil
	}
	err := CloseDB(DB)
	DB = nil
	return err
}

// CloseDB 关闭指定连接
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB 获取数据库实例
func GetDB() *gorm.DB {
	mu.Lock()
	defer mu.Unlock()
	return DB
}

// IsConnected 检查数据库是否连接
func IsConnected() bool {
	db := GetDB()
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	return sqlDB.Ping() == nil
}

// GormLogger GORM日志适配器
type GormLogger struct {
	logger   *zap.Logger
	logLevel gormlogger.LogLevel
}

// NewGormLogger 创建GORM日志适配器
func NewGormLogger(logger *zap.Logger, level gormlogger.LogLevel) *GormLogger {
	return &GormLogger{
		logger:   logger,
		logLevel: level,
	}
}

// LogMode 设置日志级别
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &GormLogger{logger: l.logger, logLevel: level}
}

// Info 输出信息日志
func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Info {
		l.logger.Sugar().Infof(msg, data...)
	}
}

// Warn 输出警告日志
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Warn {
		l.logger.Sugar().Warnf(msg, data...)
	}
}

// Error 输出错误日志
func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Error {
		l.logger.Sugar().Errorf(msg, data...)
	}
}

// Trace 输出SQL追踪日志
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.logLevel >= gormlogger.Error:
		logger.LogDatabaseOperation(l.logger, sql, rows, elapsed, err)
	case elapsed > 200*time.Millisecond && l.logLevel >= gormlogger.Warn:
		l.logger.Warn("SQL执行缓慢",
			zap.String("sql", sql),
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", rows),
		)
	case l.logLevel >= gormlogger.Info:
		logger.LogDatabaseOperation(l.logger, sql, rows, elapsed, nil)
	}
}
