package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/harvest-slot/internal/config"
	apperrors "github.com/wfunc/harvest-slot/internal/errors"
	"github.com/wfunc/harvest-slot/internal/models"
)

func TestIsMemoryDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want bool
	}{
		{":memory:", true},
		{"file::memory:?cache=shared", true},
		{"file:harvest?mode=memory&cache=shared", true},
		{"./data/harvest.db", false},
		{"file:harvest.db", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsMemoryDSN(tt.dsn), tt.dsn)
	}
}

func TestOpen_MigratesTables(t *testing.T) {
	db, err := Open(&config.DatabaseConfig{DSN: "file:open_test?mode=memory&cache=shared"}, zap.NewNop())
	require.NoError(t, err)
	defer CloseDB(db)

	m := db.Migrator()
	assert.True(t, m.HasTable(&models.RoundRecord{}))
	assert.True(t, m.HasTable(&models.LedgerEntry{}))
	assert.True(t, m.HasTable(&models.GameState{}))
}

func TestOpen_RejectsFileDSN(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{DSN: "./harvest.db"}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrDatabaseConnect))
}

func TestInitAndClose(t *testing.T) {
	require.NoError(t, Init(&config.DatabaseConfig{DSN: "file:init_test?mode=memory&cache=shared"}, nil))
	assert.True(t, IsConnected())
	assert.NotNil(t, GetDB())

	require.NoError(t, Close())
	assert.False(t, IsConnected())
	assert.NoError(t, Close())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, parseLogLevel("silent"))
	assert.Equal(t, gormlogger.Silent, parseLogLevel(""))
	assert.Equal(t, gormlogger.Error, parseLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, parseLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, parseLogLevel("info"))
}

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), gormlogger.Info)
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), sql, nil)
	l.Trace(context.Background(), time.Now(), sql, errors.New("disk I/O error"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "SELECT 1", entries[0].ContextMap()["sql"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "SQL执行错误", entries[1].Message)
}

func TestGormLogger_TraceSilent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), gormlogger.Silent)
	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, errors.New("boom"))
	assert.Zero(t, logs.Len())
}
