package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/harvest-slot/internal/config"
	"github.com/wfunc/harvest-slot/internal/database"
	"github.com/wfunc/harvest-slot/internal/models"
)

// TestDB 为每个测试创建独立的内存数据库
func TestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(&config.DatabaseConfig{DSN: dsn, LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB(db) })
	return db
}

// CreateTestRound 创建测试对局
func CreateTestRound(sessionID string, stake, payout string, multiplier int) *models.RoundRecord {
	p := decimal.RequireFromString(payout)
	return &models.RoundRecord{
		SessionID:         sessionID,
		RoundID:           uuid.NewString(),
		VerificationID:    uuid.NewString(),
		BaseBet:           decimal.RequireFromString(stake),
		BetMultiplier:     1,
		Stake:             decimal.RequireFromString(stake),
		TotalPayout:       p,
		HighestMultiplier: multiplier,
		HasAnyWin:         p.IsPositive(),
		IsBigWin:          multiplier >= 50,
		Outcome:           "no_win",
		CascadeSteps:      1,
		PlayedAt:          time.Now(),
	}
}

// AssertRound 验证对局记录
func AssertRound(t *testing.T, expected, actual *models.RoundRecord) {
	t.Helper()
	assert.Equal(t, expected.RoundID, actual.RoundID)
	assert.Equal(t, expected.SessionID, actual.SessionID)
	assert.True(t, expected.Stake.Equal(actual.Stake), "stake %s != %s", expected.Stake, actual.Stake)
	assert.True(t, expected.TotalPayout.Equal(actual.TotalPayout), "payout %s != %s", expected.TotalPayout, actual.TotalPayout)
	assert.Equal(t, expected.HighestMultiplier, actual.HighestMultiplier)
}
