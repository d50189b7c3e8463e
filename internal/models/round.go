package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundRecord 单局记录，仅保存在会话内存库中
type RoundRecord struct {
	BaseModel
	SessionID         string          `gorm:"size:64;index;not null" json:"session_id"`
	RoundID           string          `gorm:"uniqueIndex;size:64;not null" json:"round_id"`
	VerificationID    string          `gorm:"size:64;index" json:"verification_id"`
	BaseBet           decimal.Decimal `gorm:"type:text;not null" json:"base_bet"`
	BetMultiplier     int             `gorm:"not null" json:"bet_multiplier"`
	Stake             decimal.Decimal `gorm:"type:text;not null" json:"stake"`
	TotalPayout       decimal.Decimal `gorm:"type:text;not null" json:"total_payout"`
	HighestMultiplier int             `gorm:"default:0" json:"highest_multiplier"`
	HasAnyWin         bool            `gorm:"default:false;index" json:"has_any_win"`
	IsBigWin          bool            `gorm:"default:false" json:"is_big_win"`
	HasWildBonus      bool            `gorm:"default:false" json:"has_wild_bonus"`
	Outcome           string          `gorm:"size:20" json:"outcome"`
	MatchedCells      int             `gorm:"default:0" json:"matched_cells"`
	CascadeSteps      int             `gorm:"default:1" json:"cascade_steps"`
	GridSnapshot      string          `gorm:"type:text" json:"grid_snapshot"`   // 最终网格（JSON）
	PaylineResults    string          `gorm:"type:text" json:"payline_results"` // 各步支付线结果（JSON）
	PlayedAt          time.Time       `gorm:"index" json:"played_at"`
}

// TableName 表名
func (RoundRecord) TableName() string {
	return "round_records"
}
