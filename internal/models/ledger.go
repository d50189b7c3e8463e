package models

import (
	"github.com/shopspring/decimal"
)

// 账目类型
const (
	LedgerTypeDeposit = "deposit" // 初始入账
	LedgerTypeStake   = "stake"   // 下注扣款
	LedgerTypePayout  = "payout"  // 派彩
	LedgerTypeRefund  = "refund"  // 中断退注
)

// LedgerEntry 钱包流水
type LedgerEntry struct {
	BaseModel
	EntryID       string          `gorm:"uniqueIndex;size:64;not null" json:"entry_id"`
	SessionID     string          `gorm:"size:64;index;not null" json:"session_id"`
	RoundID       string          `gorm:"size:64;index" json:"round_id"`
	Type          string          `gorm:"size:20;not null" json:"type"`
	Amount        decimal.Decimal `gorm:"type:text;not null" json:"amount"` // 带符号金额
	BalanceBefore decimal.Decimal `gorm:"type:text;not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:text;not null" json:"balance_after"`
	Remark        string          `gorm:"size:255" json:"remark"`
}

// TableName 表名
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
