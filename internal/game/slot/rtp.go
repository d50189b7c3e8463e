package slot

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Statistics 累计统计（只记录，不影响出奖）
type Statistics struct {
	TotalSpins    int64           `json:"total_spins"`
	TotalBet      decimal.Decimal `json:"total_bet"`
	TotalWin      decimal.Decimal `json:"total_win"`
	WinSpins      int64           `json:"win_spins"`
	BigWins       int64           `json:"big_wins"`
	WildBonuses   int64           `json:"wild_bonuses"`
	CascadeSteps  int64           `json:"cascade_steps"`
	MaxMultiplier int             `json:"max_multiplier"`
	StartedAt     time.Time       `json:"started_at"`
	LastSpinAt    time.Time       `json:"last_spin_at"`
}

// RTP 返还率
func (s Statistics) RTP() float64 {
	if !s.TotalBet.IsPositive() {
		return 0
	}
	rtp, _ := s.TotalWin.Div(s.TotalBet).Float64()
	return rtp
}

// HitRate 中奖率
func (s Statistics) HitRate() float64 {
	if s.TotalSpins == 0 {
		return 0
	}
	return float64(s.WinSpins) / float64(s.TotalSpins)
}

// StatisticsTracker 线程安全的统计累加器
type StatisticsTracker struct {
	mu    sync.RWMutex
	stats Statistics
}

// NewStatisticsTracker 创建统计累加器
func NewStatisticsTracker() *StatisticsTracker {
	t := &StatisticsTracker{}
	t.Reset()
	return t
}

// Record 记录一局
func (t *StatisticsTracker) Record(stake decimal.Decimal, result *CascadeResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.TotalSpins++
	t.stats.TotalBet = t.stats.TotalBet.Add(stake)
	t.stats.LastSpinAt = time.Now()
	if result == nil {
		return
	}

	t.stats.TotalWin = t.stats.TotalWin.Add(result.TotalPayout)
	if result.HasAnyWin() {
		t.stats.WinSpins++
	}
	if result.IsBigWin {
		t.stats.BigWins++
	}
	if result.HasWildBonus {
		t.stats.WildBonuses++
	}
	if n := len(result.Steps); n > 1 {
		t.stats.CascadeSteps += int64(n - 1)
	}
	if result.HighestMultiplier > t.stats.MaxMultiplier {
		t.stats.MaxMultiplier = result.HighestMultiplier
	}
}

// Snapshot 获取统计快照
func (t *StatisticsTracker) Snapshot() Statistics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

// Reset 重置统计
func (t *StatisticsTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = Statistics{
		TotalBet:  decimal.Zero,
		TotalWin:  decimal.Zero,
		StartedAt: time.Now(),
	}
}
