package slot

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// 游戏常量
const (
	GridSize        = 6  // 默认网格边长
	MinRunLength    = 3  // 最短中奖连线长度
	WildMultiplier  = 2  // 百搭参与时的赔付倍数
	BigWinThreshold = 50 // 大奖阈值（单线倍数）
)

// Position 网格坐标
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// String 格式化坐标
func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Cell 网格单元
type Cell struct {
	Symbol     Symbol        `json:"symbol"`
	Matched    bool          `json:"matched"`
	ID         string        `json:"id,omitempty"`          // 渲染用标识，不参与判奖
	Entering   bool          `json:"entering,omitempty"`    // 是否为新落下的单元
	EntryDelay time.Duration `json:"entry_delay,omitempty"` // 落下动画延迟
}

// Outcome 单局结果类型
type Outcome int

const (
	OutcomeNoWin Outcome = iota
	OutcomeWin
	OutcomeBigWin
)

// String 结果名称
func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeBigWin:
		return "big_win"
	default:
		return "no_win"
	}
}

// PaylineResult 单条支付线的判定结果
type PaylineResult struct {
	PaylineIndex     int        `json:"payline_index"`
	HasWin           bool       `json:"has_win"`
	RunLength        int        `json:"run_length"`
	UsedWild         bool       `json:"used_wild"`
	WildCount        int        `json:"wild_count"`
	BaseSymbol       Symbol     `json:"base_symbol"`
	Payout           int        `json:"payout"` // 单位赔付倍数
	MatchedPositions []Position `json:"matched_positions"`
	MatchedSymbols   []Symbol   `json:"matched_symbols"`
}

// Combination 中奖组合的可读描述，例如 "🎃 → 🎃 → 🌟"
func (r PaylineResult) Combination() string {
	if !r.HasWin {
		return ""
	}
	parts := make([]string, len(r.MatchedSymbols))
	for i, s := range r.MatchedSymbols {
		parts[i] = s.Display()
	}
	return strings.Join(parts, " → ")
}

// GameResult 整盘判定结果
type GameResult struct {
	HasAnyWin         bool            `json:"has_any_win"`
	TotalPayout       decimal.Decimal `json:"total_payout"`
	HighestMultiplier int             `json:"highest_multiplier"`
	IsBigWin          bool            `json:"is_big_win"`
	HasWildBonus      bool            `json:"has_wild_bonus"`
	Outcome           Outcome         `json:"outcome"`
	MatchedPositions  []Position      `json:"matched_positions"`
	PaylineResults    []PaylineResult `json:"payline_results"`
	Grid              Grid            `json:"grid"`
}

// WinningLines 返回中奖的支付线结果
func (r *GameResult) WinningLines() []PaylineResult {
	lines := make([]PaylineResult, 0)
	for _, pr := range r.PaylineResults {
		if pr.HasWin {
			lines = append(lines, pr)
		}
	}
	return lines
}

// RandomGenerator 随机数生成器接口
type RandomGenerator interface {
	// IntN 返回 [0, n) 区间内的随机整数
	IntN(n int) int
}
