package slot

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CascadeConfig 连消配置
type CascadeConfig struct {
	Enabled  bool `json:"enabled" mapstructure:"enabled"`     // 是否开启连消
	MaxSteps int  `json:"max_steps" mapstructure:"max_steps"` // 最大连消次数（含首次判奖）
}

// DefaultCascadeConfig 默认连消配置（关闭）
func DefaultCascadeConfig() CascadeConfig {
	return CascadeConfig{
		Enabled:  false,
		MaxSteps: 10,
	}
}

// CascadeStep 单次判奖步骤
type CascadeStep struct {
	StepNumber int         `json:"step_number"`
	Result     *GameResult `json:"result"`
}

// CascadeResult 连消汇总结果
type CascadeResult struct {
	Steps             []CascadeStep   `json:"steps"`
	TotalPayout       decimal.Decimal `json:"total_payout"`
	HighestMultiplier int             `json:"highest_multiplier"`
	IsBigWin          bool            `json:"is_big_win"`
	HasWildBonus      bool            `json:"has_wild_bonus"`
	FinalGrid         Grid            `json:"final_grid"`
}

// HasAnyWin 是否有任一步中奖
func (r *CascadeResult) HasAnyWin() bool {
	return r.TotalPayout.IsPositive()
}

// Refill 移除中奖单元，上方单元下落，顶部补入新符号
//
// 返回新网格，新补入的单元标记为 Entering；原网格不变。
func (e *Engine) Refill(grid Grid) Grid {
	size := len(grid)
	out := make(Grid, size)
	for r := range out {
		out[r] = make([]Cell, size)
	}

	for col := 0; col < size; col++ {
		// 自底向上收集未中奖单元
		kept := make([]Cell, 0, size)
		for row := size - 1; row >= 0; row-- {
			cell := grid[row][col]
			if !cell.Matched {
				cell.Entering = false
				cell.EntryDelay = 0
				kept = append(kept, cell)
			}
		}

		row := size - 1
		for _, cell := range kept {
			out[row][col] = cell
			row--
		}
		for ; row >= 0; row-- {
			out[row][col] = e.generator.NewCell(row, col)
		}
	}
	return out
}

// EvaluateCascade 判奖，开启连消时反复补位再判奖直到不再中奖或达到上限
//
// 每一步的结果单独保留，调用方按步入账。
func (e *Engine) EvaluateCascade(grid Grid, baseBet decimal.Decimal, betMultiplier int) *CascadeResult {
	maxSteps := 1
	if e.cascade.Enabled && e.cascade.MaxSteps > 1 {
		maxSteps = e.cascade.MaxSteps
	}

	result := &CascadeResult{
		Steps:       make([]CascadeStep, 0, 1),
		TotalPayout: decimal.Zero,
	}

	current := grid
	for step := 0; step < maxSteps; step++ {
		gr := e.EvaluateGameState(current, baseBet, betMultiplier)
		result.Steps = append(result.Steps, CascadeStep{StepNumber: step, Result: gr})
		result.TotalPayout = result.TotalPayout.Add(gr.TotalPayout)
		if gr.HighestMultiplier > result.HighestMultiplier {
			result.HighestMultiplier = gr.HighestMultiplier
		}
		result.IsBigWin = result.IsBigWin || gr.IsBigWin
		result.HasWildBonus = result.HasWildBonus || gr.HasWildBonus
		result.FinalGrid = gr.Grid

		if !gr.HasAnyWin || step == maxSteps-1 {
			break
		}
		current = e.Refill(gr.Grid)
	}

	if len(result.Steps) > 1 {
		e.logger.Debug("连消结束",
			zap.Int("steps", len(result.Steps)),
			zap.String("total_payout", result.TotalPayout.String()),
		)
	}
	return result
}
