package slot

import (
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 错误定义
var (
	ErrInvalidBet        = errors.New("无效的下注金额")
	ErrInvalidMultiplier = errors.New("无效的下注倍数")
	ErrInvalidPayline    = errors.New("无效的支付线")
	ErrInvalidGrid       = errors.New("无效的网格")
)

// Engine 判奖引擎，构造后无可变状态，可并发调用
type Engine struct {
	paylines  *PaylineTable
	generator *GridGenerator
	cascade   CascadeConfig
	logger    *zap.Logger
}

// EngineOption 引擎选项
type EngineOption func(*Engine)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPaylineTable 使用自定义支付线表
func WithPaylineTable(table *PaylineTable) EngineOption {
	return func(e *Engine) {
		if table != nil {
			e.paylines = table
		}
	}
}

// WithGenerator 使用自定义网格生成器
func WithGenerator(g *GridGenerator) EngineOption {
	return func(e *Engine) {
		if g != nil {
			e.generator = g
		}
	}
}

// WithCascade 设置连消配置
func WithCascade(cfg CascadeConfig) EngineOption {
	return func(e *Engine) {
		e.cascade = cfg
	}
}

// NewEngine 创建引擎
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		paylines: DefaultPaylineTable(),
		cascade:  DefaultCascadeConfig(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.generator == nil {
		e.generator = NewGridGenerator(e.paylines.Size(), NewRandomGenerator(0))
	}
	return e
}

var defaultEngine = NewEngine()

// EvaluateGameState 使用默认支付线表判奖
func EvaluateGameState(grid Grid, baseBet decimal.Decimal, betMultiplier int) *GameResult {
	return defaultEngine.EvaluateGameState(grid, baseBet, betMultiplier)
}

// Paylines 支付线表
func (e *Engine) Paylines() *PaylineTable {
	return e.paylines
}

// CascadeConfig 连消配置
func (e *Engine) CascadeConfig() CascadeConfig {
	return e.cascade
}

// GenerateGrid 生成一盘新网格
func (e *Engine) GenerateGrid() Grid {
	return e.generator.Generate()
}

// ValidateBet 校验下注参数，调用判奖之前由调用方执行
func ValidateBet(baseBet decimal.Decimal, betMultiplier, minMultiplier, maxMultiplier int) error {
	if !baseBet.IsPositive() {
		return ErrInvalidBet
	}
	if betMultiplier <= 0 {
		return ErrInvalidMultiplier
	}
	if minMultiplier > 0 && betMultiplier < minMultiplier {
		return ErrInvalidMultiplier
	}
	if maxMultiplier > 0 && betMultiplier > maxMultiplier {
		return ErrInvalidMultiplier
	}
	return nil
}

// neutralResult 无法判奖时返回的空结果
func neutralResult(grid Grid) *GameResult {
	return &GameResult{
		TotalPayout:      decimal.Zero,
		Outcome:          OutcomeNoWin,
		MatchedPositions: []Position{},
		PaylineResults:   []PaylineResult{},
		Grid:             grid.Clone(),
	}
}

// EvaluateGameState 对整盘网格逐线判奖并汇总
//
// 不修改传入的网格；返回结果中的 Grid 是带中奖标记的新副本。
// 网格为空或尺寸与支付线表不符时返回空结果而不是错误。
func (e *Engine) EvaluateGameState(grid Grid, baseBet decimal.Decimal, betMultiplier int) *GameResult {
	if !grid.IsValid(e.paylines.Size()) {
		e.logger.Warn("网格尺寸无效，跳过判奖",
			zap.Int("rows", len(grid)),
			zap.Int("expected", e.paylines.Size()),
		)
		return neutralResult(grid)
	}

	working := grid.Clone()
	working.ClearMatched()

	result := &GameResult{
		TotalPayout:      decimal.Zero,
		MatchedPositions: []Position{},
		PaylineResults:   make([]PaylineResult, 0, e.paylines.Len()),
	}

	stake := baseBet.Mul(decimal.NewFromInt(int64(betMultiplier)))
	seen := make(map[Position]struct{})

	for i, line := range e.paylines.lines {
		pr := EvaluatePayline(i, line.Positions, working)
		result.PaylineResults = append(result.PaylineResults, pr)
		if !pr.HasWin {
			continue
		}

		amount := stake.Mul(decimal.NewFromInt(int64(pr.Payout)))
		result.TotalPayout = result.TotalPayout.Add(amount)

		for _, p := range pr.MatchedPositions {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			working[p.Row][p.Col].Matched = true
			result.MatchedPositions = append(result.MatchedPositions, p)
		}

		if pr.Payout > result.HighestMultiplier {
			result.HighestMultiplier = pr.Payout
		}
		if pr.UsedWild {
			result.HasWildBonus = true
		}

		e.logger.Debug("支付线中奖",
			zap.Int("payline", i),
			zap.String("name", line.Name),
			zap.String("combination", pr.Combination()),
			zap.Int("run_length", pr.RunLength),
			zap.Bool("used_wild", pr.UsedWild),
			zap.Int("payout", pr.Payout),
			zap.String("amount", amount.String()),
		)
	}

	result.HasAnyWin = len(result.MatchedPositions) > 0
	result.IsBigWin = result.HighestMultiplier >= BigWinThreshold
	switch {
	case result.IsBigWin:
		result.Outcome = OutcomeBigWin
	case result.HasAnyWin:
		result.Outcome = OutcomeWin
	default:
		result.Outcome = OutcomeNoWin
	}
	result.Grid = working

	e.logger.Debug("判奖完成",
		zap.Bool("has_any_win", result.HasAnyWin),
		zap.String("total_payout", result.TotalPayout.String()),
		zap.Int("highest_multiplier", result.HighestMultiplier),
		zap.Bool("big_win", result.IsBigWin),
		zap.Int("matched_cells", len(result.MatchedPositions)),
	)
	return result
}
