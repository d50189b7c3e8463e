package game

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/wfunc/harvest-slot/internal/errors"
	"github.com/wfunc/harvest-slot/internal/game/slot"
	"github.com/wfunc/harvest-slot/internal/models"
	"github.com/wfunc/harvest-slot/internal/repository"
)

// WinningsSink 接收带符号的金额变动：扣注为负，派彩为正
type WinningsSink interface {
	ApplyWinnings(ctx context.Context, roundID string, delta decimal.Decimal) error
}

// WinningsSinkFunc 函数适配器
type WinningsSinkFunc func(ctx context.Context, roundID string, delta decimal.Decimal) error

// ApplyWinnings 实现 WinningsSink
func (f WinningsSinkFunc) ApplyWinnings(ctx context.Context, roundID string, delta decimal.Decimal) error {
	return f(ctx, roundID, delta)
}

// BalanceReader 余额查询
type BalanceReader interface {
	Balance() decimal.Decimal
}

// Refunder 中断局退注，未实现时退注走 WinningsSink
type Refunder interface {
	Refund(ctx context.Context, roundID string, amount decimal.Decimal) error
}

// Presenter 表现层钩子（动画、音效等），在会话协程内同步调用
type Presenter interface {
	OnDraw(grid slot.Grid)
	OnResolved(round *Round)
}

// NopPresenter 空实现
type NopPresenter struct{}

// OnDraw 实现 Presenter
func (NopPresenter) OnDraw(slot.Grid) {}

// OnResolved 实现 Presenter
func (NopPresenter) OnResolved(*Round) {}

// SessionConfig 会话配置
type SessionConfig struct {
	SessionID     string
	MinMultiplier int
	MaxMultiplier int
	AutoFinish    bool // 出结果后直接回到待机
	RecordHistory bool
}

// Round 一局的完整结果
type Round struct {
	RoundID        string              `json:"round_id"`
	VerificationID string              `json:"verification_id"`
	SessionID      string              `json:"session_id"`
	BaseBet        decimal.Decimal     `json:"base_bet"`
	BetMultiplier  int                 `json:"bet_multiplier"`
	Stake          decimal.Decimal     `json:"stake"`
	TotalPayout    decimal.Decimal     `json:"total_payout"`
	Balance        decimal.Decimal     `json:"balance"`
	Cascade        *slot.CascadeResult `json:"cascade"`
	PlayedAt       time.Time           `json:"played_at"`
	Duration       time.Duration       `json:"duration"`
}

// Result 首次判奖结果
func (r *Round) Result() *slot.GameResult {
	if r.Cascade == nil || len(r.Cascade.Steps) == 0 {
		return nil
	}
	return r.Cascade.Steps[0].Result
}

// HasAnyWin 本局是否中奖
func (r *Round) HasAnyWin() bool {
	return r.Cascade != nil && r.Cascade.HasAnyWin()
}

// Outcome 本局结果分类
func (r *Round) Outcome() slot.Outcome {
	switch {
	case r.Cascade == nil || !r.Cascade.HasAnyWin():
		return slot.OutcomeNoWin
	case r.Cascade.IsBigWin:
		return slot.OutcomeBigWin
	default:
		return slot.OutcomeWin
	}
}

// Net 玩家本局净输赢
func (r *Round) Net() decimal.Decimal {
	return r.TotalPayout.Sub(r.Stake)
}

// Record 转为历史记录
func (r *Round) Record() (*models.RoundRecord, error) {
	record := &models.RoundRecord{
		SessionID:      r.SessionID,
		RoundID:        r.RoundID,
		VerificationID: r.VerificationID,
		BaseBet:        r.BaseBet,
		BetMultiplier:  r.BetMultiplier,
		Stake:          r.Stake,
		TotalPayout:    r.TotalPayout,
		Outcome:        r.Outcome().String(),
		PlayedAt:       r.PlayedAt,
	}
	if r.Cascade == nil {
		return record, nil
	}

	record.HighestMultiplier = r.Cascade.HighestMultiplier
	record.HasAnyWin = r.Cascade.HasAnyWin()
	record.IsBigWin = r.Cascade.IsBigWin
	record.HasWildBonus = r.Cascade.HasWildBonus
	record.CascadeSteps = len(r.Cascade.Steps)

	lines := make([][]slot.PaylineResult, 0, len(r.Cascade.Steps))
	for _, step := range r.Cascade.Steps {
		record.MatchedCells += len(step.Result.MatchedPositions)
		lines = append(lines, step.Result.WinningLines())
	}

	grid, err := json.Marshal(r.Cascade.FinalGrid.Symbols())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "marshal grid")
	}
	record.GridSnapshot = string(grid)

	results, err := json.Marshal(lines)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "marshal payline results")
	}
	record.PaylineResults = string(results)

	return record, nil
}

// Session 单玩家会话：扣注、出图、判奖、派彩，一次只允许一局在途
type Session struct {
	mu        sync.RWMutex
	id        string
	cfg       SessionConfig
	engine    *slot.Engine
	sm        *StateMachine
	sink      WinningsSink
	balance   BalanceReader
	rounds    repository.RoundRepository
	presenter Presenter
	stats     *slot.StatisticsTracker
	logger    *zap.Logger

	grid      slot.Grid
	lastRound *Round
}

// SessionOption 会话选项
type SessionOption func(*Session)

// WithSessionLogger 设置日志
func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPresenter 设置表现层
func WithPresenter(p Presenter) SessionOption {
	return func(s *Session) {
		if p != nil {
			s.presenter = p
		}
	}
}

// WithBalanceReader 设置余额来源
func WithBalanceReader(b BalanceReader) SessionOption {
	return func(s *Session) {
		s.balance = b
	}
}

// WithRoundRepository 设置对局历史仓储
func WithRoundRepository(repo repository.RoundRepository) SessionOption {
	return func(s *Session) {
		s.rounds = repo
	}
}

// WithStatePersister 设置状态持久化
func WithStatePersister(p StatePersister) SessionOption {
	return func(s *Session) {
		s.sm.persister = p
	}
}

// NewSession 创建会话
func NewSession(engine *slot.Engine, sink WinningsSink, cfg SessionConfig, opts ...SessionOption) *Session {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if engine == nil {
		engine = slot.NewEngine()
	}

	s := &Session{
		id:        cfg.SessionID,
		cfg:       cfg,
		engine:    engine,
		sink:      sink,
		presenter: NopPresenter{},
		stats:     slot.NewStatisticsTracker(),
		logger:    zap.NewNop(),
	}
	if b, ok := sink.(BalanceReader); ok {
		s.balance = b
	}
	s.sm = NewStateMachine(s.id, nil, nil)
	for _, opt := range opts {
		opt(s)
	}
	s.sm.logger = s.logger.Named("state")
	return s
}

// ID 会话ID
func (s *Session) ID() string {
	return s.id
}

// State 当前状态
func (s *Session) State() GameState {
	return s.sm.GetState()
}

// StateMachine 会话状态机
func (s *Session) StateMachine() *StateMachine {
	return s.sm
}

// Grid 当前网格副本
func (s *Session) Grid() slot.Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid.Clone()
}

// LastRound 最近一局
func (s *Session) LastRound() *Round {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRound
}

// Statistics 会话累计统计
func (s *Session) Statistics() slot.Statistics {
	return s.stats.Snapshot()
}

// Spin 进行一局
//
// 下注在出图前扣除；每个中奖判奖步骤派彩一次。非待机状态时返回 ErrSpinInProgress。
func (s *Session) Spin(ctx context.Context, baseBet decimal.Decimal, betMultiplier int) (*Round, error) {
	if err := slot.ValidateBet(baseBet, betMultiplier, s.cfg.MinMultiplier, s.cfg.MaxMultiplier); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrInvalidBet, "bet %s x%d", baseBet, betMultiplier)
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCanceled)
	}

	started := time.Now()
	stake := baseBet.Mul(decimal.NewFromInt(int64(betMultiplier)))
	roundID := uuid.NewString()

	if err := s.sm.Begin(ctx, roundID, stake); err != nil {
		return nil, err
	}

	if s.balance != nil && s.balance.Balance().LessThan(stake) {
		s.cancel(ctx)
		return nil, apperrors.Newf(apperrors.ErrInsufficientBalance, "balance %s, stake %s", s.balance.Balance(), stake)
	}
	if s.sink != nil {
		if err := s.sink.ApplyWinnings(ctx, roundID, stake.Neg()); err != nil {
			s.cancel(ctx)
			if apperrors.Is(err, apperrors.ErrInsufficientBalance) {
				return nil, err
			}
			return nil, apperrors.Wrap(err, apperrors.ErrGameStateError, "扣注失败")
		}
	}

	grid := s.engine.GenerateGrid()
	s.presenter.OnDraw(grid.Clone())
	if err := s.sm.Trigger(ctx, EventEvaluate); err != nil {
		return nil, s.fail(ctx, err)
	}

	cascade := s.engine.EvaluateCascade(grid, baseBet, betMultiplier)

	// 每个中奖步骤派彩一次，不按支付线拆分
	if s.sink != nil {
		for _, step := range cascade.Steps {
			if !step.Result.HasAnyWin {
				continue
			}
			if err := s.sink.ApplyWinnings(ctx, roundID, step.Result.TotalPayout); err != nil {
				return nil, s.fail(ctx, apperrors.Wrap(err, apperrors.ErrGameStateError, "派彩失败"))
			}
		}
	}

	s.sm.SetWinAmount(cascade.TotalPayout)
	if err := s.sm.Trigger(ctx, EventResolve); err != nil {
		return nil, s.fail(ctx, err)
	}

	round := &Round{
		RoundID:        roundID,
		VerificationID: uuid.NewString(),
		SessionID:      s.id,
		BaseBet:        baseBet,
		BetMultiplier:  betMultiplier,
		Stake:          stake,
		TotalPayout:    cascade.TotalPayout,
		Cascade:        cascade,
		PlayedAt:       started,
		Duration:       time.Since(started),
	}
	if s.balance != nil {
		round.Balance = s.balance.Balance()
	}

	s.mu.Lock()
	s.grid = cascade.FinalGrid
	s.lastRound = round
	s.mu.Unlock()

	s.stats.Record(stake, cascade)
	s.saveHistory(ctx, round)

	s.logger.Info("本局结束",
		zap.String("session_id", s.id),
		zap.String("round_id", roundID),
		zap.String("verification_id", round.VerificationID),
		zap.String("stake", stake.String()),
		zap.String("payout", cascade.TotalPayout.String()),
		zap.Int("highest_multiplier", cascade.HighestMultiplier),
		zap.Int("steps", len(cascade.Steps)),
		zap.Stringer("outcome", round.Outcome()))

	s.presenter.OnResolved(round)

	if s.cfg.AutoFinish {
		if err := s.Finish(ctx); err != nil {
			return round, err
		}
	}
	return round, nil
}

// Finish 结束展示，回到待机
func (s *Session) Finish(ctx context.Context) error {
	return s.sm.Trigger(ctx, EventFinish)
}

// Recover 从错误状态恢复
func (s *Session) Recover(ctx context.Context) error {
	return s.sm.Trigger(ctx, EventRecover)
}

// History 分页查询本会话历史
func (s *Session) History(ctx context.Context, p *repository.Pagination) ([]*models.RoundRecord, error) {
	if s.rounds == nil {
		return nil, apperrors.New(apperrors.ErrNotFound, "history disabled")
	}
	return s.rounds.List(ctx, s.id, p)
}

// Summary 本会话历史汇总
func (s *Session) Summary(ctx context.Context) (*repository.RoundSummary, error) {
	if s.rounds == nil {
		return nil, apperrors.New(apperrors.ErrNotFound, "history disabled")
	}
	return s.rounds.Summary(ctx, s.id)
}

// cancel 回到待机，扣注未发生
func (s *Session) cancel(ctx context.Context) {
	if err := s.sm.Trigger(ctx, EventCancel); err != nil {
		s.logger.Error("取消本局失败", zap.String("session_id", s.id), zap.Error(err))
	}
}

// fail 进入错误状态，等待 Recover
func (s *Session) fail(ctx context.Context, cause error) error {
	s.sm.SetError(cause.Error())
	if err := s.sm.Trigger(ctx, EventError); err != nil {
		s.logger.Error("进入错误状态失败", zap.String("session_id", s.id), zap.Error(err))
	}
	return cause
}

// saveHistory 写历史失败只记日志，不影响本局
func (s *Session) saveHistory(ctx context.Context, round *Round) {
	if s.rounds == nil || !s.cfg.RecordHistory {
		return
	}
	record, err := round.Record()
	if err == nil {
		err = s.rounds.Create(ctx, record)
	}
	if err != nil {
		s.logger.Warn("保存对局历史失败",
			zap.String("session_id", s.id),
			zap.String("round_id", round.RoundID),
			zap.Error(err))
	}
}
