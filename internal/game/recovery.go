package game

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/wfunc/harvest-slot/internal/errors"
	"github.com/wfunc/harvest-slot/internal/models"
)

// RoundLedger 按局查询流水
type RoundLedger interface {
	ListByRound(ctx context.Context, roundID string) ([]*models.LedgerEntry, error)
}

// RecoveryManager 会话恢复，处理中断在途的一局
type RecoveryManager struct {
	logger    *zap.Logger
	persister StatePersister
	timeout   time.Duration // 快照超过该时长视为过期，0 不检查
	ledger    RoundLedger
}

// RecoveryOption 恢复选项
type RecoveryOption func(*RecoveryManager)

// WithRoundLedger 指定流水来源，未指定时使用会话 sink 自带的流水
func WithRoundLedger(ledger RoundLedger) RecoveryOption {
	return func(rm *RecoveryManager) {
		rm.ledger = ledger
	}
}

// NewRecoveryManager 创建恢复管理器
func NewRecoveryManager(logger *zap.Logger, persister StatePersister, timeout time.Duration, opts ...RecoveryOption) *RecoveryManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	rm := &RecoveryManager{
		logger:    logger,
		persister: persister,
		timeout:   timeout,
	}
	for _, opt := range opts {
		opt(rm)
	}
	return rm
}

// Restore 从快照恢复会话状态
//
// 出图或判奖中断的局按流水处理：已派彩则结束本局，已扣注未派彩则退注，未扣注直接回到待机；
// 没有流水可查时按已扣注退还。已出结果的局直接结束，错误状态执行 recover。
// 快照不存在时返回 ErrNotFound。
func (rm *RecoveryManager) Restore(ctx context.Context, s *Session) error {
	data, err := rm.persister.Load(ctx, s.ID())
	if err != nil {
		return err
	}

	if rm.timeout > 0 && time.Since(data.LastUpdate) > rm.timeout {
		rm.logger.Warn("会话快照已过期",
			zap.String("session_id", s.ID()),
			zap.Time("last_update", data.LastUpdate),
			zap.Duration("timeout", rm.timeout))
		if err := rm.persister.Delete(ctx, s.ID()); err != nil {
			rm.logger.Error("删除过期快照失败", zap.Error(err))
		}
		return apperrors.Newf(apperrors.ErrTimeout, "session %s expired", s.ID())
	}

	s.sm.LoadFromData(data)

	switch data.CurrentState {
	case StateIdle:
		return nil
	case StateDrawing, StateEvaluating:
		return rm.settleInterrupted(ctx, s, data)
	case StateResolved:
		rm.logger.Info("从展示状态恢复，结束本局", zap.String("session_id", s.ID()))
		return s.sm.Trigger(ctx, EventFinish)
	case StateError:
		rm.logger.Warn("从错误状态恢复",
			zap.String("session_id", s.ID()),
			zap.String("error", data.ErrorMsg))
		return s.sm.Trigger(ctx, EventRecover)
	default:
		rm.logger.Warn("未知状态，重置到待机",
			zap.String("session_id", s.ID()),
			zap.String("from_state", string(data.CurrentState)))
		s.sm.Reset()
		return nil
	}
}

// roundEntries 本局流水，ok 为 false 表示没有流水可查
func (rm *RecoveryManager) roundEntries(ctx context.Context, s *Session, roundID string) ([]*models.LedgerEntry, bool, error) {
	ledger := rm.ledger
	if ledger == nil {
		l, isLedger := s.sink.(RoundLedger)
		if !isLedger {
			return nil, false, nil
		}
		ledger = l
	}
	entries, err := ledger.ListByRound(ctx, roundID)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

// settleInterrupted 按本局已入账的流水决定退注或结束
func (rm *RecoveryManager) settleInterrupted(ctx context.Context, s *Session, data *StateMachineData) error {
	entries, ok, err := rm.roundEntries(ctx, s, data.RoundID)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrDatabaseQuery, "查询本局流水失败: %s", data.RoundID)
	}
	if !ok {
		rm.logger.Warn("无流水可查，按已扣注退还",
			zap.String("session_id", s.ID()),
			zap.String("round_id", data.RoundID))
		return rm.refund(ctx, s, data)
	}

	var staked, paid, refunded bool
	for _, e := range entries {
		switch e.Type {
		case models.LedgerTypeStake:
			staked = true
		case models.LedgerTypePayout:
			paid = true
		case models.LedgerTypeRefund:
			refunded = true
		}
	}

	switch {
	case paid || refunded:
		rm.logger.Info("本局已结算，直接结束",
			zap.String("session_id", s.ID()),
			zap.String("round_id", data.RoundID),
			zap.Bool("paid", paid),
			zap.Bool("refunded", refunded))
	case staked:
		return rm.refund(ctx, s, data)
	default:
		rm.logger.Info("本局未扣注，回到待机",
			zap.String("session_id", s.ID()),
			zap.String("round_id", data.RoundID))
	}
	rm.reset(ctx, s)
	return nil
}

// refund 退还中断局的下注
func (rm *RecoveryManager) refund(ctx context.Context, s *Session, data *StateMachineData) error {
	rm.logger.Info("中断局退注",
		zap.String("session_id", s.ID()),
		zap.String("round_id", data.RoundID),
		zap.String("state", string(data.CurrentState)),
		zap.String("stake", data.Stake.String()))

	var err error
	switch sink := s.sink.(type) {
	case Refunder:
		err = sink.Refund(ctx, data.RoundID, data.Stake)
	case nil:
	default:
		err = sink.ApplyWinnings(ctx, data.RoundID, data.Stake)
	}
	if err != nil {
		s.sm.SetError(err.Error())
		if terr := s.sm.Trigger(ctx, EventError); terr != nil {
			rm.logger.Error("进入错误状态失败", zap.String("session_id", s.ID()), zap.Error(terr))
		}
		return apperrors.Wrap(err, apperrors.ErrGameStateError, "退注失败")
	}

	rm.reset(ctx, s)
	return nil
}

// reset 回到待机并保存快照
func (rm *RecoveryManager) reset(ctx context.Context, s *Session) {
	s.sm.Reset()
	if rm.persister != nil {
		if err := rm.persister.Save(ctx, s.ID(), s.sm.Snapshot()); err != nil {
			rm.logger.Error("持久化状态失败", zap.Error(err))
		}
	}
}
