package game

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/wfunc/harvest-slot/internal/errors"
	"github.com/wfunc/harvest-slot/internal/models"
	"github.com/wfunc/harvest-slot/internal/repository"
)

// Wallet 会话钱包，每次变动写一条流水
//
// 负数变动记为下注，正数变动记为派彩；余额不允许为负。
type Wallet struct {
	mu        sync.Mutex
	sessionID string
	balance   decimal.Decimal
	ledger    repository.LedgerRepository
	logger    *zap.Logger
}

// NewWallet 创建钱包，ledger 为空时只在内存中记账
func NewWallet(sessionID string, ledger repository.LedgerRepository, logger *zap.Logger) *Wallet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wallet{
		sessionID: sessionID,
		balance:   decimal.Zero,
		ledger:    ledger,
		logger:    logger,
	}
}

// Balance 当前余额
func (w *Wallet) Balance() decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance
}

// Deposit 入账
func (w *Wallet) Deposit(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.Newf(apperrors.ErrInvalidParam, "deposit %s", amount)
	}
	return w.post(ctx, "", models.LedgerTypeDeposit, amount)
}

// ApplyWinnings 按带符号金额变动余额
func (w *Wallet) ApplyWinnings(ctx context.Context, roundID string, delta decimal.Decimal) error {
	switch {
	case delta.IsZero():
		return nil
	case delta.IsNegative():
		return w.post(ctx, roundID, models.LedgerTypeStake, delta)
	default:
		return w.post(ctx, roundID, models.LedgerTypePayout, delta)
	}
}

// Refund 退还中断局的下注
func (w *Wallet) Refund(ctx context.Context, roundID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	return w.post(ctx, roundID, models.LedgerTypeRefund, amount)
}

// ListByRound 本局流水，未接入流水仓储时返回 ErrNotFound
func (w *Wallet) ListByRound(ctx context.Context, roundID string) ([]*models.LedgerEntry, error) {
	if w.ledger == nil {
		return nil, apperrors.New(apperrors.ErrNotFound, "wallet has no ledger")
	}
	return w.ledger.ListByRound(ctx, roundID)
}

// post 先写流水，成功后再改余额
func (w *Wallet) post(ctx context.Context, roundID, typ string, delta decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	before := w.balance
	after := before.Add(delta)
	if after.IsNegative() {
		return apperrors.Newf(apperrors.ErrInsufficientBalance, "balance %s, delta %s", before, delta)
	}

	if w.ledger != nil {
		entry := &models.LedgerEntry{
			EntryID:       uuid.NewString(),
			SessionID:     w.sessionID,
			RoundID:       roundID,
			Type:          typ,
			Amount:        delta,
			BalanceBefore: before,
			BalanceAfter:  after,
		}
		if err := w.ledger.Create(ctx, entry); err != nil {
			return err
		}
	}

	w.balance = after
	w.logger.Debug("钱包变动",
		zap.String("session_id", w.sessionID),
		zap.String("round_id", roundID),
		zap.String("type", typ),
		zap.String("delta", delta.String()),
		zap.String("balance", after.String()))
	return nil
}
