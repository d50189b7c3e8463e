package game

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/wfunc/harvest-slot/internal/errors"
	"github.com/wfunc/harvest-slot/internal/game/slot"
	"github.com/wfunc/harvest-slot/internal/models"
	"github.com/wfunc/harvest-slot/internal/repository"
)

func newRecoverySession(t *testing.T, persister StatePersister, sink WinningsSink) *Session {
	t.Helper()
	return NewSession(
		newTestEngine(losingRows(), slot.DefaultCascadeConfig()),
		sink,
		SessionConfig{SessionID: "s1", AutoFinish: true},
		WithStatePersister(persister),
	)
}

func TestRecoveryManager_RefundsInterruptedRound(t *testing.T) {
	for _, state := range []GameState{StateDrawing, StateEvaluating} {
		t.Run(string(state), func(t *testing.T) {
			ctx := context.Background()
			persister := NewMemoryStatePersister()
			ledger := repository.NewLedgerRepository(repository.TestDB(t))
			wallet := NewWallet("s1", ledger, nil)
			require.NoError(t, wallet.Deposit(ctx, dec("1")))
			require.NoError(t, wallet.ApplyWinnings(ctx, "r1", dec("-0.05")))

			require.NoError(t, persister.Save(ctx, "s1", sampleState(state)))

			session := newRecoverySession(t, persister, wallet)
			rm := NewRecoveryManager(zap.NewNop(), persister, time.Hour)
			require.NoError(t, rm.Restore(ctx, session))

			assert.Equal(t, StateIdle, session.State())
			assertDecimal(t, "1", wallet.Balance())

			entries, err := ledger.ListByRound(ctx, "r1")
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, models.LedgerTypeStake, entries[0].Type)
			assert.Equal(t, models.LedgerTypeRefund, entries[1].Type)

			saved, err := persister.Load(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, StateIdle, saved.CurrentState)

			_, err = session.Spin(ctx, dec("0.01"), 1)
			assert.NoError(t, err)
		})
	}
}

func TestRecoveryManager_RefundFallsBackToSink(t *testing.T) {
	ctx := context.Background()
	persister := NewMemoryStatePersister()
	require.NoError(t, persister.Save(ctx, "s1", sampleState(StateDrawing)))

	sink := newRecordingSink(t, "1")
	session := newRecoverySession(t, persister, WinningsSinkFunc(sink.ApplyWinnings))

	require.NoError(t, NewRecoveryManager(nil, persister, 0).Restore(ctx, session))
	assert.Equal(t, []string{"0.05"}, sink.Deltas())
}

func TestRecoveryManager_FinishesResolvedRound(t *testing.T) {
	ctx := context.Background()
	persister := NewMemoryStatePersister()
	require.NoError(t, persister.Save(ctx, "s1", sampleState(StateResolved)))

	sink := newRecordingSink(t, "1")
	session := newRecoverySession(t, persister, sink)
	require.NoError(t, NewRecoveryManager(nil, persister, 0).Restore(ctx, session))

	assert.Equal(t, StateIdle, session.State())
	assert.Empty(t, sink.Deltas())
}

func TestRecoveryManager_RecoversError(t *testing.T) {
	ctx := context.Background()
	persister := NewMemoryStatePersister()
	data := sampleState(StateError)
	data.ErrorMsg = "boom"
	require.NoError(t, persister.Save(ctx, "s1", data))

	session := newRecoverySession(t, persister, nil)
	require.NoError(t, NewRecoveryManager(nil, persister, 0).Restore(ctx, session))
	assert.Equal(t, StateIdle, session.State())
}

func TestRecoveryManager_Missing(t *testing.T) {
	session := newRecoverySession(t, NewMemoryStatePersister(), nil)
	err := NewRecoveryManager(nil, NewMemoryStatePersister(), 0).Restore(context.Background(), session)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestRecoveryManager_Expired(t *testing.T) {
	ctx := context.Background()
	persister := NewMemoryStatePersister()
	data := sampleState(StateDrawing)
	data.LastUpdate = time.Now().Add(-2 * time.Hour)
	require.NoError(t, persister.Save(ctx, "s1", data))

	session := newRecoverySession(t, persister, nil)
	err := NewRecoveryManager(nil, persister, time.Hour).Restore(ctx, session)
	assert.True(t, apperrors.Is(err, apperrors.ErrTimeout))

	_, err = persister.Load(ctx, "s1")
	assert.Error(t, err)
}

// crashingSink 派彩入账后进程中断
type crashingSink struct {
	*Wallet
}

func (c crashingSink) ApplyWinnings(ctx context.Context, roundID string, delta decimal.Decimal) error {
	if err := c.Wallet.ApplyWinnings(ctx, roundID, delta); err != nil {
		return err
	}
	if delta.IsPositive() {
		panic("crash after payout")
	}
	return nil
}

func TestRecoveryManager_PaidRoundIsNotRefunded(t *testing.T) {
	ctx := context.Background()
	persister := NewMemoryStatePersister()
	ledger := repository.NewLedgerRepository(repository.TestDB(t))
	wallet := NewWallet("s1", ledger, nil)
	require.NoError(t, wallet.Deposit(ctx, dec("1")))

	crashed := NewSession(
		newTestEngine(winningRows(), slot.DefaultCascadeConfig()),
		crashingSink{wallet},
		SessionConfig{SessionID: "s1", AutoFinish: true},
		WithStatePersister(persister),
	)
	assert.Panics(t, func() {
		_, _ = crashed.Spin(ctx, dec("0.01"), 1)
	})

	saved, err := persister.Load(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, StateEvaluating, saved.CurrentState)
	assertDecimal(t, "1.02", wallet.Balance())

	session := newRecoverySession(t, persister, wallet)
	require.NoError(t, NewRecoveryManager(nil, persister, 0).Restore(ctx, session))

	assert.Equal(t, StateIdle, session.State())
	assertDecimal(t, "1.02", wallet.Balance())

	entries, err := ledger.ListByRound(ctx, saved.RoundID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.LedgerTypeStake, entries[0].Type)
	assert.Equal(t, models.LedgerTypePayout, entries[1].Type)

	sum, err := ledger.Sum(ctx, "s1")
	require.NoError(t, err)
	assertDecimal(t, "1.02", sum)
}

func TestRecoveryManager_UnstakedRoundIsNotRefunded(t *testing.T) {
	ctx := context.Background()
	persister := NewMemoryStatePersister()
	ledger := repository.NewLedgerRepository(repository.TestDB(t))
	wallet := NewWallet("s1", ledger, nil)
	require.NoError(t, wallet.Deposit(ctx, dec("1")))
	require.NoError(t, persister.Save(ctx, "s1", sampleState(StateDrawing)))

	session := newRecoverySession(t, persister, wallet)
	require.NoError(t, NewRecoveryManager(nil, persister, 0).Restore(ctx, session))

	assert.Equal(t, StateIdle, session.State())
	assertDecimal(t, "1", wallet.Balance())

	entries, err := ledger.ListByRound(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecoveryManager_RefundsOnlyOnce(t *testing.T) {
	ctx := context.Background()
	persister := NewMemoryStatePersister()
	ledger := repository.NewLedgerRepository(repository.TestDB(t))
	wallet := NewWallet("s1", ledger, nil)
	require.NoError(t, wallet.Deposit(ctx, dec("1")))
	require.NoError(t, wallet.ApplyWinnings(ctx, "r1", dec("-0.05")))
	require.NoError(t, wallet.Refund(ctx, "r1", dec("0.05")))
	require.NoError(t, persister.Save(ctx, "s1", sampleState(StateEvaluating)))

	session := newRecoverySession(t, persister, wallet)
	require.NoError(t, NewRecoveryManager(nil, persister, 0).Restore(ctx, session))

	assertDecimal(t, "1", wallet.Balance())
	entries, err := ledger.ListByRound(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRecoveryManager_WithRoundLedger(t *testing.T) {
	ctx := context.Background()
	persister := NewMemoryStatePersister()
	ledger := repository.NewLedgerRepository(repository.TestDB(t))
	wallet := NewWallet("s1", ledger, nil)
	require.NoError(t, wallet.Deposit(ctx, dec("1")))
	require.NoError(t, persister.Save(ctx, "s1", sampleState(StateDrawing)))

	// sink 本身不带流水，由恢复管理器直接查询
	session := newRecoverySession(t, persister, WinningsSinkFunc(wallet.ApplyWinnings))
	rm := NewRecoveryManager(nil, persister, 0, WithRoundLedger(ledger))
	require.NoError(t, rm.Restore(ctx, session))

	assert.Equal(t, StateIdle, session.State())
	assertDecimal(t, "1", wallet.Balance())
}

func TestRecoveryManager_RefundFailureEntersError(t *testing.T) {
	ctx := context.Background()
	persister := NewMemoryStatePersister()
	require.NoError(t, persister.Save(ctx, "s1", sampleState(StateDrawing)))

	sink := WinningsSinkFunc(func(context.Context, string, decimal.Decimal) error {
		return errLedgerOffline
	})
	session := newRecoverySession(t, persister, sink)
	err := NewRecoveryManager(nil, persister, 0).Restore(ctx, session)

	require.Error(t, err)
	assert.ErrorIs(t, err, errLedgerOffline)
	assert.Equal(t, StateError, session.State())
}
