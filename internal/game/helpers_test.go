package game

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/harvest-slot/internal/game/slot"
)

// scriptedRNG 按顺序返回给定值；设置 tail 时首轮之后循环 tail，否则循环 values
type scriptedRNG struct {
	mu     sync.Mutex
	values []int
	tail   []int
	next   int
}

func (g *scriptedRNG) IntN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	var v int
	if g.next < len(g.values) || len(g.tail) == 0 {
		v = g.values[g.next%len(g.values)]
	} else {
		v = g.tail[(g.next-len(g.values))%len(g.tail)]
	}
	g.next++
	return v % n
}

// losingRows 任意支付线上都没有相邻相同符号
func losingRows() [][]slot.Symbol {
	rows := make([][]slot.Symbol, slot.GridSize)
	for r := 0; r < slot.GridSize; r++ {
		rows[r] = make([]slot.Symbol, slot.GridSize)
		for c := 0; c < slot.GridSize; c++ {
			rows[r][c] = slot.Symbol(1 + (3*r+c)%10)
		}
	}
	return rows
}

// winningRows 只有第0行中奖：三个南瓜，单位赔付3
func winningRows() [][]slot.Symbol {
	rows := losingRows()
	rows[0] = []slot.Symbol{
		slot.SymbolPumpkin, slot.SymbolPumpkin, slot.SymbolPumpkin,
		slot.SymbolApple, slot.SymbolApple, slot.SymbolApple,
	}
	return rows
}

func scripted(rows [][]slot.Symbol) *scriptedRNG {
	var values []int
	for _, row := range rows {
		for _, s := range row {
			values = append(values, int(s))
		}
	}
	return &scriptedRNG{values: values}
}

func newTestEngine(rows [][]slot.Symbol, cascade slot.CascadeConfig) *slot.Engine {
	gen := slot.NewGridGenerator(slot.GridSize, scripted(rows))
	return slot.NewEngine(slot.WithGenerator(gen), slot.WithCascade(cascade))
}

// recordingSink 记录每次变动并转发给钱包
type recordingSink struct {
	mu     sync.Mutex
	wallet *Wallet
	deltas []decimal.Decimal
	failOn func(delta decimal.Decimal) error
}

func newRecordingSink(t *testing.T, balance string) *recordingSink {
	t.Helper()
	w := NewWallet("test", nil, nil)
	require.NoError(t, w.Deposit(context.Background(), dec(balance)))
	return &recordingSink{wallet: w}
}

func (s *recordingSink) ApplyWinnings(ctx context.Context, roundID string, delta decimal.Decimal) error {
	if s.failOn != nil {
		if err := s.failOn(delta); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.deltas = append(s.deltas, delta)
	s.mu.Unlock()
	return s.wallet.ApplyWinnings(ctx, roundID, delta)
}

func (s *recordingSink) Balance() decimal.Decimal {
	return s.wallet.Balance()
}

func (s *recordingSink) Deltas() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.deltas))
	for i, d := range s.deltas {
		out[i] = d.String()
	}
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}
