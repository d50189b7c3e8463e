package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wfunc/harvest-slot/internal/errors"
)

func TestRoundRepository_CreateAndFind(t *testing.T) {
	repo := NewRoundRepository(TestDB(t))
	ctx := context.Background()

	record := CreateTestRound("s1", "10", "40", 4)
	require.NoError(t, repo.Create(ctx, record))
	assert.NotZero(t, record.ID)

	found, err := repo.FindByRoundID(ctx, record.RoundID)
	require.NoError(t, err)
	AssertRound(t, record, found)
}

func TestRoundRepository_FindMissing(t *testing.T) {
	repo := NewRoundRepository(TestDB(t))

	_, err := repo.FindByRoundID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestRoundRepository_DuplicateRoundID(t *testing.T) {
	repo := NewRoundRepository(TestDB(t))
	ctx := context.Background()

	record := CreateTestRound("s1", "10", "0", 0)
	require.NoError(t, repo.Create(ctx, record))

	dup := CreateTestRound("s1", "10", "0", 0)
	dup.RoundID = record.RoundID
	err := repo.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrDatabaseInsert))
}

func TestRoundRepository_ListPaginates(t *testing.T) {
	repo := NewRoundRepository(TestDB(t))
	ctx := context.Background()

	base := time.Now()
	var ids []string
	for i := 0; i < 5; i++ {
		r := CreateTestRound("s1", "10", "0", 0)
		r.PlayedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(ctx, r))
		ids = append(ids, r.RoundID)
	}
	require.NoError(t, repo.Create(ctx, CreateTestRound("other", "10", "0", 0)))

	p := NewPagination(1, 2)
	page, err := repo.List(ctx, "s1", p)
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.Total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].RoundID)
	assert.Equal(t, ids[3], page[1].RoundID)

	p = NewPagination(3, 2)
	page, err = repo.List(ctx, "s1", p)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].RoundID)
}

func TestRoundRepository_Summary(t *testing.T) {
	repo := NewRoundRepository(TestDB(t))
	ctx := context.Background()

	lose := CreateTestRound("s1", "10", "0", 0)
	win := CreateTestRound("s1", "10", "0.3", 3)
	win.HasWildBonus = true
	big := CreateTestRound("s1", "2.5", "125", 50)
	require.NoError(t, repo.Create(ctx, lose))
	require.NoError(t, repo.Create(ctx, win))
	require.NoError(t, repo.Create(ctx, big))
	require.NoError(t, repo.Create(ctx, CreateTestRound("other", "100", "100", 10)))

	sum, err := repo.Summary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.Rounds)
	assert.Equal(t, int64(2), sum.WinRounds)
	assert.Equal(t, int64(1), sum.BigWins)
	assert.Equal(t, int64(1), sum.WildBonuses)
	assert.Equal(t, 50, sum.MaxMultiplier)
	assert.True(t, decimal.RequireFromString("22.5").Equal(sum.TotalStaked), sum.TotalStaked.String())
	assert.True(t, decimal.RequireFromString("125.3").Equal(sum.TotalPaid), sum.TotalPaid.String())
	assert.True(t, decimal.RequireFromString("102.8").Equal(sum.Net()))
}

func TestRoundRepository_SummaryEmpty(t *testing.T) {
	repo := NewRoundRepository(TestDB(t))

	sum, err := repo.Summary(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, sum.Rounds)
	assert.True(t, sum.TotalStaked.IsZero())
	assert.True(t, sum.TotalPaid.IsZero())
}

func TestPagination(t *testing.T) {
	p := NewPagination(0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.PageSize)
	assert.Equal(t, 0, p.Offset())

	p = NewPagination(3, 500)
	assert.Equal(t, 100, p.PageSize)
	assert.Equal(t, 200, p.Offset())
}
