package slot

import (
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func TestStatisticsTracker_Record(t *testing.T) {
	tracker := NewStatisticsTracker()
	stake := decimal.RequireFromString("0.10")

	tracker.Record(stake, &CascadeResult{
		Steps:             []CascadeStep{{}, {}},
		TotalPayout:       decimal.RequireFromString("0.30"),
		HighestMultiplier: 8,
		HasWildBonus:      true,
	})
	tracker.Record(stake, &CascadeResult{
		Steps:       []CascadeStep{{}},
		TotalPayout: decimal.Zero,
	})
	tracker.Record(stake, nil)

	stats := tracker.Snapshot()
	if stats.TotalSpins != 3 {
		t.Errorf("TotalSpins = %d, want 3", stats.TotalSpins)
	}
	if !stats.TotalBet.Equal(decimal.RequireFromString("0.30")) {
		t.Errorf("TotalBet = %s, want 0.30", stats.TotalBet)
	}
	if stats.WinSpins != 1 || stats.WildBonuses != 1 || stats.CascadeSteps != 1 {
		t.Errorf("unexpected counters: %+v", stats)
	}
	if stats.MaxMultiplier != 8 {
		t.Errorf("MaxMultiplier = %d, want 8", stats.MaxMultiplier)
	}
	if math.Abs(stats.RTP()-1.0) > 1e-9 {
		t.Errorf("RTP = %v, want 1.0", stats.RTP())
	}
	if math.Abs(stats.HitRate()-1.0/3.0) > 1e-9 {
		t.Errorf("HitRate = %v, want 1/3", stats.HitRate())
	}
}

func TestStatisticsTracker_Reset(t *testing.T) {
	tracker := NewStatisticsTracker()
	tracker.Record(decimal.NewFromInt(1), nil)
	tracker.Reset()

	stats := tracker.Snapshot()
	if stats.TotalSpins != 0 || !stats.TotalBet.IsZero() {
		t.Errorf("statistics not reset: %+v", stats)
	}
	if stats.RTP() != 0 || stats.HitRate() != 0 {
		t.Error("empty statistics should report zero rates")
	}
}

func TestStatisticsTracker_Concurrent(t *testing.T) {
	tracker := NewStatisticsTracker()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.Record(decimal.NewFromInt(1), &CascadeResult{TotalPayout: decimal.Zero})
			}
		}()
	}
	wg.Wait()

	if got := tracker.Snapshot().TotalSpins; got != 1000 {
		t.Errorf("TotalSpins = %d, want 1000", got)
	}
}
