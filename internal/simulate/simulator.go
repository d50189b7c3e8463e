package simulate

import (
	"context"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "github.com/wfunc/harvest-slot/internal/errors"
	"github.com/wfunc/harvest-slot/internal/game"
	"github.com/wfunc/harvest-slot/internal/game/slot"
)

// Confidence 置信水平
const Confidence = 0.95

// Options 模拟参数
type Options struct {
	Spins         int
	BaseBet       decimal.Decimal
	BetMultiplier int
	Progress      bool
	ProgressOut   io.Writer // 为空时写 stderr
}

// CI 置信区间
type CI struct {
	Lo float64 `json:"lo" yaml:"lo"`
	Hi float64 `json:"hi" yaml:"hi"`
}

// Bucket 按最高单位赔付分组的局数
type Bucket struct {
	Multiplier int     `json:"multiplier" yaml:"multiplier"`
	Rounds     int64   `json:"rounds" yaml:"rounds"`
	Share      float64 `json:"share" yaml:"share"`
}

// Report 模拟报告
type Report struct {
	Spins           int64           `json:"spins" yaml:"spins"`
	BaseBet         decimal.Decimal `json:"base_bet" yaml:"base_bet"`
	BetMultiplier   int             `json:"bet_multiplier" yaml:"bet_multiplier"`
	CascadeEnabled  bool            `json:"cascade_enabled" yaml:"cascade_enabled"`
	TotalStaked     decimal.Decimal `json:"total_staked" yaml:"total_staked"`
	TotalPaid       decimal.Decimal `json:"total_paid" yaml:"total_paid"`
	RTP             float64         `json:"rtp" yaml:"rtp"`
	RTPCI           CI              `json:"rtp_ci" yaml:"rtp_ci"`
	HitRate         float64         `json:"hit_rate" yaml:"hit_rate"`
	HitRateCI       CI              `json:"hit_rate_ci" yaml:"hit_rate_ci"`
	WinRounds       int64           `json:"win_rounds" yaml:"win_rounds"`
	BigWins         int64           `json:"big_wins" yaml:"big_wins"`
	WildBonuses     int64           `json:"wild_bonuses" yaml:"wild_bonuses"`
	MaxMultiplier   int             `json:"max_multiplier" yaml:"max_multiplier"`
	AvgCascadeSteps float64         `json:"avg_cascade_steps" yaml:"avg_cascade_steps"`
	MeanReturn      float64         `json:"mean_return" yaml:"mean_return"`
	StdReturn       float64         `json:"std_return" yaml:"std_return"`
	Distribution    []Bucket        `json:"distribution" yaml:"distribution"`
	Duration        time.Duration   `json:"duration" yaml:"duration"`
	Canceled        bool            `json:"canceled,omitempty" yaml:"canceled,omitempty"`
}

// SpinsPerSecond 每秒局数
func (r *Report) SpinsPerSecond() float64 {
	sec := r.Duration.Seconds()
	if sec <= 0 {
		return 0
	}
	return float64(r.Spins) / sec
}

// Simulator 批量模拟，每局都走完整的会话流程
type Simulator struct {
	engine *slot.Engine
	logger *zap.Logger
}

// New 创建模拟器
func New(engine *slot.Engine, logger *zap.Logger) *Simulator {
	if engine == nil {
		engine = slot.NewEngine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{engine: engine, logger: logger}
}

// Run 执行模拟；ctx 取消时返回已完成部分的报告和 ErrCanceled
func (s *Simulator) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Spins <= 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "spins must be positive, got %d", opts.Spins)
	}
	if err := slot.ValidateBet(opts.BaseBet, opts.BetMultiplier, 0, 0); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrInvalidBet, "bet %s x%d", opts.BaseBet, opts.BetMultiplier)
	}

	stake := opts.BaseBet.Mul(decimal.NewFromInt(int64(opts.BetMultiplier)))
	wallet := game.NewWallet("simulation", nil, s.logger)
	if err := wallet.Deposit(ctx, stake.Mul(decimal.NewFromInt(int64(opts.Spins)))); err != nil {
		return nil, err
	}
	session := game.NewSession(s.engine, wallet, game.SessionConfig{
		SessionID:  "simulation",
		AutoFinish: true,
	}, game.WithSessionLogger(s.logger.Named("session").WithOptions(zap.IncreaseLevel(zap.WarnLevel))))

	out := opts.ProgressOut
	if out == nil {
		out = os.Stderr
	}
	if !opts.Progress {
		out = io.Discard
	}
	bar := pb.New(opts.Spins).SetWriter(out).Start()

	returns := make([]float64, 0, opts.Spins)
	buckets := make(map[int]int64)
	var canceled bool

	for i := 0; i < opts.Spins; i++ {
		round, err := session.Spin(ctx, opts.BaseBet, opts.BetMultiplier)
		if apperrors.Is(err, apperrors.ErrCanceled) {
			canceled = true
			break
		}
		if err != nil {
			bar.Finish()
			return nil, err
		}
		multiple, _ := round.TotalPayout.Div(round.Stake).Float64()
		returns = append(returns, multiple)
		buckets[round.Cascade.HighestMultiplier]++
		bar.Increment()
	}
	used := time.Since(bar.StartTime())
	bar.Finish()

	report := s.buildReport(opts, session.Statistics(), returns, buckets)
	report.Duration = used
	report.Canceled = canceled

	s.logger.Info("模拟完成",
		zap.Int64("spins", report.Spins),
		zap.Float64("rtp", report.RTP),
		zap.Float64("hit_rate", report.HitRate),
		zap.Duration("duration", used),
		zap.Bool("canceled", canceled))

	if canceled {
		return report, apperrors.Wrap(ctx.Err(), apperrors.ErrCanceled, "simulation interrupted")
	}
	return report, nil
}

// buildReport 汇总统计
func (s *Simulator) buildReport(opts Options, st slot.Statistics, returns []float64, buckets map[int]int64) *Report {
	report := &Report{
		Spins:          st.TotalSpins,
		BaseBet:        opts.BaseBet,
		BetMultiplier:  opts.BetMultiplier,
		CascadeEnabled: s.engine.CascadeConfig().Enabled,
		TotalStaked:    st.TotalBet,
		TotalPaid:      st.TotalWin,
		RTP:            st.RTP(),
		HitRate:        st.HitRate(),
		WinRounds:      st.WinSpins,
		BigWins:        st.BigWins,
		WildBonuses:    st.WildBonuses,
		MaxMultiplier:  st.MaxMultiplier,
		Distribution:   distribution(buckets, st.TotalSpins),
	}
	if st.TotalSpins > 0 {
		report.AvgCascadeSteps = 1 + float64(st.CascadeSteps)/float64(st.TotalSpins)
	}

	if len(returns) > 0 {
		report.MeanReturn, report.StdReturn = stat.MeanStdDev(returns, nil)
		if math.IsNaN(report.StdReturn) {
			report.StdReturn = 0
		}
		report.RTPCI = meanCI(report.MeanReturn, report.StdReturn, len(returns), Confidence)
	}
	report.HitRateCI = proportionCI(int(st.WinSpins), int(st.TotalSpins), Confidence)
	return report
}

// meanCI 均值的正态近似区间
func meanCI(mean, std float64, n int, confidence float64) CI {
	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	half := z * std / math.Sqrt(float64(n))
	return CI{Lo: mean - half, Hi: mean + half}
}

// proportionCI Clopper-Pearson 精确区间
func proportionCI(k, n int, confidence float64) CI {
	if n == 0 {
		return CI{Lo: 0, Hi: 1}
	}
	alpha := 1 - confidence
	var ci CI
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return ci
}

// distribution 按倍数升序
func distribution(buckets map[int]int64, total int64) []Bucket {
	out := make([]Bucket, 0, len(buckets))
	for m, n := range buckets {
		b := Bucket{Multiplier: m, Rounds: n}
		if total > 0 {
			b.Share = float64(n) / float64(total)
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Multiplier < out[j].Multiplier })
	return out
}
