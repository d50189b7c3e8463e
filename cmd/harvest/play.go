package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/harvest-slot/internal/config"
	"github.com/wfunc/harvest-slot/internal/database"
	"github.com/wfunc/harvest-slot/internal/errors"
	"github.com/wfunc/harvest-slot/internal/game"
	"github.com/wfunc/harvest-slot/internal/game/slot"
	"github.com/wfunc/harvest-slot/internal/logger"
	"github.com/wfunc/harvest-slot/internal/repository"
)

// playOptions play 命令参数
type playOptions struct {
	spins   int
	bet     string
	mult    int
	cascade bool
	seed    uint64
}

func parsePlayFlags(cfg *config.Config, args []string) (*playOptions, error) {
	opts := &playOptions{}
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	fs.IntVar(&opts.spins, "spins", 1, "局数")
	fs.StringVar(&opts.bet, "bet", cfg.Game.BaseBet, "基础下注")
	fs.IntVar(&opts.mult, "mult", cfg.Game.BetMultiplier, "下注倍数")
	fs.BoolVar(&opts.cascade, "cascade", cfg.Game.Cascade.Enabled, "开启连消")
	fs.Uint64Var(&opts.seed, "seed", cfg.Game.Seed, "随机种子，0 表示不固定")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.spins <= 0 {
		return nil, errors.Newf(errors.ErrInvalidParam, "spins must be positive, got %d", opts.spins)
	}
	return opts, nil
}

func runPlay(ctx context.Context, cfg *config.Config, args []string) error {
	opts, err := parsePlayFlags(cfg, args)
	if err != nil {
		return err
	}
	bet, err := decimal.NewFromString(opts.bet)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInvalidBet, "bet %q", opts.bet)
	}
	balance, err := cfg.Session.InitialBalanceDecimal()
	if err != nil {
		return errors.Wrap(err, errors.ErrConfigValidate)
	}

	gameCfg := cfg.Game
	gameCfg.Seed = opts.seed
	gameCfg.Cascade.Enabled = opts.cascade
	engine := buildEngine(gameCfg, logger.GetModuleLogger("game"))

	db, err := database.Open(&cfg.Database, logger.GetModuleLogger("database"))
	if err != nil {
		return err
	}
	defer database.CloseDB(db)

	session, wallet, err := newPlaySession(ctx, db, engine, cfg, balance, os.Stdout)
	if err != nil {
		return err
	}

	for i := 0; i < opts.spins; i++ {
		if ctx.Err() != nil {
			break
		}
		round, err := session.Spin(ctx, bet, opts.mult)
		if errors.Is(err, errors.ErrInsufficientBalance) {
			fmt.Printf("余额不足: %s\n", wallet.Balance().StringFixed(2))
			break
		}
		if err != nil {
			return err
		}
		logger.LogGameEvent("round", session.ID(), map[string]interface{}{
			"round_id": round.RoundID,
			"payout":   round.TotalPayout.String(),
			"outcome":  round.Outcome().String(),
		})
	}

	return printSessionSummary(ctx, os.Stdout, session, wallet, repository.NewLedgerRepository(db))
}

// newPlaySession 组装会话，钱包流水、对局历史和状态快照都写入会话内存库
func newPlaySession(ctx context.Context, db *gorm.DB, engine *slot.Engine, cfg *config.Config, balance decimal.Decimal, out io.Writer) (*game.Session, *game.Wallet, error) {
	sessionLog := logger.GetModuleLogger("session")

	id := uuid.NewString()
	wallet := game.NewWallet(id, repository.NewLedgerRepository(db), sessionLog)
	if balance.IsPositive() {
		if err := wallet.Deposit(ctx, balance); err != nil {
			return nil, nil, err
		}
	}

	persister := game.NewCacheStatePersister(game.NewMemoryStatePersister(), game.NewDatabaseStatePersister(db))
	session := game.NewSession(engine, wallet, game.SessionConfig{
		SessionID:     id,
		MinMultiplier: cfg.Game.MinMultiplier,
		MaxMultiplier: cfg.Game.MaxMultiplier,
		AutoFinish:    true,
		RecordHistory: cfg.Session.RecordHistory,
	},
		game.WithSessionLogger(sessionLog),
		game.WithPresenter(&consolePresenter{out: out}),
		game.WithRoundRepository(repository.NewRoundRepository(db)),
		game.WithStatePersister(persister),
	)
	return session, wallet, nil
}

// printSessionSummary 会话汇总，并核对流水与余额
func printSessionSummary(ctx context.Context, w io.Writer, session *game.Session, wallet *game.Wallet, ledger repository.LedgerRepository) error {
	stats := session.Statistics()
	fmt.Fprintln(w, strings.Repeat("=", 40))
	fmt.Fprintf(w, "局数: %d  中奖: %d  大奖: %d\n", stats.TotalSpins, stats.WinSpins, stats.BigWins)
	fmt.Fprintf(w, "总下注: %s  总派彩: %s  返还率: %.2f%%\n",
		stats.TotalBet.StringFixed(2), stats.TotalWin.StringFixed(2), 100*stats.RTP())
	fmt.Fprintf(w, "余额: %s\n", wallet.Balance().StringFixed(2))

	if summary, err := session.Summary(ctx); err == nil {
		fmt.Fprintf(w, "历史记录: %d 局, 净输赢 %s\n", summary.Rounds, summary.Net().StringFixed(2))
	}

	sum, err := ledger.Sum(ctx, session.ID())
	if err != nil {
		return err
	}
	if !sum.Equal(wallet.Balance()) {
		logger.Error("流水与余额不一致",
			zap.String("ledger", sum.String()),
			zap.String("balance", wallet.Balance().String()))
		return errors.Newf(errors.ErrGameStateError, "ledger %s != balance %s", sum, wallet.Balance())
	}
	return nil
}

// consolePresenter 在终端打印每一步网格与中奖线
type consolePresenter struct {
	out io.Writer
}

func (p *consolePresenter) OnDraw(slot.Grid) {}

func (p *consolePresenter) OnResolved(round *game.Round) {
	fmt.Fprintf(p.out, "第 %s 局  下注 %s x %d = %s\n",
		shortID(round.RoundID), round.BaseBet, round.BetMultiplier, round.Stake.StringFixed(2))

	for _, step := range round.Cascade.Steps {
		if len(round.Cascade.Steps) > 1 {
			fmt.Fprintf(p.out, "-- 第 %d 步 --\n", step.StepNumber+1)
		}
		fmt.Fprint(p.out, step.Result.Grid.String())
		for _, line := range step.Result.WinningLines() {
			wild := ""
			if line.UsedWild {
				wild = " (百搭x2)"
			}
			fmt.Fprintf(p.out, "  支付线 %d: %s  x%d%s\n", line.PaylineIndex, line.Combination(), line.Payout, wild)
		}
	}

	switch round.Outcome() {
	case slot.OutcomeBigWin:
		fmt.Fprintf(p.out, "大奖! 派彩 %s", round.TotalPayout.StringFixed(2))
	case slot.OutcomeWin:
		fmt.Fprintf(p.out, "中奖 派彩 %s", round.TotalPayout.StringFixed(2))
	default:
		fmt.Fprint(p.out, "未中奖")
	}
	fmt.Fprintf(p.out, "  余额 %s\n\n", round.Balance.StringFixed(2))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
