package main

import (
	"context"
	"flag"
	"os"

	"github.com/shopspring/decimal"

	"github.com/wfunc/harvest-slot/internal/config"
	"github.com/wfunc/harvest-slot/internal/errors"
	"github.com/wfunc/harvest-slot/internal/logger"
	"github.com/wfunc/harvest-slot/internal/simulate"
)

func runSimulate(ctx context.Context, cfg *config.Config, args []string) error {
	var (
		spins    int
		bet      string
		mult     int
		cascade  bool
		seed     uint64
		format   string
		progress bool
	)
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.IntVar(&spins, "spins", cfg.Simulation.Spins, "模拟局数")
	fs.StringVar(&bet, "bet", cfg.Game.BaseBet, "基础下注")
	fs.IntVar(&mult, "mult", cfg.Game.BetMultiplier, "下注倍数")
	fs.BoolVar(&cascade, "cascade", cfg.Game.Cascade.Enabled, "开启连消")
	fs.Uint64Var(&seed, "seed", cfg.Game.Seed, "随机种子，0 表示不固定")
	fs.StringVar(&format, "format", cfg.Simulation.Format, "输出格式 table|yaml|json")
	fs.BoolVar(&progress, "progress", cfg.Simulation.Progress, "显示进度条")
	if err := fs.Parse(args); err != nil {
		return err
	}

	baseBet, err := decimal.NewFromString(bet)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInvalidBet, "bet %q", bet)
	}

	gameCfg := cfg.Game
	gameCfg.Seed = seed
	gameCfg.Cascade.Enabled = cascade
	engine := buildEngine(gameCfg, logger.GetModuleLogger("game"))

	sim := simulate.New(engine, logger.GetModuleLogger("simulate"))
	report, err := sim.Run(ctx, simulate.Options{
		Spins:         spins,
		BaseBet:       baseBet,
		BetMultiplier: mult,
		Progress:      progress,
		ProgressOut:   os.Stderr,
	})
	if report != nil {
		if rerr := simulate.Render(os.Stdout, report, format); rerr != nil {
			return rerr
		}
	}
	return err
}
