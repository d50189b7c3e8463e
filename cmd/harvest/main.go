package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"

	"github.com/wfunc/harvest-slot/internal/config"
	"github.com/wfunc/harvest-slot/internal/errors"
	"github.com/wfunc/harvest-slot/internal/game/slot"
	"github.com/wfunc/harvest-slot/internal/logger"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("harvest", flag.ContinueOnError)
	var (
		configPath  = fs.String("config", "", "配置文件路径")
		showVersion = fs.Bool("version", false, "显示版本信息")
	)
	fs.Usage = func() { printHelp(fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		printVersion()
		return 0
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printHelp(fs)
		return 2
	}

	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		return exitCode(err)
	}
	cfg := config.Get()

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer logger.Cleanup()

	// 配置热更新只调整日志级别，游戏参数在命令启动时固定
	config.Watch(func(newCfg *config.Config) {
		logger.SetLevel(newCfg.Log.Level)
		logger.Info("配置已更新", zap.String("log_level", newCfg.Log.Level))
	})

	logger.Infof("丰收连线 %s 启动, 命令: %s", Version, rest[0])

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch rest[0] {
	case "play":
		err = runPlay(ctx, cfg, rest[1:])
	case "simulate", "sim":
		err = runSimulate(ctx, cfg, rest[1:])
	default:
		fmt.Fprintf(os.Stderr, "未知命令: %s\n\n", rest[0])
		printHelp(fs)
		return 2
	}

	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return 0
		}
		reportError(os.Stderr, rest[0], err)
		return exitCode(err)
	}
	return 0
}

// reportError 记录并打印命令失败原因，严重错误附带调用栈
func reportError(w io.Writer, command string, err error) {
	fields := []zap.Field{
		zap.String("command", command),
		zap.Int("code", int(errors.GetCode(err))),
	}
	var appErr *errors.AppError
	if errors.IsCritical(err) && stderrors.As(err, &appErr) {
		fields = append(fields, zap.String("stack", appErr.GetStack()))
	}
	logger.LogError(err, "命令执行失败", fields...)

	fmt.Fprintf(w, "错误: %v\n", err)
	if errors.IsRetryable(err) {
		fmt.Fprintln(w, "该错误可重试，请稍后再次执行")
	}
}

// exitCode 按错误码映射退出码
func exitCode(err error) int {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.ExitCode()
	}
	return 1
}

// buildEngine 按游戏配置组装判奖引擎
func buildEngine(g config.GameConfig, log *zap.Logger) *slot.Engine {
	gen := slot.NewGridGenerator(
		slot.GridSize,
		randomSource(g),
		slot.WithDropDelay(g.DropDelay),
	)
	return slot.NewEngine(
		slot.WithLogger(log),
		slot.WithGenerator(gen),
		slot.WithCascade(slot.CascadeConfig{
			Enabled:  g.Cascade.Enabled,
			MaxSteps: g.Cascade.MaxSteps,
		}),
	)
}

// randomSource 默认PCG，crypto_rng 开启时使用系统随机源
func randomSource(g config.GameConfig) slot.RandomGenerator {
	if g.CryptoRNG {
		return slot.NewCryptoRandomGenerator()
	}
	return slot.NewRandomGenerator(g.Seed)
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("丰收连线\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "丰收连线 6x6 拉霸")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "用法:")
	fmt.Fprintln(out, "  harvest [-config path] <command> [选项]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "命令:")
	fmt.Fprintln(out, "  play       进行若干局并打印每局网格与中奖线")
	fmt.Fprintln(out, "  simulate   批量模拟并输出返还率报告")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "选项:")
	fs.PrintDefaults()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "环境变量:")
	fmt.Fprintf(out, "  %s_GAME_BASE_BET 等，覆盖配置文件中的同名项\n", config.EnvPrefix)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "示例:")
	fmt.Fprintln(out, "  harvest play -spins 5 -bet 0.01 -mult 2")
	fmt.Fprintln(out, "  harvest simulate -spins 100000 -cascade -format yaml")
	fmt.Fprintln(out, "  harvest -version")
}
