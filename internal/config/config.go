package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	apperrors "github.com/wfunc/harvest-slot/internal/errors"
)

// Config 全局配置结构体
type Config struct {
	Game       GameConfig       `mapstructure:"game"`
	Session    SessionConfig    `mapstructure:"session"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Log        LogConfig        `mapstructure:"log"`
}

// GameConfig 游戏配置
type GameConfig struct {
	BaseBet       string        `mapstructure:"base_bet"`       // 基础下注（十进制字符串）
	BetMultiplier int           `mapstructure:"bet_multiplier"` // 默认下注倍数
	MinMultiplier int           `mapstructure:"min_multiplier"`
	MaxMultiplier int           `mapstructure:"max_multiplier"`
	Seed          uint64        `mapstructure:"seed"`       // 0 表示不固定种子
	CryptoRNG     bool          `mapstructure:"crypto_rng"` // 改用系统加密随机源，忽略 seed
	DropDelay     time.Duration `mapstructure:"drop_delay"` // 逐格落下间隔，仅供展示层使用
	Cascade       CascadeConfig `mapstructure:"cascade"`
}

// CascadeConfig 连消配置
type CascadeConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	MaxSteps int  `mapstructure:"max_steps"`
}

// SessionConfig 会话配置
type SessionConfig struct {
	InitialBalance string `mapstructure:"initial_balance"`
	RecordHistory  bool   `mapstructure:"record_history"`
}

// DatabaseConfig 数据库配置（仅内存库）
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	LogLevel string `mapstructure:"log_level"`
}

// SimulationConfig 批量模拟配置
type SimulationConfig struct {
	Spins    int    `mapstructure:"spins"`
	Progress bool   `mapstructure:"progress"`
	Format   string `mapstructure:"format"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// EnvPrefix 环境变量前缀
const EnvPrefix = "HARVEST"

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化全局配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		var loaded *Config
		v, loaded, err = load(configPath)
		if err != nil {
			return
		}
		mu.Lock()
		cfg = loaded
		mu.Unlock()
	})
	return err
}

// Load 读取并校验配置，不影响全局实例
func Load(configPath string) (*Config, error) {
	_, c, err := load(configPath)
	return c, err
}

func load(configPath string) (*viper.Viper, *Config, error) {
	vp := viper.New()

	// 设置配置文件路径
	if configPath != "" {
		vp.SetConfigFile(configPath)
	} else {
		vp.SetConfigName("config")
		vp.SetConfigType("yaml")
		vp.AddConfigPath("./config")
		vp.AddConfigPath(".")
	}

	// 设置环境变量前缀
	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	setDefaults(vp)

	// 读取配置文件，不存在时使用默认配置
	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, apperrors.Wrap(err, apperrors.ErrConfigLoad, vp.ConfigFileUsed())
		}
	}

	c := &Config{}
	if err := vp.Unmarshal(c); err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrConfigParse)
	}
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	return vp, c, nil
}

// Default 返回默认配置
func Default() *Config {
	vp := viper.New()
	setDefaults(vp)
	c := &Config{}
	_ = vp.Unmarshal(c)
	return c
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 游戏默认配置
	v.SetDefault("game.base_bet", "0.01")
	v.SetDefault("game.bet_multiplier", 1)
	v.SetDefault("game.min_multiplier", 1)
	v.SetDefault("game.max_multiplier", 100)
	v.SetDefault("game.seed", 0)
	v.SetDefault("game.crypto_rng", false)
	v.SetDefault("game.drop_delay", "100ms")
	v.SetDefault("game.cascade.enabled", false)
	v.SetDefault("game.cascade.max_steps", 10)

	// 会话默认配置
	v.SetDefault("session.initial_balance", "1.5")
	v.SetDefault("session.record_history", true)

	// 数据库默认配置
	v.SetDefault("database.dsn", "file:harvest?mode=memory&cache=shared")
	v.SetDefault("database.log_level", "silent")

	// 模拟默认配置
	v.SetDefault("simulation.spins", 10000)
	v.SetDefault("simulation.progress", true)
	v.SetDefault("simulation.format", "table")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "harvest.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)
}

// Validate 校验配置
func (c *Config) Validate() error {
	bet, err := c.Game.BaseBetDecimal()
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrConfigValidate, "game.base_bet=%q", c.Game.BaseBet)
	}
	if !bet.IsPositive() {
		return apperrors.Newf(apperrors.ErrConfigValidate, "game.base_bet 必须为正数: %s", bet)
	}

	g := c.Game
	if g.MinMultiplier < 1 || g.MaxMultiplier > 100 || g.MinMultiplier > g.MaxMultiplier {
		return apperrors.Newf(apperrors.ErrConfigValidate,
			"下注倍数范围无效 [%d, %d]，应在 [1, 100] 内", g.MinMultiplier, g.MaxMultiplier)
	}
	if g.BetMultiplier < g.MinMultiplier || g.BetMultiplier > g.MaxMultiplier {
		return apperrors.Newf(apperrors.ErrConfigValidate,
			"game.bet_multiplier=%d 超出范围 [%d, %d]", g.BetMultiplier, g.MinMultiplier, g.MaxMultiplier)
	}
	if g.Cascade.Enabled && g.Cascade.MaxSteps < 1 {
		return apperrors.Newf(apperrors.ErrConfigValidate, "game.cascade.max_steps=%d 必须大于0", g.Cascade.MaxSteps)
	}
	if g.DropDelay < 0 {
		return apperrors.Newf(apperrors.ErrConfigValidate, "game.drop_delay 不能为负数")
	}

	balance, err := c.Session.InitialBalanceDecimal()
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrConfigValidate, "session.initial_balance=%q", c.Session.InitialBalance)
	}
	if balance.IsNegative() {
		return apperrors.Newf(apperrors.ErrConfigValidate, "session.initial_balance 不能为负数: %s", balance)
	}

	if c.Simulation.Spins < 0 {
		return apperrors.Newf(apperrors.ErrConfigValidate, "simulation.spins=%d 不能为负数", c.Simulation.Spins)
	}
	switch c.Simulation.Format {
	case "table", "yaml", "json":
	default:
		return apperrors.Newf(apperrors.ErrConfigValidate, "simulation.format=%q 不支持", c.Simulation.Format)
	}
	return nil
}

// BaseBetDecimal 基础下注
func (g GameConfig) BaseBetDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(g.BaseBet))
}

// InitialBalanceDecimal 初始余额
func (s SessionConfig) InitialBalanceDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s.InitialBalance))
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化，校验失败的新配置会被丢弃
func Watch(callback func(*Config)) {
	if v == nil {
		return
	}
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}
		if err := newCfg.Validate(); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}

		mu.Lock()
		cfg = newCfg
		mu.Unlock()

		if callback != nil {
			callback(newCfg)
		}

		fmt.Printf("配置已重新加载: %s\n", e.Name)
	})
}
