package slot

import (
	crand "crypto/rand"
	"math/big"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CryptoRandomGenerator 加密安全的随机数生成器
type CryptoRandomGenerator struct{}

// NewCryptoRandomGenerator 创建加密随机数生成器
func NewCryptoRandomGenerator() *CryptoRandomGenerator {
	return &CryptoRandomGenerator{}
}

// IntN 生成 [0, n) 的随机整数
func (g *CryptoRandomGenerator) IntN(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := crand.Int(crand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// 系统熵源不可用时退回到全局伪随机
		return rand.IntN(n)
	}
	return int(v.Int64())
}

// SeededRandomGenerator 可复现的伪随机数生成器，用于模拟与测试
type SeededRandomGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededRandomGenerator 创建带种子的生成器，seed 为 0 时使用当前时间
func NewSeededRandomGenerator(seed uint64) *SeededRandomGenerator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &SeededRandomGenerator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// IntN 生成 [0, n) 的随机整数
func (g *SeededRandomGenerator) IntN(n int) int {
	if n <= 1 {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.IntN(n)
}

// NewRandomGenerator 网格使用的PCG伪随机源，seed 为 0 时按当前时间播种
func NewRandomGenerator(seed uint64) RandomGenerator {
	return NewSeededRandomGenerator(seed)
}

// GridGenerator 网格生成器
type GridGenerator struct {
	size      int
	rng       RandomGenerator
	dropDelay time.Duration
	idFunc    func() string
}

// GeneratorOption 生成器选项
type GeneratorOption func(*GridGenerator)

// WithDropDelay 设置逐格落下的动画间隔
func WithDropDelay(d time.Duration) GeneratorOption {
	return func(g *GridGenerator) {
		g.dropDelay = d
	}
}

// WithIDFunc 设置单元标识生成函数
func WithIDFunc(fn func() string) GeneratorOption {
	return func(g *GridGenerator) {
		g.idFunc = fn
	}
}

// DefaultDropDelay 默认落下间隔
const DefaultDropDelay = 100 * time.Millisecond

// NewGridGenerator 创建网格生成器
func NewGridGenerator(size int, rng RandomGenerator, opts ...GeneratorOption) *GridGenerator {
	if rng == nil {
		rng = NewRandomGenerator(0)
	}
	g := &GridGenerator{
		size:      size,
		rng:       rng,
		dropDelay: DefaultDropDelay,
		idFunc:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Size 网格边长
func (g *GridGenerator) Size() int {
	return g.size
}

// RandomSymbol 在全部符号（含百搭）中均匀抽取
func (g *GridGenerator) RandomSymbol() Symbol {
	return Symbol(g.rng.IntN(SymbolCount))
}

// NewCell 生成一个新落下的单元
func (g *GridGenerator) NewCell(row, col int) Cell {
	return Cell{
		Symbol:     g.RandomSymbol(),
		ID:         g.idFunc(),
		Entering:   true,
		EntryDelay: time.Duration(row*g.size+col) * g.dropDelay,
	}
}

// Generate 生成一盘新网格，所有单元未标记中奖
func (g *GridGenerator) Generate() Grid {
	grid := make(Grid, g.size)
	for r := 0; r < g.size; r++ {
		grid[r] = make([]Cell, g.size)
		for c := 0; c < g.size; c++ {
			grid[r][c] = g.NewCell(r, c)
		}
	}
	return grid
}
