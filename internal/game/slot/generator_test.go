package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridGenerator_Generate(t *testing.T) {
	gen := NewGridGenerator(GridSize, NewSeededRandomGenerator(1))
	grid := gen.Generate()

	require.True(t, grid.IsValid(GridSize))
	ids := make(map[string]struct{})
	for r, row := range grid {
		for c, cell := range row {
			assert.False(t, cell.Matched)
			assert.True(t, cell.Entering)
			assert.Equal(t, time.Duration(r*GridSize+c)*DefaultDropDelay, cell.EntryDelay)
			assert.NotEmpty(t, cell.ID)
			ids[cell.ID] = struct{}{}
		}
	}
	assert.Len(t, ids, GridSize*GridSize, "cell ids must be unique")
}

func TestGridGenerator_Options(t *testing.T) {
	gen := NewGridGenerator(3, NewSeededRandomGenerator(1),
		WithDropDelay(10*time.Millisecond),
		WithIDFunc(func() string { return "x" }),
	)
	grid := gen.Generate()

	assert.Equal(t, 3, gen.Size())
	assert.Equal(t, "x", grid[2][2].ID)
	assert.Equal(t, 80*time.Millisecond, grid[2][2].EntryDelay)
}

func TestSeededRandomGenerator_Reproducible(t *testing.T) {
	a := NewGridGenerator(GridSize, NewSeededRandomGenerator(99)).Generate()
	b := NewGridGenerator(GridSize, NewSeededRandomGenerator(99)).Generate()
	assert.Equal(t, a.Symbols(), b.Symbols())
}

func TestGridGenerator_CoversAllSymbols(t *testing.T) {
	gen := NewGridGenerator(GridSize, NewSeededRandomGenerator(5))
	seen := make(map[Symbol]int)
	for i := 0; i < 200; i++ {
		for _, row := range gen.Generate() {
			for _, cell := range row {
				require.True(t, cell.Symbol.Valid())
				seen[cell.Symbol]++
			}
		}
	}
	assert.Len(t, seen, SymbolCount, "wild and every regular symbol should appear")
}

func TestCryptoRandomGenerator_IntN(t *testing.T) {
	g := NewCryptoRandomGenerator()
	for i := 0; i < 1000; i++ {
		v := g.IntN(SymbolCount)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, SymbolCount)
	}
	assert.Equal(t, 0, g.IntN(1))
	assert.Equal(t, 0, g.IntN(0))
}

func TestNewRandomGenerator(t *testing.T) {
	assert.IsType(t, &SeededRandomGenerator{}, NewRandomGenerator(0))
	assert.IsType(t, &SeededRandomGenerator{}, NewRandomGenerator(12))

	a, b := NewRandomGenerator(12), NewRandomGenerator(12)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.IntN(SymbolCount), b.IntN(SymbolCount))
	}
}

func TestGridGenerator_DefaultsToPCG(t *testing.T) {
	g := NewGridGenerator(GridSize, nil)
	assert.IsType(t, &SeededRandomGenerator{}, g.rng)
}

func TestGrid_CloneIsDeep(t *testing.T) {
	grid := GridFromSymbols(fillerSymbols(GridSize))
	clone := grid.Clone()
	clone[0][0].Symbol = SymbolWild
	clone[0][0].Matched = true

	assert.NotEqual(t, SymbolWild, grid[0][0].Symbol)
	assert.False(t, grid[0][0].Matched)
	assert.Nil(t, Grid(nil).Clone())
}

func TestGrid_InBounds(t *testing.T) {
	grid := GridFromSymbols(fillerSymbols(GridSize))
	assert.True(t, grid.InBounds(Position{0, 0}))
	assert.True(t, grid.InBounds(Position{5, 5}))
	assert.False(t, grid.InBounds(Position{-1, 0}))
	assert.False(t, grid.InBounds(Position{0, 6}))
	assert.False(t, grid.InBounds(Position{6, 0}))
}

func TestGrid_String(t *testing.T) {
	grid := GridFromSymbols([][]Symbol{{SymbolWild, SymbolApple, SymbolCorn}})
	grid[0][1].Matched = true
	assert.Equal(t, " 🌟  [🍎]  🌽 \n", grid.String())
}
