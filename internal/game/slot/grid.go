package slot

import (
	"strings"
)

// Grid 方形符号网格，按行存储
type Grid [][]Cell

// GridFromSymbols 由符号矩阵构造网格
func GridFromSymbols(rows [][]Symbol) Grid {
	g := make(Grid, len(rows))
	for r, row := range rows {
		g[r] = make([]Cell, len(row))
		for c, s := range row {
			g[r][c] = Cell{Symbol: s}
		}
	}
	return g
}

// Size 返回行数
func (g Grid) Size() int {
	return len(g)
}

// IsValid 检查网格是否为 size×size 且符号均合法
func (g Grid) IsValid(size int) bool {
	if len(g) != size {
		return false
	}
	for _, row := range g {
		if len(row) != size {
			return false
		}
		for _, cell := range row {
			if !cell.Symbol.Valid() {
				return false
			}
		}
	}
	return true
}

// InBounds 坐标是否在网格内
func (g Grid) InBounds(p Position) bool {
	return p.Row >= 0 && p.Row < len(g) && p.Col >= 0 && p.Col < len(g[p.Row])
}

// At 读取单元
func (g Grid) At(p Position) Cell {
	return g[p.Row][p.Col]
}

// Clone 深拷贝网格
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for r, row := range g {
		out[r] = make([]Cell, len(row))
		copy(out[r], row)
	}
	return out
}

// ClearMatched 清除所有中奖标记
func (g Grid) ClearMatched() {
	for r := range g {
		for c := range g[r] {
			g[r][c].Matched = false
		}
	}
}

// Symbols 导出符号矩阵
func (g Grid) Symbols() [][]Symbol {
	out := make([][]Symbol, len(g))
	for r, row := range g {
		out[r] = make([]Symbol, len(row))
		for c, cell := range row {
			out[r][c] = cell.Symbol
		}
	}
	return out
}

// MatchedPositions 返回被标记中奖的坐标（行优先）
func (g Grid) MatchedPositions() []Position {
	positions := make([]Position, 0)
	for r, row := range g {
		for c, cell := range row {
			if cell.Matched {
				positions = append(positions, Position{Row: r, Col: c})
			}
		}
	}
	return positions
}

// String 以显示字符打印网格，中奖单元用方括号标出
func (g Grid) String() string {
	var sb strings.Builder
	for _, row := range g {
		for c, cell := range row {
			if c > 0 {
				sb.WriteByte(' ')
			}
			if cell.Matched {
				sb.WriteString("[" + cell.Symbol.Display() + "]")
			} else {
				sb.WriteString(" " + cell.Symbol.Display() + " ")
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
