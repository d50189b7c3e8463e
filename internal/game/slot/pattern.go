package slot

import (
	"fmt"
)

// LineType 支付线类型
type LineType int

const (
	LineHorizontal LineType = iota // 横线
	LineVertical                   // 竖线
	LineDiagonal                   // 对角线
)

// String 支付线类型名称
func (t LineType) String() string {
	switch t {
	case LineHorizontal:
		return "horizontal"
	case LineVertical:
		return "vertical"
	case LineDiagonal:
		return "diagonal"
	default:
		return "unknown"
	}
}

// Payline 支付线
type Payline struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Type      LineType   `json:"type"`
	Positions []Position `json:"positions"`
}

// PaylineTable 支付线表，构造后只读
type PaylineTable struct {
	size  int
	lines []Payline
}

// NewPaylineTable 创建支付线表，校验每条线长度与坐标范围
func NewPaylineTable(size int, lines ...Payline) (*PaylineTable, error) {
	if size < MinRunLength {
		return nil, fmt.Errorf("%w: 网格边长 %d 小于 %d", ErrInvalidPayline, size, MinRunLength)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: 支付线表为空", ErrInvalidPayline)
	}
	table := &PaylineTable{
		size:  size,
		lines: make([]Payline, len(lines)),
	}
	for i, line := range lines {
		if len(line.Positions) < MinRunLength {
			return nil, fmt.Errorf("%w: 第 %d 条支付线长度 %d 不足", ErrInvalidPayline, i, len(line.Positions))
		}
		for _, p := range line.Positions {
			if p.Row < 0 || p.Row >= size || p.Col < 0 || p.Col >= size {
				return nil, fmt.Errorf("%w: 第 %d 条支付线坐标 %s 越界", ErrInvalidPayline, i, p)
			}
		}
		positions := make([]Position, len(line.Positions))
		copy(positions, line.Positions)
		line.ID = i
		line.Positions = positions
		table.lines[i] = line
	}
	return table, nil
}

// DefaultPaylineTable 默认6×6支付线表：6条横线、第0/2/4列、主对角线、副对角线、短对角线
func DefaultPaylineTable() *PaylineTable {
	lines := make([]Payline, 0, 12)
	for r := 0; r < GridSize; r++ {
		lines = append(lines, createHorizontalLine(r, GridSize))
	}
	for _, c := range []int{0, 2, 4} {
		lines = append(lines, createVerticalLine(c, GridSize))
	}
	lines = append(lines,
		createDiagonalLine("main_diagonal", Position{0, 0}, 1, 1, GridSize),
		createDiagonalLine("anti_diagonal", Position{0, GridSize - 1}, 1, -1, GridSize),
		createDiagonalLine("short_diagonal", Position{0, 2}, 1, 1, 4),
	)

	table, err := NewPaylineTable(GridSize, lines...)
	if err != nil {
		panic(err)
	}
	return table
}

// Size 网格边长
func (t *PaylineTable) Size() int {
	return t.size
}

// Len 支付线数量
func (t *PaylineTable) Len() int {
	return len(t.lines)
}

// Lines 返回支付线副本
func (t *PaylineTable) Lines() []Payline {
	out := make([]Payline, len(t.lines))
	for i, line := range t.lines {
		out[i] = line
		out[i].Positions = append([]Position(nil), line.Positions...)
	}
	return out
}

// Line 按索引取支付线
func (t *PaylineTable) Line(i int) (Payline, bool) {
	if i < 0 || i >= len(t.lines) {
		return Payline{}, false
	}
	line := t.lines[i]
	line.Positions = append([]Position(nil), line.Positions...)
	return line, true
}

// createHorizontalLine 创建横线
func createHorizontalLine(row, length int) Payline {
	positions := make([]Position, length)
	for c := 0; c < length; c++ {
		positions[c] = Position{Row: row, Col: c}
	}
	return Payline{Name: fmt.Sprintf("row_%d", row), Type: LineHorizontal, Positions: positions}
}

// createVerticalLine 创建竖线
func createVerticalLine(col, length int) Payline {
	positions := make([]Position, length)
	for r := 0; r < length; r++ {
		positions[r] = Position{Row: r, Col: col}
	}
	return Payline{Name: fmt.Sprintf("col_%d", col), Type: LineVertical, Positions: positions}
}

// createDiagonalLine 从起点按步长创建对角线
func createDiagonalLine(name string, start Position, dRow, dCol, length int) Payline {
	positions := make([]Position, length)
	for i := 0; i < length; i++ {
		positions[i] = Position{Row: start.Row + i*dRow, Col: start.Col + i*dCol}
	}
	return Payline{Name: name, Type: LineDiagonal, Positions: positions}
}

// EvaluatePayline 计算单条支付线上最长的中奖连线
//
// 连线的基准符号必须是非百搭符号；以百搭开头时基准取其后第一个非百搭符号。
// 全部为百搭的连线不算中奖。长度相同时保留最靠前的一条。
func EvaluatePayline(index int, positions []Position, grid Grid) PaylineResult {
	result := PaylineResult{
		PaylineIndex:     index,
		MatchedPositions: []Position{},
		MatchedSymbols:   []Symbol{},
	}

	// 越界坐标直接跳过
	valid := make([]Position, 0, len(positions))
	for _, p := range positions {
		if grid.InBounds(p) {
			valid = append(valid, p)
		}
	}
	n := len(valid)
	if n < MinRunLength {
		return result
	}

	symbols := make([]Symbol, n)
	for i, p := range valid {
		symbols[i] = grid.At(p).Symbol
	}

	bestStart, bestLen, bestWilds := -1, 0, 0
	var bestBase Symbol
	for i := 0; i <= n-MinRunLength; i++ {
		base := symbols[i]
		if base.IsWild() {
			j := i + 1
			for j < n && symbols[j].IsWild() {
				j++
			}
			if j == n {
				// 余下全是百搭，没有可确定的基准符号
				break
			}
			base = symbols[j]
		}

		length, wilds := 0, 0
		for k := i; k < n; k++ {
			s := symbols[k]
			if s.IsWild() {
				wilds++
			} else if s != base {
				break
			}
			length++
		}

		if length >= MinRunLength && length > bestLen {
			bestStart, bestLen, bestWilds, bestBase = i, length, wilds, base
		}
	}

	if bestStart < 0 {
		return result
	}

	result.HasWin = true
	result.RunLength = bestLen
	result.WildCount = bestWilds
	result.UsedWild = bestWilds > 0
	result.BaseSymbol = bestBase
	result.Payout = bestLen
	if result.UsedWild {
		result.Payout *= WildMultiplier
	}
	result.MatchedPositions = append(result.MatchedPositions, valid[bestStart:bestStart+bestLen]...)
	result.MatchedSymbols = append(result.MatchedSymbols, symbols[bestStart:bestStart+bestLen]...)
	return result
}
