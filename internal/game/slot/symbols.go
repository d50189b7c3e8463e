package slot

import (
	"strings"
)

// Symbol 游戏符号ID
type Symbol int

// 符号ID定义，百搭固定为0
const (
	SymbolWild    Symbol = iota // 百搭
	SymbolPumpkin               // 南瓜
	SymbolWheat                 // 小麦
	SymbolApple                 // 苹果
	SymbolCorn                  // 玉米
	SymbolGrapes                // 葡萄
	SymbolMaple                 // 枫叶
	SymbolCoins                 // 金币
	SymbolCherry                // 樱桃
	SymbolBanana                // 香蕉
	SymbolOrange                // 橙子
)

// SymbolCount 符号总数（含百搭）
const SymbolCount = 11

// SymbolInfo 符号信息
type SymbolInfo struct {
	ID          Symbol `json:"id"`
	Name        string `json:"name"`
	Display     string `json:"display"` // 显示字符
	Description string `json:"description"`
	IsWild      bool   `json:"is_wild"`
}

var symbolInfos = [SymbolCount]SymbolInfo{
	{ID: SymbolWild, Name: "WILD", Display: "🌟", Description: "百搭 - 可替代任意符号，中奖时赔付翻倍", IsWild: true},
	{ID: SymbolPumpkin, Name: "PUMPKIN", Display: "🎃", Description: "南瓜"},
	{ID: SymbolWheat, Name: "WHEAT", Display: "🌾", Description: "小麦"},
	{ID: SymbolApple, Name: "APPLE", Display: "🍎", Description: "苹果"},
	{ID: SymbolCorn, Name: "CORN", Display: "🌽", Description: "玉米"},
	{ID: SymbolGrapes, Name: "GRAPES", Display: "🍇", Description: "葡萄"},
	{ID: SymbolMaple, Name: "MAPLE", Display: "🍁", Description: "枫叶"},
	{ID: SymbolCoins, Name: "COINS", Display: "💰", Description: "金币"},
	{ID: SymbolCherry, Name: "CHERRY", Display: "🍒", Description: "樱桃"},
	{ID: SymbolBanana, Name: "BANANA", Display: "🍌", Description: "香蕉"},
	{ID: SymbolOrange, Name: "ORANGE", Display: "🍊", Description: "橙子"},
}

// GetSymbolInfo 获取符号信息
func GetSymbolInfo(s Symbol) SymbolInfo {
	if s.Valid() {
		return symbolInfos[s]
	}
	return SymbolInfo{
		ID:          s,
		Name:        "UNKNOWN",
		Display:     "?",
		Description: "未知符号",
	}
}

// AllSymbols 返回全部符号（含百搭）
func AllSymbols() []Symbol {
	symbols := make([]Symbol, SymbolCount)
	for i := range symbols {
		symbols[i] = Symbol(i)
	}
	return symbols
}

// ParseSymbol 根据名称或显示字符解析符号
func ParseSymbol(v string) (Symbol, bool) {
	v = strings.TrimSpace(v)
	for _, info := range symbolInfos {
		if strings.EqualFold(info.Name, v) || info.Display == v {
			return info.ID, true
		}
	}
	return 0, false
}

// Valid 是否为已定义的符号
func (s Symbol) Valid() bool {
	return s >= 0 && int(s) < SymbolCount
}

// IsWild 是否为百搭
func (s Symbol) IsWild() bool {
	return s == SymbolWild
}

// String 返回符号名称
func (s Symbol) String() string {
	return GetSymbolInfo(s).Name
}

// Display 返回符号显示字符
func (s Symbol) Display() string {
	return GetSymbolInfo(s).Display
}
