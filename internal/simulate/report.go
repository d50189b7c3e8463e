package simulate

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	apperrors "github.com/wfunc/harvest-slot/internal/errors"
)

// 输出格式
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

var lang = language.English

// Render 按格式输出报告
func Render(w io.Writer, r *Report, format string) error {
	var out []byte
	switch strings.ToLower(format) {
	case "", FormatTable:
		out = []byte(r.Table())
	case FormatYAML:
		b, err := yaml.Marshal(r)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrUnknown, "marshal yaml")
		}
		out = b
	case FormatJSON:
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrUnknown, "marshal json")
		}
		out = append(b, '\n')
	default:
		return apperrors.Newf(apperrors.ErrInvalidParam, "unknown format %q", format)
	}
	_, err := w.Write(out)
	return err
}

// Table 表格形式的报告
func (r *Report) Table() string {
	p := message.NewPrinter(lang)

	keys := []string{
		"总局数", "下注", "连消",
		"总下注", "总派彩", "返还率", "返还率 95% 区间",
		"中奖率", "中奖率 95% 区间", "中奖局数", "大奖局数", "百搭加倍局数",
		"最高倍数", "平均判奖步数", "单局回报标准差", "耗时", "每秒局数",
	}
	cascade := "关闭"
	if r.CascadeEnabled {
		cascade = "开启"
	}
	msg := map[string]string{
		"总局数":        p.Sprintf("%d", r.Spins),
		"下注":         fmt.Sprintf("%s x %d", r.BaseBet, r.BetMultiplier),
		"连消":         cascade,
		"总下注":        r.TotalStaked.StringFixed(2),
		"总派彩":        r.TotalPaid.StringFixed(2),
		"返还率":        p.Sprintf("%.2f %%", 100*r.RTP),
		"返还率 95% 区间": p.Sprintf("[%.2f%%, %.2f%%]", 100*r.RTPCI.Lo, 100*r.RTPCI.Hi),
		"中奖率":        p.Sprintf("%.2f %%", 100*r.HitRate),
		"中奖率 95% 区间": p.Sprintf("[%.2f%%, %.2f%%]", 100*r.HitRateCI.Lo, 100*r.HitRateCI.Hi),
		"中奖局数":       p.Sprintf("%d", r.WinRounds),
		"大奖局数":       p.Sprintf("%d", r.BigWins),
		"百搭加倍局数":     p.Sprintf("%d", r.WildBonuses),
		"最高倍数":       p.Sprintf("%d", r.MaxMultiplier),
		"平均判奖步数":     p.Sprintf("%.3f", r.AvgCascadeSteps),
		"单局回报标准差":    p.Sprintf("%.3f", r.StdReturn),
		"耗时":         r.Duration.Round(time.Millisecond).String(),
		"每秒局数":       p.Sprintf("%d", int64(r.SpinsPerSecond())),
	}
	if r.Canceled {
		keys = append(keys, "状态")
		msg["状态"] = "已中断"
	}

	var b strings.Builder
	b.WriteString(fmtTable("丰收连线 模拟报告", keys, msg))

	if len(r.Distribution) > 0 {
		dk := make([]string, 0, len(r.Distribution))
		dm := make(map[string]string, len(r.Distribution))
		for _, bucket := range r.Distribution {
			k := p.Sprintf("x%d", bucket.Multiplier)
			if bucket.Multiplier == 0 {
				k = "未中奖"
			}
			dk = append(dk, k)
			dm[k] = p.Sprintf("%d (%.2f%%)", bucket.Rounds, 100*bucket.Share)
		}
		b.WriteString(fmtTable("最高倍数分布", dk, dm))
	}
	return b.String()
}

// fmtTable 两列表格，按显示宽度对齐
func fmtTable(title string, keys []string, msg map[string]string) string {
	maxKeyLen := 0
	maxValLen := 0
	for _, k := range keys {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(msg[k]); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)
	if titleW > totalInner {
		maxValLen += titleW - totalInner
		totalInner = titleW
	}

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", totalInner) + "+\n"

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	var b strings.Builder
	b.WriteString(top)
	b.WriteString("|" + blank(left) + title + blank(right) + "|\n")
	b.WriteString(divider)
	for _, k := range keys {
		v := msg[k]
		b.WriteString("| " + k + blank(maxKeyLen-2-runewidth.StringWidth(k)) +
			" | " + v + blank(maxValLen-2-runewidth.StringWidth(v)) + " |\n")
	}
	b.WriteString(divider)
	return b.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
