package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"mtf-signal-scanner/internal/model"
)

// 各市场类别在报文中的标题与排列顺序
var marketHeadings = map[model.MarketType]string{
	model.MarketUSEquity:    "🇺🇸 美股买入信号",
	model.MarketHKEquity:    "🇭🇰 港股买入信号",
	model.MarketChinaEquity: "🇨🇳 A股买入信号",
	model.MarketCrypto:      "₿ 加密货币买入信号",
}

var marketOrder = map[model.MarketType]int{
	model.MarketUSEquity:    0,
	model.MarketHKEquity:    1,
	model.MarketChinaEquity: 2,
	model.MarketCrypto:      3,
}

type datedEntry struct {
	symbol string
	date   time.Time
}

// BuildDigest 把各市场的扫描结果汇总成 Markdown 摘要。
// 布尔型结果按标的名排列；日期型结果先按 recencyDays 过滤，
// 再在市场内按日期倒序排列。所有市场都安静时输出一行说明。
func BuildDigest(markets []model.MarketResult, now time.Time, recencyDays int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*📈 Universal MTF 策略信号 - %s*\n\n", now.Format("2006-01-02"))

	sorted := make([]model.MarketResult, len(markets))
	copy(sorted, markets)
	sort.SliceStable(sorted, func(i, j int) bool {
		oi, oj := marketOrder[sorted[i].Type], marketOrder[sorted[j].Type]
		if oi != oj {
			return oi < oj
		}
		return sorted[i].Name < sorted[j].Name
	})

	cutoff := now.AddDate(0, 0, -recencyDays)

	hasSignal := false
	for _, m := range sorted {
		var fired []string
		var dated []datedEntry
		for symbol, res := range m.Results {
			switch {
			case res.Dated():
				// 过旧的历史信号不进摘要
				if res.Date.Before(cutoff) {
					continue
				}
				dated = append(dated, datedEntry{symbol: symbol, date: res.Date})
			case res.Fired:
				fired = append(fired, symbol)
			}
		}
		if len(fired) == 0 && len(dated) == 0 {
			continue
		}
		hasSignal = true

		heading, ok := marketHeadings[m.Type]
		if !ok {
			heading = m.Name
		}
		fmt.Fprintf(&b, "*%s:*\n", heading)

		if len(fired) > 0 {
			sort.Strings(fired)
			b.WriteString("`" + strings.Join(fired, "`, `") + "`\n")
		}

		sort.Slice(dated, func(i, j int) bool {
			if !dated[i].date.Equal(dated[j].date) {
				return dated[i].date.After(dated[j].date)
			}
			return dated[i].symbol < dated[j].symbol
		})
		for _, e := range dated {
			fmt.Fprintf(&b, "`%s` %s\n", e.symbol, e.date.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}

	if !hasSignal {
		b.WriteString("今日无任何市场触发买入信号。")
	}

	return strings.TrimRight(b.String(), "\n")
}
