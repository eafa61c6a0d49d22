package metrics

import (
	"fmt"
	"time"
)

// Options 指标计算参数
type Options struct {
	BarsPerYear float64 // 每年K线数，15m 为 365.25*96
	RiskFree    float64 // 无风险利率
	Units       float64 // 每笔下单数量，用于累计盈亏
}

// Report 指标汇总行，回测与实盘报告共用
type Report struct {
	Multiple         float64 `json:"multiple"`
	CAGR             Value   `json:"cagr"`
	Volatility       Value   `json:"volatility"`
	Sharpe           Value   `json:"sharpe"`
	MaxDrawdown      Value   `json:"max_drawdown"`
	TradeCount       int     `json:"trade_count"`
	CumulativeProfit float64 `json:"cumulative_profit"`
	WinRatio         Value   `json:"win_ratio"`
}

// Evaluate 由逐K线收益序列与成交记录计算指标
func Evaluate(returns []float64, tradeCount int, trades []Trade, opts Options) Report {
	cagr := CAGR(returns, opts.BarsPerYear)
	vol := Volatility(returns, opts.BarsPerYear)
	return Report{
		Multiple:         Multiple(returns),
		CAGR:             cagr,
		Volatility:       vol,
		Sharpe:           Sharpe(cagr, vol, opts.RiskFree),
		MaxDrawdown:      MaxDrawdown(returns),
		TradeCount:       tradeCount,
		CumulativeProfit: CumulativeProfit(trades, opts.Units),
		WinRatio:         WinRatio(trades),
	}
}

// EvaluateTrades 由持久化的成交记录计算指标（实盘报告）
// 每年样本数按成交覆盖的时间跨度折算
func EvaluateTrades(trades []Trade, fee float64, opts Options) Report {
	paired := Paired(trades)
	returns := TradeReturns(paired, fee)

	if len(paired) >= 2 {
		if years := yearsBetween(paired[0].Time, paired[len(paired)-1].Time); years > 0 {
			opts.BarsPerYear = float64(len(returns)) / years
		}
	}
	return Evaluate(returns, len(paired), paired, opts)
}

// String 单行文本输出
func (r Report) String() string {
	return fmt.Sprintf("multiple=%.4f cagr=%s vol=%s sharpe=%s max_dd=%s trades=%d profit=%.4f win_ratio=%s",
		r.Multiple, r.CAGR, r.Volatility, r.Sharpe, r.MaxDrawdown, r.TradeCount, r.CumulativeProfit, r.WinRatio)
}

// yearsBetween 两个时间点之间的年数
func yearsBetween(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24 / 365.25
}
