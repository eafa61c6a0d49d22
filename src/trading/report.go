package trading

import (
	"fmt"
	"strings"

	"breakoutbot/src/metrics"
)

const ruler = "============================================================"

// PrintBacktestResults 打印回测结果
func PrintBacktestResults(r *BacktestReport) {
	fmt.Println("\n" + ruler)
	fmt.Println("📊 BACKTEST RESULTS")
	fmt.Println(ruler)
	fmt.Printf("Strategy: Breakout (W=%d, V=%.2f)\n", r.Params.LookbackWindow, r.Params.VolumeMultiplier)
	fmt.Printf("Symbol: %s\n", r.Symbol)
	fmt.Printf("Timeframe: %s\n", r.Timeframe)
	fmt.Printf("Bars: %d (evaluated %d, skipped %d)\n", r.Bars, len(r.Result.Returns), r.Result.Skipped)
	if n := len(r.Result.Times); n > 0 {
		fmt.Printf("Period: %s -> %s\n",
			r.Result.Times[0].Format("2006-01-02 15:04"),
			r.Result.Times[n-1].Format("2006-01-02 15:04"))
	}

	printMetrics(r.Metrics)

	if n := len(r.Result.Trades); n > 0 {
		fmt.Println("\n📋 RECENT TRADES (Last 10)")
		fmt.Println(strings.Repeat("-", 40))
		for _, t := range r.Result.Trades[max(0, n-10):] {
			fmt.Printf("%s %4s %14.5f\n", t.Time.Format("01-02 15:04"), t.Side, t.Price)
		}
	}
	fmt.Println("\n" + ruler)
}

// PrintSweepResults 打印参数扫描排名
func PrintSweepResults(r *SweepReport) {
	fmt.Println("\n" + ruler)
	fmt.Printf("🔍 SWEEP RESULTS (run %s)\n", r.RunID)
	fmt.Println(ruler)
	fmt.Printf("Symbol: %s\n", r.Symbol)
	fmt.Printf("Combinations: %d (failed %d)\n", len(r.Results), r.Failed)
	fmt.Printf("Ranked by: %s\n\n", r.Key)

	fmt.Printf("%4s %4s %6s %7s %10s %10s %10s %10s %10s\n",
		"#", "W", "V", "trades", "multiple", "cagr", "sharpe", "max_dd", "win")
	fmt.Println(strings.Repeat("-", 80))
	for i, res := range r.Ranked {
		if res.Failed() {
			fmt.Printf("%4d %4d %6.2f ❌ %s\n", i+1, res.LookbackWindow, res.VolumeMultiplier, res.Err)
			continue
		}
		fmt.Printf("%4d %4d %6.2f %7d %10.4f %10s %10s %10s %10s\n",
			i+1, res.LookbackWindow, res.VolumeMultiplier, res.TradeCount,
			res.Multiple, res.CAGR, res.Sharpe, res.MaxDrawdown, res.WinRatio)
	}
	fmt.Println("\n" + ruler)
}

// PrintLiveReport 打印实盘会话汇总
func PrintLiveReport(r *LiveReport) {
	fmt.Println("\n" + ruler)
	fmt.Println("📡 SESSION SUMMARY")
	fmt.Println(ruler)
	s := r.Stats
	fmt.Printf("Updates: %d  Closed bars: %d  Skipped: %d  Malformed: %d\n", s.Updates, s.Bars, s.Skipped, s.Malformed)
	fmt.Printf("Signals: %d  Orders: %d  Rejected: %d\n", s.Signals, s.Orders, s.Rejected)
	fmt.Printf("Final position: %s\n", r.Position)
	if p := r.Paper; p != nil {
		fmt.Println("\n🧪 PAPER ACCOUNT")
		fmt.Println(strings.Repeat("-", 30))
		fmt.Printf("Position: %s\n", p.Position.String())
		fmt.Printf("Cash: %s\n", p.Cash.StringFixed(2))
		fmt.Printf("Fees: %s\n", p.Fees.StringFixed(4))
		fmt.Printf("Equity: %s\n", p.Equity.StringFixed(2))
		fmt.Printf("Orders: %d\n", p.Orders)
	}
	fmt.Println(ruler)
}

// PrintTradeReport 打印实盘成交指标
func PrintTradeReport(symbol string, records int, m metrics.Report) {
	fmt.Println("\n" + ruler)
	fmt.Println("📊 LIVE TRADING REPORT")
	fmt.Println(ruler)
	fmt.Printf("Symbol: %s\n", symbol)
	fmt.Printf("Trade records: %d\n", records)
	printMetrics(m)
	fmt.Println("\n" + ruler)
}

func printMetrics(m metrics.Report) {
	fmt.Println("\n📈 PERFORMANCE METRICS")
	fmt.Println(strings.Repeat("-", 30))
	fmt.Printf("Multiple: %.4f\n", m.Multiple)
	fmt.Printf("CAGR: %s\n", m.CAGR)
	fmt.Printf("Volatility: %s\n", m.Volatility)
	fmt.Printf("Sharpe: %s\n", m.Sharpe)
	fmt.Printf("Max Drawdown: %s\n", m.MaxDrawdown)

	fmt.Println("\n📊 TRADING STATISTICS")
	fmt.Println(strings.Repeat("-", 30))
	fmt.Printf("Total Trades: %d\n", m.TradeCount)
	fmt.Printf("Win Ratio: %s\n", m.WinRatio)
	fmt.Printf("Cumulative Profit: %.4f\n", m.CumulativeProfit)
}
