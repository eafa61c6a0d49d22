package cmd

import (
	"context"
	"fmt"
	"math"
	"time"

	"breakoutbot/src/bar"
	"breakoutbot/src/config"
	"breakoutbot/src/timeframes"
	"breakoutbot/src/trading"

	"github.com/shopspring/decimal"
	"github.com/xpwu/go-cmd/arg"
	"github.com/xpwu/go-cmd/cmd"
)

// RegisterFetchCmd 注册K线下载命令
func RegisterFetchCmd() {
	var base, quote, timeframe, startDate, endDate, output string
	var verbose bool

	cmd.RegisterCmd("fetch", "download closed bars for [start, end) and optionally save them as CSV", func(args *arg.Arg) {
		args.String(&base, "base", "base currency (e.g., BTC)")
		args.String(&quote, "quote", "quote currency (e.g., USDT)")
		args.String(&timeframe, "t", "timeframe (default: backtest.timeframe in config)")
		args.String(&startDate, "start", "start date (required)")
		args.String(&endDate, "end", "end date, exclusive (default: now)")
		args.String(&output, "o", "output CSV file")
		args.Bool(&verbose, "v", "print the latest bars")
		args.Parse()

		if err := applySymbol(base, quote); err != nil {
			fail("Invalid arguments", err)
		}
		if timeframe == "" {
			timeframe = config.AppConfig.Backtest.Timeframe
		}
		tf, err := timeframes.ParseTimeframe(timeframe)
		if err != nil {
			fail("Invalid timeframe", err)
		}
		if startDate == "" {
			fmt.Println("❌ Error: start date is required")
			fmt.Println("💡 Usage: breakoutbot fetch -base BTC -quote USDT -t 15m -start 2024-01-01 [-end 2024-02-01] [-o bars.csv]")
			return
		}
		start, err := parseDate(startDate)
		if err != nil {
			fail("Invalid start date", err)
		}
		end := time.Now().UTC()
		if endDate != "" {
			if end, err = parseDate(endDate); err != nil {
				fail("Invalid end date", err)
			}
		}

		ctx, cancel := signalContext()
		defer cancel()

		symbol := config.AppConfig.Trading.Symbol
		fmt.Printf("📊 K线数据下载\n")
		fmt.Printf("================================\n")
		fmt.Printf("🔸 交易对: %s\n", symbol)
		fmt.Printf("🔸 时间周期: %s\n", tf)
		fmt.Printf("🔸 时间范围: %s -> %s\n", formatTime(start), formatTime(end))
		fmt.Println()

		ts := openSystem(ctx)
		defer ts.Close()

		fmt.Print("🔄 正在获取K线数据...")
		begin := time.Now()
		bars, err := ts.FetchBars(ctx, symbol, tf, start, end, output)
		if err != nil {
			fmt.Println()
			fail("获取失败", err)
		}
		fmt.Printf(" 完成! (耗时: %v)\n", time.Since(begin))

		if len(bars) == 0 {
			fmt.Println("⚠️ 未获取到数据")
			return
		}
		if expected, err := tf.BarsBetween(start, end); err == nil && expected > len(bars) {
			fmt.Printf("⚠️ 预期 %d 条，缺失 %d 条\n", expected, expected-len(bars))
		}

		fmt.Printf("✅ 成功获取 %d 条K线数据\n\n", len(bars))
		last := bars[len(bars)-1]
		fmt.Println("📈 数据概览:")
		fmt.Printf("├─ 最早时间: %s\n", formatTime(bars[0].Timestamp))
		fmt.Printf("├─ 最新时间: %s\n", formatTime(last.Timestamp))
		fmt.Printf("├─ 最新价格: %s\n", last.Close.StringFixed(2))
		fmt.Printf("└─ 最新成交量: %s\n", formatVolume(last.Volume))
		if output != "" {
			fmt.Printf("💾 已保存到 %s\n", output)
		}

		if verbose {
			printBars(bars[max(0, len(bars)-5):])
		}
	})
}

func printBars(bars []bar.Bar) {
	fmt.Println()
	fmt.Println("📋 详细K线数据:")
	fmt.Println("时间                  | 开盘价    | 最高价    | 最低价    | 收盘价    | 成交量")
	fmt.Println("---------------------|----------|----------|----------|----------|----------")
	for _, b := range bars {
		fmt.Printf("%s | %8s | %8s | %8s | %8s | %8s\n",
			formatTime(b.Timestamp), b.Open.StringFixed(2), b.High.StringFixed(2),
			b.Low.StringFixed(2), b.Close.StringFixed(2), formatVolume(b.Volume))
	}
}

// formatTime 格式化时间
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

// formatVolume 格式化成交量
func formatVolume(volume decimal.Decimal) string {
	thousand := decimal.NewFromInt(1000)
	if volume.GreaterThan(thousand) {
		return volume.Div(thousand).StringFixed(1) + "K"
	}
	return volume.StringFixed(2)
}

// RegisterReportCmd 注册实盘报告命令
func RegisterReportCmd() {
	var base, quote, startDate, endDate string

	cmd.RegisterCmd("report", "compute metrics from recorded fills in the database", func(args *arg.Arg) {
		args.String(&base, "base", "base currency (e.g., BTC)")
		args.String(&quote, "quote", "quote currency (e.g., USDT)")
		args.String(&startDate, "start", "only fills at or after this date")
		args.String(&endDate, "end", "only fills before this date")
		args.Parse()

		if err := applySymbol(base, quote); err != nil {
			fail("Invalid arguments", err)
		}
		var start, end time.Time
		var err error
		if startDate != "" {
			if start, err = parseDate(startDate); err != nil {
				fail("Invalid start date", err)
			}
		}
		if endDate != "" {
			if end, err = parseDate(endDate); err != nil {
				fail("Invalid end date", err)
			}
		}

		ctx, cancel := signalContext()
		defer cancel()

		ts := openSystem(ctx)
		defer ts.Close()

		symbol := config.AppConfig.Trading.Symbol
		report, records, err := ts.Report(ctx, symbol, start, end)
		if err != nil {
			fail("Report failed", err)
		}
		trading.PrintTradeReport(symbol, records, report)
	})
}

// RegisterPingCmd 注册ping测试命令
func RegisterPingCmd() {
	var verbose bool
	var timeout int

	cmd.RegisterCmd("ping", "test connectivity to the exchange API server", func(args *arg.Arg) {
		args.Bool(&verbose, "v", "verbose output with detailed information")
		args.Int(&timeout, "t", "timeout in seconds (default: 10)")
		args.Parse()

		if timeout <= 0 {
			timeout = 10
		}

		ctx, cancel := signalContext()
		defer cancel()
		ctx, cancelTimeout := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancelTimeout()

		if verbose {
			fmt.Println("🌐 交易所API连通性测试")
			fmt.Println("================================")
			fmt.Printf("📡 目标服务器: %s\n", config.AppConfig.Binance.DataBaseURL)
			fmt.Printf("⏰ 超时时间: %d秒\n", timeout)
			fmt.Println()
		}

		ts := openSystem(ctx)
		defer ts.Close()

		latency, serverTime, err := ts.Ping(ctx)
		if err != nil {
			fmt.Printf("❌ Ping test failed: %v\n", err)
			return
		}

		if verbose {
			fmt.Printf("✅ 服务器响应正常\n")
			fmt.Printf("⏱️ 响应延迟: %v\n", latency)
			fmt.Printf("🕐 服务器时间: %s\n", serverTime.Format("2006-01-02 15:04:05 MST"))

			diff := int64(math.Abs(float64(serverTime.Unix() - time.Now().Unix())))
			fmt.Printf("⏰ 本地时间差: %ds", diff)
			if diff > 60 {
				fmt.Printf(" ⚠️ 时间差较大，可能影响API调用")
			}
			fmt.Println()

			fmt.Printf("🌍 网络质量: ")
			switch {
			case latency < 100*time.Millisecond:
				fmt.Println("优秀")
			case latency < 300*time.Millisecond:
				fmt.Println("良好")
			case latency < time.Second:
				fmt.Println("一般")
			default:
				fmt.Println("较差")
			}
		}
		fmt.Println("✅ Ping test successful!")
	})
}
