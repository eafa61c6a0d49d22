package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"breakoutbot/src/config"
	"breakoutbot/src/trading"

	"github.com/xpwu/go-cmd/arg"
	"github.com/xpwu/go-cmd/cmd"
)

// RegisterLiveCmd 注册实盘命令
func RegisterLiveCmd() {
	var base, quote, timeframe, quantity, session string
	var window int
	var multiplier float64
	var dry bool
	var replay string

	cmd.RegisterCmd("live", "trade the breakout strategy on live bars (Ctrl+C flattens and exits)", func(args *arg.Arg) {
		args.String(&base, "base", "base currency (e.g., BTC)")
		args.String(&quote, "quote", "quote currency (e.g., USDT)")
		args.String(&timeframe, "t", "timeframe (default: trading.timeframe in config)")
		args.String(&quantity, "q", "order quantity in base asset")
		args.String(&session, "session", "session length, e.g. 11h")
		args.Int(&window, "w", "lookback window W")
		args.Float64(&multiplier, "v", "volume multiplier V")
		args.Bool(&dry, "dry", "simulate fills locally instead of placing orders")
		args.String(&replay, "replay", "replay bars from a CSV file (implies -dry)")
		args.Parse()

		if err := applySymbol(base, quote); err != nil {
			fail("Invalid arguments", err)
		}
		tc := &config.AppConfig.Trading
		if timeframe != "" {
			tc.Timeframe = timeframe
		}
		if quantity != "" {
			tc.Quantity = quantity
		}
		if session != "" {
			tc.Session = session
		}
		if window > 0 {
			config.AppConfig.Strategy.LookbackWindow = window
		}
		if multiplier > 0 {
			config.AppConfig.Strategy.VolumeMultiplier = multiplier
		}

		ctx, cancel := signalContext()
		defer cancel()

		fmt.Println("🤖 Breakout Live Trading")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Printf("📊 Symbol: %s\n", tc.Symbol)
		fmt.Printf("⏰ Timeframe: %s\n", tc.Timeframe)
		fmt.Printf("📦 Quantity: %s\n", tc.Quantity)
		fmt.Printf("⏳ Session: %s\n", tc.Session)
		switch {
		case replay != "":
			fmt.Printf("🧪 Replay mode: %s\n", replay)
		case dry:
			fmt.Println("🧪 Dry Run mode")
			fmt.Println("💡 Using real-time data with simulated orders")
		default:
			fmt.Println("🔴 Live trading mode")
			fmt.Println("⚠️  WARNING: This will use real money!")
		}
		fmt.Println("Press Ctrl+C to stop...")

		ts := openSystem(ctx)
		defer ts.Close()

		report, err := ts.RunLive(ctx, trading.LiveOptions{DryRun: dry, ReplayFile: replay})
		if report != nil {
			trading.PrintLiveReport(report)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			fail("Live trading failed", err)
		}
		fmt.Println("✅ Session finished")
	})
}

// RegisterCollectCmd 注册账户数据采集命令
func RegisterCollectCmd() {
	var session string
	var ratio float64

	cmd.RegisterCmd("collect", "record fills and balances from the account stream into the database", func(args *arg.Arg) {
		args.String(&session, "session", "session length, e.g. 11h6m")
		args.Float64(&ratio, "ratio", "alert when free balance drops below initial x ratio")
		args.Parse()

		if session != "" {
			config.AppConfig.Collector.Session = session
		}
		if ratio > 0 {
			config.AppConfig.Collector.AlertRatio = ratio
		}

		ctx, cancel := signalContext()
		defer cancel()

		fmt.Println("🗂️ Account Collector")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Printf("⏳ Session: %s\n", config.AppConfig.Collector.Session)
		fmt.Printf("👀 Watching: %v (alert below %.0f%%)\n",
			config.AppConfig.Collector.WatchedAssets, config.AppConfig.Collector.AlertRatio*100)

		ts := openSystem(ctx)
		defer ts.Close()

		stats, err := ts.RunCollector(ctx)
		fmt.Printf("📊 Events: %d  Fills: %d  Snapshots: %d  Alerts: %d  Dropped: %d\n",
			stats.Events, stats.Fills, stats.Assets, stats.Alerts, stats.Dropped)
		if err != nil && !errors.Is(err, context.Canceled) {
			fail("Collector failed", err)
		}
		fmt.Println("✅ Collector finished")
	})
}
