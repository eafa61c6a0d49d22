package cmd

import (
	"fmt"
	"strings"

	"breakoutbot/src/config"
	"breakoutbot/src/trading"

	"github.com/xpwu/go-cmd/arg"
	"github.com/xpwu/go-cmd/cmd"
)

// backtestFlags 回测与参数扫描共用的参数
type backtestFlags struct {
	base      string
	quote     string
	timeframe string
	startDate string
	endDate   string
	dataFile  string
	fee       float64
}

func (f *backtestFlags) register(args *arg.Arg) {
	args.String(&f.base, "base", "base currency (e.g., BTC)")
	args.String(&f.quote, "quote", "quote currency (e.g., USDT)")
	args.String(&f.timeframe, "t", "timeframe (default: backtest.timeframe in config)")
	args.String(&f.startDate, "start", "start date (YYYY-MM-DD or YYYY-MM-DD HH:MM:SS)")
	args.String(&f.endDate, "end", "end date, exclusive")
	args.String(&f.dataFile, "file", "read bars from CSV instead of the exchange")
	args.Float64(&f.fee, "fee", "cost deducted once per executed signal")
}

// apply 把命令行参数写入全局配置
func (f *backtestFlags) apply() error {
	if err := applySymbol(f.base, f.quote); err != nil {
		return err
	}
	bt := &config.AppConfig.Backtest
	if f.timeframe != "" {
		bt.Timeframe = f.timeframe
	}
	if f.startDate != "" {
		bt.StartDate = f.startDate
	}
	if f.endDate != "" {
		bt.EndDate = f.endDate
	}
	if f.dataFile != "" {
		bt.DataFile = f.dataFile
	}
	if f.fee > 0 {
		bt.Fee = f.fee
	}
	return nil
}

// RegisterBacktestCmd 注册回测命令
func RegisterBacktestCmd() {
	var flags backtestFlags
	var window int
	var multiplier float64

	cmd.RegisterCmd("backtest", "backtest the volatility breakout strategy on historical bars", func(args *arg.Arg) {
		flags.register(args)
		args.Int(&window, "w", "lookback window W")
		args.Float64(&multiplier, "v", "volume multiplier V")
		args.Parse()

		if err := flags.apply(); err != nil {
			fail("Invalid arguments", err)
		}
		if window > 0 {
			config.AppConfig.Strategy.LookbackWindow = window
		}
		if multiplier > 0 {
			config.AppConfig.Strategy.VolumeMultiplier = multiplier
		}

		ctx, cancel := signalContext()
		defer cancel()

		cfg := config.AppConfig
		fmt.Println("🤖 Breakout Backtest")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Printf("📊 Symbol: %s\n", cfg.Trading.Symbol)
		fmt.Printf("⏰ Timeframe: %s\n", cfg.Backtest.Timeframe)
		fmt.Printf("📅 Range: %s -> %s\n", cfg.Backtest.StartDate, cfg.Backtest.EndDate)

		ts := openSystem(ctx)
		defer ts.Close()

		report, err := ts.RunBacktest(ctx)
		if err != nil {
			fail("Backtest failed", err)
		}
		trading.PrintBacktestResults(report)
	})
}

// RegisterSweepCmd 注册参数扫描命令
func RegisterSweepCmd() {
	var flags backtestFlags
	var workers int
	var rankBy string
	var top int
	var output string

	cmd.RegisterCmd("sweep", "run the backtest over a grid of lookback windows and volume multipliers", func(args *arg.Arg) {
		flags.register(args)
		args.Int(&workers, "workers", "parallel workers (default: number of CPUs)")
		args.String(&rankBy, "rank", "ranking key: multiple, cagr, sharpe, max_drawdown")
		args.Int(&top, "top", "number of ranked results to print")
		args.String(&output, "o", "CSV file for all results")
		args.Parse()

		if err := flags.apply(); err != nil {
			fail("Invalid arguments", err)
		}
		sw := &config.AppConfig.Sweep
		if workers > 0 {
			sw.Workers = workers
		}
		if rankBy != "" {
			sw.RankBy = rankBy
		}
		if top > 0 {
			sw.Top = top
		}
		if output != "" {
			sw.Output = output
		}

		ctx, cancel := signalContext()
		defer cancel()

		ts := openSystem(ctx)
		defer ts.Close()

		report, err := ts.RunSweep(ctx)
		if err != nil {
			fail("Sweep failed", err)
		}
		trading.PrintSweepResults(report)
	})
}
