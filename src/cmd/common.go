package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"breakoutbot/src/cex"
	"breakoutbot/src/config"
	"breakoutbot/src/trading"
)

// createTradingPair 创建交易对
func createTradingPair(base, quote string) cex.TradingPair {
	return cex.TradingPair{
		Base:  strings.ToUpper(base),
		Quote: strings.ToUpper(quote),
	}
}

// applySymbol 命令行指定了交易对时覆盖配置
func applySymbol(base, quote string) error {
	if base == "" && quote == "" {
		return nil
	}
	if base == "" || quote == "" {
		return fmt.Errorf("both -base and -quote are required")
	}
	config.AppConfig.Trading.Symbol = createTradingPair(base, quote).Symbol()
	return nil
}

// parseDate 支持 YYYY-MM-DD 与 YYYY-MM-DD HH:MM:SS，按UTC解析
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or YYYY-MM-DD HH:MM:SS", s)
}

// signalContext Ctrl+C 或 SIGTERM 时取消
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openSystem 校验配置并初始化交易系统，失败时退出进程
func openSystem(ctx context.Context) *trading.TradingSystem {
	if err := config.AppConfig.Validate(); err != nil {
		fail("Invalid configuration", err)
	}
	ts := trading.NewTradingSystem(config.AppConfig)
	if err := ts.Initialize(ctx); err != nil {
		fail("Failed to initialize trading system", err)
	}
	return ts
}

func fail(msg string, err error) {
	fmt.Printf("❌ %s: %v\n", msg, err)
	os.Exit(1)
}
