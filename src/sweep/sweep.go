package sweep

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"breakoutbot/src/backtest"
	"breakoutbot/src/bar"
	"breakoutbot/src/metrics"

	"github.com/google/uuid"
	"github.com/xpwu/go-log/log"
	"golang.org/x/sync/errgroup"
)

// Result 单个网格点的回测结果，Err 非空时指标无意义
type Result struct {
	LookbackWindow   int           `json:"lookback_window"`
	VolumeMultiplier float64       `json:"volume_multiplier"`
	TradeCount       int           `json:"trade_count"`
	Multiple         float64       `json:"multiple"`
	CAGR             metrics.Value `json:"cagr"`
	Sharpe           metrics.Value `json:"sharpe"`
	MaxDrawdown      metrics.Value `json:"max_drawdown"`
	WinRatio         metrics.Value `json:"win_ratio"`
	Err              string        `json:"error,omitempty"`
}

// Failed 该网格点是否失败
func (r Result) Failed() bool {
	return r.Err != ""
}

// Options 扫描参数
type Options struct {
	Workers  int
	Cost     float64
	Metrics  metrics.Options
	Progress func(done, total int)
}

// Run 对每个网格点独立回测，单点失败只记录错误标记，不影响其余网格
// 返回本次运行的ID与结果（顺序与网格点一致）
func Run(ctx context.Context, bars []bar.Bar, grid Grid, opts Options) (string, []Result, error) {
	ctx, logger := log.WithCtx(ctx)
	logger.PushPrefix("Sweep")

	runID := uuid.NewString()
	points := grid.Points()
	if len(points) == 0 {
		return runID, nil, fmt.Errorf("empty parameter grid")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	logger.Info("开始参数扫描", "run_id", runID, "points", len(points), "workers", workers, "bars", len(bars))

	results := make([]Result, len(points))
	var done int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range points {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = evaluatePoint(bar.Clone(bars), backtest.Config{Params: p, Cost: opts.Cost}, opts.Metrics)
			if results[i].Failed() {
				logger.Error("网格点回测失败", "window", p.LookbackWindow, "multiplier", p.VolumeMultiplier, "error", results[i].Err)
			}
			if opts.Progress != nil {
				opts.Progress(int(atomic.AddInt64(&done, 1)), len(points))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return runID, nil, fmt.Errorf("sweep cancelled: %w", err)
	}

	logger.Info("参数扫描完成", "run_id", runID)
	return runID, results, nil
}

// evaluatePoint 单个网格点：独立副本上重建指标、回测、计算指标
func evaluatePoint(bars []bar.Bar, cfg backtest.Config, opts metrics.Options) (result Result) {
	result = Result{
		LookbackWindow:   cfg.Params.LookbackWindow,
		VolumeMultiplier: cfg.Params.VolumeMultiplier,
	}
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Sprintf("panic: %v", r)
		}
	}()

	res, err := backtest.Run(bars, cfg)
	if err != nil {
		result.Err = err.Error()
		return result
	}

	report := res.Evaluate(opts)
	result.TradeCount = report.TradeCount
	result.Multiple = report.Multiple
	result.CAGR = report.CAGR
	result.Sharpe = report.Sharpe
	result.MaxDrawdown = report.MaxDrawdown
	result.WinRatio = report.WinRatio
	return result
}
