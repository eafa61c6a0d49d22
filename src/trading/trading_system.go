package trading

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"breakoutbot/src/backtest"
	"breakoutbot/src/bar"
	"breakoutbot/src/cex"
	"breakoutbot/src/collector"
	"breakoutbot/src/config"
	"breakoutbot/src/database"
	"breakoutbot/src/engine"
	"breakoutbot/src/executor"
	"breakoutbot/src/history"
	"breakoutbot/src/metrics"
	"breakoutbot/src/notify"
	"breakoutbot/src/strategy"
	"breakoutbot/src/sweep"
	"breakoutbot/src/timeframes"

	"github.com/xpwu/go-log/log"
)

var (
	// ErrNoDatabase 需要数据库的功能在未配置或连接失败时返回
	ErrNoDatabase = errors.New("database is not available")
	// ErrNotInitialized 未调用 Initialize 就访问交易所
	ErrNotInitialized = errors.New("trading system is not initialized")
)

// TradingSystem 交易系统，组装交易所客户端、数据库与告警通道
type TradingSystem struct {
	config   *config.Config
	client   cex.CEXClient
	database *database.PostgresDB
	notifier notify.Notifier
}

// NewTradingSystem 创建新的交易系统，cfg 为 nil 时使用全局配置
func NewTradingSystem(cfg *config.Config) *TradingSystem {
	if cfg == nil {
		cfg = config.AppConfig
	}
	return &TradingSystem{
		config:   cfg,
		notifier: notify.LogNotifier{},
	}
}

// Initialize 初始化系统：交易所客户端、数据库（可选）与告警通道
func (ts *TradingSystem) Initialize(ctx context.Context) error {
	client, err := cex.CreateCEXClient(ts.config.CEX, ts.config.GetCEXOptions())
	if err != nil {
		return fmt.Errorf("failed to create %s client: %w", ts.config.CEX, err)
	}
	ts.client = client

	if ts.config.Database.Enabled() {
		fmt.Println("🗄️ Connecting to database...")
		db, err := ts.connectDatabase(ctx)
		if err != nil {
			fmt.Printf("⚠️ Database unavailable, using network only: %v\n", err)
		} else {
			ts.database = db
			fmt.Println("✅ Database connected")
		}
	}

	notifier, err := notify.New(ts.config.Notify)
	if err != nil {
		return fmt.Errorf("failed to create notifier: %w", err)
	}
	ts.notifier = notifier
	return nil
}

func (ts *TradingSystem) connectDatabase(ctx context.Context) (*database.PostgresDB, error) {
	db, err := database.NewPostgresDB(ctx, ts.config.Database)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close 释放数据库连接
func (ts *TradingSystem) Close() error {
	if ts.database == nil {
		return nil
	}
	err := ts.database.Close()
	ts.database = nil
	return err
}

// GetConfig 获取配置
func (ts *TradingSystem) GetConfig() *config.Config {
	return ts.config
}

// historicalSource 有数据库时走本地缓存，缺口再从交易所补齐
func (ts *TradingSystem) historicalSource() cex.HistoricalSource {
	if ts.database != nil {
		return database.NewBarCache(ts.database, ts.client)
	}
	return ts.client
}

// LoadBars 加载 [start, end) 内的已收盘K线，file 非空时从CSV文件读取
func (ts *TradingSystem) LoadBars(ctx context.Context, symbol string, tf timeframes.Timeframe, start, end time.Time, file string) ([]bar.Bar, error) {
	if file != "" {
		bars, err := history.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read bars from %s: %w", file, err)
		}
		return bars, nil
	}

	if ts.client == nil {
		return nil, ErrNotInitialized
	}
	bars, err := ts.historicalSource().GetBars(ctx, symbol, tf.GetBinanceInterval(), start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load bars: %w", err)
	}
	if err := bar.CheckSeries(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// metricsOptions 按K线周期年化
func (ts *TradingSystem) metricsOptions(tf timeframes.Timeframe) (metrics.Options, error) {
	perYear, err := tf.BarsPerYear()
	if err != nil {
		return metrics.Options{}, err
	}
	opts := metrics.Options{
		BarsPerYear: perYear,
		RiskFree:    ts.config.Backtest.RiskFree,
	}
	if q, err := ts.config.GetQuantity(); err == nil {
		opts.Units = q.InexactFloat64()
	}
	return opts, nil
}

// BacktestReport 回测输出
type BacktestReport struct {
	Symbol    string
	Timeframe timeframes.Timeframe
	Params    strategy.Params
	Bars      int
	Result    *backtest.Result
	Metrics   metrics.Report
}

// RunBacktest 按配置运行单次回测
func (ts *TradingSystem) RunBacktest(ctx context.Context) (*BacktestReport, error) {
	cfg := ts.config
	tf, err := cfg.GetBacktestTimeframe()
	if err != nil {
		return nil, fmt.Errorf("invalid timeframe: %w", err)
	}
	start, end, err := cfg.GetBacktestRange()
	if err != nil {
		return nil, err
	}
	opts, err := ts.metricsOptions(tf)
	if err != nil {
		return nil, err
	}

	bars, err := ts.LoadBars(ctx, cfg.Trading.Symbol, tf, start, end, cfg.Backtest.DataFile)
	if err != nil {
		return nil, err
	}

	params := cfg.GetStrategyParams()
	fmt.Printf("🔄 Starting backtest with %d bars...\n", len(bars))
	result, err := backtest.Run(bars, backtest.Config{Params: params, Cost: cfg.Backtest.Fee})
	if err != nil {
		return nil, fmt.Errorf("backtest failed: %w", err)
	}
	fmt.Println("✅ Backtest completed")

	return &BacktestReport{
		Symbol:    cfg.Trading.Symbol,
		Timeframe: tf,
		Params:    params,
		Bars:      len(bars),
		Result:    result,
		Metrics:   result.Evaluate(opts),
	}, nil
}

// SweepReport 参数扫描输出
type SweepReport struct {
	RunID   string
	Symbol  string
	Key     sweep.Key
	Results []sweep.Result
	Ranked  []sweep.Result
	Failed  int
}

// RunSweep 在参数网格上并行回测，结果写CSV并在有数据库时持久化
func (ts *TradingSystem) RunSweep(ctx context.Context) (*SweepReport, error) {
	cfg := ts.config
	tf, err := cfg.GetBacktestTimeframe()
	if err != nil {
		return nil, fmt.Errorf("invalid timeframe: %w", err)
	}
	start, end, err := cfg.GetBacktestRange()
	if err != nil {
		return nil, err
	}
	grid, err := cfg.GetSweepGrid()
	if err != nil {
		return nil, err
	}
	key, err := sweep.ParseKey(cfg.Sweep.RankBy)
	if err != nil {
		return nil, err
	}
	opts, err := ts.metricsOptions(tf)
	if err != nil {
		return nil, err
	}

	bars, err := ts.LoadBars(ctx, cfg.Trading.Symbol, tf, start, end, cfg.Backtest.DataFile)
	if err != nil {
		return nil, err
	}

	fmt.Printf("🔄 Sweeping %d parameter combinations over %d bars...\n", grid.Size(), len(bars))
	runID, results, err := sweep.Run(ctx, bars, grid, sweep.Options{
		Workers:  cfg.Sweep.Workers,
		Cost:     cfg.Backtest.Fee,
		Metrics:  opts,
		Progress: printProgress,
	})
	if err != nil {
		return nil, err
	}
	fmt.Println()

	if cfg.Sweep.Output != "" {
		if err := writeSweepCSV(cfg.Sweep.Output, results); err != nil {
			return nil, err
		}
		fmt.Printf("💾 Results written to %s\n", cfg.Sweep.Output)
	}

	if ts.database != nil {
		if err := ts.database.SaveSweepResults(ctx, runID, cfg.Trading.Symbol, tf.String(), results); err != nil {
			fmt.Printf("⚠️ Failed to save sweep results: %v\n", err)
		}
	}

	report := &SweepReport{
		RunID:   runID,
		Symbol:  cfg.Trading.Symbol,
		Key:     key,
		Results: results,
		Ranked:  sweep.Rank(results, key, cfg.Sweep.Top),
	}
	for _, r := range results {
		if r.Failed() {
			report.Failed++
		}
	}
	return report, nil
}

func printProgress(done, total int) {
	if done == total || done%10 == 0 {
		fmt.Printf("\r⏳ %d/%d", done, total)
	}
}

func writeSweepCSV(path string, results []sweep.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := sweep.WriteCSV(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LiveOptions 实盘运行方式
type LiveOptions struct {
	DryRun     bool   // 使用模拟撮合，不真实下单
	ReplayFile string // 非空时从CSV回放K线，隐含 DryRun
}

// LiveReport 实盘会话输出
type LiveReport struct {
	Stats    engine.SessionStats
	Position strategy.Position
	Paper    *executor.PaperSummary
}

// RunLive 运行实盘会话，直到会话到期、数据流结束或 ctx 被取消
// 返回的报告在出错时同样有效
func (ts *TradingSystem) RunLive(ctx context.Context, opts LiveOptions) (*LiveReport, error) {
	ctx, logger := log.WithCtx(ctx)
	logger.PushPrefix("TradingSystem")

	cfg := ts.config
	tf, err := cfg.GetTimeframe()
	if err != nil {
		return nil, fmt.Errorf("invalid timeframe: %w", err)
	}
	qty, err := cfg.GetQuantity()
	if err != nil {
		return nil, err
	}
	delay, err := cfg.GetFlipDelay()
	if err != nil {
		return nil, err
	}
	budget, err := cfg.GetTradingSession()
	if err != nil {
		return nil, err
	}
	strat, err := strategy.NewBreakout(cfg.GetStrategyParams())
	if err != nil {
		return nil, err
	}

	replay := opts.ReplayFile != ""
	if !replay && ts.client == nil {
		return nil, ErrNotInitialized
	}

	recorder := executor.MultiRecorder{executor.LogRecorder{}}
	if ts.database != nil {
		recorder = append(recorder, ts.database)
	}

	var gateway cex.OrderGateway = ts.client
	var paper *executor.PaperGateway
	if opts.DryRun || replay {
		paper = executor.NewPaperGateway(cfg.Trading.PaperCommission)
		gateway = paper
	}

	session, err := engine.NewLiveSession(engine.SessionConfig{
		Symbol:       cfg.Trading.Symbol,
		Timeframe:    tf,
		Quantity:     qty,
		Budget:       budget,
		FlattenOnEnd: !replay, // 回放文件读完属于正常结束
	}, strat, executor.NewLiveExecutor(gateway, recorder, delay), ts.notifier)
	if err != nil {
		return nil, err
	}
	if paper != nil {
		session.SetMarketObserver(paper)
	}

	var feed engine.BarFeed
	if replay {
		bars, err := history.ReadFile(opts.ReplayFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read replay file: %w", err)
		}
		feed = engine.NewReplayFeed(bars)
	} else {
		if err := session.WarmUp(ctx, ts.historicalSource()); err != nil {
			return nil, err
		}
		stream, err := ts.client.SubscribeKlines(ctx, cfg.Trading.Symbol, tf.GetBinanceInterval())
		if err != nil {
			return nil, fmt.Errorf("failed to subscribe klines: %w", err)
		}
		feed = engine.NewStreamFeed(stream)
	}

	logger.Info("启动实盘会话", "symbol", cfg.Trading.Symbol, "dry_run", paper != nil, "replay", opts.ReplayFile, "budget", budget)
	runErr := session.Run(ctx, feed)

	report := &LiveReport{
		Stats:    session.Stats(),
		Position: session.Position(),
	}
	if paper != nil {
		summary := paper.Summary()
		report.Paper = &summary
	}
	return report, runErr
}

// RunCollector 运行账户数据采集会话，需要数据库
func (ts *TradingSystem) RunCollector(ctx context.Context) (collector.Stats, error) {
	if ts.client == nil {
		return collector.Stats{}, ErrNotInitialized
	}
	if ts.database == nil {
		return collector.Stats{}, ErrNoDatabase
	}
	budget, err := ts.config.GetCollectorSession()
	if err != nil {
		return collector.Stats{}, err
	}

	c, err := collector.New(ts.client, ts.database, ts.notifier, collector.Config{
		Budget:        budget,
		AlertRatio:    ts.config.Collector.AlertRatio,
		WatchedAssets: ts.config.Collector.WatchedAssets,
	})
	if err != nil {
		return collector.Stats{}, err
	}
	err = c.Run(ctx)
	return c.Stats(), err
}

// Report 由持久化的成交记录计算实盘指标，零值时间表示不限
func (ts *TradingSystem) Report(ctx context.Context, symbol string, start, end time.Time) (metrics.Report, int, error) {
	if ts.database == nil {
		return metrics.Report{}, 0, ErrNoDatabase
	}
	trades, err := ts.database.GetTradeRecords(ctx, symbol, start, end)
	if err != nil {
		return metrics.Report{}, 0, err
	}

	opts := metrics.Options{RiskFree: ts.config.Backtest.RiskFree}
	if q, err := ts.config.GetQuantity(); err == nil {
		opts.Units = q.InexactFloat64()
	}
	return metrics.EvaluateTrades(trades, ts.config.Backtest.Fee, opts), len(trades), nil
}

// FetchBars 下载 [start, end) 的K线，output 非空时写入CSV
func (ts *TradingSystem) FetchBars(ctx context.Context, symbol string, tf timeframes.Timeframe, start, end time.Time, output string) ([]bar.Bar, error) {
	bars, err := ts.LoadBars(ctx, symbol, tf, start, end, "")
	if err != nil {
		return nil, err
	}
	if output != "" {
		if err := history.WriteFile(output, bars); err != nil {
			return nil, err
		}
	}
	return bars, nil
}

// Ping 测试交易所连通性，返回往返延迟与服务器时间
func (ts *TradingSystem) Ping(ctx context.Context) (time.Duration, time.Time, error) {
	if ts.client == nil {
		return 0, time.Time{}, ErrNotInitialized
	}
	begin := time.Now()
	if err := ts.client.Ping(ctx); err != nil {
		return time.Since(begin), time.Time{}, err
	}
	latency := time.Since(begin)

	serverTime, err := ts.client.GetServerTime(ctx)
	if err != nil {
		return latency, time.Time{}, err
	}
	return latency, serverTime, nil
}
