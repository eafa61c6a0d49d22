package config

import (
	"fmt"
	"time"

	"breakoutbot/src/cex"
	"breakoutbot/src/database"
	"breakoutbot/src/notify"
	"breakoutbot/src/strategy"
	"breakoutbot/src/sweep"
	"breakoutbot/src/timeframes"

	"github.com/shopspring/decimal"
	"github.com/xpwu/go-config/configs"
)

// dateLayout 回测起止日期格式
const dateLayout = "2006-01-02"

// Config 主配置结构
type Config struct {
	CEX       string                  `json:"cex"`       // 交易所，目前只支持 binance
	Binance   BinanceConfig           `json:"binance"`   // 币安配置
	Database  database.DatabaseConfig `json:"database"`  // 数据库配置，host 为空时不启用
	Trading   TradingConfig           `json:"trading"`   // 实盘交易配置
	Strategy  StrategyConfig          `json:"strategy"`  // 策略参数
	Backtest  BacktestConfig          `json:"backtest"`  // 回测配置
	Sweep     SweepConfig             `json:"sweep"`     // 参数扫描配置
	Collector CollectorConfig         `json:"collector"` // 账户数据采集配置
	Notify    notify.Config           `json:"notify"`    // 告警通知配置
}

// BinanceConfig 币安API配置
type BinanceConfig struct {
	APIKey       string `json:"api_key"`        // API密钥
	SecretKey    string `json:"secret_key"`     // API私钥
	DataBaseURL  string `json:"data_base_url"`  // 行情接口地址
	OrderBaseURL string `json:"order_base_url"` // 下单接口地址，为空时按 testnet 选择
	Testnet      bool   `json:"testnet"`        // 下单与账户推送使用测试网
}

// TradingConfig 实盘交易配置
type TradingConfig struct {
	Symbol          string  `json:"symbol"`           // 交易对
	Timeframe       string  `json:"timeframe"`        // K线周期
	Quantity        string  `json:"quantity"`         // 每单数量（基础资产）
	FlipDelay       string  `json:"flip_delay"`       // 反手两单间隔
	Session         string  `json:"session"`          // 会话时长，到期强制平仓
	PaperCommission float64 `json:"paper_commission"` // 模拟盘手续费率
}

// StrategyConfig 突破策略参数
type StrategyConfig struct {
	LookbackWindow   int     `json:"lookback_window"`   // 回看窗口W
	VolumeMultiplier float64 `json:"volume_multiplier"` // 成交量放大倍数V
}

// BacktestConfig 回测配置
type BacktestConfig struct {
	Timeframe string  `json:"timeframe"`  // 回测K线周期
	StartDate string  `json:"start_date"` // 回测开始日期
	EndDate   string  `json:"end_date"`   // 回测结束日期（不含）
	DataFile  string  `json:"data_file"`  // CSV数据文件，为空时从交易所下载
	Fee       float64 `json:"fee"`        // 每个已执行信号扣除的成本
	RiskFree  float64 `json:"risk_free"`  // 无风险利率
}

// SweepConfig 参数扫描配置
type SweepConfig struct {
	Windows     sweep.IntRange     `json:"windows"`     // 回看窗口范围
	Multipliers sweep.DecimalRange `json:"multipliers"` // 成交量倍数范围
	Workers     int                `json:"workers"`     // 并发数，0 为CPU核数
	RankBy      string             `json:"rank_by"`     // 排序指标 multiple/cagr/sharpe/max_drawdown
	Top         int                `json:"top"`         // 输出前N个
	Output      string             `json:"output"`      // 结果CSV文件
}

// CollectorConfig 账户数据采集配置
type CollectorConfig struct {
	Session       string   `json:"session"`        // 采集会话时长
	AlertRatio    float64  `json:"alert_ratio"`    // 余额低于初始值的比例时告警
	WatchedAssets []string `json:"watched_assets"` // 监控余额的资产
}

// AppConfig 全局配置实例
var AppConfig = &Config{
	CEX: "binance",
	Binance: BinanceConfig{
		DataBaseURL: "https://api.binance.com",
		Testnet:     true,
	},
	Database: database.GetDefaultDatabaseConfig("breakoutbot"),
	Trading: TradingConfig{
		Symbol:          "BTCUSDT",
		Timeframe:       "1m",
		Quantity:        "0.005",
		FlipDelay:       "100ms",
		Session:         "11h",
		PaperCommission: 0.00075,
	},
	Strategy: StrategyConfig{
		LookbackWindow:   9,
		VolumeMultiplier: 1.1,
	},
	Backtest: BacktestConfig{
		Timeframe: "15m",
		StartDate: "2023-01-01",
		EndDate:   "2024-01-01",
		Fee:       0.00075, // 币安 BNB 抵扣后的费率
		RiskFree:  0,
	},
	Sweep: SweepConfig{
		Windows:     sweep.IntRange{Min: 5, Max: 20, Step: 1},
		Multipliers: sweep.DecimalRange{Min: "1.3", Max: "2.0", Step: "0.1"},
		Workers:     0,
		RankBy:      "sharpe",
		Top:         10,
		Output:      "sweep_results.csv",
	},
	Collector: CollectorConfig{
		Session:       "11h6m",
		AlertRatio:    0.95,
		WatchedAssets: []string{"BTC", "USDT"},
	},
}

// 在包的 init() 函数中注册配置
func init() {
	configs.Unmarshal(AppConfig)
}

// Validate 验证配置
func (c *Config) Validate() error {
	// 交易所名称在创建客户端时按注册表校验
	if c.CEX == "" {
		return fmt.Errorf("cex cannot be empty")
	}
	if _, err := c.GetTimeframe(); err != nil {
		return fmt.Errorf("invalid trading timeframe: %w", err)
	}
	if _, err := c.GetBacktestTimeframe(); err != nil {
		return fmt.Errorf("invalid backtest timeframe: %w", err)
	}
	if c.Trading.Symbol == "" {
		return fmt.Errorf("trading symbol cannot be empty")
	}
	if _, err := c.GetQuantity(); err != nil {
		return err
	}
	if _, err := c.GetFlipDelay(); err != nil {
		return err
	}
	if _, err := c.GetTradingSession(); err != nil {
		return err
	}
	if c.Trading.PaperCommission < 0 || c.Trading.PaperCommission >= 1 {
		return fmt.Errorf("paper commission must be in [0, 1)")
	}

	if err := c.GetStrategyParams().Validate(); err != nil {
		return err
	}

	if c.Backtest.Fee < 0 || c.Backtest.Fee >= 1 {
		return fmt.Errorf("backtest fee must be in [0, 1)")
	}
	if _, _, err := c.GetBacktestRange(); err != nil {
		return err
	}

	if _, err := c.GetSweepGrid(); err != nil {
		return err
	}
	if _, err := sweep.ParseKey(c.Sweep.RankBy); err != nil {
		return err
	}
	if c.Sweep.Workers < 0 {
		return fmt.Errorf("sweep workers cannot be negative")
	}

	if _, err := c.GetCollectorSession(); err != nil {
		return err
	}
	if c.Collector.AlertRatio <= 0 || c.Collector.AlertRatio > 1 {
		return fmt.Errorf("collector alert ratio must be in (0, 1]")
	}

	return nil
}

// GetCEXOptions 交易所客户端参数
func (c *Config) GetCEXOptions() cex.Options {
	return cex.Options{
		APIKey:       c.Binance.APIKey,
		SecretKey:    c.Binance.SecretKey,
		DataBaseURL:  c.Binance.DataBaseURL,
		OrderBaseURL: c.Binance.OrderBaseURL,
		Testnet:      c.Binance.Testnet,
	}
}

// GetTimeframe 实盘K线周期
func (c *Config) GetTimeframe() (timeframes.Timeframe, error) {
	return timeframes.ParseTimeframe(c.Trading.Timeframe)
}

// GetBacktestTimeframe 回测K线周期
func (c *Config) GetBacktestTimeframe() (timeframes.Timeframe, error) {
	return timeframes.ParseTimeframe(c.Backtest.Timeframe)
}

// GetQuantity 每单数量
func (c *Config) GetQuantity() (decimal.Decimal, error) {
	q, err := decimal.NewFromString(c.Trading.Quantity)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid trading quantity %q: %w", c.Trading.Quantity, err)
	}
	if !q.IsPositive() {
		return decimal.Zero, fmt.Errorf("trading quantity must be positive, got %s", c.Trading.Quantity)
	}
	return q, nil
}

// GetFlipDelay 反手间隔
func (c *Config) GetFlipDelay() (time.Duration, error) {
	return parseDuration("trading.flip_delay", c.Trading.FlipDelay)
}

// GetTradingSession 实盘会话时长
func (c *Config) GetTradingSession() (time.Duration, error) {
	return parseDuration("trading.session", c.Trading.Session)
}

// GetCollectorSession 采集会话时长
func (c *Config) GetCollectorSession() (time.Duration, error) {
	return parseDuration("collector.session", c.Collector.Session)
}

// GetStrategyParams 策略参数
func (c *Config) GetStrategyParams() strategy.Params {
	return strategy.Params{
		LookbackWindow:   c.Strategy.LookbackWindow,
		VolumeMultiplier: c.Strategy.VolumeMultiplier,
	}
}

// GetBacktestRange 回测起止时间 [start, end)
func (c *Config) GetBacktestRange() (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, c.Backtest.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date format: %s", c.Backtest.StartDate)
	}
	end, err := time.Parse(dateLayout, c.Backtest.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date format: %s", c.Backtest.EndDate)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest end date must be after start date")
	}
	return start, end, nil
}

// GetSweepGrid 参数网格
func (c *Config) GetSweepGrid() (sweep.Grid, error) {
	return sweep.NewGrid(c.Sweep.Windows, c.Sweep.Multipliers)
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s cannot be negative", name)
	}
	return d, nil
}
