package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"breakoutbot/src/cex"
	"breakoutbot/src/notify"

	"github.com/shopspring/decimal"
	"github.com/xpwu/go-log/log"
)

// Config 采集会话配置
type Config struct {
	Budget        time.Duration // 会话时长，<=0 不限时
	AlertRatio    float64       // 可用余额低于 初始值×比例 时告警
	WatchedAssets []string      // 监控余额的资产
}

// AccountSource 账户数据来源
type AccountSource interface {
	GetAccount(ctx context.Context) ([]*cex.AccountBalance, error)
	SubscribeAccount(ctx context.Context) (cex.AccountStream, error)
}

// Store 成交与余额的持久化
type Store interface {
	SaveFill(ctx context.Context, report *cex.ExecutionReport) error
	SaveAssets(ctx context.Context, at time.Time, balances []*cex.AccountBalance) error
}

// Stats 采集统计
type Stats struct {
	Events  int `json:"events"`
	Fills   int `json:"fills"`
	Assets  int `json:"assets"`
	Alerts  int `json:"alerts"`
	Dropped int `json:"dropped"` // 持久化失败
}

// Collector 消费账户推送，把完全成交写入成交记录、余额快照写入资产表，并监控余额
// 与实盘决策流程独立运行，不共享内存
type Collector struct {
	source   AccountSource
	store    Store
	notifier notify.Notifier
	cfg      Config

	initial map[string]decimal.Decimal
	alerted map[string]bool
	stats   Stats
}

// New 创建采集器
func New(source AccountSource, store Store, notifier notify.Notifier, cfg Config) (*Collector, error) {
	if cfg.AlertRatio <= 0 || cfg.AlertRatio > 1 {
		return nil, fmt.Errorf("alert ratio must be in (0, 1], got %v", cfg.AlertRatio)
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Collector{
		source:   source,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		initial:  make(map[string]decimal.Decimal),
		alerted:  make(map[string]bool),
	}, nil
}

// Stats 采集统计
func (c *Collector) Stats() Stats {
	return c.stats
}

// Run 记录初始余额后消费账户推送，直到会话到期或数据流结束
func (c *Collector) Run(ctx context.Context) error {
	ctx, logger := log.WithCtx(ctx)
	logger.PushPrefix("Collector")

	balances, err := c.source.GetAccount(ctx)
	if err != nil {
		return fmt.Errorf("failed to get initial balances: %w", err)
	}
	c.captureInitial(balances)
	logger.Info("初始余额", "balances", c.describeInitial())

	sessionCtx := ctx
	if c.cfg.Budget > 0 {
		var cancel context.CancelFunc
		sessionCtx, cancel = context.WithTimeout(ctx, c.cfg.Budget)
		defer cancel()
	}

	stream, err := c.source.SubscribeAccount(sessionCtx)
	if err != nil {
		return fmt.Errorf("failed to subscribe account stream: %w", err)
	}
	defer stream.Close()

	for {
		ev, err := stream.Next(sessionCtx)
		if err != nil {
			if ctx.Err() == nil && errors.Is(sessionCtx.Err(), context.DeadlineExceeded) {
				logger.Info("采集会话到期", "stats", c.stats)
				return nil
			}
			return fmt.Errorf("account stream failed: %w", err)
		}
		if ev == nil {
			logger.Info("账户推送结束", "stats", c.stats)
			return nil
		}
		c.Handle(ctx, ev)
	}
}

// Handle 处理一条账户推送
func (c *Collector) Handle(ctx context.Context, ev *cex.AccountEvent) {
	ctx, logger := log.WithCtx(ctx)
	c.stats.Events++

	switch ev.Type {
	case cex.AccountEventExecution:
		if ev.Execution == nil || !ev.Execution.IsFilled() {
			return
		}
		if err := c.store.SaveFill(ctx, ev.Execution); err != nil {
			c.stats.Dropped++
			logger.Error("成交记录保存失败", "symbol", ev.Execution.Symbol, "error", err)
			return
		}
		c.stats.Fills++
		logger.Info("成交记录",
			"symbol", ev.Execution.Symbol,
			"side", ev.Execution.Side,
			"price", cex.FillPrice(ev.Execution.FilledQuote, ev.Execution.FilledQuantity).String(),
			"time", ev.Execution.TransactionTime)

	case cex.AccountEventBalance:
		if err := c.store.SaveAssets(ctx, ev.EventTime, ev.Balances); err != nil {
			c.stats.Dropped++
			logger.Error("余额快照保存失败", "error", err)
		} else {
			c.stats.Assets += len(ev.Balances)
		}
		c.checkBalances(ctx, ev.Balances)
	}
}

// checkBalances 被监控资产跌破阈值时每个资产只告警一次
func (c *Collector) checkBalances(ctx context.Context, balances []*cex.AccountBalance) {
	_, logger := log.WithCtx(ctx)
	ratio := decimal.NewFromFloat(c.cfg.AlertRatio)

	for _, b := range balances {
		initial, ok := c.initial[b.Asset]
		if !ok || c.alerted[b.Asset] || !initial.IsPositive() {
			continue
		}
		threshold := initial.Mul(ratio)
		if !b.Free.LessThan(threshold) {
			continue
		}

		c.alerted[b.Asset] = true
		c.stats.Alerts++
		msg := fmt.Sprintf("%s free balance %s dropped below %s (initial %s)",
			b.Asset, b.Free.String(), threshold.String(), initial.String())
		if err := c.notifier.Alert(ctx, "balance drop", msg); err != nil {
			logger.Error("告警发送失败", "error", err)
		}
	}
}

func (c *Collector) captureInitial(balances []*cex.AccountBalance) {
	watched := make(map[string]bool, len(c.cfg.WatchedAssets))
	for _, a := range c.cfg.WatchedAssets {
		watched[strings.ToUpper(a)] = true
	}
	for _, b := range balances {
		if watched[b.Asset] {
			c.initial[b.Asset] = b.Free
		}
	}
}

func (c *Collector) describeInitial() string {
	parts := make([]string, 0, len(c.initial))
	for _, a := range c.cfg.WatchedAssets {
		if v, ok := c.initial[strings.ToUpper(a)]; ok {
			parts = append(parts, a+"="+v.String())
		}
	}
	return strings.Join(parts, " ")
}
