package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"breakoutbot/src/bar"
	"breakoutbot/src/cex"
	"breakoutbot/src/executor"
	"breakoutbot/src/indicators"
	"breakoutbot/src/notify"
	"breakoutbot/src/strategy"
	"breakoutbot/src/timeframes"

	"github.com/shopspring/decimal"
	"github.com/xpwu/go-log/log"
)

// ErrFlattenFailed 会话到期强制平仓失败，敞口无人管理，必须告警
var ErrFlattenFailed = errors.New("forced flatten failed")

// ErrFeedEnded 实时行情流在会话结束前关闭
var ErrFeedEnded = errors.New("bar feed ended unexpectedly")

// flattenTimeout 外部取消后强制平仓的最长等待
const flattenTimeout = 30 * time.Second

// Submitter 顺序提交订单
type Submitter interface {
	Submit(ctx context.Context, orders []executor.Order, onAck func(executor.Order, executor.TradeRecord)) error
}

// MarketObserver 接收最新成交价（模拟网关按此价格成交）
type MarketObserver interface {
	SetMarket(price decimal.Decimal, at time.Time)
}

// SessionConfig 实盘会话参数
type SessionConfig struct {
	Symbol    string
	Timeframe timeframes.Timeframe
	Quantity  decimal.Decimal
	Budget    time.Duration // 会话时长，<=0 不限时

	// FlattenOnEnd 数据流结束视为行情中断，强制平仓并告警；回放不设置，结束时保持持仓
	FlattenOnEnd bool
}

// SessionStats 会话统计
type SessionStats struct {
	Updates   int `json:"updates"`
	Bars      int `json:"bars"`
	Signals   int `json:"signals"`
	Orders    int `json:"orders"`
	Rejected  int `json:"rejected"`
	Malformed int `json:"malformed"`
	Skipped   int `json:"skipped"`
}

// LiveSession 实盘流式适配层：持有K线缓冲、持仓与网关调用，每根收盘K线调用一次纯决策核心
// 持仓只在 Run 所在的单个逻辑上下文中读写
type LiveSession struct {
	cfg      SessionConfig
	strategy *strategy.Breakout
	store    *bar.Store
	executor Submitter
	notifier notify.Notifier
	observer MarketObserver
	now      func() time.Time

	position strategy.Position
	stats    SessionStats
}

// NewLiveSession 创建实盘会话
func NewLiveSession(cfg SessionConfig, strat *strategy.Breakout, exec Submitter, notifier notify.Notifier) (*LiveSession, error) {
	if !cfg.Quantity.IsPositive() {
		return nil, fmt.Errorf("order quantity must be positive, got %s", cfg.Quantity.String())
	}
	if !cfg.Timeframe.IsValid() {
		return nil, fmt.Errorf("invalid timeframe: %s", cfg.Timeframe)
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}

	// 窗口+1 根已收盘K线，再加一根形成中的
	store, err := bar.NewStore(strat.Params().LookbackWindow + 2)
	if err != nil {
		return nil, err
	}

	return &LiveSession{
		cfg:      cfg,
		strategy: strat,
		store:    store,
		executor: exec,
		notifier: notifier,
		now:      time.Now,
	}, nil
}

// SetMarketObserver 设置行情观察者
func (s *LiveSession) SetMarketObserver(o MarketObserver) {
	s.observer = o
}

// Position 当前持仓
func (s *LiveSession) Position() strategy.Position {
	return s.position
}

// Stats 会话统计
func (s *LiveSession) Stats() SessionStats {
	return s.stats
}

// WarmUp 从历史数据源装载最近 窗口+1 根已收盘K线
func (s *LiveSession) WarmUp(ctx context.Context, source cex.HistoricalSource) error {
	ctx, logger := log.WithCtx(ctx)
	logger.PushPrefix("LiveSession")

	step, _ := s.cfg.Timeframe.GetDuration()
	end, _ := s.cfg.Timeframe.Truncate(s.now())
	start := end.Add(-time.Duration(s.strategy.Params().LookbackWindow+1) * step)

	bars, err := source.GetBars(ctx, s.cfg.Symbol, s.cfg.Timeframe.GetBinanceInterval(), start, end)
	if err != nil {
		return fmt.Errorf("failed to warm up bar store: %w", err)
	}
	if err := s.store.Load(bars, false); err != nil {
		return fmt.Errorf("failed to warm up bar store: %w", err)
	}

	logger.Info("K线预热完成", "symbol", s.cfg.Symbol, "bars", len(bars), "from", start, "to", end)
	return nil
}

// Run 事件循环：取下一次更新，检查会话时钟，写入缓冲，收盘K线驱动决策
// 会话到期时强制平仓并结束。行情出错时告警并强制平仓；
// 数据流结束时，FlattenOnEnd 为真按行情中断处理，否则返回 nil 且持仓保持不变。
func (s *LiveSession) Run(ctx context.Context, feed BarFeed) error {
	ctx, logger := log.WithCtx(ctx)
	logger.PushPrefix("LiveSession")
	defer feed.Close()

	clock := NewSessionClock(s.now(), s.cfg.Budget)
	logger.Info("实盘会话开始",
		"symbol", s.cfg.Symbol,
		"timeframe", s.cfg.Timeframe,
		"strategy", s.strategy.GetName(),
		"params", s.strategy.Params().ToMap(),
		"deadline", clock.Deadline())

	for {
		b, err := feed.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("会话被取消", "position", s.position)
				return s.stop(context.WithoutCancel(ctx), ctx.Err())
			}
			logger.Error("行情中断，强制平仓", "position", s.position, "error", err)
			return s.abort(ctx, fmt.Errorf("bar feed failed: %w", err))
		}
		if b == nil {
			if s.cfg.FlattenOnEnd {
				logger.Error("行情流意外结束，强制平仓", "position", s.position)
				return s.abort(ctx, ErrFeedEnded)
			}
			logger.Info("数据流结束", "position", s.position, "stats", s.stats)
			return nil
		}

		if clock.Expired(s.now()) {
			logger.Info("会话到期，强制平仓", "position", s.position)
			return s.stop(ctx, nil)
		}

		s.OnBar(ctx, *b)
	}
}

// OnBar 处理一次K线更新
func (s *LiveSession) OnBar(ctx context.Context, b bar.Bar) {
	ctx, logger := log.WithCtx(ctx)
	s.stats.Updates++

	if _, err := s.store.Upsert(b); err != nil {
		s.stats.Malformed++
		logger.Error("拒绝异常K线", "error", err)
		return
	}
	if s.observer != nil {
		s.observer.SetMarket(b.Close, b.Timestamp)
	}
	if !b.Complete {
		return
	}
	s.stats.Bars++

	complete := s.store.Complete()
	n := len(complete)
	if n < 2 {
		s.stats.Skipped++
		return
	}
	// 上一根已收盘K线的指标，只用其之前的数据
	prev, err := indicators.Latest(complete[:n-1], s.strategy.Params().LookbackWindow)
	if err != nil || !prev.Valid {
		s.stats.Skipped++
		logger.Debug("指标尚未就绪，跳过决策", "bars", n)
		return
	}
	cur := complete[n-1]

	_, sig := s.strategy.OnBar(s.position, prev, cur)
	if sig == strategy.None {
		return
	}

	logger.Info(sig.String(),
		"time", cur.Timestamp,
		"close", cur.Close,
		"high_max", prev.RollingHighMax,
		"low_min", prev.RollingLowMin,
		"volume", cur.Volume,
		"volume_max", prev.RollingVolumeMax)

	if err := s.execute(ctx, sig); err != nil {
		logger.Error("信号执行失败，持仓不变", "signal", sig, "position", s.position, "error", err)
	}
}

// execute 规划并提交订单，持仓随每个回执推进
func (s *LiveSession) execute(ctx context.Context, sig strategy.Signal) error {
	s.stats.Signals++
	orders, err := executor.Plan(s.position, sig, s.cfg.Symbol, s.cfg.Quantity)
	if err != nil {
		return err
	}

	err = s.executor.Submit(ctx, orders, func(order executor.Order, _ executor.TradeRecord) {
		s.stats.Orders++
		s.position = order.After
	})
	if err != nil {
		s.stats.Rejected++
	}
	return err
}

// abort 行情中断：有持仓时先告警，再强制平仓
func (s *LiveSession) abort(ctx context.Context, cause error) error {
	ctx = context.WithoutCancel(ctx)
	_, logger := log.WithCtx(ctx)

	if s.position != strategy.Flat {
		msg := fmt.Sprintf("symbol=%s position=%s quantity=%s error=%v",
			s.cfg.Symbol, s.position, s.cfg.Quantity.String(), cause)
		if alertErr := s.notifier.Alert(ctx, "bar feed lost", msg); alertErr != nil {
			logger.Error("告警发送失败", "error", alertErr)
		}
	}
	return s.stop(ctx, cause)
}

// stop 强制平仓，失败时告警并返回 ErrFlattenFailed
func (s *LiveSession) stop(ctx context.Context, cause error) error {
	_, logger := log.WithCtx(ctx)

	_, sig := strategy.ForceFlat(s.position)
	if sig != strategy.None {
		fctx, cancel := context.WithTimeout(ctx, flattenTimeout)
		defer cancel()

		if err := s.execute(fctx, sig); err != nil {
			msg := fmt.Sprintf("symbol=%s position=%s quantity=%s error=%v",
				s.cfg.Symbol, s.position, s.cfg.Quantity.String(), err)
			if alertErr := s.notifier.Alert(ctx, "forced flatten failed", msg); alertErr != nil {
				logger.Error("告警发送失败", "error", alertErr)
			}
			return fmt.Errorf("%w: %w", ErrFlattenFailed, err)
		}
	}

	logger.Info("实盘会话结束", "position", s.position, "stats", s.stats)
	return cause
}
