package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"breakoutbot/src/bar"
	"breakoutbot/src/cex"
	"breakoutbot/src/executor"
	"breakoutbot/src/notify"
	"breakoutbot/src/strategy"
	"breakoutbot/src/timeframes"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 突破K线：high 105 >= 102，volume 50 > 11
var breakoutBar = testBar(3, 101, 105, 101, 104, 50)

// 止损K线：多头止损价 104-3=101，low 90 跌破
var stopBar = testBar(4, 104, 104.5, 90, 92, 10)

type captureRecorder struct {
	records []executor.TradeRecord
}

func (c *captureRecorder) Record(ctx context.Context, rec executor.TradeRecord) error {
	c.records = append(c.records, rec)
	return nil
}

func newTestSession(t *testing.T, gw cex.OrderGateway, rec executor.Recorder, notifier notify.Notifier, budget time.Duration, clk *fakeClock) *LiveSession {
	t.Helper()

	strat, err := strategy.NewBreakout(strategy.Params{LookbackWindow: 2, VolumeMultiplier: 1.1})
	require.NoError(t, err)

	cfg := SessionConfig{
		Symbol:    "BTCUSDT",
		Timeframe: timeframes.Timeframe1m,
		Quantity:  decimal.RequireFromString("0.005"),
		Budget:    budget,
	}
	s, err := NewLiveSession(cfg, strat, executor.NewLiveExecutor(gw, rec, 0), notifier)
	require.NoError(t, err)
	s.now = clk.Now

	source := &MockHistoricalSource{Bars: warmupBars()}
	require.NoError(t, s.WarmUp(context.Background(), source))
	require.Equal(t, 1, source.CallCount)
	return s
}

func TestNewLiveSession_Validation(t *testing.T) {
	strat, err := strategy.NewBreakout(strategy.GetDefaultParams())
	require.NoError(t, err)
	exec := executor.NewLiveExecutor(&MockGateway{}, nil, 0)

	_, err = NewLiveSession(SessionConfig{Symbol: "BTCUSDT", Timeframe: timeframes.Timeframe1m}, strat, exec, nil)
	assert.Error(t, err)

	_, err = NewLiveSession(SessionConfig{Symbol: "BTCUSDT", Timeframe: "7m", Quantity: decimal.NewFromInt(1)}, strat, exec, nil)
	assert.Error(t, err)

	s, err := NewLiveSession(SessionConfig{Symbol: "BTCUSDT", Timeframe: timeframes.Timeframe1m, Quantity: decimal.NewFromInt(1)}, strat, exec, nil)
	require.NoError(t, err)
	assert.Equal(t, strategy.GetDefaultParams().LookbackWindow+2, s.store.Capacity())
	assert.Equal(t, strategy.Flat, s.Position())
}

func TestLiveSession_WarmUpError(t *testing.T) {
	strat, err := strategy.NewBreakout(strategy.Params{LookbackWindow: 2, VolumeMultiplier: 1.1})
	require.NoError(t, err)
	s, err := NewLiveSession(SessionConfig{Symbol: "BTCUSDT", Timeframe: timeframes.Timeframe1m, Quantity: decimal.NewFromInt(1)},
		strat, executor.NewLiveExecutor(&MockGateway{}, nil, 0), nil)
	require.NoError(t, err)

	err = s.WarmUp(context.Background(), &MockHistoricalSource{Err: TestError})
	assert.ErrorIs(t, err, TestError)
}

func TestLiveSession_ReplayWithPaperGateway(t *testing.T) {
	clk := &fakeClock{now: testStart.Add(3 * time.Minute)}
	paper := executor.NewPaperGateway(0)
	rec := &captureRecorder{}
	s := newTestSession(t, paper, rec, nil, 0, clk)
	s.SetMarketObserver(paper)

	err := s.Run(context.Background(), NewReplayFeed([]bar.Bar{breakoutBar, stopBar}))
	require.NoError(t, err)

	assert.Equal(t, strategy.Flat, s.Position())
	require.Len(t, rec.records, 2)
	assert.Equal(t, cex.OrderSideBuy, rec.records[0].Side)
	assert.Equal(t, "GOING LONG", rec.records[0].Reason)
	assert.True(t, rec.records[0].Price.Equal(decimal.NewFromInt(104)))
	assert.Equal(t, cex.OrderSideSell, rec.records[1].Side)
	assert.Equal(t, "GOING NEUTRAL FROM LONG", rec.records[1].Reason)
	assert.True(t, rec.records[1].Price.Equal(decimal.NewFromInt(92)))

	summary := paper.Summary()
	assert.Equal(t, int64(2), summary.Orders)
	assert.True(t, summary.Position.IsZero())

	stats := s.Stats()
	assert.Equal(t, 2, stats.Bars)
	assert.Equal(t, 2, stats.Signals)
	assert.Equal(t, 2, stats.Orders)
}

func TestLiveSession_OnlyCompleteBarsDecide(t *testing.T) {
	clk := &fakeClock{now: testStart.Add(3 * time.Minute)}
	gw := &MockGateway{}
	s := newTestSession(t, gw, nil, nil, 0, clk)

	forming := breakoutBar
	forming.Complete = false
	feed := &sliceFeed{bars: []bar.Bar{forming, breakoutBar}}

	require.NoError(t, s.Run(context.Background(), feed))

	assert.Equal(t, []cex.OrderSide{cex.OrderSideBuy}, gw.Sides())
	assert.Equal(t, strategy.Long, s.Position())
	assert.Equal(t, 2, s.Stats().Updates)
	assert.Equal(t, 1, s.Stats().Bars)
	assert.True(t, feed.closed)
}

func TestLiveSession_RejectsMalformedBars(t *testing.T) {
	clk := &fakeClock{now: testStart.Add(3 * time.Minute)}
	gw := &MockGateway{}
	s := newTestSession(t, gw, nil, nil, 0, clk)

	feed := &sliceFeed{bars: []bar.Bar{
		testBar(1, 100, 102, 99, 101, 10), // 时间倒退
		testBar(2, 101, 102, 100, 101, 10), // 与已收盘K线重复
	}}

	require.NoError(t, s.Run(context.Background(), feed))
	assert.Equal(t, 2, s.Stats().Malformed)
	assert.Empty(t, gw.Sides())
}

func TestLiveSession_SkipsUntilIndicatorsReady(t *testing.T) {
	strat, err := strategy.NewBreakout(strategy.Params{LookbackWindow: 2, VolumeMultiplier: 1.1})
	require.NoError(t, err)
	gw := &MockGateway{}
	s, err := NewLiveSession(SessionConfig{Symbol: "BTCUSDT", Timeframe: timeframes.Timeframe1m, Quantity: decimal.NewFromInt(1)},
		strat, executor.NewLiveExecutor(gw, nil, 0), nil)
	require.NoError(t, err)

	// 未预热：前两根没有可用的上一根指标
	feed := NewReplayFeed([]bar.Bar{warmupBars()[0], warmupBars()[1], warmupBars()[2], breakoutBar})
	require.NoError(t, s.Run(context.Background(), feed))

	assert.Equal(t, 2, s.Stats().Skipped)
	assert.Equal(t, []cex.OrderSide{cex.OrderSideBuy}, gw.Sides())
}

func TestLiveSession_SessionExpiryFlattens(t *testing.T) {
	clk := &fakeClock{now: testStart.Add(3 * time.Minute)}
	gw := &MockGateway{}
	s := newTestSession(t, gw, nil, nil, 10*time.Minute, clk)

	feed := &sliceFeed{
		bars: []bar.Bar{breakoutBar, testBar(4, 104, 106, 103, 105, 10)},
		hook: func(idx int) {
			if idx == 1 {
				clk.Advance(10 * time.Minute)
			}
		},
	}

	require.NoError(t, s.Run(context.Background(), feed))

	assert.Equal(t, []cex.OrderSide{cex.OrderSideBuy, cex.OrderSideSell}, gw.Sides())
	assert.Equal(t, strategy.Flat, s.Position())
	assert.Equal(t, 1, s.Stats().Updates)
	assert.True(t, feed.closed)
}

func TestLiveSession_FlattenFailureIsAlerted(t *testing.T) {
	clk := &fakeClock{now: testStart.Add(3 * time.Minute)}
	gw := &MockGateway{FailOn: map[int]bool{2: true}}
	notifier := &MockNotifier{}
	s := newTestSession(t, gw, nil, notifier, time.Minute, clk)

	feed := &sliceFeed{
		bars: []bar.Bar{breakoutBar, stopBar},
		hook: func(idx int) {
			if idx == 1 {
				clk.Advance(time.Minute)
			}
		},
	}

	err := s.Run(context.Background(), feed)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFlattenFailed)
	assert.ErrorIs(t, err, TestError)

	var rejected *executor.OrderRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, cex.OrderSideSell, rejected.Order.Side)

	assert.Equal(t, strategy.Long, s.Position())
	require.Len(t, notifier.Alerts, 1)
	assert.Contains(t, notifier.Alerts[0], "forced flatten failed")
}

func TestLiveSession_FeedLossFlattensAndAlerts(t *testing.T) {
	clk := &fakeClock{now: testStart.Add(3 * time.Minute)}

	t.Run("行情出错时平多并告警", func(t *testing.T) {
		gw := &MockGateway{}
		notifier := &MockNotifier{}
		s := newTestSession(t, gw, nil, notifier, 0, clk)

		feedErr := errors.New("websocket: close 1006 (abnormal closure): unexpected EOF")
		feed := &sliceFeed{bars: []bar.Bar{breakoutBar}, err: feedErr}

		err := s.Run(context.Background(), feed)
		assert.ErrorIs(t, err, feedErr)
		assert.Equal(t, strategy.Flat, s.Position())
		assert.Equal(t, []cex.OrderSide{cex.OrderSideBuy, cex.OrderSideSell}, gw.Sides())
		require.Len(t, notifier.Alerts, 1)
		assert.Contains(t, notifier.Alerts[0], "bar feed lost")
		assert.Contains(t, notifier.Alerts[0], "position=LONG")
		assert.True(t, feed.closed)
	})

	t.Run("实时流意外结束时平仓", func(t *testing.T) {
		gw := &MockGateway{}
		notifier := &MockNotifier{}
		s := newTestSession(t, gw, nil, notifier, 0, clk)
		s.cfg.FlattenOnEnd = true

		err := s.Run(context.Background(), &sliceFeed{bars: []bar.Bar{breakoutBar}})
		assert.ErrorIs(t, err, ErrFeedEnded)
		assert.Equal(t, strategy.Flat, s.Position())
		assert.Equal(t, []cex.OrderSide{cex.OrderSideBuy, cex.OrderSideSell}, gw.Sides())
		require.Len(t, notifier.Alerts, 1)
		assert.Contains(t, notifier.Alerts[0], "bar feed lost")
	})

	t.Run("平仓也失败时两次告警", func(t *testing.T) {
		gw := &MockGateway{FailOn: map[int]bool{2: true}}
		notifier := &MockNotifier{}
		s := newTestSession(t, gw, nil, notifier, 0, clk)

		err := s.Run(context.Background(), &sliceFeed{bars: []bar.Bar{breakoutBar}, err: TestError})
		assert.ErrorIs(t, err, ErrFlattenFailed)
		assert.Equal(t, strategy.Long, s.Position())
		require.Len(t, notifier.Alerts, 2)
		assert.Contains(t, notifier.Alerts[1], "forced flatten failed")
	})

	t.Run("空仓时行情出错不告警", func(t *testing.T) {
		gw := &MockGateway{}
		notifier := &MockNotifier{}
		s := newTestSession(t, gw, nil, notifier, 0, clk)

		err := s.Run(context.Background(), &sliceFeed{err: TestError})
		assert.ErrorIs(t, err, TestError)
		assert.Empty(t, gw.Sides())
		assert.Empty(t, notifier.Alerts)
	})

	t.Run("回放结束保持持仓", func(t *testing.T) {
		gw := &MockGateway{}
		notifier := &MockNotifier{}
		s := newTestSession(t, gw, nil, notifier, 0, clk)

		require.NoError(t, s.Run(context.Background(), NewReplayFeed([]bar.Bar{breakoutBar})))
		assert.Equal(t, strategy.Long, s.Position())
		assert.Empty(t, notifier.Alerts)
	})
}

func TestLiveSession_CancelFlattens(t *testing.T) {
	clk := &fakeClock{now: testStart.Add(3 * time.Minute)}
	gw := &MockGateway{}
	s := newTestSession(t, gw, nil, nil, 0, clk)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed := &sliceFeed{
		bars: []bar.Bar{breakoutBar},
		hook: func(idx int) {
			if idx == 1 {
				cancel()
			}
		},
	}

	err := s.Run(ctx, feed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []cex.OrderSide{cex.OrderSideBuy, cex.OrderSideSell}, gw.Sides())
	assert.Equal(t, strategy.Flat, s.Position())
}

func TestLiveSession_Execute(t *testing.T) {
	clk := &fakeClock{now: testStart.Add(3 * time.Minute)}

	t.Run("拒单不改变持仓", func(t *testing.T) {
		gw := &MockGateway{FailOn: map[int]bool{1: true}}
		s := newTestSession(t, gw, nil, nil, 0, clk)

		err := s.execute(context.Background(), strategy.EnterLong)
		assert.Error(t, err)
		assert.Equal(t, strategy.Flat, s.Position())
		assert.Equal(t, 1, s.Stats().Rejected)
	})

	t.Run("反手第二单失败后为空仓", func(t *testing.T) {
		gw := &MockGateway{FailOn: map[int]bool{2: true}}
		s := newTestSession(t, gw, nil, nil, 0, clk)
		s.position = strategy.Long

		err := s.execute(context.Background(), strategy.ExitLongToShort)
		assert.Error(t, err)
		assert.Equal(t, strategy.Flat, s.Position())
		assert.Equal(t, []cex.OrderSide{cex.OrderSideSell}, gw.Sides())
	})

	t.Run("反手成功", func(t *testing.T) {
		gw := &MockGateway{}
		s := newTestSession(t, gw, nil, nil, 0, clk)
		s.position = strategy.Short

		require.NoError(t, s.execute(context.Background(), strategy.ExitShortToLong))
		assert.Equal(t, strategy.Long, s.Position())
		assert.Equal(t, []cex.OrderSide{cex.OrderSideBuy, cex.OrderSideBuy}, gw.Sides())
	})

	t.Run("非法迁移", func(t *testing.T) {
		s := newTestSession(t, &MockGateway{}, nil, nil, 0, clk)
		err := s.execute(context.Background(), strategy.ExitLongToFlat)
		assert.ErrorIs(t, err, strategy.ErrIllegalTransition)
	})
}

func TestSessionClock(t *testing.T) {
	start := testStart
	clock := NewSessionClock(start, time.Hour)

	assert.False(t, clock.Expired(start.Add(59*time.Minute)))
	assert.True(t, clock.Expired(start.Add(time.Hour)))
	assert.Equal(t, start.Add(time.Hour), clock.Deadline())
	assert.Equal(t, 30*time.Minute, clock.Remaining(start.Add(30*time.Minute)))
	assert.Equal(t, time.Duration(0), clock.Remaining(start.Add(2*time.Hour)))

	unlimited := NewSessionClock(start, 0)
	assert.False(t, unlimited.Expired(start.Add(1000*time.Hour)))
	assert.True(t, unlimited.Deadline().IsZero())
}

func TestReplayFeed(t *testing.T) {
	forming := breakoutBar
	forming.Complete = false
	feed := NewReplayFeed([]bar.Bar{forming})

	b, err := feed.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, b.Complete)

	b, err = feed.Next(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewReplayFeed([]bar.Bar{forming}).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
