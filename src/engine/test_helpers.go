package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"breakoutbot/src/bar"
	"breakoutbot/src/cex"

	"github.com/shopspring/decimal"
)

var TestError = errors.New("test error")

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// testBar 第 i 根1分钟K线
func testBar(i int, open, high, low, close, volume float64) bar.Bar {
	return bar.Bar{
		Timestamp: testStart.Add(time.Duration(i) * time.Minute),
		Open:      decimal.NewFromFloat(open),
		High:      decimal.NewFromFloat(high),
		Low:       decimal.NewFromFloat(low),
		Close:     decimal.NewFromFloat(close),
		Volume:    decimal.NewFromFloat(volume),
		Complete:  true,
	}
}

// warmupBars 三根平稳K线，W=2 时突破阈值为 high>=102、low<=99、volume>11
func warmupBars() []bar.Bar {
	return []bar.Bar{
		testBar(0, 100, 101, 99, 100, 10),
		testBar(1, 100, 102, 99, 101, 10),
		testBar(2, 101, 102, 100, 101, 10),
	}
}

// MockHistoricalSource 固定返回K线
type MockHistoricalSource struct {
	Bars      []bar.Bar
	Err       error
	CallCount int
}

func (m *MockHistoricalSource) GetBars(ctx context.Context, symbol, interval string, startTime, endTime time.Time) ([]bar.Bar, error) {
	m.CallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Bars, nil
}

// MockGateway 记录订单，FailOn 指定第几次下单（从1开始）失败
type MockGateway struct {
	mu     sync.Mutex
	Orders []cex.MarketOrderRequest
	FailOn map[int]bool
	calls  int
}

func (m *MockGateway) PlaceMarketOrder(ctx context.Context, order cex.MarketOrderRequest) (*cex.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.FailOn[m.calls] {
		return nil, TestError
	}
	m.Orders = append(m.Orders, order)
	return &cex.OrderResult{
		Symbol:           order.Symbol,
		OrderID:          fmt.Sprintf("%d", m.calls),
		Side:             order.Side,
		Status:           "FILLED",
		ExecutedQuantity: order.Quantity,
		QuoteQuantity:    order.Quantity.Mul(decimal.NewFromInt(100)),
		TransactTime:     testStart,
	}, nil
}

func (m *MockGateway) Sides() []cex.OrderSide {
	m.mu.Lock()
	defer m.mu.Unlock()
	sides := make([]cex.OrderSide, len(m.Orders))
	for i, o := range m.Orders {
		sides[i] = o.Side
	}
	return sides
}

// MockNotifier 记录告警
type MockNotifier struct {
	Alerts []string
}

func (m *MockNotifier) Alert(ctx context.Context, subject, message string) error {
	m.Alerts = append(m.Alerts, subject+": "+message)
	return nil
}

// sliceFeed 按顺序推送给定更新（保留 Complete 标记），每次 Next 前以当前下标调用 hook
// 推送完毕后返回 err，err 为空时表示数据流结束
type sliceFeed struct {
	bars   []bar.Bar
	idx    int
	hook   func(idx int)
	err    error
	closed bool
}

func (f *sliceFeed) Next(ctx context.Context) (*bar.Bar, error) {
	if f.hook != nil {
		f.hook(f.idx)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.idx >= len(f.bars) {
		return nil, f.err
	}
	b := f.bars[f.idx]
	f.idx++
	return &b, nil
}

func (f *sliceFeed) Close() error {
	f.closed = true
	return nil
}

// fakeClock 可手动推进的时钟
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
