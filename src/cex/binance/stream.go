package binance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"breakoutbot/src/cex"

	"github.com/adshao/go-binance/v2"
	"github.com/xpwu/go-log/log"
)

const listenKeyKeepalive = 30 * time.Minute

// wsStream 把回调式的 websocket 推送转换为按需拉取的事件流
type wsStream[T any] struct {
	events    chan *T
	errs      chan error
	doneC     chan struct{}
	stopC     chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
	onClose   func()
}

func newWsStream[T any]() *wsStream[T] {
	return &wsStream[T]{
		events: make(chan *T, 64),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (s *wsStream[T]) push(ev *T) {
	select {
	case s.events <- ev:
	case <-s.closed:
	}
}

func (s *wsStream[T]) fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

// Next 阻塞直到下一条事件；流结束返回 nil
func (s *wsStream[T]) Next(ctx context.Context) (*T, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ev := <-s.events:
		return ev, nil
	case err := <-s.errs:
		return nil, err
	case <-s.doneC:
		return nil, nil
	case <-s.closed:
		return nil, nil
	}
}

// Close 停止订阅，可重复调用
func (s *wsStream[T]) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.stopC != nil {
			close(s.stopC)
		}
		if s.onClose != nil {
			s.onClose()
		}
	})
	return nil
}

// SubscribeKlines 订阅K线推送
func (c *Client) SubscribeKlines(ctx context.Context, symbol, interval string) (cex.KlineStream, error) {
	s := newWsStream[cex.KlineEvent]()

	handler := func(ev *binance.WsKlineEvent) {
		e, err := convertWsKline(ev)
		if err != nil {
			s.fail(err)
			return
		}
		s.push(e)
	}

	doneC, stopC, err := binance.WsKlineServe(symbol, interval, handler, s.fail)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe klines %s %s: %w", symbol, interval, err)
	}
	s.doneC, s.stopC = doneC, stopC

	return s, nil
}

// SubscribeAccount 订阅用户数据流（成交回报与余额快照）
func (c *Client) SubscribeAccount(ctx context.Context) (cex.AccountStream, error) {
	ctx, logger := log.WithCtx(ctx)
	logger.PushPrefix("BinanceUserStream")

	// SDK 通过包级变量选择 websocket 地址
	binance.UseTestnet = c.testnet

	listenKey, err := c.trade.NewStartUserStreamService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start user stream: %w", err)
	}

	s := newWsStream[cex.AccountEvent]()
	handler := func(ev *binance.WsUserDataEvent) {
		e, err := convertUserEvent(ev)
		if err != nil {
			s.fail(err)
			return
		}
		if e != nil {
			s.push(e)
		}
	}

	doneC, stopC, err := binance.WsUserDataServe(listenKey, handler, s.fail)
	if err != nil {
		return nil, fmt.Errorf("failed to serve user data stream: %w", err)
	}
	s.doneC, s.stopC = doneC, stopC

	keepaliveCtx, cancel := context.WithCancel(context.Background())
	go c.keepalive(keepaliveCtx, listenKey)

	s.onClose = func() {
		cancel()
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := c.trade.NewCloseUserStreamService().ListenKey(listenKey).Do(closeCtx); err != nil {
			logger.Error("关闭用户数据流失败", "error", err)
		}
	}

	logger.Info("用户数据流已建立")
	return s, nil
}

func (c *Client) keepalive(ctx context.Context, listenKey string) {
	ctx, logger := log.WithCtx(ctx)
	logger.PushPrefix("BinanceUserStream")

	ticker := time.NewTicker(listenKeyKeepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.trade.NewKeepaliveUserStreamService().ListenKey(listenKey).Do(ctx); err != nil {
				logger.Error("listenKey 续期失败", "error", err)
			}
		}
	}
}
