package binance

import (
	"context"
	"fmt"
	"time"

	"breakoutbot/src/bar"
	"breakoutbot/src/cex"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

const (
	// DefaultBaseURL 现货行情接口
	DefaultBaseURL = "https://api.binance.com"
	// TestnetBaseURL 现货测试网
	TestnetBaseURL = "https://testnet.binance.vision"

	klinePageLimit = 1000
)

// Client Binance客户端实现
// 行情与下单使用两个底层客户端：测试网下单时行情仍来自主网
type Client struct {
	data    *binance.Client
	trade   *binance.Client
	testnet bool
	now     func() time.Time
}

// NewClient 创建Binance客户端
func NewClient(opts cex.Options) *Client {
	dataURL := opts.DataBaseURL
	if dataURL == "" {
		dataURL = DefaultBaseURL
	}
	orderURL := opts.OrderBaseURL
	if orderURL == "" {
		orderURL = dataURL
		if opts.Testnet {
			orderURL = TestnetBaseURL
		}
	}

	data := binance.NewClient("", "")
	data.BaseURL = dataURL

	trade := binance.NewClient(opts.APIKey, opts.SecretKey)
	trade.BaseURL = orderURL

	return &Client{
		data:    data,
		trade:   trade,
		testnet: opts.Testnet,
		now:     time.Now,
	}
}

// GetName 获取交易所名称
func (c *Client) GetName() string {
	return "binance"
}

// GetBars 获取开盘时间在 [startTime, endTime) 内已收盘的K线，自动分页克服1000条限制
func (c *Client) GetBars(ctx context.Context, symbol, interval string, startTime, endTime time.Time) ([]bar.Bar, error) {
	var all []bar.Bar
	currentStart := startTime
	now := c.now()

	for currentStart.Before(endTime) {
		klines, err := c.data.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(currentStart.UnixMilli()).
			EndTime(endTime.UnixMilli()-1).
			Limit(klinePageLimit).
			Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get klines from Binance: %w", err)
		}
		if len(klines) == 0 {
			break
		}

		for _, k := range klines {
			b, err := convertKline(k, now)
			if err != nil {
				return nil, err
			}
			if !b.Complete {
				continue
			}
			all = append(all, b)
		}

		last := klines[len(klines)-1]
		currentStart = time.UnixMilli(last.CloseTime + 1)

		if len(klines) < klinePageLimit {
			break
		}
	}

	return all, nil
}

// PlaceMarketOrder 提交市价单并返回成交回执
func (c *Client) PlaceMarketOrder(ctx context.Context, order cex.MarketOrderRequest) (*cex.OrderResult, error) {
	service := c.trade.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(binance.SideType(order.Side)).
		Type(binance.OrderTypeMarket).
		Quantity(order.Quantity.String())
	if order.ClientOrderID != "" {
		service = service.NewClientOrderID(order.ClientOrderID)
	}

	result, err := service.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to place %s order on Binance: %w", order.Side, err)
	}

	return convertOrderResponse(result)
}

// GetAccount 获取账户余额
func (c *Client) GetAccount(ctx context.Context) ([]*cex.AccountBalance, error) {
	account, err := c.trade.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account from Binance: %w", err)
	}

	balances := make([]*cex.AccountBalance, 0, len(account.Balances))
	for _, balance := range account.Balances {
		b, err := convertBalance(balance.Asset, balance.Free, balance.Locked)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, nil
}

// Ping 测试连接
func (c *Client) Ping(ctx context.Context) error {
	if err := c.data.NewPingService().Do(ctx); err != nil {
		return fmt.Errorf("Binance ping failed: %w", err)
	}
	return nil
}

// GetServerTime 获取服务器时间
func (c *Client) GetServerTime(ctx context.Context) (time.Time, error) {
	ms, err := c.data.NewServerTimeService().Do(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get server time: %w", err)
	}
	return time.UnixMilli(ms), nil
}

func parseDecimal(field, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse %s %q: %w", field, v, err)
	}
	return d, nil
}
