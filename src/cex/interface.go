package cex

import (
	"context"
	"time"

	"breakoutbot/src/bar"

	"github.com/shopspring/decimal"
)

// TradingPair 标准化的交易对
type TradingPair struct {
	Base  string // 基础货币，如 BTC
	Quote string // 计价货币，如 USDT
}

// String 返回标准化的交易对字符串表示
func (tp TradingPair) String() string {
	return tp.Base + "/" + tp.Quote
}

// Symbol 交易所格式，如 BTCUSDT
func (tp TradingPair) Symbol() string {
	return tp.Base + tp.Quote
}

// OrderSide 订单方向
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Sign 买入为-1，卖出为+1，用于成对交易盈亏计算
func (s OrderSide) Sign() int {
	if s == OrderSideBuy {
		return -1
	}
	return 1
}

// MarketOrderRequest 市价单请求
type MarketOrderRequest struct {
	Symbol        string          `json:"symbol"`
	Side          OrderSide       `json:"side"`
	Quantity      decimal.Decimal `json:"quantity"`
	ClientOrderID string          `json:"client_order_id"`
}

// OrderResult 下单回执
type OrderResult struct {
	Symbol           string          `json:"symbol"`
	OrderID          string          `json:"order_id"`
	ClientOrderID    string          `json:"client_order_id"`
	Side             OrderSide       `json:"side"`
	Status           string          `json:"status"`
	ExecutedQuantity decimal.Decimal `json:"executed_quantity"`
	QuoteQuantity    decimal.Decimal `json:"quote_quantity"` // 累计成交额
	TransactTime     time.Time       `json:"transact_time"`
}

// AvgPrice 成交均价 = 成交额 / 成交量，保留5位小数
func (r *OrderResult) AvgPrice() decimal.Decimal {
	return FillPrice(r.QuoteQuantity, r.ExecutedQuantity)
}

// FillPrice 成交均价，成交量为0时返回0
func FillPrice(quote, quantity decimal.Decimal) decimal.Decimal {
	if quantity.IsZero() {
		return decimal.Zero
	}
	return quote.Div(quantity).Round(5)
}

// AccountBalance 账户余额
type AccountBalance struct {
	Asset  string          `json:"asset"`
	Free   decimal.Decimal `json:"free"`
	Locked decimal.Decimal `json:"locked"`
}

// KlineEvent K线推送事件，Bar.Complete 对应收盘标记
type KlineEvent struct {
	EventTime time.Time `json:"event_time"`
	Symbol    string    `json:"symbol"`
	Bar       bar.Bar   `json:"bar"`
}

// AccountEventType 账户推送类型
type AccountEventType string

const (
	AccountEventExecution AccountEventType = "executionReport"
	AccountEventBalance   AccountEventType = "outboundAccountPosition"
)

// ExecutionReport 订单执行回报
type ExecutionReport struct {
	Symbol          string          `json:"symbol"`
	Side            OrderSide       `json:"side"`
	ExecutionType   string          `json:"execution_type"` // NEW/TRADE/CANCELED...
	Status          string          `json:"status"`         // PARTIALLY_FILLED/FILLED...
	FilledQuantity  decimal.Decimal `json:"filled_quantity"`
	FilledQuote     decimal.Decimal `json:"filled_quote"`
	TransactionTime time.Time       `json:"transaction_time"`
}

// IsFilled 是否为完全成交的成交回报
func (r *ExecutionReport) IsFilled() bool {
	return r.ExecutionType == "TRADE" && r.Status == "FILLED"
}

// AccountEvent 账户推送事件
type AccountEvent struct {
	Type      AccountEventType  `json:"type"`
	EventTime time.Time         `json:"event_time"`
	Execution *ExecutionReport  `json:"execution,omitempty"`
	Balances  []*AccountBalance `json:"balances,omitempty"`
}

// HistoricalSource 历史K线数据源，返回开盘时间在 [startTime, endTime) 内、按时间排序的已收盘K线
type HistoricalSource interface {
	GetBars(ctx context.Context, symbol, interval string, startTime, endTime time.Time) ([]bar.Bar, error)
}

// OrderGateway 下单网关
type OrderGateway interface {
	PlaceMarketOrder(ctx context.Context, order MarketOrderRequest) (*OrderResult, error)
}

// KlineStream 实时K线推送，Next 返回 nil 表示流结束
type KlineStream interface {
	Next(ctx context.Context) (*KlineEvent, error)
	Close() error
}

// AccountStream 账户推送，Next 返回 nil 表示流结束
type AccountStream interface {
	Next(ctx context.Context) (*AccountEvent, error)
	Close() error
}

// CEXClient 中心化交易所客户端接口
type CEXClient interface {
	HistoricalSource
	OrderGateway

	// GetName 获取交易所名称
	GetName() string

	// SubscribeKlines 订阅实时K线
	SubscribeKlines(ctx context.Context, symbol, interval string) (KlineStream, error)

	// SubscribeAccount 订阅账户推送
	SubscribeAccount(ctx context.Context) (AccountStream, error)

	// GetAccount 获取账户余额
	GetAccount(ctx context.Context) ([]*AccountBalance, error)

	// Ping 测试连接
	Ping(ctx context.Context) error

	// GetServerTime 获取服务器时间
	GetServerTime(ctx context.Context) (time.Time, error)
}
