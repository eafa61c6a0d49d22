package executor

import (
	"context"
	"time"

	"breakoutbot/src/cex"
	"breakoutbot/src/strategy"

	"github.com/shopspring/decimal"
)

// Leg 订单在信号中的角色
type Leg string

const (
	LegOpen  Leg = "OPEN"
	LegClose Leg = "CLOSE"
)

// Order 待提交的市价单，After 为该单确认成交后的持仓状态
type Order struct {
	Symbol   string            `json:"symbol"`
	Side     cex.OrderSide     `json:"side"`
	Quantity decimal.Decimal   `json:"quantity"`
	Leg      Leg               `json:"leg"`
	Signal   strategy.Signal   `json:"signal"`
	After    strategy.Position `json:"after"`
}

// TradeRecord 成交记录，交给持久化协作者而不在本地保存
type TradeRecord struct {
	Time     time.Time       `json:"time"`
	Symbol   string          `json:"symbol"`
	Side     cex.OrderSide   `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	OrderID  string          `json:"order_id"`
	Reason   string          `json:"reason"`
}

// Recorder 成交记录持久化接口
type Recorder interface {
	Record(ctx context.Context, rec TradeRecord) error
}

// RecordFromResult 从下单回执提取成交记录
func RecordFromResult(order Order, result *cex.OrderResult) TradeRecord {
	side := result.Side
	if side == "" {
		side = order.Side
	}
	symbol := result.Symbol
	if symbol == "" {
		symbol = order.Symbol
	}
	return TradeRecord{
		Time:     result.TransactTime,
		Symbol:   symbol,
		Side:     side,
		Price:    result.AvgPrice(),
		Quantity: result.ExecutedQuantity,
		OrderID:  result.OrderID,
		Reason:   order.Signal.String(),
	}
}
