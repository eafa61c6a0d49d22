package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"breakoutbot/src/cex"

	"github.com/shopspring/decimal"
)

// PaperGateway 模拟下单网关（dry run）：按最新收盘价全部成交，扣除手续费
type PaperGateway struct {
	mu         sync.Mutex
	price      decimal.Decimal
	now        time.Time
	commission decimal.Decimal

	position decimal.Decimal // 基础资产净头寸，空头为负
	cash     decimal.Decimal // 计价资产净流入
	fees     decimal.Decimal
	seq      int64
}

// NewPaperGateway 创建模拟网关
func NewPaperGateway(commission float64) *PaperGateway {
	return &PaperGateway{commission: decimal.NewFromFloat(commission)}
}

// SetMarket 更新模拟成交使用的价格与时间
func (g *PaperGateway) SetMarket(price decimal.Decimal, at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.price = price
	g.now = at
}

// PlaceMarketOrder 模拟成交
func (g *PaperGateway) PlaceMarketOrder(ctx context.Context, order cex.MarketOrderRequest) (*cex.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.price.IsPositive() {
		return nil, fmt.Errorf("paper gateway has no market price")
	}

	notional := order.Quantity.Mul(g.price)
	fee := notional.Mul(g.commission)
	switch order.Side {
	case cex.OrderSideBuy:
		g.position = g.position.Add(order.Quantity)
		g.cash = g.cash.Sub(notional)
	case cex.OrderSideSell:
		g.position = g.position.Sub(order.Quantity)
		g.cash = g.cash.Add(notional)
	default:
		return nil, fmt.Errorf("unknown order side %q", order.Side)
	}
	g.cash = g.cash.Sub(fee)
	g.fees = g.fees.Add(fee)
	g.seq++

	return &cex.OrderResult{
		Symbol:           order.Symbol,
		OrderID:          fmt.Sprintf("paper_%d", g.seq),
		ClientOrderID:    order.ClientOrderID,
		Side:             order.Side,
		Status:           "FILLED",
		ExecutedQuantity: order.Quantity,
		QuoteQuantity:    notional,
		TransactTime:     g.now,
	}, nil
}

// PaperSummary 模拟账户汇总
type PaperSummary struct {
	Position decimal.Decimal
	Cash     decimal.Decimal
	Fees     decimal.Decimal
	Equity   decimal.Decimal // 按最新价格计算的净值变化
	Orders   int64
}

// Summary 返回模拟账户汇总
func (g *PaperGateway) Summary() PaperSummary {
	g.mu.Lock()
	defer g.mu.Unlock()
	return PaperSummary{
		Position: g.position,
		Cash:     g.cash,
		Fees:     g.fees,
		Equity:   g.cash.Add(g.position.Mul(g.price)),
		Orders:   g.seq,
	}
}
