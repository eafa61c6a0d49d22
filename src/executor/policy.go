package executor

import (
	"fmt"

	"breakoutbot/src/cex"
	"breakoutbot/src/strategy"

	"github.com/shopspring/decimal"
)

// Plan 将信号转换为有序订单：开仓/平仓一单，反手两单且平仓在前
func Plan(pos strategy.Position, sig strategy.Signal, symbol string, quantity decimal.Decimal) ([]Order, error) {
	if sig == strategy.None {
		return nil, nil
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("order quantity must be positive, got %s", quantity.String())
	}
	target, err := strategy.Apply(pos, sig)
	if err != nil {
		return nil, err
	}

	order := func(side cex.OrderSide, leg Leg, after strategy.Position) Order {
		return Order{
			Symbol:   symbol,
			Side:     side,
			Quantity: quantity,
			Leg:      leg,
			Signal:   sig,
			After:    after,
		}
	}

	switch sig {
	case strategy.EnterLong:
		return []Order{order(cex.OrderSideBuy, LegOpen, target)}, nil
	case strategy.EnterShort:
		return []Order{order(cex.OrderSideSell, LegOpen, target)}, nil
	case strategy.ExitLongToFlat:
		return []Order{order(cex.OrderSideSell, LegClose, target)}, nil
	case strategy.ExitShortToFlat:
		return []Order{order(cex.OrderSideBuy, LegClose, target)}, nil
	case strategy.ExitShortToLong:
		return []Order{
			order(cex.OrderSideBuy, LegClose, strategy.Flat),
			order(cex.OrderSideBuy, LegOpen, target),
		}, nil
	case strategy.ExitLongToShort:
		return []Order{
			order(cex.OrderSideSell, LegClose, strategy.Flat),
			order(cex.OrderSideSell, LegOpen, target),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", strategy.ErrIllegalTransition, sig)
	}
}
