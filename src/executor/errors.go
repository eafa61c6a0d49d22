package executor

import (
	"fmt"
)

// OrderRejectedError 网关拒单，持仓状态不变，是否重试由调用方决定
type OrderRejectedError struct {
	Order Order
	Err   error
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("order rejected: %s %s %s (%s leg of %s): %v",
		e.Order.Side, e.Order.Quantity.String(), e.Order.Symbol, e.Order.Leg, e.Order.Signal, e.Err)
}

func (e *OrderRejectedError) Unwrap() error {
	return e.Err
}
