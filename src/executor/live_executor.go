package executor

import (
	"context"
	"fmt"
	"time"

	"breakoutbot/src/cex"

	"github.com/google/uuid"
	"github.com/xpwu/go-log/log"
)

// DefaultFlipDelay 反手两单之间的最小间隔
const DefaultFlipDelay = 100 * time.Millisecond

// LiveExecutor 顺序提交订单并在每个回执确认后回调
type LiveExecutor struct {
	gateway   cex.OrderGateway
	recorder  Recorder
	flipDelay time.Duration
	newID     func() string
}

// NewLiveExecutor 创建执行器
func NewLiveExecutor(gateway cex.OrderGateway, recorder Recorder, flipDelay time.Duration) *LiveExecutor {
	if flipDelay < 0 {
		flipDelay = 0
	}
	return &LiveExecutor{
		gateway:   gateway,
		recorder:  recorder,
		flipDelay: flipDelay,
		newID:     uuid.NewString,
	}
}

// GetName 获取执行器名称
func (e *LiveExecutor) GetName() string {
	return "LiveExecutor"
}

// Submit 依次提交订单
// 每单确认后调用 onAck（调用方在此推进持仓状态），再把成交记录交给 recorder；
// 任一单失败立即返回 OrderRejectedError，后续订单不再提交。
func (e *LiveExecutor) Submit(ctx context.Context, orders []Order, onAck func(Order, TradeRecord)) error {
	ctx, logger := log.WithCtx(ctx)
	logger.PushPrefix("LiveExecutor")

	for i, order := range orders {
		if i > 0 && e.flipDelay > 0 {
			if err := sleep(ctx, e.flipDelay); err != nil {
				return &OrderRejectedError{Order: order, Err: err}
			}
		}

		logger.Info("提交市价单",
			"symbol", order.Symbol,
			"side", order.Side,
			"quantity", order.Quantity.String(),
			"leg", order.Leg,
			"signal", order.Signal.String())

		result, err := e.gateway.PlaceMarketOrder(ctx, cex.MarketOrderRequest{
			Symbol:        order.Symbol,
			Side:          order.Side,
			Quantity:      order.Quantity,
			ClientOrderID: e.newID(),
		})
		if err != nil {
			logger.Error("下单失败", "side", order.Side, "error", err)
			return &OrderRejectedError{Order: order, Err: err}
		}

		record := RecordFromResult(order, result)
		if onAck != nil {
			onAck(order, record)
		}

		if e.recorder != nil {
			if err := e.recorder.Record(ctx, record); err != nil {
				logger.Error(fmt.Sprintf("成交记录保存失败: order=%s", record.OrderID), "error", err)
			}
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
