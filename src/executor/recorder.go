package executor

import (
	"context"

	"github.com/xpwu/go-log/log"
)

// LogRecorder 仅输出日志的成交记录器
type LogRecorder struct{}

// Record 输出成交报告
func (LogRecorder) Record(ctx context.Context, rec TradeRecord) error {
	_, logger := log.WithCtx(ctx)
	logger.PushPrefix("TradeReport")
	logger.Info(rec.Reason,
		"time", rec.Time,
		"symbol", rec.Symbol,
		"side", rec.Side,
		"price", rec.Price.String(),
		"quantity", rec.Quantity.String(),
		"order_id", rec.OrderID)
	return nil
}

// MultiRecorder 依次写入多个记录器，返回第一个错误
type MultiRecorder []Recorder

// Record 写入全部记录器
func (m MultiRecorder) Record(ctx context.Context, rec TradeRecord) error {
	var first error
	for _, r := range m {
		if err := r.Record(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
