package binance

import (
	"fmt"
	"time"

	"breakoutbot/src/bar"
	"breakoutbot/src/cex"

	"github.com/adshao/go-binance/v2"
)

// convertKline REST K线转换，收盘时间晚于 now 的K线标记为形成中
func convertKline(k *binance.Kline, now time.Time) (bar.Bar, error) {
	b, err := bar.Parse(time.UnixMilli(k.OpenTime).UTC(), k.Open, k.High, k.Low, k.Close, k.Volume)
	if err != nil {
		return bar.Bar{}, err
	}
	b.Complete = time.UnixMilli(k.CloseTime).Before(now)
	return b, nil
}

// convertWsKline 推送K线转换
func convertWsKline(ev *binance.WsKlineEvent) (*cex.KlineEvent, error) {
	k := ev.Kline
	b, err := bar.Parse(time.UnixMilli(k.StartTime).UTC(), k.Open, k.High, k.Low, k.Close, k.Volume)
	if err != nil {
		return nil, err
	}
	b.Complete = k.IsFinal

	return &cex.KlineEvent{
		EventTime: time.UnixMilli(ev.Time).UTC(),
		Symbol:    ev.Symbol,
		Bar:       b,
	}, nil
}

// convertOrderResponse 下单回执转换
func convertOrderResponse(r *binance.CreateOrderResponse) (*cex.OrderResult, error) {
	qty, err := parseDecimal("executedQty", r.ExecutedQuantity)
	if err != nil {
		return nil, err
	}
	quote, err := parseDecimal("cummulativeQuoteQty", r.CummulativeQuoteQuantity)
	if err != nil {
		return nil, err
	}

	return &cex.OrderResult{
		Symbol:           r.Symbol,
		OrderID:          fmt.Sprintf("%d", r.OrderID),
		ClientOrderID:    r.ClientOrderID,
		Side:             cex.OrderSide(r.Side),
		Status:           string(r.Status),
		ExecutedQuantity: qty,
		QuoteQuantity:    quote,
		TransactTime:     time.UnixMilli(r.TransactTime).UTC(),
	}, nil
}

func convertBalance(asset, free, locked string) (*cex.AccountBalance, error) {
	f, err := parseDecimal("free", free)
	if err != nil {
		return nil, err
	}
	l, err := parseDecimal("locked", locked)
	if err != nil {
		return nil, err
	}
	return &cex.AccountBalance{Asset: asset, Free: f, Locked: l}, nil
}

// convertUserEvent 用户数据流事件转换，不关心的事件返回 nil
func convertUserEvent(ev *binance.WsUserDataEvent) (*cex.AccountEvent, error) {
	switch ev.Event {
	case binance.UserDataEventTypeExecutionReport:
		u := ev.OrderUpdate
		qty, err := parseDecimal("filled volume", u.FilledVolume)
		if err != nil {
			return nil, err
		}
		quote, err := parseDecimal("filled quote volume", u.FilledQuoteVolume)
		if err != nil {
			return nil, err
		}
		return &cex.AccountEvent{
			Type:      cex.AccountEventExecution,
			EventTime: time.UnixMilli(ev.Time).UTC(),
			Execution: &cex.ExecutionReport{
				Symbol:          u.Symbol,
				Side:            cex.OrderSide(u.Side),
				ExecutionType:   string(u.ExecutionType),
				Status:          string(u.Status),
				FilledQuantity:  qty,
				FilledQuote:     quote,
				TransactionTime: time.UnixMilli(u.TransactionTime).UTC(),
			},
		}, nil

	case binance.UserDataEventTypeOutboundAccountPosition:
		updateTime := ev.AccountUpdateTime
		if updateTime == 0 {
			updateTime = ev.Time
		}
		event := &cex.AccountEvent{
			Type:      cex.AccountEventBalance,
			EventTime: time.UnixMilli(updateTime).UTC(),
		}
		for _, u := range ev.AccountUpdate.WsAccountUpdates {
			b, err := convertBalance(u.Asset, u.Free, u.Locked)
			if err != nil {
				return nil, err
			}
			event.Balances = append(event.Balances, b)
		}
		return event, nil

	default:
		return nil, nil
	}
}
