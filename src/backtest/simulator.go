package backtest

import (
	"errors"
	"fmt"
	"time"

	"breakoutbot/src/bar"
	"breakoutbot/src/cex"
	"breakoutbot/src/indicators"
	"breakoutbot/src/metrics"
	"breakoutbot/src/strategy"

	"github.com/shopspring/decimal"
)

// ErrInsufficientData 有效K线不足，无法回测
var ErrInsufficientData = errors.New("not enough bars for the lookback window")

// Config 回测参数
type Config struct {
	Params strategy.Params
	Cost   float64 // 每个已执行信号扣除一次的比例成本
}

// Result 回测结果
// Returns 从第一根有效指标K线开始，Returns[0]=0
type Result struct {
	Times      []time.Time         `json:"times"`
	Returns    []float64           `json:"returns"`
	Positions  []strategy.Position `json:"positions"`
	Signals    []strategy.Signal   `json:"signals"`
	Trades     []metrics.Trade     `json:"trades"`
	TradeCount int                 `json:"trade_count"`
	Skipped    int                 `json:"skipped"` // 指标缺失而跳过决策的K线数
}

// Run 计算指标并回放状态机
func Run(bars []bar.Bar, cfg Config) (*Result, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if err := bar.CheckSeries(bars); err != nil {
		return nil, err
	}
	frames, err := indicators.Compute(bars, cfg.Params.LookbackWindow)
	if err != nil {
		return nil, err
	}
	return Simulate(bars, frames, cfg)
}

// Simulate 在预先计算的指标上回放，收盘价模拟成交，无滑点
func Simulate(bars []bar.Bar, frames []indicators.Frame, cfg Config) (*Result, error) {
	if len(frames) != len(bars) {
		return nil, fmt.Errorf("frames length %d does not match bars length %d", len(frames), len(bars))
	}
	window := cfg.Params.LookbackWindow
	start := indicators.FirstValid(window)
	if len(bars) <= start {
		return nil, fmt.Errorf("%w: have %d bars, window %d", ErrInsufficientData, len(bars), window)
	}

	n := len(bars) - start
	res := &Result{
		Times:     make([]time.Time, n),
		Returns:   make([]float64, n),
		Positions: make([]strategy.Position, n),
		Signals:   make([]strategy.Signal, n),
	}
	res.Times[0] = bars[start].Timestamp

	pos := strategy.Flat
	for k := 1; k < n; k++ {
		i := start + k
		cur := bars[i]
		res.Times[k] = cur.Timestamp

		prev, err := indicators.At(frames, i-1, window)
		if err != nil {
			// 指标缺失：不做决策，仅按原持仓计收益
			res.Skipped++
			res.Returns[k] = holdReturn(pos, bars[i-1].Close, cur.Close)
			res.Positions[k] = pos
			continue
		}

		next, sig := strategy.Decide(pos, prev, cur, cfg.Params.VolumeMultiplier)
		r := barReturn(pos, sig, prev, cur)
		if sig != strategy.None {
			r = (1+r)*(1-cfg.Cost) - 1
			res.Trades = append(res.Trades, fills(sig, prev, cur)...)
			if sig.IsFlip() {
				res.TradeCount += 2
			} else {
				res.TradeCount++
			}
		}

		res.Returns[k] = r
		res.Signals[k] = sig
		res.Positions[k] = next
		pos = next
	}

	return res, nil
}

// ratio 价格比值，收益与指标从这里开始使用浮点
func ratio(price, base decimal.Decimal) float64 {
	return price.Div(base).InexactFloat64()
}

// holdReturn 持仓未变化时的收益，空头取反
func holdReturn(pos strategy.Position, prevClose, close decimal.Decimal) float64 {
	switch pos {
	case strategy.Long:
		return ratio(close, prevClose) - 1
	case strategy.Short:
		return 1 - ratio(close, prevClose)
	default:
		return 0
	}
}

// barReturn 单根K线收益：止损按止损价成交，反手只计平仓腿
func barReturn(pos strategy.Position, sig strategy.Signal, prev indicators.Frame, cur bar.Bar) float64 {
	switch sig {
	case strategy.EnterLong, strategy.EnterShort:
		return 0
	case strategy.ExitLongToFlat:
		return ratio(strategy.LongStop(prev), prev.Close) - 1
	case strategy.ExitShortToFlat:
		return 1 - ratio(strategy.ShortStop(prev), prev.Close)
	case strategy.ExitLongToShort:
		return ratio(cur.Close, prev.Close) - 1
	case strategy.ExitShortToLong:
		return 1 - ratio(cur.Close, prev.Close)
	default:
		return holdReturn(pos, prev.Close, cur.Close)
	}
}

// fills 模拟成交记录，反手产生两笔
func fills(sig strategy.Signal, prev indicators.Frame, cur bar.Bar) []metrics.Trade {
	at := func(side cex.OrderSide, price decimal.Decimal) metrics.Trade {
		return metrics.Trade{Time: cur.Timestamp, Side: side, Price: price.InexactFloat64()}
	}
	switch sig {
	case strategy.EnterLong:
		return []metrics.Trade{at(cex.OrderSideBuy, cur.Close)}
	case strategy.EnterShort:
		return []metrics.Trade{at(cex.OrderSideSell, cur.Close)}
	case strategy.ExitLongToFlat:
		return []metrics.Trade{at(cex.OrderSideSell, strategy.LongStop(prev))}
	case strategy.ExitShortToFlat:
		return []metrics.Trade{at(cex.OrderSideBuy, strategy.ShortStop(prev))}
	case strategy.ExitLongToShort:
		return []metrics.Trade{at(cex.OrderSideSell, cur.Close), at(cex.OrderSideSell, cur.Close)}
	case strategy.ExitShortToLong:
		return []metrics.Trade{at(cex.OrderSideBuy, cur.Close), at(cex.OrderSideBuy, cur.Close)}
	default:
		return nil
	}
}

// Evaluate 计算回测指标
func (r *Result) Evaluate(opts metrics.Options) metrics.Report {
	return metrics.Evaluate(r.Returns, r.TradeCount, r.Trades, opts)
}
