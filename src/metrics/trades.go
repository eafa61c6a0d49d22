package metrics

import (
	"time"

	"breakoutbot/src/cex"
)

// Trade 成对交易统计使用的成交
type Trade struct {
	Time  time.Time     `json:"time"`
	Side  cex.OrderSide `json:"side"`
	Price float64       `json:"price"`
}

// Paired 丢弃末尾未配对的成交
func Paired(trades []Trade) []Trade {
	return trades[:len(trades)/2*2]
}

// WinRatio 成对 (2k, 2k+1) 成交带符号价格之和为正记为盈利
// 买入记 -price、卖出记 +price；少于2条成交时无定义
func WinRatio(trades []Trade) Value {
	paired := Paired(trades)
	if len(paired) < 2 {
		return Value{}
	}

	wins := 0
	for k := 0; k < len(paired); k += 2 {
		sum := float64(paired[k].Side.Sign())*paired[k].Price + float64(paired[k+1].Side.Sign())*paired[k+1].Price
		if sum > 0 {
			wins++
		}
	}
	return Defined(float64(wins) / float64(len(paired)/2))
}

// CumulativeProfit 成对成交的带符号价格之和 × 每笔数量
func CumulativeProfit(trades []Trade, units float64) float64 {
	total := 0.0
	for _, t := range Paired(trades) {
		total += float64(t.Side.Sign()) * t.Price
	}
	return total * units
}

// TradeReturns 相邻成交之间的收益（按上一笔开仓方向定号），每笔扣除手续费
func TradeReturns(trades []Trade, fee float64) []float64 {
	paired := Paired(trades)
	if len(paired) == 0 {
		return nil
	}

	returns := make([]float64, len(paired))
	for i := 1; i < len(paired); i++ {
		r := paired[i].Price/paired[i-1].Price - 1
		if paired[i-1].Side == cex.OrderSideSell {
			r = -r
		}
		returns[i] = (1+r)*(1-fee) - 1
	}
	return returns
}
