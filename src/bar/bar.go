package bar

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Bar 单根K线（OHLCV），Complete=false 表示仍在形成中
type Bar struct {
	Timestamp time.Time       `json:"timestamp"` // 开盘时间
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	Complete  bool            `json:"complete"` // 是否已收盘
}

// Validate 检查K线字段是否合法
func (b Bar) Validate() error {
	if b.Timestamp.IsZero() {
		return &MalformedBarError{Timestamp: b.Timestamp, Reason: "missing timestamp"}
	}
	if !b.Low.IsPositive() || !b.Open.IsPositive() || !b.Close.IsPositive() {
		return &MalformedBarError{Timestamp: b.Timestamp, Reason: "non-positive price"}
	}
	if b.High.LessThan(b.Low) {
		return &MalformedBarError{Timestamp: b.Timestamp, Reason: "high below low"}
	}
	if b.Volume.IsNegative() {
		return &MalformedBarError{Timestamp: b.Timestamp, Reason: "negative volume"}
	}
	return nil
}

// Parse 由字符串字段构造K线，交易所与CSV文件都以文本形式给出价格
func Parse(ts time.Time, open, high, low, close, volume string) (Bar, error) {
	fields := []struct {
		name string
		raw  string
	}{{"open", open}, {"high", high}, {"low", low}, {"close", close}, {"volume", volume}}

	var values [5]decimal.Decimal
	for i, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return Bar{}, fmt.Errorf("invalid %s %q: %w", f.name, f.raw, err)
		}
		values[i] = d
	}

	return Bar{
		Timestamp: ts,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}

// Equal 按数值比较，忽略小数位表示差异
func (b Bar) Equal(o Bar) bool {
	return b.Timestamp.Equal(o.Timestamp) &&
		b.Open.Equal(o.Open) &&
		b.High.Equal(o.High) &&
		b.Low.Equal(o.Low) &&
		b.Close.Equal(o.Close) &&
		b.Volume.Equal(o.Volume) &&
		b.Complete == o.Complete
}

// Clone 返回K线序列的独立副本
func Clone(bars []Bar) []Bar {
	out := make([]Bar, len(bars))
	copy(out, bars)
	return out
}

// CheckSeries 校验整段序列：时间严格递增且每根K线合法
func CheckSeries(bars []Bar) error {
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return err
		}
		if i > 0 && !b.Timestamp.After(bars[i-1].Timestamp) {
			return &MalformedBarError{
				Timestamp: b.Timestamp,
				Last:      bars[i-1].Timestamp,
				Reason:    "timestamp not strictly increasing",
			}
		}
	}
	return nil
}
