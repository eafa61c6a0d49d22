package strategy

import (
	"fmt"

	"breakoutbot/src/bar"
	"breakoutbot/src/indicators"

	"github.com/shopspring/decimal"
)

// Position 持仓状态
type Position int

const (
	Flat Position = iota
	Long
	Short
)

func (p Position) String() string {
	switch p {
	case Flat:
		return "FLAT"
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return fmt.Sprintf("Position(%d)", int(p))
	}
}

// Signal 单根K线产生的交易信号，每根K线只产生一个
type Signal int

const (
	None Signal = iota
	EnterLong
	EnterShort
	ExitLongToFlat
	ExitShortToFlat
	ExitShortToLong
	ExitLongToShort
)

func (s Signal) String() string {
	switch s {
	case None:
		return "NONE"
	case EnterLong:
		return "GOING LONG"
	case EnterShort:
		return "GOING SHORT"
	case ExitLongToFlat:
		return "GOING NEUTRAL FROM LONG"
	case ExitShortToFlat:
		return "GOING NEUTRAL FROM SHORT"
	case ExitShortToLong:
		return "GOING LONG FROM SHORT"
	case ExitLongToShort:
		return "GOING SHORT FROM LONG"
	default:
		return fmt.Sprintf("Signal(%d)", int(s))
	}
}

// IsFlip 是否为反手信号（先平后开）
func (s Signal) IsFlip() bool {
	return s == ExitShortToLong || s == ExitLongToShort
}

// IsStop 是否为止损平仓信号
func (s Signal) IsStop() bool {
	return s == ExitLongToFlat || s == ExitShortToFlat
}

// edge 合法的状态迁移
type edge struct {
	from Position
	sig  Signal
}

var transitions = map[edge]Position{
	{Flat, EnterLong}:        Long,
	{Flat, EnterShort}:       Short,
	{Long, ExitLongToFlat}:   Flat,
	{Long, ExitLongToShort}:  Short,
	{Short, ExitShortToFlat}: Flat,
	{Short, ExitShortToLong}: Long,
}

// Apply 按合法迁移计算新状态，None 保持不变
func Apply(pos Position, sig Signal) (Position, error) {
	if sig == None {
		return pos, nil
	}
	next, ok := transitions[edge{pos, sig}]
	if !ok {
		return pos, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, sig, pos)
	}
	return next, nil
}

// Decide 突破/止损状态机
// prev 为上一根已收盘K线的指标，cur 为刚收盘的K线，指标从不使用当前K线自身的数据。
// 止损优先于反手；止损用严格不等号，突破用非严格不等号。
// 所有比较都在十进制下进行，倍数按其最短十进制表示参与运算（1.15 即 1.15）。
func Decide(pos Position, prev indicators.Frame, cur bar.Bar, volumeMultiplier float64) (Position, Signal) {
	volumeBreak := cur.Volume.GreaterThan(decimal.NewFromFloat(volumeMultiplier).Mul(prev.RollingVolumeMax))
	upBreak := cur.High.GreaterThanOrEqual(prev.RollingHighMax) && volumeBreak
	downBreak := cur.Low.LessThanOrEqual(prev.RollingLowMin) && volumeBreak

	switch pos {
	case Flat:
		if upBreak {
			return Long, EnterLong
		}
		if downBreak {
			return Short, EnterShort
		}
	case Long:
		if cur.Low.LessThan(LongStop(prev)) {
			return Flat, ExitLongToFlat
		}
		if downBreak {
			return Short, ExitLongToShort
		}
	case Short:
		if cur.High.GreaterThan(ShortStop(prev)) {
			return Flat, ExitShortToFlat
		}
		if upBreak {
			return Long, ExitShortToLong
		}
	}
	return pos, None
}

// LongStop 多头止损价 close[i-1]-ATR[i-1]
func LongStop(prev indicators.Frame) decimal.Decimal {
	return prev.Close.Sub(prev.AverageTrueRange)
}

// ShortStop 空头止损价 close[i-1]+ATR[i-1]
func ShortStop(prev indicators.Frame) decimal.Decimal {
	return prev.Close.Add(prev.AverageTrueRange)
}

// ForceFlat 会话到期时的强制平仓信号，空仓时返回 None
func ForceFlat(pos Position) (Position, Signal) {
	switch pos {
	case Long:
		return Flat, ExitLongToFlat
	case Short:
		return Flat, ExitShortToFlat
	default:
		return Flat, None
	}
}

// Breakout 带参数的突破策略
type Breakout struct {
	params Params
}

// NewBreakout 创建突破策略
func NewBreakout(params Params) (*Breakout, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Breakout{params: params}, nil
}

// GetName 获取策略名称
func (b *Breakout) GetName() string {
	return "breakout"
}

// Params 获取策略参数
func (b *Breakout) Params() Params {
	return b.params
}

// OnBar 以上一根指标和当前K线推进状态机
func (b *Breakout) OnBar(pos Position, prev indicators.Frame, cur bar.Bar) (Position, Signal) {
	return Decide(pos, prev, cur, b.params.VolumeMultiplier)
}
