package indicators

import (
	"breakoutbot/src/bar"

	"github.com/shopspring/decimal"
)

// Frame 单根K线对应的指标快照，字段与K线同为十进制
// Valid=false 表示窗口尚未填满，其余字段无意义
type Frame struct {
	Close            decimal.Decimal // 该K线收盘价，止损价以此为基准
	TrueRange        decimal.Decimal
	AverageTrueRange decimal.Decimal
	RollingHighMax   decimal.Decimal
	RollingLowMin    decimal.Decimal
	RollingVolumeMax decimal.Decimal
	Valid            bool
}

// Compute 对已收盘K线序列计算指标，回测与实盘共用
// 第0根没有前收盘价，真实波幅退化为 high-low，因此所有字段从第 window-1 根起同时有效
func Compute(bars []bar.Bar, window int) ([]Frame, error) {
	if window < 2 {
		return nil, ErrInvalidWindow
	}

	frames := make([]Frame, len(bars))
	size := decimal.NewFromInt(int64(window))
	trSum := decimal.Zero
	for i, b := range bars {
		tr := b.High.Sub(b.Low)
		if i > 0 {
			prevClose := bars[i-1].Close
			tr = decimal.Max(tr, b.High.Sub(prevClose).Abs(), b.Low.Sub(prevClose).Abs())
		}
		frames[i].Close = b.Close
		frames[i].TrueRange = tr

		trSum = trSum.Add(tr)
		if i >= window {
			trSum = trSum.Sub(frames[i-window].TrueRange)
		}
		if i < window-1 {
			continue
		}

		highMax, lowMin, volMax := b.High, b.Low, b.Volume
		for k := i - window + 1; k < i; k++ {
			highMax = decimal.Max(highMax, bars[k].High)
			lowMin = decimal.Min(lowMin, bars[k].Low)
			volMax = decimal.Max(volMax, bars[k].Volume)
		}
		frames[i].AverageTrueRange = trSum.Div(size)
		frames[i].RollingHighMax = highMax
		frames[i].RollingLowMin = lowMin
		frames[i].RollingVolumeMax = volMax
		frames[i].Valid = true
	}
	return frames, nil
}

// FirstValid 第一根有效指标的下标
func FirstValid(window int) int {
	return window - 1
}

// At 取第 i 根的指标，未定义时返回 DataGapError
func At(frames []Frame, i, window int) (Frame, error) {
	if i < 0 || i >= len(frames) || !frames[i].Valid {
		return Frame{}, &DataGapError{Index: i, Window: window}
	}
	return frames[i], nil
}

// Latest 对缓冲区内已收盘K线计算指标并返回最后一根的快照
// 多取一根K线，保证窗口内每根的真实波幅都有前收盘价，与 Compute 全序列结果一致
func Latest(bars []bar.Bar, window int) (Frame, error) {
	if window < 2 {
		return Frame{}, ErrInvalidWindow
	}
	if len(bars) < window {
		return Frame{}, ErrInsufficientData
	}
	start := len(bars) - window - 1
	if start < 0 {
		start = 0
	}
	frames, err := Compute(bars[start:], window)
	if err != nil {
		return Frame{}, err
	}
	return frames[len(frames)-1], nil
}
