package timeframes

import (
	"fmt"
	"time"
)

// Timeframe K线周期
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe3m  Timeframe = "3m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe2h  Timeframe = "2h"
	Timeframe4h  Timeframe = "4h"
	Timeframe6h  Timeframe = "6h"
	Timeframe8h  Timeframe = "8h"
	Timeframe12h Timeframe = "12h"
	Timeframe1d  Timeframe = "1d"
	Timeframe3d  Timeframe = "3d"
	Timeframe1w  Timeframe = "1w"
)

// DaysPerYear 年化使用的天数
const DaysPerYear = 365.25

var durations = map[Timeframe]time.Duration{
	Timeframe1m:  time.Minute,
	Timeframe3m:  3 * time.Minute,
	Timeframe5m:  5 * time.Minute,
	Timeframe15m: 15 * time.Minute,
	Timeframe30m: 30 * time.Minute,
	Timeframe1h:  time.Hour,
	Timeframe2h:  2 * time.Hour,
	Timeframe4h:  4 * time.Hour,
	Timeframe6h:  6 * time.Hour,
	Timeframe8h:  8 * time.Hour,
	Timeframe12h: 12 * time.Hour,
	Timeframe1d:  24 * time.Hour,
	Timeframe3d:  3 * 24 * time.Hour,
	Timeframe1w:  7 * 24 * time.Hour,
}

// GetDuration 周期时长
func (tf Timeframe) GetDuration() (time.Duration, error) {
	d, ok := durations[tf]
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe: %s", tf)
	}
	return d, nil
}

// String 返回字符串表示
func (tf Timeframe) String() string {
	return string(tf)
}

// IsValid 检查周期是否受支持
func (tf Timeframe) IsValid() bool {
	_, ok := durations[tf]
	return ok
}

// GetAllTimeframes 按时长升序返回全部周期
func GetAllTimeframes() []Timeframe {
	return []Timeframe{
		Timeframe1m, Timeframe3m, Timeframe5m, Timeframe15m, Timeframe30m,
		Timeframe1h, Timeframe2h, Timeframe4h, Timeframe6h, Timeframe8h, Timeframe12h,
		Timeframe1d, Timeframe3d, Timeframe1w,
	}
}

// ParseTimeframe 解析周期字符串
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !tf.IsValid() {
		return "", fmt.Errorf("invalid timeframe: %s", s)
	}
	return tf, nil
}

// GetBinanceInterval 币安K线接口的 interval 参数，格式与周期一致
func (tf Timeframe) GetBinanceInterval() string {
	return string(tf)
}

// BarsPerYear 每年K线数，用于年化（15m 为 35064）
func (tf Timeframe) BarsPerYear() (float64, error) {
	d, err := tf.GetDuration()
	if err != nil {
		return 0, err
	}
	return DaysPerYear * float64(24*time.Hour) / float64(d), nil
}

// Truncate 把时间对齐到所在K线的开盘时间（UTC）
func (tf Timeframe) Truncate(t time.Time) (time.Time, error) {
	d, err := tf.GetDuration()
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC().Truncate(d), nil
}

// BarsBetween [start, end) 内的K线数量
func (tf Timeframe) BarsBetween(start, end time.Time) (int, error) {
	d, err := tf.GetDuration()
	if err != nil {
		return 0, err
	}
	if !end.After(start) {
		return 0, nil
	}
	return int(end.Sub(start) / d), nil
}
