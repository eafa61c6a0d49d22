package indicators

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWindow 无效回看窗口
	ErrInvalidWindow = errors.New("invalid lookback window, must be at least 2")

	// ErrInsufficientData 数据不足错误
	ErrInsufficientData = errors.New("insufficient data for calculation")
)

// DataGapError 某根K线的指标尚未定义，不能用于决策，也不能当作无信号处理
type DataGapError struct {
	Index  int
	Window int
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("indicator frame %d undefined for window %d", e.Index, e.Window)
}
