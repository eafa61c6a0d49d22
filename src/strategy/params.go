package strategy

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition 状态机不存在该迁移
var ErrIllegalTransition = errors.New("illegal position transition")

// Params 突破策略参数
type Params struct {
	LookbackWindow   int     // 回看窗口W，默认9
	VolumeMultiplier float64 // 成交量放大倍数V，默认1.1
}

// GetDefaultParams 获取默认的突破策略参数
func GetDefaultParams() Params {
	return Params{
		LookbackWindow:   9,
		VolumeMultiplier: 1.1,
	}
}

// Validate 验证参数有效性
func (p Params) Validate() error {
	if p.LookbackWindow < 2 {
		return fmt.Errorf("lookback_window must be at least 2, got %d", p.LookbackWindow)
	}
	if p.VolumeMultiplier <= 1 {
		return fmt.Errorf("volume_multiplier must be greater than 1, got %f", p.VolumeMultiplier)
	}
	return nil
}

// ToMap 转换为便于日志输出的键值对
func (p Params) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"lookback_window":   p.LookbackWindow,
		"volume_multiplier": p.VolumeMultiplier,
	}
}
