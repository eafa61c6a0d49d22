package metrics

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrUndefined 指标无定义（波动率为0、累计最大值为0、成交记录不足等）
var ErrUndefined = errors.New("metric undefined")

// Value 可能无定义的指标值，无定义时写库为 NULL、序列化为 null
type Value struct {
	Float64 float64
	Valid   bool
}

// Defined 构造有效指标，NaN/Inf 视为无定义
func Defined(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{Float64: v, Valid: true}
}

// Get 获取指标值，无定义时返回 ErrUndefined
func (v Value) Get() (float64, error) {
	if !v.Valid {
		return 0, ErrUndefined
	}
	return v.Float64, nil
}

// String 无定义时输出 n/a
func (v Value) String() string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v.Float64)
}

// Value 实现 driver.Valuer
func (v Value) Value() (driver.Value, error) {
	if !v.Valid {
		return nil, nil
	}
	return v.Float64, nil
}

// MarshalJSON 无定义时输出 null
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Float64)
}
