package sweep

import (
	"fmt"
	"sort"

	"breakoutbot/src/metrics"
)

// Key 排序指标
type Key string

const (
	KeyMultiple    Key = "multiple"
	KeyCAGR        Key = "cagr"
	KeySharpe      Key = "sharpe"
	KeyMaxDrawdown Key = "max_drawdown"
)

// ParseKey 解析排序指标名称
func ParseKey(s string) (Key, error) {
	switch k := Key(s); k {
	case KeyMultiple, KeyCAGR, KeySharpe, KeyMaxDrawdown:
		return k, nil
	default:
		return "", fmt.Errorf("unknown ranking key: %s", s)
	}
}

// value 取排序值；回撤越小越好，取负数统一为降序
func (k Key) value(r Result) metrics.Value {
	if r.Failed() {
		return metrics.Value{}
	}
	switch k {
	case KeyMultiple:
		return metrics.Defined(r.Multiple)
	case KeyCAGR:
		return r.CAGR
	case KeySharpe:
		return r.Sharpe
	case KeyMaxDrawdown:
		if !r.MaxDrawdown.Valid {
			return metrics.Value{}
		}
		return metrics.Defined(-r.MaxDrawdown.Float64)
	default:
		return metrics.Value{}
	}
}

// Rank 按指标降序返回前 n 个结果（n<=0 返回全部），失败或无定义的排在最后
// 不修改输入
func Rank(results []Result, key Key, n int) []Result {
	ranked := make([]Result, len(results))
	copy(ranked, results)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := key.value(ranked[i]), key.value(ranked[j])
		if a.Valid != b.Valid {
			return a.Valid
		}
		return a.Valid && a.Float64 > b.Float64
	})

	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
