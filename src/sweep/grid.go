package sweep

import (
	"fmt"

	"breakoutbot/src/strategy"

	"github.com/shopspring/decimal"
)

// Grid 参数网格：回看窗口 × 成交量倍数
type Grid struct {
	Windows     []int
	Multipliers []float64
}

// IntRange 整数区间 [Min, Max]，步长 Step
type IntRange struct {
	Min  int `json:"min"`
	Max  int `json:"max"`
	Step int `json:"step"`
}

// DecimalRange 小数区间 [Min, Max]，步长 Step，用十进制运算避免浮点累积误差
type DecimalRange struct {
	Min  string `json:"min"`
	Max  string `json:"max"`
	Step string `json:"step"`
}

// Values 展开整数区间
func (r IntRange) Values() ([]int, error) {
	if r.Step <= 0 {
		return nil, fmt.Errorf("window step must be positive, got %d", r.Step)
	}
	if r.Max < r.Min {
		return nil, fmt.Errorf("window range is empty: [%d, %d]", r.Min, r.Max)
	}
	var out []int
	for w := r.Min; w <= r.Max; w += r.Step {
		out = append(out, w)
	}
	return out, nil
}

// Values 展开小数区间
func (r DecimalRange) Values() ([]float64, error) {
	lo, err := decimal.NewFromString(r.Min)
	if err != nil {
		return nil, fmt.Errorf("invalid multiplier min %q: %w", r.Min, err)
	}
	hi, err := decimal.NewFromString(r.Max)
	if err != nil {
		return nil, fmt.Errorf("invalid multiplier max %q: %w", r.Max, err)
	}
	step, err := decimal.NewFromString(r.Step)
	if err != nil {
		return nil, fmt.Errorf("invalid multiplier step %q: %w", r.Step, err)
	}
	if !step.IsPositive() {
		return nil, fmt.Errorf("multiplier step must be positive, got %s", r.Step)
	}
	if hi.LessThan(lo) {
		return nil, fmt.Errorf("multiplier range is empty: [%s, %s]", r.Min, r.Max)
	}

	var out []float64
	for v := lo; v.LessThanOrEqual(hi); v = v.Add(step) {
		out = append(out, v.InexactFloat64())
	}
	return out, nil
}

// NewGrid 由区间构造网格
func NewGrid(windows IntRange, multipliers DecimalRange) (Grid, error) {
	ws, err := windows.Values()
	if err != nil {
		return Grid{}, err
	}
	vs, err := multipliers.Values()
	if err != nil {
		return Grid{}, err
	}
	return Grid{Windows: ws, Multipliers: vs}, nil
}

// Points 网格点的笛卡尔积
func (g Grid) Points() []strategy.Params {
	points := make([]strategy.Params, 0, len(g.Windows)*len(g.Multipliers))
	for _, w := range g.Windows {
		for _, v := range g.Multipliers {
			points = append(points, strategy.Params{LookbackWindow: w, VolumeMultiplier: v})
		}
	}
	return points
}

// Size 网格点数量
func (g Grid) Size() int {
	return len(g.Windows) * len(g.Multipliers)
}
