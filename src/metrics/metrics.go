package metrics

import (
	"math"
)

// Multiple 累计收益倍数 Π(1+r)
func Multiple(returns []float64) float64 {
	m := 1.0
	for _, r := range returns {
		m *= 1 + r
	}
	return m
}

// CumulativeReturns 逐步累乘的收益曲线 CR[i] = Π_{k≤i}(1+r_k)
func CumulativeReturns(returns []float64) []float64 {
	cr := make([]float64, len(returns))
	m := 1.0
	for i, r := range returns {
		m *= 1 + r
		cr[i] = m
	}
	return cr
}

// CAGR 年化复合增长率，years = n / barsPerYear
func CAGR(returns []float64, barsPerYear float64) Value {
	if len(returns) == 0 || barsPerYear <= 0 {
		return Value{}
	}
	years := float64(len(returns)) / barsPerYear
	return Defined(math.Pow(Multiple(returns), 1/years) - 1)
}

// Volatility 年化波动率 = 样本标准差 × sqrt(barsPerYear)
func Volatility(returns []float64, barsPerYear float64) Value {
	n := len(returns)
	if n < 2 || barsPerYear <= 0 {
		return Value{}
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(n)

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(n - 1)

	return Defined(math.Sqrt(variance) * math.Sqrt(barsPerYear))
}

// Sharpe (CAGR - riskFree) / volatility，波动率为0时无定义
func Sharpe(cagr, volatility Value, riskFree float64) Value {
	if !cagr.Valid || !volatility.Valid || volatility.Float64 == 0 {
		return Value{}
	}
	return Defined((cagr.Float64 - riskFree) / volatility.Float64)
}

// MaxDrawdown 收益曲线相对历史最高点的最大回撤比例
// 历史最高点为0时无法计算比例，返回无定义
func MaxDrawdown(returns []float64) Value {
	if len(returns) == 0 {
		return Value{}
	}

	runningMax := math.Inf(-1)
	maxDD := 0.0
	for _, c := range CumulativeReturns(returns) {
		runningMax = math.Max(runningMax, c)
		if runningMax == 0 {
			return Value{}
		}
		maxDD = math.Max(maxDD, (runningMax-c)/runningMax)
	}
	return Defined(maxDD)
}
