// Package ta 封装 go-talib 的指标计算。
// go-talib 在预热期（lookback）内输出 0 而不是 NaN，直接参与比较会产生假信号，
// 所以每个包装函数都同时返回首个有效下标，调用方据此丢弃预热行。
package ta

import (
	"math"

	"github.com/markcheno/go-talib"
)

// invalid 返回一条整列无效的占位结果（输入长度不足时使用）
func invalid(n int) ([]float64, int) {
	return make([]float64, n), n
}

// EMA 指数移动平均；首个有效下标为 period-1
func EMA(values []float64, period int) ([]float64, int) {
	if period < 1 || len(values) < period {
		return invalid(len(values))
	}
	return talib.Ema(values, period), period - 1
}

// SMA 简单移动平均；首个有效下标为 period-1
func SMA(values []float64, period int) ([]float64, int) {
	if period < 1 || len(values) < period {
		return invalid(len(values))
	}
	return talib.Sma(values, period), period - 1
}

// BBands 布林带：basis = SMA(period)，上下轨 = basis ± mult·stddev
func BBands(values []float64, period int, mult float64) (upper, basis, lower []float64, first int) {
	if period < 1 || len(values) < period {
		u, f := invalid(len(values))
		return u, make([]float64, len(values)), make([]float64, len(values)), f
	}
	upper, basis, lower = talib.BBands(values, period, mult, mult, talib.SMA)
	return upper, basis, lower, period - 1
}

// LinRegSlope 线性回归斜率（窗口 window）；首个有效下标为 window-1。
// 注意：若输入列自身带预热段，调用方需要把两段预热叠加。
func LinRegSlope(values []float64, window int) ([]float64, int) {
	if window < 2 || len(values) < window {
		return invalid(len(values))
	}
	return talib.LinearRegSlope(values, window), window - 1
}

// RollingMin 滚动窗口最小值；首个有效下标为 window-1
func RollingMin(values []float64, window int) ([]float64, int) {
	if window < 1 || len(values) < window {
		return invalid(len(values))
	}
	return talib.Min(values, window), window - 1
}

// Crossover 判断 a 是否在第 i 行上穿 b：
// 前一行 a <= b 且当前行 a > b。第一行永远不构成上穿。
func Crossover(a, b []float64, i int) bool {
	if i <= 0 || i >= len(a) || i >= len(b) {
		return false
	}
	return a[i-1] <= b[i-1] && a[i] > b[i]
}

// CV 计算一组数值的变异系数（总体标准差 / 均值），
// 用来度量同一时点上多条均线的密集程度。均值为 0 时返回 0。
func CV(values ...float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	if mean == 0 {
		return 0
	}
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq/n) / mean
}
