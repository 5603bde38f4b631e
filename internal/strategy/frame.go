package strategy

import "time"

// alignForwardFill 把趋势周期的指标列按时间戳前向填充对齐到主周期：
// 主周期的每一行取「时间戳不晚于该行」的最后一个趋势观测值。
// 早于首个有效趋势观测的主周期行是未定义的，由返回的 first 标出，
// 调用方必须丢弃这些行，绝不能用 0 充数。
//
// trendFirst 是趋势列自身的首个有效下标（指标预热期之前的值无效）。
func alignForwardFill(primaryTimes, trendTimes []time.Time, trendVals []float64, trendFirst int) (aligned []float64, first int) {
	aligned = make([]float64, len(primaryTimes))
	first = len(primaryTimes)

	j := -1
	for i, t := range primaryTimes {
		for j+1 < len(trendTimes) && !trendTimes[j+1].After(t) {
			j++
		}
		if j < trendFirst || j >= len(trendVals) {
			continue
		}
		aligned[i] = trendVals[j]
		if first == len(primaryTimes) {
			first = i
		}
	}
	return aligned, first
}
