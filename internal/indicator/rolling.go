package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear annualizes daily volatility.
const TradingDaysPerYear = 252

// SMA calculates the simple moving average.
// Returns slice of length: len(values) - period + 1
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(values)-period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	result = append(result, sum/float64(period))

	for i := period; i < len(values); i++ {
		sum = sum - values[i-period] + values[i]
		result = append(result, sum/float64(period))
	}

	return result
}

// EMA calculates the exponential moving average seeded with the first SMA.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(values)-period+1)
	multiplier := 2.0 / float64(period+1)

	ema := stat.Mean(values[:period], nil)
	result = append(result, ema)

	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		result = append(result, ema)
	}

	return result
}

// RollingStdDev calculates the sample standard deviation over each full window.
// Returns slice of length: len(values) - period + 1
func RollingStdDev(values []float64, period int) []float64 {
	if period < 2 || len(values) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(values)-period+1)
	for i := period; i <= len(values); i++ {
		result = append(result, stat.StdDev(values[i-period:i], nil))
	}
	return result
}

// SimpleReturns computes r_t = p_t / p_{t-1} - 1, the convention
// CumulativeReturn and PricePath compound. Non-positive prices yield 0.
func SimpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, cur/prev-1)
	}
	return out
}

// CumulativeReturn compounds simple returns.
func CumulativeReturn(returns []float64) float64 {
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return growth - 1
}

// PricePath turns returns into a price index starting at 1.
func PricePath(returns []float64) []float64 {
	path := make([]float64, len(returns)+1)
	path[0] = 1
	for i, r := range returns {
		path[i+1] = path[i] * (1 + r)
	}
	return path
}

// AnnualizedVolatility scales the sample std of daily returns to a yearly figure.
func AnnualizedVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(TradingDaysPerYear)
}
