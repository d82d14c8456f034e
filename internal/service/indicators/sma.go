package indicators

// SMA computes the simple moving average of the last period values,
// rounded to 2 decimals.
func SMA(prices []float64, period int) (float64, bool) {
	if period < 1 || len(prices) < period {
		return 0, false
	}
	return Round2(mean(prices[len(prices)-period:])), true
}

// EMA computes the exponential moving average, seeded with prices[0] and
// iterated forward with multiplier 2/(period+1). period 1 degenerates to the
// last value.
func EMA(prices []float64, period int) (float64, bool) {
	if period < 1 || len(prices) == 0 {
		return 0, false
	}
	k := 2.0 / (float64(period) + 1.0)
	ema := prices[0]
	for i := 1; i < len(prices); i++ {
		ema = prices[i]*k + ema*(1-k)
	}
	return ema, true
}

// emaSeries returns the full EMA series seeded with prices[0].
func emaSeries(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	if len(prices) == 0 {
		return out
	}
	k := 2.0 / (float64(period) + 1.0)
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = prices[i]*k + out[i-1]*(1-k)
	}
	return out
}
