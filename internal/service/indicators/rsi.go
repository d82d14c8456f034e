package indicators

// RSI computes the Relative Strength Index over the last period deltas,
// Wilder-style average gain/loss. Returns exactly 100 when the window
// contains no losses; otherwise stays within [0,100]. Rounded to 2 decimals.
func RSI(prices []float64, period int) (float64, bool) {
	if period < 1 || len(prices) < period+1 {
		return 0, false
	}

	sumGain := 0.0
	sumLoss := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			sumGain += change
		} else {
			sumLoss += -change
		}
	}

	avgGain := sumGain / float64(period)
	avgLoss := sumLoss / float64(period)
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return Round2(100 - 100/(1+rs)), true
}
