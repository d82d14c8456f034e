package indicators

import "math"

// ATR computes the mean true range over the last period candles, where
// TR = max(high-low, |high-prevClose|, |low-prevClose|).
func ATR(highs, lows, closes []float64, period int) (float64, bool) {
	n := len(closes)
	if period < 1 || n < period+1 || len(highs) < n || len(lows) < n {
		return 0, false
	}

	sum := 0.0
	for i := n - period; i < n; i++ {
		tr := highs[i] - lows[i]
		if hc := math.Abs(highs[i] - closes[i-1]); hc > tr {
			tr = hc
		}
		if lc := math.Abs(lows[i] - closes[i-1]); lc > tr {
			tr = lc
		}
		sum += tr
	}
	return Round2(sum / float64(period)), true
}
