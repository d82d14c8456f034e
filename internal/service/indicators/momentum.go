package indicators

// MomentumResult holds the percentage change with a qualitative bucket.
type MomentumResult struct {
	Change float64
	Signal string
}

// Momentum is the % change between the current and the period-back value.
// Buckets: strong_bullish >2%, bullish >0.5%, neutral within ±0.5%,
// bearish <-0.5%, strong_bearish <-2%.
func Momentum(prices []float64, period int) (MomentumResult, bool) {
	n := len(prices)
	if period < 1 || n < period+1 {
		return MomentumResult{}, false
	}
	base := prices[n-1-period]
	if base == 0 {
		return MomentumResult{}, false
	}
	change := (prices[n-1] - base) / base * 100

	signal := "neutral"
	switch {
	case change > 2:
		signal = "strong_bullish"
	case change > 0.5:
		signal = "bullish"
	case change < -2:
		signal = "strong_bearish"
	case change < -0.5:
		signal = "bearish"
	}
	return MomentumResult{Change: Round2(change), Signal: signal}, true
}

// Trend compares the mean of the last 10 values against the prior 10 and
// classifies by % change: ±2% strong, ±0.5% mild, else sideways.
func Trend(prices []float64) (string, bool) {
	n := len(prices)
	if n < 20 {
		return "", false
	}
	recent := mean(prices[n-10:])
	prior := mean(prices[n-20 : n-10])
	if prior == 0 {
		return "", false
	}
	change := (recent - prior) / prior * 100

	switch {
	case change > 2:
		return "strong_uptrend", true
	case change > 0.5:
		return "uptrend", true
	case change < -2:
		return "strong_downtrend", true
	case change < -0.5:
		return "downtrend", true
	default:
		return "sideways", true
	}
}
