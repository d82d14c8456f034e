package indicators

// StochasticResult holds %K with its oversold/overbought classification.
type StochasticResult struct {
	K      float64
	Signal string // "oversold" | "overbought" | "neutral"
}

// Stochastic computes %K = (close-lowestLow)/(highestHigh-lowestLow)*100 over
// the last period candles. A flat window yields a neutral 50.
func Stochastic(highs, lows, closes []float64, period int) (StochasticResult, bool) {
	n := len(closes)
	if period < 1 || n < period || len(highs) < n || len(lows) < n {
		return StochasticResult{}, false
	}

	highest := highs[n-period]
	lowest := lows[n-period]
	for i := n - period + 1; i < n; i++ {
		if highs[i] > highest {
			highest = highs[i]
		}
		if lows[i] < lowest {
			lowest = lows[i]
		}
	}

	k := 50.0
	if highest != lowest {
		k = (closes[n-1] - lowest) / (highest - lowest) * 100
	}

	signal := "neutral"
	switch {
	case k < 20:
		signal = "oversold"
	case k > 80:
		signal = "overbought"
	}
	return StochasticResult{K: Round2(k), Signal: signal}, true
}
