package indicators

import "math"

const secondsPerYear = 365 * 24 * 60 * 60

// VolatilityResult holds annualized volatility with a qualitative level.
type VolatilityResult struct {
	Annualized float64
	Level      string
}

// Volatility computes the standard deviation of log returns over the last
// period values, annualized by sqrt(secondsPerYear).
func Volatility(prices []float64, period int) (VolatilityResult, bool) {
	n := len(prices)
	if period < 2 || n < period+1 {
		return VolatilityResult{}, false
	}

	rets := make([]float64, 0, period)
	for i := n - period; i < n; i++ {
		prev := prices[i-1]
		cur := prices[i]
		if prev <= 0 || cur <= 0 {
			rets = append(rets, 0)
			continue
		}
		rets = append(rets, math.Log(cur/prev))
	}

	ann := stddev(rets) * math.Sqrt(secondsPerYear)

	level := "extremely_high"
	switch {
	case ann < 0.2:
		level = "very_low"
	case ann < 0.5:
		level = "low"
	case ann < 1.0:
		level = "moderate"
	case ann < 2.0:
		level = "high"
	case ann < 4.0:
		level = "very_high"
	}
	return VolatilityResult{Annualized: Round4(ann), Level: level}, true
}
