package indicators

import "sort"

// LevelsResult holds nearby support and resistance price levels.
type LevelsResult struct {
	Support    []float64
	Resistance []float64
}

// SupportResistance picks up to 3 of the lowest recent lows below the current
// price as support, and up to 3 of the highest recent highs above it as
// resistance, scanning the last lookback candles.
func SupportResistance(highs, lows, closes []float64, lookback int) LevelsResult {
	n := len(closes)
	if n == 0 || len(highs) < n || len(lows) < n {
		return LevelsResult{}
	}
	if lookback < 1 || lookback > n {
		lookback = n
	}
	current := closes[n-1]

	var support, resistance []float64
	for i := n - lookback; i < n; i++ {
		if lows[i] < current {
			support = append(support, lows[i])
		}
		if highs[i] > current {
			resistance = append(resistance, highs[i])
		}
	}

	sort.Float64s(support)
	if len(support) > 3 {
		support = support[:3]
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(resistance)))
	if len(resistance) > 3 {
		resistance = resistance[:3]
	}
	return LevelsResult{Support: support, Resistance: resistance}
}
