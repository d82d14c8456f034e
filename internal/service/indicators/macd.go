package indicators

// MACDResult holds the MACD line, the signal line and the histogram.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD computes fastEMA-slowEMA with a signal line that is the EMA of the
// rolling MACD-line history over signalPeriod. All values rounded to 4 decimals.
func MACD(prices []float64, fastPeriod, slowPeriod, signalPeriod int) (MACDResult, bool) {
	if fastPeriod < 1 || slowPeriod < 1 || signalPeriod < 1 || len(prices) < slowPeriod {
		return MACDResult{}, false
	}

	fast := emaSeries(prices, fastPeriod)
	slow := emaSeries(prices, slowPeriod)
	line := make([]float64, len(prices))
	for i := range prices {
		line[i] = fast[i] - slow[i]
	}
	signal := emaSeries(line, signalPeriod)

	macd := line[len(line)-1]
	sig := signal[len(signal)-1]
	return MACDResult{
		MACD:      Round4(macd),
		Signal:    Round4(sig),
		Histogram: Round4(macd - sig),
	}, true
}
