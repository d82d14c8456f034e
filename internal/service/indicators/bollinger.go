package indicators

// BollingerResult holds the band levels and the relative bandwidth.
type BollingerResult struct {
	Upper     float64
	Middle    float64
	Lower     float64
	Bandwidth float64
}

// Bollinger computes bands at middle ± 2*stddev over the last period values.
// Bandwidth is 4*stddev/middle*100.
func Bollinger(prices []float64, period int) (BollingerResult, bool) {
	if period < 1 || len(prices) < period {
		return BollingerResult{}, false
	}
	window := prices[len(prices)-period:]
	middle := mean(window)
	sd := stddev(window)

	bandwidth := 0.0
	if middle != 0 {
		bandwidth = 4 * sd / middle * 100
	}
	return BollingerResult{
		Upper:     Round2(middle + 2*sd),
		Middle:    Round2(middle),
		Lower:     Round2(middle - 2*sd),
		Bandwidth: Round2(bandwidth),
	}, true
}
