// Package indicators provides pure, stateless technical-indicator functions
// over ordered price series. Every function returns ok=false when the series
// is shorter than the required period; callers treat that as "not ready yet".
package indicators

import "math"

// Round2 rounds to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round4 rounds to 4 decimal places.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, v := range xs {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}
