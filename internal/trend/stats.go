package trend

import (
	"math"
	"sort"
)

// mean returns the arithmetic mean of values. Returns 0 for empty input.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddevPop returns the population standard deviation around m.
func stddevPop(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// median returns the median of values without mutating the input.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// linearSlope returns the least-squares regression slope of values over
// x = 0..n-1.
func linearSlope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	xMean := float64(n-1) / 2
	yMean := mean(values)

	var sxy, sxx float64
	for i, v := range values {
		dx := float64(i) - xMean
		sxy += dx * (v - yMean)
		sxx += dx * dx
	}
	if sxx == 0 {
		return 0
	}
	return sxy / sxx
}

// riseRatio returns the fraction of consecutive steps that moved up.
func riseRatio(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	ups := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[i-1] {
			ups++
		}
	}
	return float64(ups) / float64(len(values)-1)
}
