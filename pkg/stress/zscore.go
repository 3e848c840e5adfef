package stress

import "math"

// RollingZScore returns the trailing z-score of every observation.
//
// The whole result is NaN when values holds fewer than minObs points. The
// window shrinks to len(values) for short inputs, and a point needs at least
// window/2 valid observations behind it. A trailing std below flatStd yields
// NaN.
func RollingZScore(values []float64, window, minObs int, flatStd float64) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(values) < minObs || window <= 0 {
		return out
	}

	eff := window
	if len(values) < eff {
		eff = len(values)
	}
	minPeriods := eff / 2
	if minPeriods < 2 {
		minPeriods = 2
	}

	for t := range values {
		if math.IsNaN(values[t]) {
			continue
		}
		start := t - eff + 1
		if start < 0 {
			start = 0
		}

		sum, n := 0.0, 0
		for _, v := range values[start : t+1] {
			if !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n < minPeriods {
			continue
		}
		mean := sum / float64(n)

		sq := 0.0
		for _, v := range values[start : t+1] {
			if !math.IsNaN(v) {
				d := v - mean
				sq += d * d
			}
		}
		std := math.Sqrt(sq / float64(n-1))
		if std < flatStd || std == 0 {
			continue
		}
		out[t] = (values[t] - mean) / std
	}
	return out
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}
