package scoring

import "math"

// Round2 rounds to two decimals, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round2Ptr(v float64) *float64 {
	r := Round2(v)
	return &r
}

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

func valuePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
