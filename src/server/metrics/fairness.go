package metrics

// Jain's fairness index of xs: (sum x)^2 / (n * sum x^2). 1 means perfectly
// even, 1/n means one value dominates. 0 for no samples.
func Jain(xs []float64) float64 {
	var s, s2 float64
	for _, x := range xs {
		s += x
		s2 += x * x
	}
	if s2 == 0 {
		return 0
	}
	return (s * s) / (float64(len(xs)) * s2)
}
