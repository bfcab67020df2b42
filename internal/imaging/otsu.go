package imaging

// OtsuThreshold returns the global threshold that maximizes the between-class
// variance of g's 256-bin histogram taken over [min, max].
//
// The threshold is the centre of the last bin of the lower class, so values
// strictly greater than it form the upper class. A constant grid returns its
// value.
func OtsuThreshold(g *Grid) float64 {
	min, max := g.MinMax()
	if !(max > min) {
		return min
	}

	width := (max - min) / histogramBins
	var hist [histogramBins]float64
	for _, v := range g.Pix {
		b := int((v - min) / width)
		if b >= histogramBins {
			b = histogramBins - 1
		}
		hist[b]++
	}

	centre := func(b int) float64 { return min + (float64(b)+0.5)*width }

	var total, totalSum float64
	for b, n := range hist {
		total += n
		totalSum += n * centre(b)
	}

	best := 0
	bestVar := -1.0
	var w1, sum1 float64
	for b := 0; b < histogramBins-1; b++ {
		w1 += hist[b]
		sum1 += hist[b] * centre(b)
		w2 := total - w1
		if w1 == 0 || w2 == 0 {
			continue
		}
		m1 := sum1 / w1
		m2 := (totalSum - sum1) / w2
		between := w1 * w2 * (m1 - m2) * (m1 - m2)
		if between > bestVar {
			bestVar = between
			best = b
		}
	}
	return centre(best)
}
