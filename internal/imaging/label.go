package imaging

// LabelComponents assigns 1..n to the connected components of mask and returns
// the label image and n. With eightConnected, diagonal neighbours join
// components; otherwise only the 4-connected cross does.
//
// Labels are assigned in raster order of each component's first pixel.
// Uses an explicit stack rather than recursion so large components cannot
// overflow the goroutine stack.
func LabelComponents(mask []bool, rows, cols int, eightConnected bool) ([]int, int) {
	labels := make([]int, len(mask))
	next := 0

	for start := range mask {
		if !mask[start] || labels[start] != 0 {
			continue
		}
		next++
		labels[start] = next
		stack := []int{start}

		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			r, c := p/cols, p%cols

			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					if !eightConnected && dr != 0 && dc != 0 {
						continue
					}
					nr, nc := r+dr, c+dc
					if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
						continue
					}
					n := nr*cols + nc
					if mask[n] && labels[n] == 0 {
						labels[n] = next
						stack = append(stack, n)
					}
				}
			}
		}
	}
	return labels, next
}
