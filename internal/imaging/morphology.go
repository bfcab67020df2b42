package imaging

import "math"

// cross holds the offsets of the 4-connected structuring element, centre excluded.
var cross = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// FillDisk sets every pixel of mask whose centre lies strictly inside the circle
// of the given radius around (row, col). Pixels outside the image are skipped.
func FillDisk(mask []bool, rows, cols int, row, col, radius float64) {
	if radius <= 0 {
		return
	}
	r0 := maxInt(0, int(math.Floor(row-radius)))
	r1 := minInt(rows-1, int(math.Ceil(row+radius)))
	c0 := maxInt(0, int(math.Floor(col-radius)))
	c1 := minInt(cols-1, int(math.Ceil(col+radius)))
	rr := radius * radius

	for r := r0; r <= r1; r++ {
		dr := float64(r) - row
		for c := c0; c <= c1; c++ {
			dc := float64(c) - col
			if dr*dr+dc*dc < rr {
				mask[r*cols+c] = true
			}
		}
	}
}

// DilateCross grows a binary mask by one pixel using the 4-connected cross.
func DilateCross(mask []bool, rows, cols int) []bool {
	out := make([]bool, len(mask))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := r*cols + c
			if mask[i] {
				out[i] = true
				continue
			}
			for _, d := range cross {
				nr, nc := r+d[0], c+d[1]
				if nr >= 0 && nr < rows && nc >= 0 && nc < cols && mask[nr*cols+nc] {
					out[i] = true
					break
				}
			}
		}
	}
	return out
}

// GreyOpeningCross applies a grey-level opening (erosion then dilation) with the
// 4-connected cross. Neighbours outside the image are ignored, so the border
// neither erodes nor grows.
//
// On a label image this removes one-pixel spurs and isthmuses.
func GreyOpeningCross(values []int, rows, cols int) []int {
	return greyMorph(greyMorph(values, rows, cols, false), rows, cols, true)
}

// greyMorph takes the max (dilate) or min (erode) over the cross neighbourhood.
func greyMorph(values []int, rows, cols int, dilate bool) []int {
	out := make([]int, len(values))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := values[r*cols+c]
			for _, d := range cross {
				nr, nc := r+d[0], c+d[1]
				if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
					continue
				}
				n := values[nr*cols+nc]
				if dilate && n > v || !dilate && n < v {
					v = n
				}
			}
			out[r*cols+c] = v
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
