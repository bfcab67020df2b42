package imaging

import "container/heap"

// Watershed floods surface from the positive seeds in markers and returns a
// label image in which every pixel reachable from a seed carries that seed's
// label.
//
// Flooding is a priority flood over the 4-connected cross: the lowest pending
// pixel is expanded first, and pixels of equal height are expanded in the order
// they were queued. Basins meet without a separating watershed line. markers is
// not modified.
func Watershed(surface *Grid, markers []int) []int {
	rows, cols := surface.Rows, surface.Cols
	labels := make([]int, len(markers))
	copy(labels, markers)

	pq := &floodQueue{}
	var age uint64
	for i, m := range markers {
		if m > 0 {
			heap.Push(pq, floodItem{index: i, value: surface.Pix[i], age: age})
			age++
		}
	}

	for pq.Len() > 0 {
		item := heap.Pop(pq).(floodItem)
		r, c := item.index/cols, item.index%cols
		label := labels[item.index]

		for _, d := range cross {
			nr, nc := r+d[0], c+d[1]
			if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
				continue
			}
			n := nr*cols + nc
			if labels[n] != 0 {
				continue
			}
			labels[n] = label
			heap.Push(pq, floodItem{index: n, value: surface.Pix[n], age: age})
			age++
		}
	}
	return labels
}

type floodItem struct {
	index int
	value float64
	age   uint64
}

// floodQueue is a min-heap on (value, age).
type floodQueue []floodItem

func (q floodQueue) Len() int { return len(q) }

func (q floodQueue) Less(i, j int) bool {
	if q[i].value != q[j].value {
		return q[i].value < q[j].value
	}
	return q[i].age < q[j].age
}

func (q floodQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *floodQueue) Push(x any) { *q = append(*q, x.(floodItem)) }

func (q *floodQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
