package engine

import (
	"cmp"
	"slices"

	"golang.org/x/sync/errgroup"
)

// parallelSortThreshold is the item count below which sorting stays on the
// calling goroutine.
const parallelSortThreshold = 1 << 14

func compareIndex[Op Operation](a, b WorkItem[Op]) int {
	return cmp.Compare(a.Op.Index(), b.Op.Index())
}

// indexSorter orders work items by target index, splitting large inputs into
// chunks that are sorted and merged concurrently.
type indexSorter[Op Operation] struct {
	parts   int
	scratch []WorkItem[Op]
}

func (s *indexSorter[Op]) sort(items []WorkItem[Op]) {
	n := len(items)
	if n < parallelSortThreshold || s.parts < 2 {
		slices.SortStableFunc(items, compareIndex[Op])
		return
	}

	width := (n + s.parts - 1) / s.parts
	var g errgroup.Group
	g.SetLimit(s.parts)
	for lo := 0; lo < n; lo += width {
		chunk := items[lo:min(lo+width, n)]
		g.Go(func() error {
			slices.SortStableFunc(chunk, compareIndex[Op])
			return nil
		})
	}
	_ = g.Wait()

	if cap(s.scratch) < n {
		s.scratch = make([]WorkItem[Op], n)
	}
	src, dst := items, s.scratch[:n]
	for ; width < n; width *= 2 {
		for lo := 0; lo < n; lo += 2 * width {
			mid, hi := min(lo+width, n), min(lo+2*width, n)
			g.Go(func() error {
				mergeRuns(dst[lo:hi], src[lo:mid], src[mid:hi])
				return nil
			})
		}
		_ = g.Wait()
		src, dst = dst, src
	}
	if &src[0] != &items[0] {
		copy(items, src)
	}
	clear(s.scratch)
}

func mergeRuns[Op Operation](dst, a, b []WorkItem[Op]) {
	i, j, k := 0, 0, 0
	for i < len(a) && j < len(b) {
		if compareIndex(b[j], a[i]) < 0 {
			dst[k] = b[j]
			j++
		} else {
			dst[k] = a[i]
			i++
		}
		k++
	}
	k += copy(dst[k:], a[i:])
	copy(dst[k:], b[j:])
}
