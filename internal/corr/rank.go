package corr

import (
	"math"
	"sort"
)

// RankRow returns the 0-based average ranks of row. Tied values share the
// midpoint (lo+hi)/2 of the rank positions their group occupies, so
// [3,1,2] ranks to [2,0,1] and [1,1,2] to [0.5,0.5,2].
//
// NaNs sort after every number and are never tied with each other; callers
// that mask missing positions overwrite those ranks anyway.
func RankRow(row []float64) []float64 {
	idx := make([]int, len(row))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := row[idx[a]], row[idx[b]]
		if math.IsNaN(vb) {
			return !math.IsNaN(va)
		}
		return va < vb
	})

	ranks := make([]float64, len(row))
	for lo := 0; lo < len(idx); {
		hi := lo
		v := row[idx[lo]]
		if !math.IsNaN(v) {
			for hi+1 < len(idx) && row[idx[hi+1]] == v {
				hi++
			}
		}
		r := float64(lo+hi) / 2
		for k := lo; k <= hi; k++ {
			ranks[idx[k]] = r
		}
		lo = hi + 1
	}
	return ranks
}

// rankMatrix ranks each row of x independently and zeroes masked positions.
func rankMatrix(x Matrix, mask Mask) Matrix {
	out := NewMatrix(x.Rows, x.Cols)
	for i := 0; i < x.Rows; i++ {
		copy(out.Row(i), RankRow(x.Row(i)))
	}
	for k, masked := range mask {
		if masked {
			out.Data[k] = 0
		}
	}
	return out
}
