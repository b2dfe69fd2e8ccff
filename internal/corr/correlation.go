package corr

import (
	"fmt"
	"math"
)

// stdFloor is the standard deviation below which a row is treated as
// constant: its correlation denominator is replaced by 1 and the result is
// the raw covariance.
const stdFloor = 1e-3

// maskEitherNaN copies x and y into scratch buffers, masking every position
// where either operand is NaN and writing fill there in both copies. The
// returned release func hands the buffers back to the pool.
func maskEitherNaN(x, y Matrix, fill float64) (xm, ym Matrix, n []int, mask Mask, release func()) {
	xm = Matrix{Rows: x.Rows, Cols: x.Cols, Data: getScratch(len(x.Data))}
	ym = Matrix{Rows: y.Rows, Cols: y.Cols, Data: getScratch(len(y.Data))}
	mask = make(Mask, len(x.Data))
	for k := range x.Data {
		xv, yv := x.Data[k], y.Data[k]
		if math.IsNaN(xv) || math.IsNaN(yv) {
			mask[k] = true
			xv, yv = fill, fill
		}
		xm.Data[k] = xv
		ym.Data[k] = yv
	}
	n = ValidCount(mask, x.Rows, x.Cols)
	release = func() {
		putScratch(xm.Data)
		putScratch(ym.Data)
	}
	return xm, ym, n, mask, release
}

// pearsonGivenMask computes cov/(sx*sy) per row over unmasked entries, with
// the denominator clamped to 1 whenever either deviation is below stdFloor.
func pearsonGivenMask(x, y Matrix, n []int, mask Mask) []float64 {
	mx, sx := MaskedMeanStd(x, n, mask)
	my, sy := MaskedMeanStd(y, n, mask)

	corrs := make([]float64, x.Rows)
	for i := 0; i < x.Rows; i++ {
		xr, yr := x.Row(i), y.Row(i)
		rowMask := mask[i*x.Cols : (i+1)*x.Cols]

		var sxy float64
		for j := range xr {
			if rowMask[j] {
				continue
			}
			sxy += xr[j] * yr[j]
		}
		cov := sxy/float64(n[i]) - mx[i]*my[i]

		stdmul := sx[i] * sy[i]
		if sx[i] < stdFloor || sy[i] < stdFloor {
			stdmul = 1
		}
		corrs[i] = cov / stdmul
	}
	return corrs
}

func checkShape(x, y Matrix) error {
	if !x.SameShape(y) {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch, x.Rows, x.Cols, y.Rows, y.Cols)
	}
	return nil
}

// BatchPearson returns the per-row linear correlation of x and y. Positions
// missing in either operand are excluded from both. Rows without enough
// valid data yield NaN.
func BatchPearson(x, y Matrix) ([]float64, error) {
	if err := checkShape(x, y); err != nil {
		return nil, err
	}
	xm, ym, n, mask, release := maskEitherNaN(x, y, 0)
	defer release()
	return pearsonGivenMask(xm, ym, n, mask), nil
}

// BatchSpearman returns the per-row rank correlation of x and y: each row is
// rank-transformed over the jointly valid positions, then correlated with the
// same clamped Pearson as BatchPearson.
func BatchSpearman(x, y Matrix) ([]float64, error) {
	if err := checkShape(x, y); err != nil {
		return nil, err
	}
	xm, ym, n, mask, release := maskEitherNaN(x, y, math.NaN())
	defer release()
	rx := rankMatrix(xm, mask)
	ry := rankMatrix(ym, mask)
	return pearsonGivenMask(rx, ry, n, mask), nil
}
