package corr

import "math"

// MaskedMeanStd returns the per-row mean and population standard deviation of
// x computed over unmasked entries only.
//
// n is the per-row valid count and mask marks excluded entries; pass nil for
// either to derive it (mask defaults to the NaN positions of x, n to the
// unmasked count of mask). A row with no valid entries yields NaN for both.
func MaskedMeanStd(x Matrix, n []int, mask Mask) (mean, std []float64) {
	if mask == nil {
		mask = NaNMask(x)
	}
	if n == nil {
		n = ValidCount(mask, x.Rows, x.Cols)
	}

	// Masked entries are zeroed so NaNs never reach the sums.
	w := getScratch(len(x.Data))
	defer putScratch(w)
	for k, v := range x.Data {
		if mask[k] {
			w[k] = 0
		} else {
			w[k] = v
		}
	}

	mean = make([]float64, x.Rows)
	std = make([]float64, x.Rows)
	for i := 0; i < x.Rows; i++ {
		row := w[i*x.Cols : (i+1)*x.Cols]
		rowMask := mask[i*x.Cols : (i+1)*x.Cols]
		cnt := float64(n[i])

		var sum float64
		for _, v := range row {
			sum += v
		}
		mean[i] = sum / cnt

		var ss float64
		for j, v := range row {
			if rowMask[j] {
				continue
			}
			d := v - mean[i]
			ss += d * d
		}
		std[i] = math.Sqrt(ss / cnt)
	}
	return mean, std
}

// NormalizeByRow z-scores every row of x over its valid entries. Missing
// entries stay NaN; rows with zero deviation become NaN or ±Inf.
func NormalizeByRow(x Matrix) Matrix {
	mean, std := MaskedMeanStd(x, nil, nil)
	out := x.Clone()
	for i := 0; i < out.Rows; i++ {
		row := out.Row(i)
		for j := range row {
			row[j] = (row[j] - mean[i]) / std[i]
		}
	}
	return out
}

// NanMean averages the non-NaN values of v. It returns NaN when none exist.
func NanMean(v []float64) float64 {
	var sum float64
	var cnt int
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		sum += x
		cnt++
	}
	if cnt == 0 {
		return math.NaN()
	}
	return sum / float64(cnt)
}
