package corr

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func mustRows(t *testing.T, rows [][]float64) Matrix {
	t.Helper()
	m, err := FromRows(rows)
	require.NoError(t, err)
	return m
}

func TestMaskedMeanStd(t *testing.T) {
	x := mustRows(t, [][]float64{
		{1, 2, 3, 4},
		{nan, 2, nan, 4},
		{nan, nan, nan, nan},
		{5, 5, 5, 5},
	})
	before := x.Clone()

	mean, std := MaskedMeanStd(x, nil, nil)

	assert.InDelta(t, 2.5, mean[0], 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), std[0], 1e-12)
	assert.InDelta(t, 3.0, mean[1], 1e-12)
	assert.InDelta(t, 1.0, std[1], 1e-12)
	assert.True(t, math.IsNaN(mean[2]), "all-missing row mean must be NaN")
	assert.True(t, math.IsNaN(std[2]), "all-missing row std must be NaN")
	assert.Equal(t, 5.0, mean[3])
	assert.Equal(t, 0.0, std[3])

	// input untouched (NaN != NaN, so compare positions)
	for k := range x.Data {
		if math.IsNaN(before.Data[k]) {
			assert.True(t, math.IsNaN(x.Data[k]))
		} else {
			assert.Equal(t, before.Data[k], x.Data[k])
		}
	}
}

func TestMaskedMeanStdExplicitMask(t *testing.T) {
	x := mustRows(t, [][]float64{{1, 100, 3}})
	mask := Mask{false, true, false}

	mean, std := MaskedMeanStd(x, []int{2}, mask)
	assert.InDelta(t, 2.0, mean[0], 1e-12)
	assert.InDelta(t, 1.0, std[0], 1e-12)
}

func TestRankRow(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"distinct", []float64{3, 1, 2}, []float64{2, 0, 1}},
		{"tie", []float64{1, 1, 2}, []float64{0.5, 0.5, 2}},
		{"all tied", []float64{7, 7, 7, 7}, []float64{1.5, 1.5, 1.5, 1.5}},
		{"nan last", []float64{2, nan, 1}, []float64{1, 2, 0}},
		{"empty", []float64{}, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RankRow(tt.in))
		})
	}
}

func TestRankRowMonotonicRelabel(t *testing.T) {
	a := RankRow([]float64{0.3, -2, 10, 10, 4})
	b := RankRow([]float64{math.Exp(0.3), math.Exp(-2), math.Exp(10), math.Exp(10), math.Exp(4)})
	assert.Equal(t, a, b)
}

func TestBatchPearson(t *testing.T) {
	x := mustRows(t, [][]float64{
		{1, 2, 3, 4},
		{1, 2, 3, 4},
		{1, nan, 3, 4},
	})
	y := mustRows(t, [][]float64{
		{2, 4, 6, 8},
		{4, 3, 2, 1},
		{10, 20, nan, 40},
	})

	got, err := BatchPearson(x, y)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.InDelta(t, 1.0, got[0], 1e-12)
	assert.InDelta(t, -1.0, got[1], 1e-12)
	// only columns 0 and 3 survive the joint mask
	assert.InDelta(t, 1.0, got[2], 1e-12)
}

func TestBatchPearsonConstantRowUsesCovariance(t *testing.T) {
	x := mustRows(t, [][]float64{{2, 2, 2, 2}})
	y := mustRows(t, [][]float64{{1, 2, 3, 4}})

	_, sx := MaskedMeanStd(x, nil, nil)
	require.Equal(t, 0.0, sx[0])

	p, err := BatchPearson(x, y)
	require.NoError(t, err)
	// cov = mean(x*y) - mean(x)*mean(y) = 5 - 2*2.5 = 0
	assert.Equal(t, 0.0, p[0])

	// near-constant but nonzero deviation still clamps; result is the raw covariance
	x2 := mustRows(t, [][]float64{{1, 1.0001, 1, 1.0001}})
	y2 := mustRows(t, [][]float64{{0, 1, 0, 1}})
	p2, err := BatchPearson(x2, y2)
	require.NoError(t, err)
	assert.InDelta(t, 0.0001*0.25, p2[0], 1e-12)

	s, err := BatchSpearman(x, y)
	require.NoError(t, err)
	// ranks of x are all 1.5 so std is 0 and the covariance is 0
	assert.Equal(t, 0.0, s[0])
}

func TestBatchPearsonSymmetric(t *testing.T) {
	x := mustRows(t, [][]float64{
		{0.3, nan, 1.2, -0.7, 2.2},
		{nan, nan, nan, nan, nan},
		{1, 5, 2, 2, 9},
	})
	y := mustRows(t, [][]float64{
		{1.1, 0.4, nan, -2.0, 0.9},
		{1, 2, 3, 4, 5},
		{3, 3, 8, 1, 0},
	})

	xy, err := BatchPearson(x, y)
	require.NoError(t, err)
	yx, err := BatchPearson(y, x)
	require.NoError(t, err)
	for i := range xy {
		if math.IsNaN(xy[i]) {
			assert.True(t, math.IsNaN(yx[i]), "row %d", i)
			continue
		}
		assert.InDelta(t, xy[i], yx[i], 1e-12, "row %d", i)
	}
	assert.True(t, math.IsNaN(xy[1]), "all-missing row must be NaN")
}

func TestBatchSpearman(t *testing.T) {
	x := mustRows(t, [][]float64{
		{1, 10, 100, 1000},
		{1, 2, nan, 4},
		{1, 1, 2, 3},
	})
	y := mustRows(t, [][]float64{
		{1, 2, 3, 4},
		{40, 30, 20, 10},
		{5, 6, 7, 8},
	})

	got, err := BatchSpearman(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got[0], 1e-12)
	assert.InDelta(t, -1.0, got[1], 1e-12)

	// ranks x=[0.5,0.5,2,3], y=[0,1,2,3]
	rx := []float64{0.5, 0.5, 2, 3}
	ry := []float64{0, 1, 2, 3}
	want := pearson1D(rx, ry)
	assert.InDelta(t, want, got[2], 1e-12)
}

func pearson1D(x, y []float64) float64 {
	n := float64(len(x))
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= n
	my /= n
	var cov, vx, vy float64
	for i := range x {
		cov += (x[i] - mx) * (y[i] - my)
		vx += (x[i] - mx) * (x[i] - mx)
		vy += (y[i] - my) * (y[i] - my)
	}
	return cov / math.Sqrt(vx*vy)
}

func TestBatchCorrelationDoesNotMutateInputs(t *testing.T) {
	x := mustRows(t, [][]float64{{1, nan, 3}})
	y := mustRows(t, [][]float64{{nan, 2, 3}})

	_, err := BatchPearson(x, y)
	require.NoError(t, err)
	_, err = BatchSpearman(x, y)
	require.NoError(t, err)

	assert.Equal(t, 1.0, x.Data[0])
	assert.True(t, math.IsNaN(x.Data[1]))
	assert.True(t, math.IsNaN(y.Data[0]))
	assert.Equal(t, 2.0, y.Data[1])
}

func TestBatchCorrelationShapeMismatch(t *testing.T) {
	x := NewMatrix(2, 3)
	y := NewMatrix(3, 2)
	_, err := BatchPearson(x, y)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = BatchSpearman(x, y)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestFromRowsRagged(t *testing.T) {
	_, err := FromRows([][]float64{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestNormalizeByRow(t *testing.T) {
	x := mustRows(t, [][]float64{{1, 2, 3, nan}})
	z := NormalizeByRow(x)
	mean, std := MaskedMeanStd(z, nil, nil)
	assert.InDelta(t, 0.0, mean[0], 1e-12)
	assert.InDelta(t, 1.0, std[0], 1e-12)
	assert.True(t, math.IsNaN(z.At(0, 3)))
}

func TestNanMean(t *testing.T) {
	assert.InDelta(t, 2.0, NanMean([]float64{1, nan, 3}), 1e-12)
	assert.True(t, math.IsNaN(NanMean([]float64{nan, nan})))
	assert.True(t, math.IsNaN(NanMean(nil)))
}

func TestReadCSV(t *testing.T) {
	in := "date,a,b,c\n2024-01-02,1,2,\n2024-01-03,NaN,5,6\n"
	m, err := ReadCSV(strings.NewReader(in), CSVOptions{Header: true, IndexColumn: true})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, 3, m.Cols)
	assert.Equal(t, 2.0, m.At(0, 1))
	assert.True(t, math.IsNaN(m.At(0, 2)))
	assert.True(t, math.IsNaN(m.At(1, 0)))

	_, err = ReadCSV(strings.NewReader("1,x\n"), CSVOptions{})
	assert.Error(t, err)
}
