package logx

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"alphacore/internal/corr"
	"alphacore/internal/store"
)

// NewTableWriter returns the tabwriter layout used by every table.
func NewTableWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return fmt.Sprintf("%.4f", v)
}

// WriteICTable prints per-row IC and rank IC followed by their NaN-skipping
// means. Both slices must have the same length.
func WriteICTable(w io.Writer, ic, rankIC []float64) error {
	tw := NewTableWriter(w)
	fmt.Fprintln(tw, "row\tic\trank_ic")
	for i := range ic {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i, num(ic[i]), num(rankIC[i]))
	}
	fmt.Fprintf(tw, "mean\t%s\t%s\n", num(corr.NanMean(ic)), num(corr.NanMean(rankIC)))
	return tw.Flush()
}

// WriteTopTable prints stored expressions best first.
func WriteTopTable(w io.Writer, recs []store.Record) error {
	tw := NewTableWriter(w)
	fmt.Fprintln(tw, "#\tic\trank_ic\toutcome\texpr")
	for i, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, num(r.IC), num(r.RankIC), r.Outcome, r.Expr)
	}
	return tw.Flush()
}
