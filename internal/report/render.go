package report

import (
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Render writes the completion report as an aligned table. Numbers are
// formatted for the given locale.
func Render(out io.Writer, c Completion, tag language.Tag, generated time.Time) error {
	p := message.NewPrinter(tag)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	o := c.Overall
	_, _ = p.Fprintf(w, "Market cap coverage through %s\n", strconv.Itoa(c.Through))
	_, _ = p.Fprintf(w, "Generated:\t%s\n", generated.Format("2006-01-02 15:04:05"))
	_, _ = p.Fprintf(w, "Companies:\t%d\n", o.Companies)
	_, _ = p.Fprintf(w, "Expected data points:\t%d\n", o.TotalExpected)
	_, _ = p.Fprintf(w, "Actual data points:\t%d\n", o.TotalActual)
	_, _ = p.Fprintf(w, "Missing:\t%d\n", o.TotalMissing)
	_, _ = p.Fprintf(w, "Interpolated:\t%d\n", o.Interpolated)
	_, _ = p.Fprintf(w, "Incomplete:\t%d\n", o.Incomplete)
	_, _ = p.Fprintf(w, "Completion rate:\t%.1f%%\n", o.CompletionRate)
	_, _ = p.Fprintln(w)

	_, _ = p.Fprintln(w, "TICKER\tEXPECTED\tACTUAL\tMISSING\tINTERP\tINCOMP\tRATE")
	_, _ = p.Fprintln(w, "------\t--------\t------\t-------\t------\t------\t----")
	for _, cc := range c.Companies {
		_, _ = p.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%.1f%%\n",
			cc.Ticker,
			cc.ExpectedYears,
			cc.ActualCount,
			cc.MissingCount,
			cc.Interpolated,
			cc.Incomplete,
			cc.CompletionRate,
		)
	}
	return w.Flush()
}
