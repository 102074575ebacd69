package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"churnlab/internal/eda"
)

// PrintEDA writes the exploratory report as aligned text tables.
func PrintEDA(w io.Writer, r eda.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Rows: %d\tColumns: %d\n", r.Rows, len(r.Columns))
	fmt.Fprintf(tw, "Churn: %d yes / %d no (%.1f%%)\n\n", r.Balance.Yes, r.Balance.No, r.Balance.Rate*100)

	fmt.Fprintln(tw, "COLUMN\tTYPE\tMISSING %")
	for i, t := range r.Types {
		missing := 0.0
		if i < len(r.Missing) {
			missing = r.Missing[i].Ratio * 100
		}
		fmt.Fprintf(tw, "%s\t%s\t%.1f\n", t.Column, t.Type, missing)
	}

	fmt.Fprintln(tw, "\nNUMERIC\tCOUNT\tMEAN\tSTD\tMIN\tMAX")
	for _, s := range r.Numeric {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n", s.Column, s.Count, s.Mean, s.Std, s.Min, s.Max)
	}

	printLevels(tw, "CONTRACT", r.ByContract)
	printLevels(tw, "INTERNET", r.ByInternet)

	if len(r.TopBinary) > 0 {
		fmt.Fprintln(tw, "\nBINARY COLUMN\tCORR WITH CHURN")
		for _, c := range r.TopBinary {
			fmt.Fprintf(tw, "%s\t%+.3f\n", c.Column, c.Corr)
		}
	}

	return tw.Flush()
}

func printLevels(w io.Writer, title string, levels []eda.LevelRate) {
	if len(levels) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\tCOUNT\tCHURN %%\n", title)
	for _, l := range levels {
		fmt.Fprintf(w, "%s\t%d\t%.1f\n", l.Level, l.Count, l.YesPct)
	}
}
