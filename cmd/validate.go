package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/TextQLLabs/market-cap-tracker/internal/dataset"
	"github.com/TextQLLabs/market-cap-tracker/internal/model"
	"github.com/TextQLLabs/market-cap-tracker/internal/reconcile"
	"github.com/TextQLLabs/market-cap-tracker/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate [TICKER...]",
	Short: "Check dataset structure and flag implausible values",
	Long: "Reports structural problems in the dataset file (fails the command) and advisory " +
		"plausibility issues in each company's history (growth jumps, tiny or huge values).",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		data := initDataset()

		structural, err := data.Check(ctx)
		if err != nil {
			return err
		}
		if len(structural) > 0 {
			formatStructureIssues(os.Stdout, structural)
			return eris.Errorf("validate: %d structural issues in %s", len(structural), data.Path())
		}

		ds, err := data.Load(ctx)
		if err != nil {
			return err
		}
		reports, err := validateCompanies(ds, args)
		if err != nil {
			return err
		}
		formatValidation(os.Stdout, reports)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

type companyReport struct {
	Ticker string
	Report validate.Report
}

// validateCompanies runs the plausibility checks over each company's full
// history, in ticker order.
func validateCompanies(ds *model.Dataset, tickers []string) ([]companyReport, error) {
	if len(tickers) == 0 {
		tickers = ds.Tickers()
	}
	out := make([]companyReport, 0, len(tickers))
	for _, t := range tickers {
		rec, ok := ds.Company(t)
		if !ok {
			return nil, eris.Wrap(reconcile.ErrUnknownCompany, t)
		}
		out = append(out, companyReport{Ticker: strings.ToUpper(t), Report: validate.Validate(rec.History)})
	}
	return out, nil
}

func formatStructureIssues(out io.Writer, issues []dataset.StructureIssue) {
	_, _ = fmt.Fprintf(out, "%d structural issues:\n", len(issues))
	for _, is := range issues {
		_, _ = fmt.Fprintln(out, "  "+is.String())
	}
}

func formatValidation(out io.Writer, reports []companyReport) {
	var total int
	for _, r := range reports {
		if r.Report.OK() {
			continue
		}
		_, _ = fmt.Fprintf(out, "%s:\n", r.Ticker)
		for _, is := range r.Report.Issues {
			_, _ = fmt.Fprintf(out, "  %d [%s] %s\n", is.Year, is.Rule, is.Description)
		}
		total += len(r.Report.Issues)
	}
	_, _ = fmt.Fprintf(out, "%d companies checked, %d issues\n", len(reports), total)
}
