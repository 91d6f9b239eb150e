package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/TextQLLabs/market-cap-tracker/internal/manual"
	"github.com/TextQLLabs/market-cap-tracker/internal/model"
	"github.com/TextQLLabs/market-cap-tracker/internal/reconcile"
)

var addCmd = &cobra.Command{
	Use:   "add TICKER YEAR MARKET_CAP",
	Short: "Add a manually researched data point",
	Long: "Merges one researched value into the dataset under the same priority rules as collected data. " +
		"MARKET_CAP is in billions of USD, or PRIVATE / DATA_INCOMPLETE.",
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rec := map[string]string{
			"symbol":     args[0],
			"year":       args[1],
			"market_cap": args[2],
		}
		for _, flag := range []string{"citation", "notes", "confidence_level", "source_kind", "last_verified"} {
			if v, _ := cmd.Flags().GetString(flag); v != "" {
				rec[flag] = v
			}
		}
		entry, err := manual.ParseRecord(rec)
		if err != nil {
			return eris.Wrap(err, "add")
		}
		if entry.Point.Citation == "" {
			return eris.New("add: --citation is required")
		}

		out, err := reconcile.NewEngine(initDataset()).Apply(ctx, entry.Symbol, []model.MarketCapPoint{entry.Point})
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, describeAdd(entry.Symbol, entry.Point, out.Stats))
		return nil
	},
}

func init() {
	addCmd.Flags().String("citation", "", "where the value comes from (required)")
	addCmd.Flags().String("notes", "", "free-form notes")
	addCmd.Flags().String("confidence_level", "", "HIGH, MEDIUM or LOW (default MEDIUM)")
	addCmd.Flags().String("source_kind", "", "sec, api, historical, user_provided or interpolated (default: from citation)")
	addCmd.Flags().String("last_verified", "", "date the value was checked (YYYY-MM-DD)")
	rootCmd.AddCommand(addCmd)
}

func describeAdd(ticker string, p model.MarketCapPoint, stats model.MergeStats) string {
	switch {
	case stats.Added > 0:
		return fmt.Sprintf("%s %d: added %s (%s)", ticker, p.Year, p.MarketCap, p.Kind())
	case stats.Replaced > 0:
		return fmt.Sprintf("%s %d: replaced existing value with %s (%s)", ticker, p.Year, p.MarketCap, p.Kind())
	default:
		return fmt.Sprintf("%s %d: kept existing value; it has equal or higher source priority than %s", ticker, p.Year, p.Kind())
	}
}
