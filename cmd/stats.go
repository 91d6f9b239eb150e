package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/TextQLLabs/market-cap-tracker/internal/report"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dataset completion statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		through, _ := cmd.Flags().GetInt("through")
		asJSON, _ := cmd.Flags().GetBool("json")
		lang, _ := cmd.Flags().GetString("lang")

		now := time.Now()
		if through == 0 {
			through = now.Year()
		}
		tag, err := language.Parse(lang)
		if err != nil {
			return eris.Wrapf(err, "stats: invalid --lang %q", lang)
		}

		ds, err := initDataset().Load(ctx)
		if err != nil {
			return err
		}
		c := report.Compute(ds, through)

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(c)
		}
		return report.Render(os.Stdout, c, tag, now)
	},
}

func init() {
	statsCmd.Flags().Int("through", 0, "last expected year (default: current year)")
	statsCmd.Flags().Bool("json", false, "print JSON instead of a table")
	statsCmd.Flags().String("lang", "en", "locale for number formatting (BCP 47)")
	rootCmd.AddCommand(statsCmd)
}
