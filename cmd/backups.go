package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/TextQLLabs/market-cap-tracker/internal/dataset"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List dataset backups, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		backups, err := initDataset().ListBackups()
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Fprintln(os.Stderr, "No backups found.")
			return nil
		}
		if limit > 0 && len(backups) > limit {
			backups = backups[:limit]
		}
		formatBackups(os.Stdout, backups)
		return nil
	},
}

func init() {
	backupsCmd.Flags().Int("limit", 20, "max number of backups to display (0 for all)")
	rootCmd.AddCommand(backupsCmd)
}

func formatBackups(out io.Writer, backups []dataset.BackupInfo) {
	p := message.NewPrinter(language.English)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CREATED\tSIZE\tPATH")
	for _, b := range backups {
		_, _ = p.Fprintf(w, "%s\t%d\t%s\n", b.CreatedAt.Format("2006-01-02 15:04:05"), b.Size, b.Path)
	}
	_ = w.Flush()
}
