package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iller5/content-cli/internal/bank"
	"github.com/iller5/content-cli/internal/resume"
)

var resetDryRun bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove imported questions from the banks and clear the import log",
	Long:  "Strips every question whose ID carries the import prefix from the YAML banks, then empties the import log so the next import starts from scratch. Hand-authored questions are untouched.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		log := zap.L().With(zap.String("command", "reset"))

		removed, err := bank.StripImports(cfg.Content.Dir, resetDryRun)
		if err != nil {
			return eris.Wrap(err, "strip imports")
		}

		total := 0
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, file := range sortedKeys(removed) {
			_, _ = fmt.Fprintf(w, "%s:\t%d\n", file, removed[file])
			total += removed[file]
		}
		if resetDryRun {
			_, _ = fmt.Fprintf(w, "Would remove:\t%d\n", total)
		} else {
			_, _ = fmt.Fprintf(w, "Removed:\t%d\n", total)
		}
		_ = w.Flush()

		if resetDryRun {
			return nil
		}

		imported, err := resume.Open(cfg.ImportLogPath())
		if err != nil {
			return err
		}
		if err := imported.Reset(); err != nil {
			return eris.Wrap(err, "reset import log")
		}

		log.Info("reset complete",
			zap.Int("questions_removed", total),
			zap.Int("banks_touched", len(removed)),
		)
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetDryRun, "dry-run", false, "report what would be removed without writing")
	rootCmd.AddCommand(resetCmd)
}
