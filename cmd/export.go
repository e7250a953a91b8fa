package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iller5/content-cli/internal/bank"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Bundle all YAML content into a single JSON document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := exportOut
		if out == "" {
			out = cfg.Export.Out
		}

		bundle, err := bank.WriteBundle(cfg.Export.DataDir, out)
		if err != nil {
			return eris.Wrap(err, "export bundle")
		}

		zap.L().Info("export complete",
			zap.String("out", out),
			zap.Int("subjects", len(bundle.Subjects)),
			zap.Int("questions", len(bundle.Questions)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default from config)")
	rootCmd.AddCommand(exportCmd)
}
