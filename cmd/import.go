package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iller5/content-cli/internal/bank"
	"github.com/iller5/content-cli/internal/model"
	"github.com/iller5/content-cli/internal/pipeline"
	"github.com/iller5/content-cli/internal/refine"
	"github.com/iller5/content-cli/internal/resume"
	"github.com/iller5/content-cli/internal/router"
	"github.com/iller5/content-cli/internal/source"
	"github.com/iller5/content-cli/pkg/anthropic"
)

var (
	importWorkers   int
	importBatchSize int
	importSheet     string
	importDryRun    bool
	importOffline   bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Enrich questions from a spreadsheet export and append them to the banks",
	Long:  "Reads a CSV or XLSX export, skips rows already imported or bound to images, enriches the rest via Claude and appends the results to the per-subject YAML banks. Interrupting with Ctrl-C finishes the current batch before exiting.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "import"))

		sheet := importSheet
		if sheet == "" {
			sheet = cfg.Import.Sheet
		}

		src, err := source.ReadFile(args[0], source.Options{
			Delimiter: delimiterRune(cfg.Import.Delimiter),
			SheetName: sheet,
		})
		if err != nil {
			return err
		}

		imported, err := resume.Open(cfg.ImportLogPath())
		if err != nil {
			return err
		}

		split := source.Filter(src.Rows, imported, cfg.Import.PoisonMarkers)

		log.Info("source read",
			zap.String("file", args[0]),
			zap.Int("rows", len(src.Rows)),
			zap.Int("malformed", src.Malformed),
			zap.Int("already_imported", len(split.Imported)),
			zap.Int("image_bound", len(split.Poisoned)),
			zap.Int("eligible", len(split.Eligible)),
		)

		if importDryRun {
			printImportPlan(os.Stdout, args[0], src, split)
			return nil
		}

		// Image-bound rows never get enriched; mark them now so later
		// runs skip them without re-reading the export.
		poisonIDs := make([]string, 0, len(split.Poisoned))
		for _, row := range split.Poisoned {
			poisonIDs = append(poisonIDs, row.SourceID)
		}
		if err := imported.Mark(poisonIDs...); err != nil {
			return eris.Wrap(err, "mark image-bound rows")
		}

		if len(split.Eligible) == 0 {
			log.Info("nothing to import")
			return nil
		}

		client, err := newAnthropicClient()
		if err != nil {
			return err
		}
		refiner := refine.NewRefiner(client, cfg.Anthropic)

		// Warm the prompt cache with one serial request so the parallel
		// workers all read the cached system prompt.
		var usage anthropic.TokenUsage
		if len(split.Eligible) > 1 {
			primerUsage, err := refiner.Prime(ctx, split.Eligible[0])
			if err != nil {
				log.Warn("cache primer failed", zap.Error(err))
			}
			usage.Add(primerUsage)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		run, err := st.CreateRun(ctx, filepath.Base(args[0]))
		if err != nil {
			return eris.Wrap(err, "create run")
		}

		workers := importWorkers
		if workers <= 0 {
			workers = cfg.Import.Workers
		}
		batchSize := importBatchSize
		if batchSize <= 0 {
			batchSize = cfg.Import.BatchSize
		}

		p := pipeline.New(refiner, router.Default(), bank.NewWriter(cfg.Content.Dir), imported, pipeline.Options{
			Workers:   workers,
			BatchSize: batchSize,
		})

		out, runErr := p.Run(ctx, split.Eligible)
		usage.Add(out.Usage)

		status := model.RunStatusComplete
		switch {
		case eris.Is(runErr, context.Canceled):
			status = model.RunStatusCanceled
		case runErr != nil:
			status = model.RunStatusFailed
		}

		// Record the outcome even when the run was canceled.
		summary := buildSummary(src, split, out, usage, cfg.Anthropic.Model)
		if err := st.CompleteRun(context.WithoutCancel(ctx), run.ID, status, summary); err != nil {
			log.Warn("complete run", zap.Error(err))
		}

		usage.LogCost(refiner.Model(), "import")
		printRunSummary(os.Stdout, run.ID, status, summary)

		return runErr
	},
}

func init() {
	importCmd.Flags().IntVar(&importWorkers, "workers", 0, "parallel enrichment calls (default from config)")
	importCmd.Flags().IntVar(&importBatchSize, "batch-size", 0, "rows drained per flush batch (default from config)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "read and filter only, no enrichment and no writes")
	importCmd.Flags().BoolVar(&importOffline, "offline", false, "use the canned stub client instead of the Anthropic API")
	rootCmd.AddCommand(importCmd)
}

// newAnthropicClient builds the enrichment client from config, or the
// offline stub when --offline is set.
func newAnthropicClient() (anthropic.Client, error) {
	if importOffline {
		return &refine.StubClient{}, nil
	}
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (ILLER_ANTHROPIC_KEY)")
	}

	opts := []anthropic.ClientOption{
		anthropic.WithMaxRetries(cfg.Anthropic.MaxRetries),
	}
	if cfg.Anthropic.RequestsPerSecond > 0 {
		opts = append(opts, anthropic.WithRateLimit(cfg.Anthropic.RequestsPerSecond))
	}
	if cfg.Anthropic.TimeoutSecs > 0 {
		opts = append(opts, anthropic.WithTimeout(time.Duration(cfg.Anthropic.TimeoutSecs)*time.Second))
	}
	return anthropic.NewClient(cfg.Anthropic.Key, opts...), nil
}

// delimiterRune returns the first rune of s. Empty input maps to zero,
// which lets the CSV reader fall back to its own default.
func delimiterRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

// buildSummary collapses the read, filter and pipeline outcomes into the
// summary persisted on the run row.
func buildSummary(src *source.File, split source.Split, out *pipeline.Outcome, usage anthropic.TokenUsage, modelID string) *model.RunSummary {
	return &model.RunSummary{
		RowsRead:        len(src.Rows) + src.Malformed,
		AlreadyImported: len(split.Imported),
		Malformed:       src.Malformed,
		ImageOnly:       len(split.Poisoned),
		Enriched:        out.Enriched,
		Failed:          out.Failed,
		Banks:           out.Banks,
		InputTokens:     int(usage.InputTokens),
		OutputTokens:    int(usage.OutputTokens),
		Cost:            usage.EstimateCost(modelID),
		Failures:        out.Failures,
	}
}

// printImportPlan writes what a dry run would do.
func printImportPlan(out io.Writer, file string, src *source.File, split source.Split) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Source:\t%s\n", file)
	_, _ = fmt.Fprintf(w, "Rows read:\t%d\n", len(src.Rows)+src.Malformed)
	_, _ = fmt.Fprintf(w, "Already imported:\t%d\n", len(split.Imported))
	_, _ = fmt.Fprintf(w, "Malformed:\t%d\n", src.Malformed)
	_, _ = fmt.Fprintf(w, "Image-bound skips:\t%d\n", len(split.Poisoned))
	_, _ = fmt.Fprintf(w, "Would enrich:\t%d\n", len(split.Eligible))
	_ = w.Flush()
}

// printRunSummary writes the final per-run accounting.
func printRunSummary(out io.Writer, runID string, status model.RunStatus, s *model.RunSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s (%s)\n", truncateID(runID), status)
	_, _ = fmt.Fprintf(w, "Rows read:\t%d\n", s.RowsRead)
	_, _ = fmt.Fprintf(w, "Already imported:\t%d\n", s.AlreadyImported)
	_, _ = fmt.Fprintf(w, "Malformed:\t%d\n", s.Malformed)
	_, _ = fmt.Fprintf(w, "Image-bound skips:\t%d\n", s.ImageOnly)
	_, _ = fmt.Fprintf(w, "Enriched:\t%d\n", s.Enriched)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	for _, file := range sortedKeys(s.Banks) {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", file, s.Banks[file])
	}
	_, _ = fmt.Fprintf(w, "Tokens:\t%d in / %d out\n", s.InputTokens, s.OutputTokens)
	if s.Cost > 0 {
		_, _ = fmt.Fprintf(w, "Est. cost:\t$%.4f\n", s.Cost)
	}
	for _, f := range s.Failures {
		_, _ = fmt.Fprintf(w, "  failed %s:\t%s\n", f.SourceID, f.Reason)
	}
	_ = w.Flush()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
