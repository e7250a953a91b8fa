// Package pipeline drives the import run.
//
// Raw rows fan out to a bounded pool of enrichment workers in batches.
// Each batch is fully drained, appended to its bank files and marked in
// the import log before the next batch starts, so a crash loses at most
// one batch of work. Failed rows are reported and left unmarked; the
// next run picks them up again.
package pipeline

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iller5/content-cli/internal/bank"
	"github.com/iller5/content-cli/internal/model"
	"github.com/iller5/content-cli/internal/refine"
	"github.com/iller5/content-cli/internal/resume"
	"github.com/iller5/content-cli/internal/router"
	"github.com/iller5/content-cli/pkg/anthropic"
)

// Refiner is the enrichment dependency of the pipeline.
type Refiner interface {
	Refine(ctx context.Context, row model.RawQuestion) (*refine.Result, anthropic.TokenUsage, error)
}

// Options bounds the run.
type Options struct {
	Workers   int // parallel enrichment calls
	BatchSize int // rows drained between flushes
}

// Outcome summarizes one run.
type Outcome struct {
	Enriched int
	Failed   int
	Banks    map[string]int // bank file -> questions appended
	Usage    anthropic.TokenUsage
	Failures []model.RecordFailure
}

// Pipeline coordinates enrichment workers, routing and persistence for
// one run. Construct one per run; it holds no global state.
type Pipeline struct {
	refiner Refiner
	router  *router.Router
	banks   *bank.Writer
	log     *resume.Log
	opts    Options
}

// New builds a Pipeline. Worker and batch bounds below one are raised
// to one.
func New(r Refiner, rt *router.Router, banks *bank.Writer, log *resume.Log, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	return &Pipeline{refiner: r, router: rt, banks: banks, log: log, opts: opts}
}

// Run processes rows in batches. Cancellation takes effect at batch
// boundaries: in-flight enrichment calls run to completion and the
// current batch is flushed before the context error is returned.
func (p *Pipeline) Run(ctx context.Context, rows []model.RawQuestion) (*Outcome, error) {
	out := &Outcome{Banks: map[string]int{}}
	for start := 0; start < len(rows); start += p.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return out, eris.Wrap(err, "pipeline: run stopped")
		}
		end := min(start+p.opts.BatchSize, len(rows))
		if err := p.runBatch(ctx, rows[start:end], out); err != nil {
			return out, err
		}
	}
	return out, nil
}

// pendingBank accumulates one batch's questions for a single bank file,
// paired with the source ids that produced them.
type pendingBank struct {
	questions []model.Question
	sourceIDs []string
}

func (p *Pipeline) runBatch(ctx context.Context, rows []model.RawQuestion, out *Outcome) error {
	var mu sync.Mutex
	pending := map[string]*pendingBank{}

	// Workers keep the run context out of the oracle call so a cancel
	// mid-batch never aborts a request that is already on the wire.
	callCtx := context.WithoutCancel(ctx)

	g := new(errgroup.Group)
	g.SetLimit(p.opts.Workers)

	for _, row := range rows {
		g.Go(func() error {
			result, usage, err := p.refiner.Refine(callCtx, row)

			mu.Lock()
			defer mu.Unlock()
			out.Usage.Add(usage)

			if err != nil {
				zap.L().Warn("pipeline: enrichment failed",
					zap.String("source_id", row.SourceID),
					zap.Error(err))
				out.Failed++
				out.Failures = append(out.Failures, model.RecordFailure{
					SourceID: row.SourceID,
					Reason:   err.Error(),
				})
				return nil
			}

			q := result.Question
			q.ID = model.NewImportID()
			file := p.router.Route(result.Category)

			b := pending[file]
			if b == nil {
				b = &pendingBank{}
				pending[file] = b
			}
			b.questions = append(b.questions, q)
			b.sourceIDs = append(b.sourceIDs, row.SourceID)
			return nil
		})
	}
	_ = g.Wait() // workers report failures through out, never through the group

	return p.flush(pending, out)
}

// flush appends each pending bank in file-name order, then marks every
// durably written row in one log write. On append failure the rows
// already on disk are still marked before the error is returned.
func (p *Pipeline) flush(pending map[string]*pendingBank, out *Outcome) error {
	files := make([]string, 0, len(pending))
	for file := range pending {
		files = append(files, file)
	}
	sort.Strings(files)

	var written []string
	for _, file := range files {
		b := pending[file]
		if err := p.banks.Append(file, b.questions); err != nil {
			if markErr := p.log.Mark(written...); markErr != nil {
				zap.L().Error("pipeline: mark processed after failed append",
					zap.Error(markErr))
			}
			return eris.Wrapf(err, "pipeline: flush %s", file)
		}
		out.Banks[file] += len(b.questions)
		out.Enriched += len(b.questions)
		written = append(written, b.sourceIDs...)
	}

	if err := p.log.Mark(written...); err != nil {
		return eris.Wrap(err, "pipeline: mark processed")
	}
	return nil
}
