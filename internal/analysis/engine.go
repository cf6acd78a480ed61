package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tagaudit/internal/corpus"
	"tagaudit/internal/hierarchy"
	"tagaudit/internal/network"
	"tagaudit/internal/quality"
	"tagaudit/internal/similarity"
)

// Options are the tunable analysis parameters. The defaults were chosen
// empirically on one corpus, so both knobs stay configurable instead of
// being hard-coded.
type Options struct {
	SimilarityThreshold int     `json:"similarity_threshold" yaml:"similarity_threshold"`
	OverlapRatio        float64 `json:"overlap_ratio" yaml:"overlap_ratio"`
}

// DefaultOptions returns the reference thresholds.
func DefaultOptions() Options {
	return Options{
		SimilarityThreshold: similarity.DefaultThreshold,
		OverlapRatio:        hierarchy.DefaultOverlapRatio,
	}
}

// Result bundles the four analysis outputs describing one snapshot. It is
// pure data, handed to the report/export layer for rendering.
type Result struct {
	RunID        string               `json:"run_id"`
	GeneratedAt  time.Time            `json:"generated_at"`
	Options      Options              `json:"options"`
	Stats        corpus.Stats         `json:"stats"`
	SimilarPairs []similarity.Pair    `json:"similar_pairs"`
	Hierarchy    []hierarchy.Relation `json:"hierarchy"`
	Cooccurrence []network.Pair       `json:"cooccurrence"`
	Quality      quality.Report       `json:"quality"`
}

// Engine runs the full tag rationalisation analysis over one immutable
// snapshot. It holds no mutable state between runs; rerunning on the same
// snapshot yields identical exports.
type Engine struct {
	detector   *similarity.Detector
	inferencer *hierarchy.Inferencer
	opts       Options
}

// New rejects invalid options before any computation.
func New(opts Options) (*Engine, error) {
	detector, err := similarity.NewDetector(opts.SimilarityThreshold)
	if err != nil {
		return nil, err
	}
	inferencer, err := hierarchy.NewInferencer(opts.OverlapRatio)
	if err != nil {
		return nil, err
	}
	return &Engine{detector: detector, inferencer: inferencer, opts: opts}, nil
}

// Run executes all four analyses. The similarity and quality legs are
// independent of everything else and run concurrently; hierarchy inference
// consumes the co-occurrence output, which is the only ordering constraint.
// Any failure aborts the run: the exports must all describe the same
// snapshot, so there are no partial results.
func (e *Engine) Run(ctx context.Context, snap *corpus.Snapshot) (*Result, error) {
	res := &Result{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Options:     e.opts,
		Stats:       snap.Stats,
	}

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		res.SimilarPairs = e.detector.FindSimilar(snap.Tags)
		return nil
	})
	g.Go(func() error {
		res.Quality = quality.Categorise(snap)
		return nil
	})
	g.Go(func() error {
		res.Cooccurrence = network.Build(snap.Tags)
		res.Hierarchy = e.inferencer.Infer(snap.Tags, res.Cooccurrence)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
