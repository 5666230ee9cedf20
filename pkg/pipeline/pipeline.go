// Package pipeline drives LC-IMS feature finding: two clustering passes,
// Dalton correction, lifecycle filters, conformation splitting and scoring.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/FeatureKey/pkg/cluster"
	"github.com/ChrisMcGann/FeatureKey/pkg/config"
	"github.com/ChrisMcGann/FeatureKey/pkg/conformation"
	"github.com/ChrisMcGann/FeatureKey/pkg/core"
	"github.com/ChrisMcGann/FeatureKey/pkg/dalton"
	"github.com/ChrisMcGann/FeatureKey/pkg/filter"
	"github.com/ChrisMcGann/FeatureKey/pkg/metrics"
	"github.com/ChrisMcGann/FeatureKey/pkg/reader/uimf"
)

// Pipeline finds features in a set of detections.
type Pipeline struct {
	settings *config.Settings
	splitter *conformation.Splitter // nil when conformation detection is off
	metrics  *metrics.RunMetrics
	log      *slog.Logger
}

// Result holds the features of a run and the partitions that failed.
type Result struct {
	Features     []*core.TopFeature
	Failed       []*PartitionError
	DaltonMerges int
}

// Err joins the partition failures, or returns nil if there were none.
func (r *Result) Err() error {
	errs := make([]error, len(r.Failed))
	for i, e := range r.Failed {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// New creates a pipeline. source may be nil when conformation detection is
// disabled; m and log may be nil.
func New(settings *config.Settings, scans *core.ScanIndex, source conformation.RawSource, m *metrics.RunMetrics, log *slog.Logger) (*Pipeline, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	p := &Pipeline{
		settings: settings,
		metrics:  m,
		log:      log,
	}

	if settings.UseConformationDetection {
		if source == nil {
			return nil, ErrNoRawSource
		}
		p.splitter = conformation.NewSplitter(source, scans, conformation.Options{
			SmoothingBandwidth: settings.SmoothingBandwidth,
			TheoreticalFWHM:    settings.TheoreticalFWHM,
			FrameType:          settings.FrameType,
			TolerancePPM:       settings.MassTolerancePPM,
		}, log)
	}

	return p, nil
}

// Run finds the features of ds. Detections must carry sequential scans and
// unique indices. A returned error is fatal; failures confined to one
// partition are reported in Result.Failed instead.
func (p *Pipeline) Run(ctx context.Context, ds []*core.Detection) (*Result, error) {
	res := &Result{}

	start := time.Now()
	mids, err := p.midClusters(ctx, ds)
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveStage(metrics.StageMidClusters, start, len(mids))
	p.log.Info("Processed mid-level clusters", "detections", len(ds), "clusters", len(mids))

	start = time.Now()
	features, err := p.topFeatures(ctx, mids)
	if err != nil {
		return nil, err
	}
	if err := checkMembership(ds, features); err != nil {
		return nil, err
	}
	p.metrics.ObserveStage(metrics.StageTopFeatures, start, len(features))
	p.log.Info("Processed features", "features", len(features))

	if p.settings.IMSMaxDaCorrection > 0 {
		start = time.Now()
		res.DaltonMerges, err = p.correctDaltons(ctx, features)
		if err != nil {
			return nil, err
		}
		p.metrics.AddDaltonMerges(res.DaltonMerges)
		p.metrics.ObserveStage(metrics.StageDalton, start, res.DaltonMerges)
		p.log.Info("Processed Dalton correction", "merges", res.DaltonMerges)
	}

	start = time.Now()
	// Sorting first makes the indices assigned by the gap split reproducible.
	filter.Sort(features)
	lifecycle := &filter.Config{
		MinMembers:     p.settings.MinFeatureLengthPoints,
		GapMaxSize:     p.settings.LCGapMaxSize,
		DropSingleScan: p.splitter == nil,
	}
	features = lifecycle.Apply(features)
	p.metrics.ObserveStage(metrics.StageFilter, start, len(features))

	if p.splitter != nil {
		start = time.Now()
		before := p.splitter.Discarded()
		features, res.Failed, err = p.splitConformations(ctx, features)
		if err != nil {
			return nil, err
		}
		p.metrics.AddDiscardedConformations(int(p.splitter.Discarded() - before))
		p.metrics.ObserveStage(metrics.StageConformation, start, len(features))
		p.log.Info("Processed conformations", "features", len(features), "failed", len(res.Failed))
	} else {
		for _, f := range features {
			f.DriftTime = f.Representative().DriftTime
			f.MaxMemberCount = f.MemberCount()
		}
	}

	features = filter.FilterByMemberCount(features, p.settings.MinFeatureLengthPoints)
	for _, f := range features {
		f.LCScore = LCScore(f)
	}
	filter.Sort(features)

	res.Features = features
	return res, nil
}

func (p *Pipeline) newGroup(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.settings.WorkerCount())
	return g, gctx
}

// midClusters runs clustering pass 1, one task per (scan[, charge]) group.
func (p *Pipeline) midClusters(ctx context.Context, ds []*core.Detection) ([]*core.MidCluster, error) {
	var out bag[*core.MidCluster]
	g, gctx := p.newGroup(ctx)

	for _, group := range cluster.GroupByScan(ds, p.settings.UseCharge) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out.add(cluster.MidClusters(group, p.settings.MassTolerancePPM)...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out.drain(), nil
}

// topFeatures runs clustering pass 2, one task per charge group.
func (p *Pipeline) topFeatures(ctx context.Context, mids []*core.MidCluster) ([]*core.TopFeature, error) {
	var out bag[*core.TopFeature]
	g, gctx := p.newGroup(ctx)

	for _, group := range cluster.GroupByCharge(mids, p.settings.UseCharge) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out.add(cluster.TopFeatures(group, p.settings.MassTolerancePPM)...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	features := out.drain()
	filter.Sort(features)
	for i, f := range features {
		f.OriginalIndex = i
	}
	return features, nil
}

// correctDaltons runs Dalton correction on mass-disjoint partitions in
// parallel. Losers stay in features, emptied.
func (p *Pipeline) correctDaltons(ctx context.Context, features []*core.TopFeature) (int, error) {
	corrector := dalton.Corrector{
		MaxDa:        p.settings.IMSMaxDaCorrection,
		TolerancePPM: p.settings.MassTolerancePPM,
		Threshold:    p.settings.DaltonThreshold,
		Log:          p.log,
	}

	var merges atomic.Int64
	g, gctx := p.newGroup(ctx)
	for _, part := range filter.PartitionByMass(features, p.settings.IMSMaxDaCorrection, p.settings.MassTolerancePPM) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			merges.Add(int64(corrector.Correct(part)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return int(merges.Load()), nil
}

// splitConformations splits every feature into its conformations. A failed
// feature is dropped and reported; a missing raw-data source aborts the run.
func (p *Pipeline) splitConformations(ctx context.Context, features []*core.TopFeature) ([]*core.TopFeature, []*PartitionError, error) {
	var out bag[*core.TopFeature]
	var failed bag[*PartitionError]
	g, gctx := p.newGroup(ctx)

	for _, f := range features {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			idx := f.OriginalIndex
			confs, err := p.splitter.Split(gctx, f)
			if errors.Is(err, uimf.ErrSourceNotFound) {
				return err
			}
			if err != nil {
				p.log.Warn("conformation detection failed", "feature", idx, "error", err)
				p.metrics.PartitionFailed(metrics.StageConformation)
				failed.add(&PartitionError{Stage: metrics.StageConformation, Partition: idx, Err: err})
				return nil
			}
			out.add(confs...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	errs := failed.drain()
	sort.Slice(errs, func(i, j int) bool { return errs[i].Partition < errs[j].Partition })
	return out.drain(), errs, nil
}
