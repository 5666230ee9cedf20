// Package conformation splits LC features into ion-mobility conformations by
// segmenting the drift-time profile of each feature.
package conformation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/ChrisMcGann/FeatureKey/pkg/core"
	"github.com/ChrisMcGann/FeatureKey/pkg/peak"
	"github.com/ChrisMcGann/FeatureKey/pkg/reader/uimf"
)

// isotopeWindows is the number of isotope peaks summed into a drift profile.
const isotopeWindows = 3

// RawSource supplies drift profiles and frame calibration. *uimf.Reader
// implements it.
type RawSource interface {
	DriftProfile(ctx context.Context, q uimf.ProfileQuery) ([]int, []float64, error)
	FrameParams(ctx context.Context, frame int) (uimf.FrameParams, error)
}

// Options configures a Splitter.
type Options struct {
	SmoothingBandwidth float64 // Kernel bandwidth in drift scans
	TheoreticalFWHM    float64 // FWHM of the reference Gaussian in drift scans
	FrameType          int     // Frame type the profiles are read from
	TolerancePPM       float64 // m/z window when a detection has no FWHM
}

// Splitter turns one LC feature into its drift-time conformations.
type Splitter struct {
	source    RawSource
	scans     *core.ScanIndex
	opts      Options
	smoother  peak.Smoother
	segmenter peak.Segmenter
	log       *slog.Logger
	discarded atomic.Int64
}

// NewSplitter creates a Splitter reading from source. scans maps the
// sequential LC indices of features back to raw frame numbers.
func NewSplitter(source RawSource, scans *core.ScanIndex, opts Options, log *slog.Logger) *Splitter {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Splitter{
		source:    source,
		scans:     scans,
		opts:      opts,
		smoother:  peak.Smoother{Bandwidth: opts.SmoothingBandwidth},
		segmenter: peak.DefaultSegmenter(),
		log:       log,
	}
}

// conformer is one drift sub-peak with its derived values.
type conformer struct {
	profile   *peak.Peak
	score     float64
	driftTime float64
}

// Split returns the conformations of f and empties f. A detection goes to
// at most one conformation; detections outside every drift sub-peak are
// dropped, and a profile without sub-peaks yields no conformations at all.
// When the raw data holds no signal for f, f is returned unchanged with the
// drift time of its most abundant detection.
func (s *Splitter) Split(ctx context.Context, f *core.TopFeature) ([]*core.TopFeature, error) {
	rep := f.Representative()
	if rep == nil {
		return nil, nil
	}

	lo, hi := f.ScanRange()
	frameStart, err := s.scans.Raw(lo)
	if err != nil {
		return nil, fmt.Errorf("feature %d: %w", f.OriginalIndex, err)
	}
	frameEnd, err := s.scans.Raw(hi)
	if err != nil {
		return nil, fmt.Errorf("feature %d: %w", f.OriginalIndex, err)
	}

	params, err := s.source.FrameParams(ctx, rep.RawScan)
	if err != nil {
		return nil, fmt.Errorf("feature %d: %w", f.OriginalIndex, err)
	}

	profile, err := s.profile(ctx, rep, params, frameStart, frameEnd)
	if err != nil {
		return nil, fmt.Errorf("feature %d: %w", f.OriginalIndex, err)
	}
	if profile.Len() == 0 {
		mzLo, mzHi := s.query(rep, params, frameStart, frameEnd, 0).MZWindow(params)
		s.log.Debug("no drift profile, keeping feature",
			"feature", f.OriginalIndex, "mz", rep.MZ, "window", fmt.Sprintf("%.4f-%.4f", mzLo, mzHi),
			"frames", fmt.Sprintf("%d-%d", frameStart, frameEnd))
		f.DriftTime = rep.DriftTime
		f.MaxMemberCount = f.MemberCount()
		return []*core.TopFeature{f}, nil
	}

	subPeaks := s.segmenter.Split(s.smoother.Smooth(profile))
	if len(subPeaks) == 0 {
		s.discarded.Add(1)
		s.log.Info("discarding feature without drift peaks",
			"feature", f.OriginalIndex, "mz", rep.MZ, "members", f.MemberCount())
		f.Clear()
		return nil, nil
	}
	conformers := make([]conformer, len(subPeaks))
	for i, sp := range subPeaks {
		apex := sp.ApexX()
		theo := peak.Gaussian(apex, s.opts.TheoreticalFWHM, peak.DefaultGuardSamples)
		conformers[i] = conformer{
			profile:   sp,
			score:     peak.FitScore(sp, theo),
			driftTime: DriftTime(params, apex),
		}
	}

	return s.assign(f, conformers), nil
}

// profile sums the drift profiles of the isotope windows of rep over the
// frame range and returns them on a dense drift-scan grid padded with zeros.
func (s *Splitter) profile(ctx context.Context, rep *core.Detection, params uimf.FrameParams, frameStart, frameEnd int) (*peak.Peak, error) {
	sums := make(map[int]float64)
	minScan, maxScan := math.MaxInt, math.MinInt
	for n := 0; n < isotopeWindows; n++ {
		scans, values, err := s.source.DriftProfile(ctx, s.query(rep, params, frameStart, frameEnd, n))
		if err != nil {
			return nil, err
		}
		for i, scan := range scans {
			sums[scan] += values[i]
			minScan = min(minScan, scan)
			maxScan = max(maxScan, scan)
		}
	}
	if len(sums) == 0 {
		return &peak.Peak{}, nil
	}

	guard := peak.DefaultGuardSamples
	n := maxScan - minScan + 1 + 2*guard
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		scan := minScan - guard + i
		xs[i] = float64(scan)
		ys[i] = sums[scan]
	}
	return peak.New(xs, ys), nil
}

// query selects isotope n of rep over every drift scan of the frame range.
func (s *Splitter) query(rep *core.Detection, params uimf.FrameParams, frameStart, frameEnd, n int) uimf.ProfileQuery {
	tol := 0.5 * rep.FWHM
	if tol <= 0 {
		tol = core.PPMTolerance(rep.MZ, s.opts.TolerancePPM)
	}
	return uimf.ProfileQuery{
		FrameStart:  frameStart,
		FrameEnd:    frameEnd,
		FrameType:   s.opts.FrameType,
		ScanStart:   0,
		ScanEnd:     params.Scans - 1,
		MZ:          core.IsotopeMZ(rep.MZ, rep.Charge, n),
		MZTolerance: tol,
	}
}

// assign distributes the detections of f over the conformers. A detection
// belongs to the first sub-peak whose signal range [MinX, MaxX] contains its
// drift scan; failing that, to the first whose padded bounds contain it.
// Detections outside every sub-peak are dropped.
func (s *Splitter) assign(f *core.TopFeature, conformers []conformer) []*core.TopFeature {
	owner := func(d *core.Detection) int {
		x := float64(d.DriftScan)
		for i, c := range conformers {
			if x >= c.profile.MinX() && x <= c.profile.MaxX() {
				return i
			}
		}
		for i, c := range conformers {
			lo, hi := c.profile.Bounds()
			if x >= lo && x <= hi {
				return i
			}
		}
		return -1
	}

	out := make([]*core.TopFeature, len(conformers))
	for i, c := range conformers {
		child := core.NewTopFeature(f.Charge, f.OriginalIndex)
		child.IMSScore = c.score
		child.DriftTime = c.driftTime
		child.MaxAbundance = math.Round(c.profile.MaxY())
		child.SummedAbundance = math.Round(c.profile.Area())
		out[i] = child
	}

	dropped := 0
	for _, mc := range f.Clusters() {
		parts := make([][]*core.Detection, len(conformers))
		for _, d := range mc.Members {
			i := owner(d)
			if i < 0 {
				dropped++
				continue
			}
			parts[i] = append(parts[i], d)
		}
		for i, members := range parts {
			if len(members) > 0 {
				out[i].Insert(core.NewMidCluster(members))
			}
		}
	}
	f.Clear()

	if dropped > 0 {
		s.log.Debug("detections outside every conformation", "feature", f.OriginalIndex, "count", dropped)
	}

	kept := out[:0]
	maxMembers := 0
	for i, child := range out {
		if child.IsEmpty() {
			s.discarded.Add(1)
			s.log.Info("discarding empty conformation",
				"feature", f.OriginalIndex, "apex", conformers[i].profile.ApexX(), "driftTime", conformers[i].driftTime)
			continue
		}
		kept = append(kept, child)
		maxMembers = max(maxMembers, child.MemberCount())
	}
	for _, child := range kept {
		child.MaxMemberCount = maxMembers
	}
	return kept
}

// Discarded returns the number of sub-peaks dropped so far because no
// detection fell inside them, plus features whose profile had no sub-peak.
func (s *Splitter) Discarded() int64 {
	return s.discarded.Load()
}

// DriftTime converts a drift scan position to milliseconds, normalised to
// 4 Torr unless the back pressure is zero, NaN or infinite.
func DriftTime(p uimf.FrameParams, scan float64) float64 {
	dt := p.AverageTOFLength * scan / 1e6
	if p.PressureBack != 0 && !math.IsNaN(p.PressureBack) && !math.IsInf(p.PressureBack, 0) {
		dt *= 4 / p.PressureBack
	}
	return dt
}
