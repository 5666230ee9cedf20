package peak

const (
	// DefaultMinFraction is the fraction of the maximum below which a
	// profile is considered baseline.
	DefaultMinFraction = 0.05
	// DefaultGuardSamples is the number of zero samples padded on each side
	// of a segment.
	DefaultGuardSamples = 2
	// DefaultMinSamples is the minimum segment length after padding.
	DefaultMinSamples = 7
)

// Segmenter splits a smoothed profile sampled on a unit grid into sub-peaks
// at local minima and baseline crossings.
type Segmenter struct {
	MinFraction  float64
	GuardSamples int
	MinSamples   int
}

// DefaultSegmenter returns the segmenter used for drift profiles.
func DefaultSegmenter() Segmenter {
	return Segmenter{
		MinFraction:  DefaultMinFraction,
		GuardSamples: DefaultGuardSamples,
		MinSamples:   DefaultMinSamples,
	}
}

// Split walks p in unit X steps from its first to its last sample. A new
// segment starts whenever the signal rises again after falling; samples at
// or below MinFraction of the maximum are never part of a segment. Each
// segment is padded with GuardSamples zeros on both sides and kept only if
// it then has at least MinSamples samples.
func (s Segmenter) Split(p *Peak) []*Peak {
	if p.Len() == 0 {
		return nil
	}

	minIntensity := s.MinFraction * p.MaxY()
	lo, hi := p.Bounds()

	var peaks []*Peak
	var open []Point
	rising := false
	prev := 0.0

	closeSegment := func() {
		if len(open) == 0 {
			return
		}
		seg := (&Peak{points: open}).Pad(s.GuardSamples, 1)
		if seg.Len() >= s.MinSamples {
			peaks = append(peaks, seg)
		}
		open = nil
	}

	for x := lo; x <= hi; x++ {
		v := p.Interpolate(x)
		if v > minIntensity {
			if v > prev {
				if !rising {
					closeSegment()
				}
				rising = true
			} else {
				rising = false
			}
			open = append(open, Point{X: x, Y: v})
			prev = v
		} else {
			rising = false
			prev = 0
		}
	}

	if len(open) > 0 && open[len(open)-1].Y > minIntensity {
		closeSegment()
	}

	return peaks
}
