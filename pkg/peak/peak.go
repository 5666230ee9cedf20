// Package peak provides a one-dimensional signal model together with the
// kernel smoother, peak segmentation and Gaussian fit scoring used on
// drift-time and elution profiles.
package peak

import (
	"sort"

	"gonum.org/v1/gonum/integrate"
)

// Point is a single (x, y) sample.
type Point struct {
	X float64
	Y float64
}

// Peak is an ordered sequence of samples. Samples are kept sorted by X.
type Peak struct {
	points []Point
}

// New creates a peak from parallel X and Y slices. Input does not need to be
// sorted. The slices must have the same length.
func New(xs, ys []float64) *Peak {
	pts := make([]Point, len(xs))
	for i := range xs {
		pts[i] = Point{X: xs[i], Y: ys[i]}
	}
	return FromPoints(pts)
}

// FromPoints creates a peak owning pts.
func FromPoints(pts []Point) *Peak {
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
	return &Peak{points: pts}
}

// Len returns the number of samples.
func (p *Peak) Len() int {
	return len(p.points)
}

// Points returns the samples in ascending X order.
func (p *Peak) Points() []Point {
	return p.points
}

// Xs returns a copy of the X values.
func (p *Peak) Xs() []float64 {
	out := make([]float64, len(p.points))
	for i, pt := range p.points {
		out[i] = pt.X
	}
	return out
}

// Ys returns a copy of the Y values.
func (p *Peak) Ys() []float64 {
	out := make([]float64, len(p.points))
	for i, pt := range p.points {
		out[i] = pt.Y
	}
	return out
}

// MinX returns the smallest X with a positive Y, or 0 if there is none.
func (p *Peak) MinX() float64 {
	for _, pt := range p.points {
		if pt.Y > 0 {
			return pt.X
		}
	}
	return 0
}

// MaxX returns the largest X with a positive Y, or 0 if there is none.
func (p *Peak) MaxX() float64 {
	for i := len(p.points) - 1; i >= 0; i-- {
		if p.points[i].Y > 0 {
			return p.points[i].X
		}
	}
	return 0
}

// Bounds returns the first and last X including zero-intensity samples.
func (p *Peak) Bounds() (float64, float64) {
	if len(p.points) == 0 {
		return 0, 0
	}
	return p.points[0].X, p.points[len(p.points)-1].X
}

// maxIndex returns the index of the first sample with the largest Y.
func (p *Peak) maxIndex() int {
	best := -1
	for i, pt := range p.points {
		if best < 0 || pt.Y > p.points[best].Y {
			best = i
		}
	}
	return best
}

// MaxY returns the largest Y, or 0 for an empty peak.
func (p *Peak) MaxY() float64 {
	i := p.maxIndex()
	if i < 0 {
		return 0
	}
	return p.points[i].Y
}

// ApexX refines the position of the maximum by fitting a parabola through the
// maximum sample and its two neighbours. The X of the maximum sample is
// returned when the parabola is degenerate or a neighbour is missing.
func (p *Peak) ApexX() float64 {
	i := p.maxIndex()
	if i < 0 {
		return 0
	}
	if i == 0 || i == len(p.points)-1 {
		return p.points[i].X
	}

	x1, y1 := p.points[i-1].X, p.points[i-1].Y
	x2, y2 := p.points[i].X, p.points[i].Y
	x3, y3 := p.points[i+1].X, p.points[i+1].Y

	denom := (x1 - x2) * (x1 - x3) * (x2 - x3)
	if denom == 0 {
		return x2
	}
	a := (x3*(y2-y1) + x2*(y1-y3) + x1*(y3-y2)) / denom
	b := (x3*x3*(y1-y2) + x2*x2*(y3-y1) + x1*x1*(y2-y3)) / denom
	if a == 0 {
		return x2
	}
	return -b / (2 * a)
}

// Area integrates the samples with linear interpolation between them.
func (p *Peak) Area() float64 {
	if len(p.points) < 2 {
		return 0
	}
	return integrate.Trapezoidal(p.Xs(), p.Ys())
}

// Interpolate returns the linearly interpolated Y at x, or 0 outside the
// sampled range.
func (p *Peak) Interpolate(x float64) float64 {
	n := len(p.points)
	if n == 0 {
		return 0
	}
	i := sort.Search(n, func(i int) bool { return p.points[i].X >= x })
	if i == n {
		return 0
	}
	if p.points[i].X == x {
		return p.points[i].Y
	}
	if i == 0 {
		return 0
	}
	lo, hi := p.points[i-1], p.points[i]
	t := (x - lo.X) / (hi.X - lo.X)
	return lo.Y + t*(hi.Y-lo.Y)
}

// FWHM measures the full width at half maximum around the maximum sample,
// interpolating linearly at both flanks. It returns 0 for peaks that do not
// drop below half maximum on both sides.
func (p *Peak) FWHM() float64 {
	i := p.maxIndex()
	if i < 0 {
		return 0
	}
	half := p.points[i].Y / 2
	if half <= 0 {
		return 0
	}

	left, right := 0.0, 0.0
	found := false
	for j := i; j > 0; j-- {
		a, b := p.points[j-1], p.points[j]
		if a.Y <= half {
			left = a.X + (half-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			found = true
			break
		}
	}
	if !found {
		return 0
	}
	found = false
	for j := i; j < len(p.points)-1; j++ {
		a, b := p.points[j], p.points[j+1]
		if b.Y <= half {
			right = a.X + (a.Y-half)/(a.Y-b.Y)*(b.X-a.X)
			found = true
			break
		}
	}
	if !found {
		return 0
	}
	return right - left
}

// Pad returns a copy with n zero-intensity samples spaced by step added
// before the first and after the last sample.
func (p *Peak) Pad(n int, step float64) *Peak {
	if len(p.points) == 0 {
		return &Peak{}
	}
	lo, hi := p.Bounds()
	pts := make([]Point, 0, len(p.points)+2*n)
	for k := n; k >= 1; k-- {
		pts = append(pts, Point{X: lo - float64(k)*step})
	}
	pts = append(pts, p.points...)
	for k := 1; k <= n; k++ {
		pts = append(pts, Point{X: hi + float64(k)*step})
	}
	return &Peak{points: pts}
}
