package cluster

import (
	"cmp"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/FeatureKey/pkg/core"
)

func identity(m float64) float64 { return m }

func TestChain(t *testing.T) {
	tests := []struct {
		name   string
		masses []float64
		ppm    float64
		want   [][]float64
	}{
		{
			name:   "empty input",
			masses: nil,
			ppm:    20,
			want:   nil,
		},
		{
			name:   "two within tolerance and one apart",
			masses: []float64{1005.0, 1000.00002, 1000.0},
			ppm:    20,
			want:   [][]float64{{1000.0, 1000.00002}, {1005.0}},
		},
		{
			name:   "window walks with each member",
			masses: []float64{1000.000, 1000.015, 1000.030, 1000.045},
			ppm:    20,
			want:   [][]float64{{1000.000, 1000.015, 1000.030, 1000.045}},
		},
		{
			name:   "gap breaks the chain",
			masses: []float64{1000.000, 1000.015, 1000.060},
			ppm:    20,
			want:   [][]float64{{1000.000, 1000.015}, {1000.060}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chain(tt.masses, tt.ppm, identity, nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChainDoesNotModifyInput(t *testing.T) {
	in := []float64{3, 1, 2}
	_ = Chain(in, 10, identity, nil)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func randomDetections(r *rand.Rand, n int) []*core.Detection {
	ds := make([]*core.Detection, n)
	for i := range ds {
		ds[i] = &core.Detection{
			Index:  i,
			Scan:   r.Intn(5),
			Charge: 1 + r.Intn(3),
			Mass:   1000 + float64(r.Intn(40))*0.01 + r.Float64()*0.001,
		}
	}
	return ds
}

func partitionOf(clusters [][]*core.Detection) [][]int {
	out := make([][]int, len(clusters))
	for i, c := range clusters {
		for _, d := range c {
			out[i] = append(out[i], d.Index)
		}
	}
	return out
}

func TestChainPermutationInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	ds := randomDetections(r, 200)
	massOf := func(d *core.Detection) float64 { return d.Mass }
	byIndex := func(a, b *core.Detection) int { return cmp.Compare(a.Index, b.Index) }

	want := partitionOf(Chain(ds, 10, massOf, byIndex))

	for trial := 0; trial < 5; trial++ {
		perm := make([]*core.Detection, len(ds))
		copy(perm, ds)
		r.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

		got := partitionOf(Chain(perm, 10, massOf, byIndex))
		require.Equal(t, want, got, "trial %d", trial)
	}
}

func TestChainKeepsEveryItemOnce(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	ds := randomDetections(r, 500)

	clusters := Chain(ds, 5, func(d *core.Detection) float64 { return d.Mass }, nil)

	seen := make(map[int]int)
	for _, c := range clusters {
		require.NotEmpty(t, c)
		for _, d := range c {
			seen[d.Index]++
		}
	}
	require.Len(t, seen, len(ds))
	for idx, n := range seen {
		assert.Equal(t, 1, n, "detection %d", idx)
	}
}
