package bracket

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRNG_DeterministicAcrossInstances(t *testing.T) {
	seed := Seed([]byte("block-hash"), 42)
	a := NewRNG(seed)
	b := NewRNG(seed)
	for i := 0; i < 64; i++ {
		require.Equal(t, a.Next(1000), b.Next(1000))
	}
}

func TestRNG_DifferentSeedsDiverge(t *testing.T) {
	a := NewRNG(Seed([]byte("x"), 0))
	b := NewRNG(Seed([]byte("y"), 0))
	diverged := false
	for i := 0; i < 16; i++ {
		if a.Next(1 << 30) != b.Next(1 << 30) {
			diverged = true
			break
		}
	}
	require.True(t, diverged)
}

func TestRNG_NeverReturnsOutOfRange(t *testing.T) {
	rng := NewRNG(Seed([]byte("range-check"), 7))
	for _, n := range []uint32{1, 2, 3, 7, 251, 1 << 20} {
		for i := 0; i < 2000; i++ {
			v := rng.Next(n)
			require.Less(t, v, n)
		}
	}
}

func TestRNG_UniformWithinTolerance(t *testing.T) {
	const n = 10
	const draws = 1_000_000
	counts := make([]int, n)
	rng := NewRNG(Seed([]byte("uniformity"), 1))
	for i := 0; i < draws; i++ {
		counts[rng.Next(n)]++
	}
	expected := draws / n
	tolerance := expected / 20 // 5%
	for i, c := range counts {
		require.InDeltaf(t, expected, c, float64(tolerance), "bucket %d skewed: %d draws", i, c)
	}
}

func TestRNG_PanicsOnZero(t *testing.T) {
	rng := NewRNG(Seed(nil, 0))
	require.Panics(t, func() { rng.Next(0) })
}
