package bracket

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func players(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('A' + i))
	}
	return out
}

func TestBuild_TwoPlayers_OneMatchNoByes(t *testing.T) {
	paired := Build(players(2))
	require.Len(t, paired, 2)
	require.NotEqual(t, Bye, paired[0])
	require.NotEqual(t, Bye, paired[1])
}

func TestBuild_ThreePlayers_OneByeInRoundOne(t *testing.T) {
	// Seeded [X, Y, Z], R=2, paired length 4: gray(1)=1 -> position 2,
	// gray(2)=3 -> position 3, leaving position 1 as the bye:
	// positions {0:X, 2:Y, 3:Z}, position 1 is the bye.
	paired := Build([]string{"X", "Y", "Z"})
	require.Equal(t, []string{"X", Bye, "Y", "Z"}, paired)
}

func TestBuild_PowerOfTwo_NoByes(t *testing.T) {
	for _, n := range []int{2, 4, 8, 16} {
		paired := Build(players(n))
		byes := 0
		seen := map[string]bool{}
		for _, p := range paired {
			if p == Bye {
				byes++
				continue
			}
			require.False(t, seen[p], "player %q placed twice", p)
			seen[p] = true
		}
		require.Zero(t, byes, "n=%d should have no byes", n)
	}
}

func TestBuild_EveryPlayerPlacedExactlyOnce_SyntheticIDs(t *testing.T) {
	for _, n := range []int{2, 3, 5, 9, 17, 33, 513, 1024} {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = string(rune(i)) + "#"
		}
		paired := Build(ids)
		require.Len(t, paired, 1<<uint(Rounds(n)))
		seen := map[string]bool{}
		for _, p := range paired {
			if p == Bye {
				continue
			}
			require.False(t, seen[p])
			seen[p] = true
		}
		require.Len(t, seen, n)
	}
}

func TestBuild_EveryPlayerPlacedExactlyOnce(t *testing.T) {
	paired := Build(players(26))
	seen := map[string]bool{}
	for _, p := range paired {
		if p == Bye {
			continue
		}
		require.False(t, seen[p])
		seen[p] = true
	}
	require.Len(t, seen, 26)
}

func TestShuffleSeeded_DeterministicForFixedSeed(t *testing.T) {
	in := players(8)
	a := ShuffleSeeded(in, NewRNG(Seed(nil, 0)))
	b := ShuffleSeeded(in, NewRNG(Seed(nil, 0)))
	require.Equal(t, a, b)
	require.ElementsMatch(t, in, a)
}

func TestShuffleSeeded_DoesNotMutateInput(t *testing.T) {
	in := players(4)
	cp := append([]string(nil), in...)
	_ = ShuffleSeeded(in, NewRNG(Seed([]byte("x"), 1)))
	require.Equal(t, cp, in)
}
