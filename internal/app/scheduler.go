package app

import (
	"time"

	"tournamentchain/internal/state"
)

// NumRounds returns R = floor(log2(numMatches + 1)), the number of rounds in
// a complete single-elimination bracket with numMatches = 2^R - 1 matches.
func NumRounds(numMatches int) int {
	r := 0
	for (1 << uint(r+1)) <= numMatches+1 {
		r++
	}
	return r
}

// numMatchesInRound returns how many matches round (0 = first round) holds,
// given the bracket has numRounds rounds total.
func numMatchesInRound(numRounds, round int) int {
	return 1 << uint(numRounds-round-1)
}

// firstMatchInRound returns the flat-array index of round's first match.
func firstMatchInRound(numMatches, round int) int {
	return numMatches - (numMatches >> uint(round))
}

// leafCount returns how many matches round 0 (the first round, holding no
// byes-from-children) occupies at the low end of the flat match array.
func leafCount(numMatches int) int {
	if numMatches <= 0 {
		return 0
	}
	return numMatchesInRound(NumRounds(numMatches), 0)
}

// ChildIndices returns the two child match indices that feed parent match m
// in a flat array of numMatches total matches, implicit-heap style with the
// final at the single highest index and round 0 at the low indices. m must
// not be a round-0 (leaf) match.
//
// This is the corrected form of the source algorithm's match_to_start
// binding: the source binds a freshly-started match to matches[left_child]
// instead of matches[m] itself, a documented bug this implementation does
// not reproduce (see DESIGN.md).
func ChildIndices(numMatches, m int) (left, right int) {
	left = (numMatches - 1) - ((numMatches - 1 - m) * 2 + 2)
	return left, left + 1
}

// CheckForNewMatchesToStart scans matches (indexed by bracket position, so
// matches[i] must be the match occupying flat index i) for any
// waiting_on_previous_matches match whose two children have both completed,
// and feeds their winners forward with ReceiveParentPlayers. A parent starts
// as soon as its own two children are complete; it does not wait for the
// rest of its children's round to finish. It repeats to a
// fixed point so a cascade of auto-advancing byes resolves within one call,
// the way a single per-block scheduler pass is expected to.
func CheckForNewMatchesToStart(matches []*state.Match, now time.Time) error {
	numMatches := len(matches)
	if numMatches == 0 {
		return nil
	}
	firstParent := leafCount(numMatches)

	for {
		advanced := false
		for m := firstParent; m < numMatches; m++ {
			match := matches[m]
			if match == nil || match.State != state.MatchWaitingOnPrevious {
				continue
			}
			left, right := ChildIndices(numMatches, m)
			lm, rm := matches[left], matches[right]
			if lm == nil || rm == nil {
				continue
			}
			if lm.State != state.MatchComplete || rm.State != state.MatchComplete {
				continue
			}
			winners := make([]string, 0, len(lm.Winners)+len(rm.Winners))
			winners = append(winners, lm.Winners...)
			winners = append(winners, rm.Winners...)
			match.ReceiveParentPlayers(winners, now)
			advanced = true
		}
		if !advanced {
			return nil
		}
	}
}
