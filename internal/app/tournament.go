package app

import (
	"fmt"
	"time"

	"tournamentchain/internal/bracket"
	"tournamentchain/internal/state"
)

// lookupTournament resolves a tournament and its details pair, or an error
// if the id is unknown.
func lookupTournament(s *state.State, tournamentID uint64) (*state.Tournament, *state.TournamentDetails, error) {
	t, ok := s.Tournaments[tournamentID]
	if !ok {
		return nil, nil, fmt.Errorf("tournament %d: not found", tournamentID)
	}
	d, ok := s.Details[t.DetailsID]
	if !ok {
		return nil, nil, fmt.Errorf("tournament %d: details missing", tournamentID)
	}
	return t, d, nil
}

// RegisterPlayer implements the player_registered transition: it debits the
// buy-in from payer, adds player to the registered set, and — once the
// tournament is full — moves it to awaiting_start. A precondition violation
// (wrong state, whitelist rejection, already registered, insufficient
// funds, or joining after the registration deadline) rejects the whole
// operation with no partial effects.
func RegisterPlayer(s *state.State, tournamentID uint64, payer, player string, now time.Time) error {
	t, d, err := lookupTournament(s, tournamentID)
	if err != nil {
		return err
	}
	if t.State != state.StateAcceptingRegistrations {
		return fmt.Errorf("tournament %d: cannot register while in state %q", tournamentID, t.State)
	}
	if !now.Before(t.Options.RegistrationDeadline) {
		return fmt.Errorf("tournament %d: registration deadline has passed", tournamentID)
	}
	if !t.Options.Allows(player) {
		return fmt.Errorf("tournament %d: %q is not on the whitelist", tournamentID, player)
	}
	if d.HasRegisteredPlayer(player) {
		return fmt.Errorf("tournament %d: %q is already registered", tournamentID, player)
	}
	if t.RegisteredPlayers >= t.Options.NumberOfPlayers {
		return fmt.Errorf("tournament %d: already full", tournamentID)
	}

	if err := s.Debit(payer, t.Options.BuyInAmount); err != nil {
		return fmt.Errorf("tournament %d: %w", tournamentID, err)
	}

	d.InsertRegisteredPlayer(player)
	// A zero buy-in contributes nothing to the pool: per spec, a payer's
	// contribution is non-negative and non-zero, so a free tournament
	// records no Payers entry at all rather than a zero-valued one.
	if t.Options.BuyInAmount > 0 {
		d.Payers[payer] += t.Options.BuyInAmount
	}
	d.PlayerPayer[player] = payer
	t.RegisteredPlayers++
	t.PrizePool += t.Options.BuyInAmount

	if t.RegisteredPlayers == t.Options.NumberOfPlayers {
		t.State = state.StateAwaitingStart
		start := resolveStartTime(t.Options, now)
		t.StartTime = &start
	}
	return nil
}

// resolveStartTime returns the tournament's concrete start time: either the
// fixed start_time, or now + start_delay for delay-configured tournaments
// (the delay counts from the moment registration fills, same as the
// original source's behavior of starting the delay clock when the last
// seat is taken).
func resolveStartTime(opts state.TournamentOptions, now time.Time) time.Time {
	if opts.StartTime != nil {
		return *opts.StartTime
	}
	return now.Add(time.Duration(*opts.StartDelaySecs) * time.Second)
}

// LeavePlayer implements tournament_leave: the exact inverse of
// RegisterPlayer, refunding whichever account paid the player's buy-in.
// Leaves are only legal pre-start (accepting_registrations or
// awaiting_start); leaving out of awaiting_start drops the tournament back
// to accepting_registrations since it is no longer full (see DESIGN.md —
// the source's transition table has no explicit edge for this, since its
// leave operation never needed to be re-derived against a generalized FSM
// module like this one).
func LeavePlayer(s *state.State, tournamentID uint64, cancelingAccount, player string, now time.Time) error {
	t, d, err := lookupTournament(s, tournamentID)
	if err != nil {
		return err
	}
	if t.State != state.StateAcceptingRegistrations && t.State != state.StateAwaitingStart {
		return fmt.Errorf("tournament %d: cannot leave while in state %q", tournamentID, t.State)
	}
	if !d.HasRegisteredPlayer(player) {
		return fmt.Errorf("tournament %d: %q is not registered", tournamentID, player)
	}
	payer, ok := d.PlayerPayer[player]
	if !ok {
		return fmt.Errorf("tournament %d: no payer recorded for %q", tournamentID, player)
	}
	if cancelingAccount != player && cancelingAccount != payer {
		return fmt.Errorf("tournament %d: %q may not cancel %q's registration", tournamentID, cancelingAccount, player)
	}

	amount := t.Options.BuyInAmount
	if err := s.Credit(payer, amount); err != nil {
		return fmt.Errorf("tournament %d: %w", tournamentID, err)
	}

	d.RemoveRegisteredPlayer(player)
	delete(d.PlayerPayer, player)
	if d.Payers[payer] <= amount {
		delete(d.Payers, payer)
	} else {
		d.Payers[payer] -= amount
	}
	t.RegisteredPlayers--
	t.PrizePool -= amount

	if t.State == state.StateAwaitingStart {
		t.State = state.StateAcceptingRegistrations
		t.StartTime = nil
	}
	return nil
}

// ExpireRegistration implements registration_deadline_passed: refunds every
// registered player's buy-in and moves the tournament to
// registration_period_expired. Called by the host's per-block deadline scan,
// not by a submitted tx; dispatching it against a tournament not currently
// accepting_registrations is a no-op; an already-full tournament
// (awaiting_start) has already escaped the deadline by invariant and is
// likewise left untouched.
func ExpireRegistration(s *state.State, tournamentID uint64, now time.Time) error {
	t, d, err := lookupTournament(s, tournamentID)
	if err != nil {
		return err
	}
	if t.State != state.StateAcceptingRegistrations {
		return nil
	}

	for payer, amount := range d.Payers {
		if err := s.Credit(payer, amount); err != nil {
			return fmt.Errorf("tournament %d: refund %s: %w", tournamentID, payer, err)
		}
	}
	d.Payers = map[string]uint64{}
	d.PlayerPayer = map[string]string{}
	d.RegisteredPlayers = []string{}
	t.RegisteredPlayers = 0
	t.PrizePool = 0
	t.State = state.StateRegistrationPeriodExpired
	end := now
	t.EndTime = &end
	return nil
}

// StartTournament implements start_time_arrived: seeds and builds the
// bracket from the registered-player list and allocates the flat match
// array, moving the tournament to in_progress. blockHash/height feed the
// deterministic per-block RNG seed (MODULE A); every validator executing
// this block must derive the identical bracket. No-op if the tournament
// isn't awaiting_start.
func StartTournament(s *state.State, tournamentID uint64, blockHash []byte, height int64, now time.Time) error {
	t, d, err := lookupTournament(s, tournamentID)
	if err != nil {
		return err
	}
	if t.State != state.StateAwaitingStart {
		return nil
	}

	rng := bracket.NewRNG(bracket.Seed(blockHash, height))
	seeded := bracket.ShuffleSeeded(d.RegisteredPlayers, rng)
	paired := bracket.Build(seeded)

	numMatches := len(paired) - 1
	if numMatches == 0 {
		// Single player (no-op tournament of size 1 never reaches here:
		// NewTournament requires number_of_players >= 2) — defensive only.
		numMatches = 1
	}
	matches := make([]*state.Match, numMatches)
	matchIDs := make([]uint64, numMatches)
	firstParent := leafCount(numMatches)

	for i := 0; i < firstParent; i++ {
		id := s.NextMatchID
		s.NextMatchID++
		m := &state.Match{ID: id, TournamentID: tournamentID}
		players := leafPlayers(paired, i)
		m.Initiate(players, now)
		s.Matches[id] = m
		matches[i] = m
		matchIDs[i] = id
	}
	for i := firstParent; i < numMatches; i++ {
		id := s.NextMatchID
		s.NextMatchID++
		m := &state.Match{ID: id, TournamentID: tournamentID, State: state.MatchWaitingOnPrevious}
		s.Matches[id] = m
		matches[i] = m
		matchIDs[i] = id
	}

	d.MatchIDs = matchIDs
	t.State = state.StateInProgress
	start := now
	t.StartTime = &start

	return CheckForNewMatchesToStart(matches, now)
}

// leafPlayers returns the (1 or 2) non-bye players feeding leaf match i from
// the paired bracket array.
func leafPlayers(paired []string, i int) []string {
	a, b := paired[2*i], paired[2*i+1]
	switch {
	case a == bracket.Bye && b == bracket.Bye:
		return nil
	case a == bracket.Bye:
		return []string{b}
	case b == bracket.Bye:
		return []string{a}
	default:
		return []string{a, b}
	}
}

// RecordGameMove implements a single match's result: it completes the named
// match with winner, runs the scheduler to start any parent match whose two
// children are now complete, and concludes the tournament if the final match just finished.
func RecordGameMove(s *state.State, tournamentID uint64, matchID uint64, winner string, now time.Time) error {
	t, d, err := lookupTournament(s, tournamentID)
	if err != nil {
		return err
	}
	if t.State != state.StateInProgress {
		return fmt.Errorf("tournament %d: cannot record a game move while in state %q", tournamentID, t.State)
	}
	m, ok := s.Matches[matchID]
	if !ok || m.TournamentID != tournamentID {
		return fmt.Errorf("tournament %d: match %d not found", tournamentID, matchID)
	}
	if err := m.Complete(winner, now); err != nil {
		return fmt.Errorf("tournament %d: %w", tournamentID, err)
	}

	matches := make([]*state.Match, len(d.MatchIDs))
	for i, id := range d.MatchIDs {
		matches[i] = s.Matches[id]
	}
	if err := CheckForNewMatchesToStart(matches, now); err != nil {
		return fmt.Errorf("tournament %d: %w", tournamentID, err)
	}

	final := matches[len(matches)-1]
	if final.State == state.MatchComplete {
		return concludeTournament(s, t, final.Winners[0], now)
	}
	return nil
}

// concludeTournament implements final_game_completed: it pays the prize
// pool to the champion and moves the tournament to concluded.
func concludeTournament(s *state.State, t *state.Tournament, champion string, now time.Time) error {
	if err := s.Credit(champion, t.PrizePool); err != nil {
		return fmt.Errorf("tournament %d: pay champion: %w", t.ID, err)
	}
	t.State = state.StateConcluded
	end := now
	t.EndTime = &end
	return nil
}

// DeadlinesCrossed scans every tournament for a threshold the block just
// crossed, synthesizing the registration_deadline_passed and
// start_time_arrived events the host delivers each block (see MODULE D):
// this module has no external clock of its own, only the one block
// timestamp it's given.
func DeadlinesCrossed(s *state.State, now time.Time) (expired, started []uint64) {
	for id, t := range s.Tournaments {
		switch t.State {
		case state.StateAcceptingRegistrations:
			if !now.Before(t.Options.RegistrationDeadline) {
				expired = append(expired, id)
			}
		case state.StateAwaitingStart:
			if t.StartTime != nil && !now.Before(*t.StartTime) {
				started = append(started, id)
			}
		}
	}
	return expired, started
}
