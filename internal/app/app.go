// Package app wires the tournament-lifecycle core (MODULES A-G) into a
// CometBFT ABCI application: the host this core was designed to run
// inside, supplying block time, a per-block random seed, transaction
// delivery order, and committed persistence — the external collaborators
// spec.md places out of scope.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"
	"cosmossdk.io/log"

	"tournamentchain/internal/codec"
	"tournamentchain/internal/impact"
	"tournamentchain/internal/state"
)

const AppVersion uint64 = 1

// NotificationRingSize bounds how many per-block Change records Query
// /notifications can return; this app has no external pub/sub bus for
// MODULE G to hand change notifications to (see DESIGN.md).
const NotificationRingSize = 256

type TournamentApp struct {
	*abci.BaseApplication

	home   string
	logger log.Logger

	impactCfg impact.ImpactConfig

	mu       sync.Mutex
	st       *state.State
	lastHash []byte
	notify   *notificationRing
}

func New(home string, logger log.Logger) (*TournamentApp, error) {
	appHome := filepath.Join(home, "app")
	st, err := state.Load(appHome)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	a := &TournamentApp{
		BaseApplication: abci.NewBaseApplication(),
		home:            home,
		logger:          logger,
		impactCfg:       impact.DefaultImpactConfig(),
		st:              st,
		lastHash:        st.AppHash(),
		notify:          newNotificationRing(NotificationRingSize),
	}
	return a, nil
}

func (a *TournamentApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "tournamentd (v0)",
		Version:          "v0",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *TournamentApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	_, err := codec.DecodeTxEnvelope(req.Tx)
	if err != nil {
		return &abci.CheckTxResponse{Code: 1, Log: err.Error()}, nil
	}
	// v0: only structural validation at the mempool boundary; full
	// precondition checking (balances, tournament state, signatures) is
	// deferred to FinalizeBlock, same as the teacher's CheckTx.
	return &abci.CheckTxResponse{Code: 0}, nil
}

func (a *TournamentApp) InitChain(_ context.Context, _ *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	return &abci.InitChainResponse{}, nil
}

func (a *TournamentApp) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Height = req.Height
	now := req.Time
	tracker := newChangeTracker(a.impactCfg)

	// MODULE D's deadline/start-time events have no internal clock: they
	// are delivered here, once per block, purely as a function of block
	// time crossing a stored threshold (spec.md §5).
	expired, started := DeadlinesCrossed(a.st, now)
	sort.Slice(expired, func(i, j int) bool { return expired[i] < expired[j] })
	sort.Slice(started, func(i, j int) bool { return started[i] < started[j] })

	blockEvents := make([]abci.Event, 0, len(expired)+len(started))
	for _, id := range expired {
		t := a.st.Tournaments[id]
		refundedPayers := make([]string, 0, len(a.st.Details[t.DetailsID].Payers))
		for payer := range a.st.Details[t.DetailsID].Payers {
			refundedPayers = append(refundedPayers, payer)
		}
		if err := ExpireRegistration(a.st, id, now); err != nil {
			a.logger.Error("registration expiry failed", "tournamentId", id, "err", err)
			continue
		}
		tracker.recordChanged(tournamentObjectID(id))
		// Refunds aren't one of spec.md §4.F's enumerated operation
		// variants (the source's db_notify never sees a refund as a
		// first-class operation either); a refunded payer is modeled as an
		// impacted account the same way a join impacts its payer.
		for _, payer := range refundedPayers {
			tracker.impact(impact.TournamentJoinOperation{Payer: payer, Player: payer})
		}
		blockEvents = append(blockEvents, abci.Event{
			Type: "TournamentExpired",
			Attributes: []abci.EventAttribute{{Key: "tournamentId", Value: fmt.Sprintf("%d", id), Index: true}},
		})
		a.logger.Info("tournament registration expired", "tournamentId", id)
	}
	for _, id := range started {
		blockHash := req.Hash
		if err := StartTournament(a.st, id, blockHash, req.Height, now); err != nil {
			a.logger.Error("tournament start failed", "tournamentId", id, "err", err)
			continue
		}
		tracker.recordChanged(tournamentObjectID(id))
		blockEvents = append(blockEvents, abci.Event{
			Type: "TournamentStarted",
			Attributes: []abci.EventAttribute{{Key: "tournamentId", Value: fmt.Sprintf("%d", id), Index: true}},
		})
		a.logger.Info("tournament started", "tournamentId", id)
	}

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		res := a.deliverTx(txBytes, now, tracker)
		txResults = append(txResults, res)
	}

	change := tracker.finish(req.Height, now)
	a.notify.push(change)
	if len(change.Created) > 0 || len(change.Changed) > 0 || len(change.Removed) > 0 {
		logChange(a.logger, change)
	}

	a.lastHash = a.st.AppHash()

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
		Events:    blockEvents,
	}, nil
}

func (a *TournamentApp) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	appHome := filepath.Join(a.home, "app")
	if err := a.st.Save(appHome); err != nil {
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

func (a *TournamentApp) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	path := strings.TrimSpace(req.Path)
	switch {
	case path == "/tournaments":
		ids := make([]uint64, 0, len(a.st.Tournaments))
		for id := range a.st.Tournaments {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		b, _ := json.Marshal(ids)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/tournament/"):
		id, err := strconv.ParseUint(strings.TrimPrefix(path, "/tournament/"), 10, 64)
		if err != nil {
			return &abci.QueryResponse{Code: 1, Log: "invalid tournament id", Height: a.st.Height}, nil
		}
		t, ok := a.st.Tournaments[id]
		if !ok {
			return &abci.QueryResponse{Code: 1, Log: "tournament not found", Height: a.st.Height}, nil
		}
		d := a.st.Details[t.DetailsID]
		b, _ := json.Marshal(struct {
			*state.Tournament
			Details *state.TournamentDetails `json:"details"`
		}{t, d})
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/match/"):
		id, err := strconv.ParseUint(strings.TrimPrefix(path, "/match/"), 10, 64)
		if err != nil {
			return &abci.QueryResponse{Code: 1, Log: "invalid match id", Height: a.st.Height}, nil
		}
		m, ok := a.st.Matches[id]
		if !ok {
			return &abci.QueryResponse{Code: 1, Log: "match not found", Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(m)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/account/"):
		addr := strings.TrimPrefix(path, "/account/")
		b, _ := json.Marshal(map[string]any{"addr": addr, "balance": a.st.Balance(addr)})
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case path == "/notifications":
		b, _ := json.Marshal(a.notify.recent(a.notify.size))
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	default:
		return &abci.QueryResponse{Code: 1, Log: "unknown query path", Height: a.st.Height}, nil
	}
}

func tournamentObjectID(id uint64) string { return fmt.Sprintf("tournament/%d", id) }
func matchObjectID(id uint64) string      { return fmt.Sprintf("match/%d", id) }

func (a *TournamentApp) deliverTx(txBytes []byte, now time.Time, tracker *changeTracker) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}

	switch env.Type {
	case "auth/register_account":
		var msg codec.AuthRegisterAccountTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad auth/register_account value"}
		}
		if err := requireRegisterAccountAuth(env, msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if _, exists := a.st.AccountKeys[msg.Account]; exists {
			return &abci.ExecTxResult{Code: 1, Log: "account already registered"}
		}
		a.st.AccountKeys[msg.Account] = msg.PubKey
		tracker.recordCreated("account/" + msg.Account)
		tracker.impact(impact.AuthRegisterAccountOperation{Account: msg.Account})
		return okEvent("AccountRegistered", map[string]string{"account": msg.Account})

	case "bank/mint":
		var msg codec.BankMintTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad bank/mint value"}
		}
		if msg.To == "" || msg.Amount == 0 {
			return &abci.ExecTxResult{Code: 1, Log: "missing to/amount"}
		}
		if err := a.st.Credit(msg.To, msg.Amount); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		tracker.recordChanged("account/" + msg.To)
		tracker.impact(impact.BankMintOperation{To: msg.To})
		return okEvent("BankMinted", map[string]string{"to": msg.To, "amount": fmt.Sprintf("%d", msg.Amount)})

	case "bank/send":
		var msg codec.BankSendTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad bank/send value"}
		}
		if msg.From == "" || msg.To == "" || msg.Amount == 0 {
			return &abci.ExecTxResult{Code: 1, Log: "missing from/to/amount"}
		}
		if err := requireAccountAuth(a.st, env, msg.From); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if err := a.st.Debit(msg.From, msg.Amount); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		_ = a.st.Credit(msg.To, msg.Amount)
		tracker.recordChanged("account/"+msg.From, "account/"+msg.To)
		tracker.impact(impact.BankSendOperation{From: msg.From, To: msg.To})
		return okEvent("BankSent", map[string]string{"from": msg.From, "to": msg.To, "amount": fmt.Sprintf("%d", msg.Amount)})

	case "tournament/create":
		var msg codec.TournamentCreateTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad tournament/create value"}
		}
		if err := requireAccountAuth(a.st, env, msg.Creator); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		opts, err := toTournamentOptions(msg)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		tr, err := a.st.NewTournament(msg.Creator, opts)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		tracker.recordCreated(tournamentObjectID(tr.ID))
		tracker.impact(impact.TournamentCreateOperation{Creator: msg.Creator, Whitelist: msg.Whitelist})
		return okEvent("TournamentCreated", map[string]string{"tournamentId": fmt.Sprintf("%d", tr.ID)})

	case "tournament/join":
		var msg codec.TournamentJoinTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad tournament/join value"}
		}
		if err := requireAccountAuth(a.st, env, msg.Payer); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if err := RegisterPlayer(a.st, msg.TournamentID, msg.Payer, msg.Player, now); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		tracker.recordChanged(tournamentObjectID(msg.TournamentID))
		tracker.impact(impact.TournamentJoinOperation{Payer: msg.Payer, Player: msg.Player})
		return okEvent("TournamentJoined", map[string]string{
			"tournamentId": fmt.Sprintf("%d", msg.TournamentID),
			"payer":        msg.Payer,
			"player":       msg.Player,
		})

	case "tournament/leave":
		var msg codec.TournamentLeaveTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad tournament/leave value"}
		}
		if err := requireAccountAuth(a.st, env, msg.CancelingAccount); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if err := LeavePlayer(a.st, msg.TournamentID, msg.CancelingAccount, msg.Player, now); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		tracker.recordChanged(tournamentObjectID(msg.TournamentID))
		tracker.impact(impact.TournamentLeaveOperation{CancelingAccount: msg.CancelingAccount, Player: msg.Player})
		return okEvent("TournamentLeft", map[string]string{
			"tournamentId": fmt.Sprintf("%d", msg.TournamentID),
			"player":       msg.Player,
		})

	case "tournament/game_move":
		var msg codec.TournamentGameMoveTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad tournament/game_move value"}
		}
		if err := requireAccountAuth(a.st, env, msg.Player); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		beforeState := a.st.Tournaments[msg.TournamentID]
		if beforeState == nil {
			return &abci.ExecTxResult{Code: 1, Log: "tournament not found"}
		}
		if err := RecordGameMove(a.st, msg.TournamentID, msg.MatchID, msg.Winner, now); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		tracker.recordChanged(tournamentObjectID(msg.TournamentID), matchObjectID(msg.MatchID))
		tracker.impact(impact.GameMoveOperation{Player: msg.Player})
		ev := okEvent("GameMoveRecorded", map[string]string{
			"tournamentId": fmt.Sprintf("%d", msg.TournamentID),
			"matchId":      fmt.Sprintf("%d", msg.MatchID),
			"winner":       msg.Winner,
		})
		if a.st.Tournaments[msg.TournamentID].State == state.StateConcluded {
			tracker.impact(impact.TournamentPayoutOperation{PayoutAccount: msg.Winner})
			ev.Events = append(ev.Events, abci.Event{
				Type: "TournamentConcluded",
				Attributes: []abci.EventAttribute{
					{Key: "tournamentId", Value: fmt.Sprintf("%d", msg.TournamentID), Index: true},
					{Key: "champion", Value: msg.Winner, Index: true},
				},
			})
		}
		return ev

	default:
		return &abci.ExecTxResult{Code: 1, Log: "unknown tx type: " + env.Type}
	}
}

func toTournamentOptions(msg codec.TournamentCreateTx) (state.TournamentOptions, error) {
	if msg.NumberOfPlayers < 2 {
		return state.TournamentOptions{}, fmt.Errorf("numberOfPlayers must be >= 2")
	}
	if (msg.StartTime == 0) == (msg.StartDelaySecs == nil) {
		return state.TournamentOptions{}, fmt.Errorf("exactly one of startTime or startDelaySecs must be set")
	}
	opts := state.TournamentOptions{
		NumberOfPlayers:      msg.NumberOfPlayers,
		BuyInAmount:          msg.BuyInAmount,
		BuyInAssetID:         msg.BuyInAssetID,
		RegistrationDeadline: time.Unix(msg.RegistrationDeadline, 0).UTC(),
		StartDelaySecs:       msg.StartDelaySecs,
	}
	if msg.StartTime != 0 {
		st := time.Unix(msg.StartTime, 0).UTC()
		opts.StartTime = &st
	}
	if len(msg.Whitelist) > 0 {
		opts.Whitelist = make(map[string]bool, len(msg.Whitelist))
		for _, w := range msg.Whitelist {
			opts.Whitelist[w] = true
		}
	}
	return opts, nil
}

func okEvent(typ string, attrs map[string]string) *abci.ExecTxResult {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	return &abci.ExecTxResult{Code: 0, Events: []abci.Event{ev}}
}
