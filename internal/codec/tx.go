// Package codec defines the transaction envelope and the per-message payload
// shapes accepted by the application. CometBFT transactions are opaque
// bytes; this module uses JSON-encoded txs, matching the teacher's v0
// localnet encoding.
package codec

import (
	"encoding/json"
	"fmt"
)

// TxEnvelope is the transaction container every tx is wrapped in.
type TxEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	// Auth (optional): Nonce is included in the signed message and must be
	// non-empty; the app does not record nonces, so a reused nonce is not
	// rejected. Signer is the logical signer account id. Sig is an Ed25519
	// signature over (type, nonce, signer, sha256(value)).
	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"`
	Sig    []byte `json:"sig,omitempty"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

// ---- Bank ----

type BankMintTx struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type BankSendTx struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ---- Auth ----

type AuthRegisterAccountTx struct {
	Account string `json:"account"`
	PubKey  []byte `json:"pubKey"` // base64 (32 bytes)
}

// ---- Tournament ----

type TournamentCreateTx struct {
	Creator              string   `json:"creator"`
	NumberOfPlayers      uint32   `json:"numberOfPlayers"`
	BuyInAmount          uint64   `json:"buyInAmount"`
	BuyInAssetID         string   `json:"buyInAssetId"`
	RegistrationDeadline int64    `json:"registrationDeadline"` // unix seconds
	StartTime            int64    `json:"startTime,omitempty"`  // unix seconds; exactly one of this/StartDelaySecs
	StartDelaySecs       *uint64  `json:"startDelaySecs,omitempty"`
	Whitelist            []string `json:"whitelist,omitempty"`
}

// TournamentJoinTx registers Player in the tournament, debiting the buy-in
// from Payer. Payer is required and must sign the tx; a signer registering
// themselves sets both Payer and Player to their own account.
type TournamentJoinTx struct {
	Payer        string `json:"payer"`
	Player       string `json:"player"`
	TournamentID uint64 `json:"tournamentId"`
}

// TournamentLeaveTx reverses a prior join, refunding whichever account paid
// the player's buy-in. CancelingAccount must be either Player or that payer.
type TournamentLeaveTx struct {
	CancelingAccount string `json:"cancelingAccount"`
	Player           string `json:"player"`
	TournamentID     uint64 `json:"tournamentId"`
}

// TournamentGameMoveTx reports the outcome of a single match: Winner beat
// whichever other player(s) were seated in MatchID.
type TournamentGameMoveTx struct {
	Player       string `json:"player"`
	TournamentID uint64 `json:"tournamentId"`
	MatchID      uint64 `json:"matchId"`
	Winner       string `json:"winner"`
}
