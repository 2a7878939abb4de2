// Package impact determines which accounts a committed operation or a
// stored object touches, for the host's change-notification layer (MODULE
// F feeding MODULE G). It is a direct transcription of a
// visit-every-operation-type dispatcher: Go has no sum types, so the closed
// set of operations and objects is expressed as an interface implemented by
// a fixed list of structs, dispatched with a type switch instead of a
// visitor.
package impact

import "sort"

// Operation is the closed set of chain operations that can carry an
// account impact. Implementations are the only permitted variants; the
// type switch in ApplyImpact panics on an unrecognized one, the same way a
// missing visitor overload would fail to compile in a sum-type language.
type Operation interface {
	isOperation()
}

// NoImpactKind enumerates operations that exist on this chain but never
// touch an account's impact set — the collapse of the several dozen
// no-op operator() overloads the original resolver carries for operation
// kinds this chain doesn't otherwise model (assets, markets, committee
// members, and the like). See DESIGN.md.
type NoImpactKind string

const (
	NoImpactAssetOp    NoImpactKind = "asset"
	NoImpactMarketOp   NoImpactKind = "market"
	NoImpactGovernance NoImpactKind = "governance"
)

type NoImpactOperation struct{ Kind NoImpactKind }

func (NoImpactOperation) isOperation() {}

type TournamentCreateOperation struct {
	Creator   string
	Whitelist []string
}

func (TournamentCreateOperation) isOperation() {}

type TournamentJoinOperation struct {
	Payer  string
	Player string
}

func (TournamentJoinOperation) isOperation() {}

// TournamentLeaveOperation carries the source's documented quirk: it
// ERASES accounts from the impacted set rather than inserting into it — so
// its effect on the final impacted-accounts list depends on what earlier
// operations in the same transaction already inserted. See
// ImpactConfig.PreserveLeaveEraseQuirk.
type TournamentLeaveOperation struct {
	CancelingAccount string
	Player           string
}

func (TournamentLeaveOperation) isOperation() {}

type GameMoveOperation struct {
	Player string
}

func (GameMoveOperation) isOperation() {}

type TournamentPayoutOperation struct {
	PayoutAccount string
}

func (TournamentPayoutOperation) isOperation() {}

type BankSendOperation struct {
	From string
	To   string
}

func (BankSendOperation) isOperation() {}

type BankMintOperation struct {
	To string
}

func (BankMintOperation) isOperation() {}

type AuthRegisterAccountOperation struct {
	Account string
}

func (AuthRegisterAccountOperation) isOperation() {}

// ImpactConfig toggles behavior the source's db_notify.cpp hard-codes.
type ImpactConfig struct {
	// PreserveLeaveEraseQuirk reproduces tournament_leave's erase-instead-
	// of-insert behavior bit-for-bit. When false, a leave operation simply
	// contributes no impact of its own (neither insert nor erase) instead
	// of erasing accounts other operations in the same transaction already
	// inserted.
	PreserveLeaveEraseQuirk bool
}

// DefaultImpactConfig preserves the quirk: this implementation's default
// behavior must match the chain it is standing in for, not a cleaned-up
// reinterpretation of it.
func DefaultImpactConfig() ImpactConfig {
	return ImpactConfig{PreserveLeaveEraseQuirk: true}
}

// ApplyImpact mutates accounts (a set, represented as a map to struct{}) in
// place for a single operation, the way the original's mutating visitor
// operates on a shared flat_set across every operation in a transaction.
func ApplyImpact(cfg ImpactConfig, op Operation, accounts map[string]struct{}) {
	switch o := op.(type) {
	case NoImpactOperation:
		// deliberately nothing
	case TournamentCreateOperation:
		accounts[o.Creator] = struct{}{}
		for _, w := range o.Whitelist {
			accounts[w] = struct{}{}
		}
	case TournamentJoinOperation:
		accounts[o.Payer] = struct{}{}
		accounts[o.Player] = struct{}{}
	case TournamentLeaveOperation:
		if !cfg.PreserveLeaveEraseQuirk {
			return
		}
		if o.CancelingAccount != o.Player {
			delete(accounts, o.CancelingAccount)
		}
		delete(accounts, o.Player)
	case GameMoveOperation:
		accounts[o.Player] = struct{}{}
	case TournamentPayoutOperation:
		accounts[o.PayoutAccount] = struct{}{}
	case BankSendOperation:
		// Matches transfer_operation: only the recipient is impacted (the
		// sender is the transaction's signer and already knows).
		accounts[o.To] = struct{}{}
	case BankMintOperation:
		accounts[o.To] = struct{}{}
	case AuthRegisterAccountOperation:
		accounts[o.Account] = struct{}{}
	default:
		panic("impact: unhandled operation type")
	}
}

// TransactionImpactedAccounts applies every operation in order — order
// matters, since a later leave operation can erase what an earlier join in
// the same transaction inserted — and returns the final impacted accounts,
// sorted for deterministic output.
func TransactionImpactedAccounts(cfg ImpactConfig, ops []Operation) []string {
	accounts := map[string]struct{}{}
	for _, op := range ops {
		ApplyImpact(cfg, op, accounts)
	}
	return sortedKeys(accounts)
}

// ---- Objects ----

// Object is the closed set of stored objects get_relevant_accounts can be
// asked about.
type Object interface {
	isObject()
}

type AccountObject struct{ Addr string }

func (AccountObject) isObject() {}

// ProposalObject recurses into every operation its proposed transaction
// carries — a proposal's impact is the union of what executing it would
// impact.
type ProposalObject struct{ Operations []Operation }

func (ProposalObject) isObject() {}

// OperationHistoryObject recurses into the single operation it recorded.
type OperationHistoryObject struct{ Op Operation }

func (OperationHistoryObject) isObject() {}

// NoImpactObject collapses the object kinds this chain has no notion of
// (assets, limit orders, call orders, committee members, witnesses, custom
// objects) — the original dispatches these by a switch over object type
// and a dynamic_cast; Go's type switch plays the same role here.
type NoImpactObject struct{ Kind string }

func (NoImpactObject) isObject() {}

// ObjectImpacted returns the accounts a stored object's change impacts,
// following get_relevant_accounts's type-dispatch structure.
func ObjectImpacted(cfg ImpactConfig, obj Object) []string {
	switch o := obj.(type) {
	case AccountObject:
		return []string{o.Addr}
	case ProposalObject:
		return TransactionImpactedAccounts(cfg, o.Operations)
	case OperationHistoryObject:
		return TransactionImpactedAccounts(cfg, []Operation{o.Op})
	case NoImpactObject:
		return nil
	default:
		panic("impact: unhandled object type")
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
