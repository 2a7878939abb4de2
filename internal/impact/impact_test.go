package impact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// S5 from spec.md: a join followed by a leave for the same player in one
// transaction nets out to the leave's erase winning — the canceling
// account (when distinct from the player) and the player both drop out of
// the impacted set, even though the join inserted them first.
func TestTransactionImpactedAccounts_JoinThenLeaveErasesBoth(t *testing.T) {
	cfg := DefaultImpactConfig()
	ops := []Operation{
		TournamentJoinOperation{Payer: "sponsor", Player: "alice"},
		TournamentLeaveOperation{CancelingAccount: "sponsor", Player: "alice"},
	}
	got := TransactionImpactedAccounts(cfg, ops)
	require.Empty(t, got)
}

func TestTransactionImpactedAccounts_LeaveOnlyErasesPlayerWhenSelfCanceled(t *testing.T) {
	cfg := DefaultImpactConfig()
	ops := []Operation{
		TournamentJoinOperation{Payer: "alice", Player: "alice"},
		TournamentJoinOperation{Payer: "bob", Player: "bob"},
		TournamentLeaveOperation{CancelingAccount: "alice", Player: "alice"},
	}
	got := TransactionImpactedAccounts(cfg, ops)
	require.Equal(t, []string{"bob"}, got)
}

func TestTransactionImpactedAccounts_OrderMatters(t *testing.T) {
	cfg := DefaultImpactConfig()
	// A leave with no preceding join in the transaction still erases
	// whatever's already in the set — its effect is purely positional.
	ops := []Operation{
		TournamentLeaveOperation{CancelingAccount: "alice", Player: "alice"},
		TournamentJoinOperation{Payer: "alice", Player: "alice"},
	}
	got := TransactionImpactedAccounts(cfg, ops)
	require.Equal(t, []string{"alice"}, got, "leave before join: nothing to erase, then join inserts")
}

func TestTransactionImpactedAccounts_QuirkDisabledLeavesJoinIntact(t *testing.T) {
	cfg := ImpactConfig{PreserveLeaveEraseQuirk: false}
	ops := []Operation{
		TournamentJoinOperation{Payer: "sponsor", Player: "alice"},
		TournamentLeaveOperation{CancelingAccount: "sponsor", Player: "alice"},
	}
	got := TransactionImpactedAccounts(cfg, ops)
	require.Equal(t, []string{"alice", "sponsor"}, got)
}

func TestTransactionImpactedAccounts_TournamentCreateIncludesWhitelist(t *testing.T) {
	cfg := DefaultImpactConfig()
	ops := []Operation{
		TournamentCreateOperation{Creator: "host", Whitelist: []string{"alice", "bob"}},
	}
	got := TransactionImpactedAccounts(cfg, ops)
	require.Equal(t, []string{"alice", "bob", "host"}, got)
}

func TestTransactionImpactedAccounts_GameMoveAndPayout(t *testing.T) {
	cfg := DefaultImpactConfig()
	ops := []Operation{
		GameMoveOperation{Player: "alice"},
		TournamentPayoutOperation{PayoutAccount: "alice"},
	}
	got := TransactionImpactedAccounts(cfg, ops)
	require.Equal(t, []string{"alice"}, got)
}

func TestTransactionImpactedAccounts_BankSendOnlyImpactsRecipient(t *testing.T) {
	cfg := DefaultImpactConfig()
	ops := []Operation{BankSendOperation{From: "alice", To: "bob"}}
	got := TransactionImpactedAccounts(cfg, ops)
	require.Equal(t, []string{"bob"}, got)
}

func TestApplyImpact_NoImpactOperationIsANoOp(t *testing.T) {
	cfg := DefaultImpactConfig()
	accounts := map[string]struct{}{"alice": {}}
	ApplyImpact(cfg, NoImpactOperation{Kind: NoImpactAssetOp}, accounts)
	require.Len(t, accounts, 1)
}

func TestApplyImpact_PanicsOnUnhandledOperation(t *testing.T) {
	cfg := DefaultImpactConfig()
	require.Panics(t, func() {
		ApplyImpact(cfg, unknownOperation{}, map[string]struct{}{})
	})
}

type unknownOperation struct{}

func (unknownOperation) isOperation() {}

// A proposal's impacted accounts are the union of what each of its wrapped
// operations would impact (no required-authority recursion is modelled).
func TestObjectImpacted_ProposalRecursesIntoOperations(t *testing.T) {
	cfg := DefaultImpactConfig()
	obj := ProposalObject{Operations: []Operation{
		TournamentJoinOperation{Payer: "alice", Player: "alice"},
		GameMoveOperation{Player: "bob"},
	}}
	got := ObjectImpacted(cfg, obj)
	require.Equal(t, []string{"alice", "bob"}, got)
}

func TestObjectImpacted_OperationHistoryRecursesIntoOp(t *testing.T) {
	cfg := DefaultImpactConfig()
	obj := OperationHistoryObject{Op: GameMoveOperation{Player: "carol"}}
	got := ObjectImpacted(cfg, obj)
	require.Equal(t, []string{"carol"}, got)
}

func TestObjectImpacted_AccountObjectIsItself(t *testing.T) {
	cfg := DefaultImpactConfig()
	got := ObjectImpacted(cfg, AccountObject{Addr: "dave"})
	require.Equal(t, []string{"dave"}, got)
}

func TestObjectImpacted_NoImpactObjectIsEmpty(t *testing.T) {
	cfg := DefaultImpactConfig()
	got := ObjectImpacted(cfg, NoImpactObject{Kind: "limit_order"})
	require.Empty(t, got)
}
