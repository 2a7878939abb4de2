package app

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"tournamentchain/internal/codec"
	"tournamentchain/internal/state"
)

func TestRequireAccountAuth_RejectsSignerMismatch(t *testing.T) {
	s := state.NewState()
	pub, _, _ := ed25519.GenerateKey(nil)
	s.AccountKeys["alice"] = pub
	env := codec.TxEnvelope{Type: "bank/send", Nonce: "1", Signer: "mallory", Sig: make([]byte, ed25519.SignatureSize)}
	err := requireAccountAuth(s, env, "alice")
	require.Error(t, err)
}

func TestRequireAccountAuth_RejectsUnregisteredAccount(t *testing.T) {
	s := state.NewState()
	env := codec.TxEnvelope{Type: "bank/send", Nonce: "1", Signer: "alice", Sig: make([]byte, ed25519.SignatureSize)}
	err := requireAccountAuth(s, env, "alice")
	require.Error(t, err)
}

func TestRequireAccountAuth_AcceptsValidSignature(t *testing.T) {
	s := state.NewState()
	pub, priv, _ := ed25519.GenerateKey(nil)
	s.AccountKeys["alice"] = pub

	value, _ := json.Marshal(codec.BankSendTx{From: "alice", To: "bob", Amount: 10})
	msg := txAuthSignBytesV0("bank/send", value, "1", "alice")
	sig := ed25519.Sign(priv, msg)

	env := codec.TxEnvelope{Type: "bank/send", Value: value, Nonce: "1", Signer: "alice", Sig: sig}
	require.NoError(t, requireAccountAuth(s, env, "alice"))
}

func TestRequireAccountAuth_RejectsTamperedValue(t *testing.T) {
	s := state.NewState()
	pub, priv, _ := ed25519.GenerateKey(nil)
	s.AccountKeys["alice"] = pub

	value, _ := json.Marshal(codec.BankSendTx{From: "alice", To: "bob", Amount: 10})
	msg := txAuthSignBytesV0("bank/send", value, "1", "alice")
	sig := ed25519.Sign(priv, msg)

	tampered, _ := json.Marshal(codec.BankSendTx{From: "alice", To: "bob", Amount: 1000000})
	env := codec.TxEnvelope{Type: "bank/send", Value: tampered, Nonce: "1", Signer: "alice", Sig: sig}
	require.Error(t, requireAccountAuth(s, env, "alice"))
}

func TestRequireRegisterAccountAuth_SelfCertifies(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	msg := codec.AuthRegisterAccountTx{Account: "alice", PubKey: pub}
	value, _ := json.Marshal(msg)
	signBytes := txAuthSignBytesV0("auth/register_account", value, "1", "alice")
	sig := ed25519.Sign(priv, signBytes)

	env := codec.TxEnvelope{Type: "auth/register_account", Value: value, Nonce: "1", Signer: "alice", Sig: sig}
	require.NoError(t, requireRegisterAccountAuth(env, msg))
}

func TestRequireRegisterAccountAuth_RejectsWrongKey(t *testing.T) {
	_, wrongPriv, _ := ed25519.GenerateKey(nil)
	pub, _, _ := ed25519.GenerateKey(nil)
	msg := codec.AuthRegisterAccountTx{Account: "alice", PubKey: pub}
	value, _ := json.Marshal(msg)
	signBytes := txAuthSignBytesV0("auth/register_account", value, "1", "alice")
	sig := ed25519.Sign(wrongPriv, signBytes)

	env := codec.TxEnvelope{Type: "auth/register_account", Value: value, Nonce: "1", Signer: "alice", Sig: sig}
	require.Error(t, requireRegisterAccountAuth(env, msg))
}
