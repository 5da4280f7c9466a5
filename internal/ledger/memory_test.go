package ledger

import (
	"context"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/curve"
)

func TestMemory_SolTransfers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	alice := solana.NewWallet().PublicKey()
	bob := solana.NewWallet().PublicKey()

	require.NoError(t, m.CreditSol(ctx, alice, 1_000))

	err := m.TransferSol(ctx, alice, bob, 400)
	require.NoError(t, err)

	a, err := m.SolBalance(ctx, alice)
	require.NoError(t, err)
	b, err := m.SolBalance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), a)
	assert.Equal(t, uint64(400), b)

	// Overdraft fails and moves nothing.
	err = m.TransferSol(ctx, alice, bob, 601)
	assert.ErrorIs(t, err, curve.ErrInsufficientBalance)

	a, _ = m.SolBalance(ctx, alice)
	assert.Equal(t, uint64(600), a)
}

func TestMemory_TokenTransfers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	mint := solana.NewWallet().PublicKey()
	vault := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()

	require.NoError(t, m.MintToken(ctx, mint, vault, 10_000))

	require.NoError(t, m.TransferToken(ctx, mint, vault, user, 2_500))

	v, err := m.TokenBalance(ctx, mint, vault)
	require.NoError(t, err)
	u, err := m.TokenBalance(ctx, mint, user)
	require.NoError(t, err)
	assert.Equal(t, uint64(7_500), v)
	assert.Equal(t, uint64(2_500), u)

	err = m.TransferToken(ctx, mint, user, vault, 2_501)
	assert.ErrorIs(t, err, curve.ErrInsufficientBalance)

	// Balances are per mint.
	other := solana.NewWallet().PublicKey()
	bal, err := m.TokenBalance(ctx, other, vault)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bal)
}

func TestMemory_OverflowChecks(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	require.NoError(t, m.CreditSol(ctx, owner, math.MaxUint64))
	assert.ErrorIs(t, m.CreditSol(ctx, owner, 1), curve.ErrOverflow)

	require.NoError(t, m.MintToken(ctx, mint, owner, math.MaxUint64))
	assert.ErrorIs(t, m.MintToken(ctx, mint, owner, 1), curve.ErrOverflow)
}
