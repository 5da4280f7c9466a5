package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/curve"
)

// Memory is an in-process asset ledger. It backs the custody collaborator in
// tests and single-node deployments; a chain-backed implementation would sit
// behind the same storage.Ledger interface.
type Memory struct {
	mu     sync.Mutex
	sol    map[solana.PublicKey]uint64
	tokens map[solana.PublicKey]map[solana.PublicKey]uint64 // mint -> owner -> balance
}

// NewMemory returns an empty ledger.
func NewMemory() *Memory {
	return &Memory{
		sol:    make(map[solana.PublicKey]uint64),
		tokens: make(map[solana.PublicKey]map[solana.PublicKey]uint64),
	}
}

func (m *Memory) MintToken(_ context.Context, mint, to solana.PublicKey, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	owners := m.tokens[mint]
	if owners == nil {
		owners = make(map[solana.PublicKey]uint64)
		m.tokens[mint] = owners
	}
	if amount > math.MaxUint64-owners[to] {
		return fmt.Errorf("mint %s to %s: %w", mint, to, curve.ErrOverflow)
	}
	owners[to] += amount
	return nil
}

func (m *Memory) TransferToken(_ context.Context, mint, from, to solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	owners := m.tokens[mint]
	if owners == nil || owners[from] < amount {
		return fmt.Errorf("token transfer %s -> %s: %w", from, to, curve.ErrInsufficientBalance)
	}
	if amount > math.MaxUint64-owners[to] {
		return fmt.Errorf("token transfer %s -> %s: %w", from, to, curve.ErrOverflow)
	}
	owners[from] -= amount
	owners[to] += amount
	return nil
}

func (m *Memory) TransferSol(_ context.Context, from, to solana.PublicKey, lamports uint64) error {
	if lamports == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sol[from] < lamports {
		return fmt.Errorf("sol transfer %s -> %s: %w", from, to, curve.ErrInsufficientBalance)
	}
	if lamports > math.MaxUint64-m.sol[to] {
		return fmt.Errorf("sol transfer %s -> %s: %w", from, to, curve.ErrOverflow)
	}
	m.sol[from] -= lamports
	m.sol[to] += lamports
	return nil
}

func (m *Memory) CreditSol(_ context.Context, to solana.PublicKey, lamports uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lamports > math.MaxUint64-m.sol[to] {
		return fmt.Errorf("credit %s: %w", to, curve.ErrOverflow)
	}
	m.sol[to] += lamports
	return nil
}

func (m *Memory) TokenBalance(_ context.Context, mint, owner solana.PublicKey) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	owners := m.tokens[mint]
	if owners == nil {
		return 0, nil
	}
	return owners[owner], nil
}

func (m *Memory) SolBalance(_ context.Context, owner solana.PublicKey) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sol[owner], nil
}
