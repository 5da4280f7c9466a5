package trading

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/curve"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/flags"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/models"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/storage"
)

// ErrTradingPaused is returned while an operator kill switch is set.
var ErrTradingPaused = errors.New("trading: paused by operator")

// Engine is the trade orchestrator. It owns the sequence around the pure
// pricing math: load curve, clamp, price, charge the fee, enforce the
// slippage bound, move assets through the ledger, persist the new reserve
// state, then fan the settled trade out to the log, feed and cache.
//
// Trades against the same mint are serialized; different mints trade
// concurrently.
type Engine struct {
	cfg    Config
	store  storage.CurveStore
	ledger storage.Ledger
	logger *logrus.Logger

	// Optional collaborators, all best-effort after settlement.
	tradeLog storage.TradeLog
	feed     storage.TradeFeed
	cache    storage.TradeCache
	switches *flags.Store

	mu    sync.Mutex
	locks map[solana.PublicKey]*sync.Mutex
}

// NewEngine wires an engine from its required collaborators.
func NewEngine(cfg Config, store storage.CurveStore, ledger storage.Ledger, logger *logrus.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("curve store is nil")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		cfg:    cfg,
		store:  store,
		ledger: ledger,
		logger: logger,
		locks:  make(map[solana.PublicKey]*sync.Mutex),
	}, nil
}

// WithTradeLog attaches a durable trade log.
func (e *Engine) WithTradeLog(log storage.TradeLog) *Engine {
	e.tradeLog = log
	return e
}

// WithTradeFeed attaches a live trade feed.
func (e *Engine) WithTradeFeed(feed storage.TradeFeed) *Engine {
	e.feed = feed
	return e
}

// WithTradeCache attaches a recent-trades cache.
func (e *Engine) WithTradeCache(cache storage.TradeCache) *Engine {
	e.cache = cache
	return e
}

// WithSwitches attaches the operator kill switches.
func (e *Engine) WithSwitches(s *flags.Store) *Engine {
	e.switches = s
	return e
}

// VaultAddress returns the custody address for a mint's curve. Token reserves
// and collected SOL live under this address in the ledger.
func VaultAddress(mint solana.PublicKey) solana.PublicKey {
	sum := sha256.Sum256(append([]byte("curve-vault:"), mint[:]...))
	return solana.PublicKeyFromBytes(sum[:])
}

// CreateCurve launches a new bonding curve for a mint: the initial token
// reserves are minted into the curve's vault and the reserve state is
// persisted. Creating a mint that already has a curve fails.
func (e *Engine) CreateCurve(ctx context.Context, mint solana.PublicKey) (*curve.Curve, error) {
	if e.switches != nil && e.switches.Enabled(ctx, flags.KeyCreationPaused) {
		return nil, ErrTradingPaused
	}

	lock := e.mintLock(mint)
	lock.Lock()
	defer lock.Unlock()

	if _, err := e.store.GetCurve(ctx, mint); err == nil {
		return nil, curve.ErrCurveExists
	} else if !errors.Is(err, curve.ErrCurveNotFound) {
		return nil, fmt.Errorf("load curve: %w", err)
	}

	c := curve.New(
		e.cfg.InitialVirtualSolReserves,
		e.cfg.InitialVirtualTokenReserves,
		e.cfg.InitialRealTokenReserves,
		e.cfg.InitialTokenSupply,
	)

	vault := VaultAddress(mint)
	if err := e.ledger.MintToken(ctx, mint, vault, c.RealTokenReserves); err != nil {
		return nil, fmt.Errorf("mint initial reserves: %w", err)
	}

	if err := e.store.PutCurve(ctx, mint, c); err != nil {
		return nil, fmt.Errorf("persist curve: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"mint":           mint.String(),
		"virtual_sol":    c.VirtualSolReserves,
		"virtual_tokens": c.VirtualTokenReserves,
		"real_tokens":    c.RealTokenReserves,
	}).Info("curve created")

	return c.Clone(), nil
}

// Buy executes a buy end-to-end. The requested token amount is clamped to
// what the vault actually holds, priced by the curve, and charged a protocol
// fee on top of the curve cost. If the total exceeds MaxSolCost the trade is
// rejected before any assets move. A buy that empties the token reserves
// freezes the curve.
func (e *Engine) Buy(ctx context.Context, req *BuyRequest) (*Settlement, error) {
	if err := e.checkTradeRequest(ctx, req.TokenAmount, req.FeeRecipient); err != nil {
		return nil, err
	}

	lock := e.mintLock(req.Mint)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.store.GetCurve(ctx, req.Mint)
	if err != nil {
		return nil, err
	}
	if c.Complete {
		return nil, curve.ErrCurveComplete
	}

	vault := VaultAddress(req.Mint)

	// Clamp by custodied balance before the engine clamps by real reserves.
	vaultTokens, err := e.ledger.TokenBalance(ctx, req.Mint, vault)
	if err != nil {
		return nil, fmt.Errorf("vault token balance: %w", err)
	}
	requested := req.TokenAmount
	if requested > vaultTokens {
		requested = vaultTokens
	}

	next := c.Clone()
	result, err := next.ApplyBuy(requested)
	if err != nil {
		return nil, err
	}

	fee := feeAmount(result.SolAmount, e.cfg.FeeBasisPoints)
	total := result.SolAmount + fee
	if total < result.SolAmount {
		return nil, fmt.Errorf("total cost: %w", curve.ErrOverflow)
	}
	if total > req.MaxSolCost {
		return nil, fmt.Errorf("%w: cost %d exceeds max %d", curve.ErrSlippageExceeded, total, req.MaxSolCost)
	}

	balance, err := e.ledger.SolBalance(ctx, req.User)
	if err != nil {
		return nil, fmt.Errorf("user sol balance: %w", err)
	}
	if balance < total {
		return nil, fmt.Errorf("%w: have %d lamports, need %d", curve.ErrInsufficientBalance, balance, total)
	}

	var undo []func() error
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			if err := undo[i](); err != nil {
				e.logger.WithError(err).WithField("mint", req.Mint.String()).Error("buy rollback failed")
			}
		}
	}

	if err := e.ledger.TransferSol(ctx, req.User, vault, result.SolAmount); err != nil {
		return nil, fmt.Errorf("collect sol: %w", err)
	}
	undo = append(undo, func() error { return e.ledger.TransferSol(ctx, vault, req.User, result.SolAmount) })

	if fee > 0 {
		if err := e.ledger.TransferSol(ctx, req.User, e.cfg.FeeRecipient, fee); err != nil {
			rollback()
			return nil, fmt.Errorf("collect fee: %w", err)
		}
		undo = append(undo, func() error { return e.ledger.TransferSol(ctx, e.cfg.FeeRecipient, req.User, fee) })
	}

	if err := e.ledger.TransferToken(ctx, req.Mint, vault, req.User, result.TokenAmount); err != nil {
		rollback()
		return nil, fmt.Errorf("deliver tokens: %w", err)
	}
	undo = append(undo, func() error { return e.ledger.TransferToken(ctx, req.Mint, req.User, vault, result.TokenAmount) })

	// Exhausting the token reserves ends the market permanently.
	if next.RealTokenReserves == 0 {
		next.Complete = true
	}

	if err := e.store.PutCurve(ctx, req.Mint, next); err != nil {
		rollback()
		return nil, fmt.Errorf("persist curve: %w", err)
	}

	settlement := &Settlement{
		TradeID:     newTradeID(),
		Mint:        req.Mint,
		Side:        models.TradeSideBuy,
		User:        req.User,
		TokenAmount: result.TokenAmount,
		SolAmount:   result.SolAmount,
		Fee:         fee,
		Complete:    next.Complete,
		Timestamp:   time.Now().UTC(),
	}

	e.logger.WithFields(logrus.Fields{
		"trade_id": settlement.TradeID,
		"mint":     req.Mint.String(),
		"tokens":   result.TokenAmount,
		"cost":     result.SolAmount,
		"fee":      fee,
		"complete": next.Complete,
	}).Info("buy settled")

	e.publish(ctx, settlement)
	return settlement, nil
}

// Sell executes a sell end-to-end. The curve prices the gross payout, the
// protocol fee is deducted from it, and the trade is rejected if the net
// falls below MinSolOutput. The vault pays out the net to the seller and the
// fee to the recipient, so the total leaving the vault equals the curve's
// gross payout. Sells never freeze a curve.
func (e *Engine) Sell(ctx context.Context, req *SellRequest) (*Settlement, error) {
	if err := e.checkTradeRequest(ctx, req.TokenAmount, req.FeeRecipient); err != nil {
		return nil, err
	}

	lock := e.mintLock(req.Mint)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.store.GetCurve(ctx, req.Mint)
	if err != nil {
		return nil, err
	}
	if c.Complete {
		return nil, curve.ErrCurveComplete
	}

	vault := VaultAddress(req.Mint)

	// The vault's custodied balance bounds a sell the same way it bounds
	// what a buy can deliver.
	vaultTokens, err := e.ledger.TokenBalance(ctx, req.Mint, vault)
	if err != nil {
		return nil, fmt.Errorf("vault token balance: %w", err)
	}
	if vaultTokens < req.TokenAmount {
		return nil, fmt.Errorf("%w: vault holds %d tokens, selling %d", curve.ErrInsufficientBalance, vaultTokens, req.TokenAmount)
	}

	balance, err := e.ledger.TokenBalance(ctx, req.Mint, req.User)
	if err != nil {
		return nil, fmt.Errorf("user token balance: %w", err)
	}
	if balance < req.TokenAmount {
		return nil, fmt.Errorf("%w: have %d tokens, selling %d", curve.ErrInsufficientBalance, balance, req.TokenAmount)
	}

	next := c.Clone()
	result, err := next.ApplySell(req.TokenAmount)
	if err != nil {
		return nil, err
	}

	fee := feeAmount(result.SolAmount, e.cfg.FeeBasisPoints)
	net := result.SolAmount - fee
	if net < req.MinSolOutput {
		return nil, fmt.Errorf("%w: output %d below min %d", curve.ErrSlippageExceeded, net, req.MinSolOutput)
	}

	var undo []func() error
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			if err := undo[i](); err != nil {
				e.logger.WithError(err).WithField("mint", req.Mint.String()).Error("sell rollback failed")
			}
		}
	}

	if err := e.ledger.TransferToken(ctx, req.Mint, req.User, vault, req.TokenAmount); err != nil {
		return nil, fmt.Errorf("collect tokens: %w", err)
	}
	undo = append(undo, func() error { return e.ledger.TransferToken(ctx, req.Mint, vault, req.User, req.TokenAmount) })

	if net > 0 {
		if err := e.ledger.TransferSol(ctx, vault, req.User, net); err != nil {
			rollback()
			return nil, fmt.Errorf("pay out sol: %w", err)
		}
		undo = append(undo, func() error { return e.ledger.TransferSol(ctx, req.User, vault, net) })
	}

	if fee > 0 {
		if err := e.ledger.TransferSol(ctx, vault, e.cfg.FeeRecipient, fee); err != nil {
			rollback()
			return nil, fmt.Errorf("pay fee: %w", err)
		}
		undo = append(undo, func() error { return e.ledger.TransferSol(ctx, e.cfg.FeeRecipient, vault, fee) })
	}

	if err := e.store.PutCurve(ctx, req.Mint, next); err != nil {
		rollback()
		return nil, fmt.Errorf("persist curve: %w", err)
	}

	settlement := &Settlement{
		TradeID:     newTradeID(),
		Mint:        req.Mint,
		Side:        models.TradeSideSell,
		User:        req.User,
		TokenAmount: req.TokenAmount,
		SolAmount:   result.SolAmount,
		Fee:         fee,
		Complete:    false,
		Timestamp:   time.Now().UTC(),
	}

	e.logger.WithFields(logrus.Fields{
		"trade_id": settlement.TradeID,
		"mint":     req.Mint.String(),
		"tokens":   req.TokenAmount,
		"gross":    result.SolAmount,
		"fee":      fee,
	}).Info("sell settled")

	e.publish(ctx, settlement)
	return settlement, nil
}

// Withdraw drains a completed curve's vault to the configured authority:
// all custodied SOL and any token dust left after the freezing buy.
func (e *Engine) Withdraw(ctx context.Context, req *WithdrawRequest) (*WithdrawResult, error) {
	if !req.Authority.Equals(e.cfg.WithdrawAuthority) {
		return nil, curve.ErrUnauthorized
	}

	lock := e.mintLock(req.Mint)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.store.GetCurve(ctx, req.Mint)
	if err != nil {
		return nil, err
	}
	if !c.Complete {
		return nil, curve.ErrCurveNotComplete
	}

	vault := VaultAddress(req.Mint)

	sol, err := e.ledger.SolBalance(ctx, vault)
	if err != nil {
		return nil, fmt.Errorf("vault sol balance: %w", err)
	}
	tokens, err := e.ledger.TokenBalance(ctx, req.Mint, vault)
	if err != nil {
		return nil, fmt.Errorf("vault token balance: %w", err)
	}

	var undo []func() error
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			if err := undo[i](); err != nil {
				e.logger.WithError(err).WithField("mint", req.Mint.String()).Error("withdraw rollback failed")
			}
		}
	}

	if sol > 0 {
		if err := e.ledger.TransferSol(ctx, vault, req.Authority, sol); err != nil {
			return nil, fmt.Errorf("withdraw sol: %w", err)
		}
		undo = append(undo, func() error { return e.ledger.TransferSol(ctx, req.Authority, vault, sol) })
	}
	if tokens > 0 {
		if err := e.ledger.TransferToken(ctx, req.Mint, vault, req.Authority, tokens); err != nil {
			rollback()
			return nil, fmt.Errorf("withdraw tokens: %w", err)
		}
		undo = append(undo, func() error { return e.ledger.TransferToken(ctx, req.Mint, req.Authority, vault, tokens) })
	}

	// The record stays visible as a terminal market with nothing custodied.
	next := c.Clone()
	next.RealSolReserves = 0
	next.RealTokenReserves = 0
	if err := e.store.PutCurve(ctx, req.Mint, next); err != nil {
		rollback()
		return nil, fmt.Errorf("persist curve: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"mint":   req.Mint.String(),
		"sol":    sol,
		"tokens": tokens,
	}).Info("curve withdrawn")

	return &WithdrawResult{Mint: req.Mint, SolAmount: sol, TokenAmount: tokens}, nil
}

// QuoteBuy prices a buy without executing it. The quote settles against a
// copy of the curve so clamping behaves exactly as the real trade would.
func (e *Engine) QuoteBuy(ctx context.Context, mint solana.PublicKey, tokens uint64) (*BuyQuote, error) {
	c, err := e.store.GetCurve(ctx, mint)
	if err != nil {
		return nil, err
	}
	if c.Complete {
		return nil, curve.ErrCurveComplete
	}

	result, err := c.Clone().ApplyBuy(tokens)
	if err != nil {
		return nil, err
	}

	fee := feeAmount(result.SolAmount, e.cfg.FeeBasisPoints)
	total := result.SolAmount + fee
	if total < result.SolAmount {
		return nil, fmt.Errorf("total cost: %w", curve.ErrOverflow)
	}

	return &BuyQuote{
		TokenAmount: result.TokenAmount,
		SolCost:     result.SolAmount,
		Fee:         fee,
		TotalCost:   total,
	}, nil
}

// QuoteSell prices a sell without executing it.
func (e *Engine) QuoteSell(ctx context.Context, mint solana.PublicKey, tokens uint64) (*SellQuote, error) {
	c, err := e.store.GetCurve(ctx, mint)
	if err != nil {
		return nil, err
	}
	if c.Complete {
		return nil, curve.ErrCurveComplete
	}

	result, err := c.Clone().ApplySell(tokens)
	if err != nil {
		return nil, err
	}

	fee := feeAmount(result.SolAmount, e.cfg.FeeBasisPoints)
	return &SellQuote{
		TokenAmount: result.TokenAmount,
		SolOutput:   result.SolAmount,
		Fee:         fee,
		NetOutput:   result.SolAmount - fee,
	}, nil
}

// GetCurve returns the stored reserve state for a mint.
func (e *Engine) GetCurve(ctx context.Context, mint solana.PublicKey) (*curve.Curve, error) {
	return e.store.GetCurve(ctx, mint)
}

// ListMints returns every mint with a live curve.
func (e *Engine) ListMints(ctx context.Context) ([]solana.PublicKey, error) {
	return e.store.ListMints(ctx)
}

func (e *Engine) checkTradeRequest(ctx context.Context, tokens uint64, feeRecipient solana.PublicKey) error {
	if e.switches != nil && e.switches.Enabled(ctx, flags.KeyTradingPaused) {
		return ErrTradingPaused
	}
	if tokens == 0 {
		return curve.ErrZeroAmount
	}
	if !feeRecipient.IsZero() && !feeRecipient.Equals(e.cfg.FeeRecipient) {
		return curve.ErrFeeRecipientMismatch
	}
	return nil
}

// publish fans a settlement out to the trade log, live feed and recent-trades
// cache. Failures are logged, never surfaced: the trade already settled.
func (e *Engine) publish(ctx context.Context, s *Settlement) {
	event := &models.TradeEvent{
		TradeID:     s.TradeID,
		Timestamp:   s.Timestamp,
		Mint:        s.Mint.String(),
		Side:        s.Side,
		User:        s.User.String(),
		TokenAmount: s.TokenAmount,
		SolAmount:   s.SolAmount,
		Fee:         s.Fee,
		Complete:    s.Complete,
	}

	if e.tradeLog != nil {
		if err := e.tradeLog.InsertTrade(ctx, event); err != nil {
			e.logger.WithError(err).WithField("trade_id", s.TradeID).Warn("trade log insert failed")
		}
	}
	if e.feed != nil {
		if err := e.feed.PublishTrade(ctx, event); err != nil {
			e.logger.WithError(err).WithField("trade_id", s.TradeID).Warn("trade feed publish failed")
		}
	}
	if e.cache != nil {
		if err := e.cache.AddRecentTrade(ctx, event); err != nil {
			e.logger.WithError(err).WithField("trade_id", s.TradeID).Warn("trade cache push failed")
		}
	}
}

func (e *Engine) mintLock(mint solana.PublicKey) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[mint]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[mint] = lock
	}
	return lock
}

func newTradeID() string {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return base58.Encode(b[:])
}
