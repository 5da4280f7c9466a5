package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/ai"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/flags"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/storage"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/trading"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Engine       *trading.Engine    // Trade orchestrator
	Ledger       storage.Ledger     // Asset custody, read for balance queries
	Cache        storage.TradeCache // Recent trades cache (optional)
	Flags        *flags.Store       // Redis-backed feature flags store (optional)
	AI           *ai.Agent          // AI agent for natural language queries (optional)
	AIBaseConfig ai.AgentConfig     // Base configuration for AI agents
	DevMode      bool               // Enable detailed error responses in development
	Logger       *logrus.Logger     // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// tradeErr maps an engine error to its HTTP status and renders it
func (h *Handlers) tradeErr(c echo.Context, err error) error {
	code := statusForTradeError(err)
	if code == http.StatusInternalServerError {
		h.Logger.WithError(err).Error("trade request failed")
		return h.err(c, code, "internal error", map[string]any{"err": err.Error()})
	}
	return h.err(c, code, err.Error(), nil)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// parseKey parses a base58 address from a path param or request field
func parseKey(s string) (solana.PublicKey, bool) {
	key, err := solana.PublicKeyFromBase58(strings.TrimSpace(s))
	if err != nil {
		return solana.PublicKey{}, false
	}
	return key, true
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// CurveCreate launches a new bonding curve for a mint
// Returns 409 if the mint already has a curve
func (h *Handlers) CurveCreate(c echo.Context) error {
	var req CreateCurveRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	mint, ok := parseKey(req.Mint)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid mint", map[string]any{"mint": "must be base58"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Engine.CreateCurve(ctx, mint)
	if err != nil {
		return h.tradeErr(c, err)
	}
	return c.JSON(http.StatusCreated, CurveResponse{Mint: mint.String(), Curve: out})
}

// CurveList returns every mint with a live curve
func (h *Handlers) CurveList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	mints, err := h.Engine.ListMints(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list curves", nil)
	}

	items := make([]string, 0, len(mints))
	for _, m := range mints {
		items = append(items, m.String())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// CurveGet returns the reserve state for a mint
// Returns 404 if the mint has no curve
func (h *Handlers) CurveGet(c echo.Context) error {
	mint, ok := parseKey(c.Param("mint"))
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid mint", map[string]any{"mint": "must be base58"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Engine.GetCurve(ctx, mint)
	if err != nil {
		return h.tradeErr(c, err)
	}
	return c.JSON(http.StatusOK, CurveResponse{Mint: mint.String(), Curve: out})
}

// QuoteBuy prices a buy without executing it
// Accepts tokens query parameter (base units)
func (h *Handlers) QuoteBuy(c echo.Context) error {
	mint, ok := parseKey(c.Param("mint"))
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid mint", map[string]any{"mint": "must be base58"})
	}
	tokens, err := strconv.ParseUint(c.QueryParam("tokens"), 10, 64)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid tokens", map[string]any{"tokens": "must be a positive integer"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	q, err := h.Engine.QuoteBuy(ctx, mint, tokens)
	if err != nil {
		return h.tradeErr(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

// QuoteSell prices a sell without executing it
// Accepts tokens query parameter (base units)
func (h *Handlers) QuoteSell(c echo.Context) error {
	mint, ok := parseKey(c.Param("mint"))
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid mint", map[string]any{"mint": "must be base58"})
	}
	tokens, err := strconv.ParseUint(c.QueryParam("tokens"), 10, 64)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid tokens", map[string]any{"tokens": "must be a positive integer"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	q, err := h.Engine.QuoteSell(ctx, mint, tokens)
	if err != nil {
		return h.tradeErr(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

// Buy executes a buy against a curve
// The settled amount may be less than requested when reserves run low
func (h *Handlers) Buy(c echo.Context) error {
	mint, ok := parseKey(c.Param("mint"))
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid mint", map[string]any{"mint": "must be base58"})
	}
	var req TradeRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	user, ok := parseKey(req.User)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid user", map[string]any{"user": "must be base58"})
	}

	buyReq := &trading.BuyRequest{
		Mint:        mint,
		User:        user,
		TokenAmount: req.TokenAmount,
		MaxSolCost:  req.MaxSolCost,
	}
	if req.FeeRecipient != "" {
		recipient, ok := parseKey(req.FeeRecipient)
		if !ok {
			return h.err(c, http.StatusBadRequest, "invalid fee recipient", nil)
		}
		buyReq.FeeRecipient = recipient
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	s, err := h.Engine.Buy(ctx, buyReq)
	if err != nil {
		return h.tradeErr(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Sell executes a sell against a curve
func (h *Handlers) Sell(c echo.Context) error {
	mint, ok := parseKey(c.Param("mint"))
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid mint", map[string]any{"mint": "must be base58"})
	}
	var req TradeRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	user, ok := parseKey(req.User)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid user", map[string]any{"user": "must be base58"})
	}

	sellReq := &trading.SellRequest{
		Mint:         mint,
		User:         user,
		TokenAmount:  req.TokenAmount,
		MinSolOutput: req.MinSolOutput,
	}
	if req.FeeRecipient != "" {
		recipient, ok := parseKey(req.FeeRecipient)
		if !ok {
			return h.err(c, http.StatusBadRequest, "invalid fee recipient", nil)
		}
		sellReq.FeeRecipient = recipient
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	s, err := h.Engine.Sell(ctx, sellReq)
	if err != nil {
		return h.tradeErr(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Withdraw drains a completed curve's vault to the configured authority
func (h *Handlers) Withdraw(c echo.Context) error {
	mint, ok := parseKey(c.Param("mint"))
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid mint", map[string]any{"mint": "must be base58"})
	}
	var req WithdrawReq
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	authority, ok := parseKey(req.Authority)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid authority", map[string]any{"authority": "must be base58"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	out, err := h.Engine.Withdraw(ctx, &trading.WithdrawRequest{Mint: mint, Authority: authority})
	if err != nil {
		return h.tradeErr(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Balance returns ledger balances for an address
// Accepts optional mint query parameter to include a token balance
func (h *Handlers) Balance(c echo.Context) error {
	owner, ok := parseKey(c.Param("owner"))
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid owner", map[string]any{"owner": "must be base58"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	sol, err := h.Ledger.SolBalance(ctx, owner)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get balance", nil)
	}

	resp := BalanceResponse{Owner: owner.String(), SolBalance: sol}
	if mintStr := c.QueryParam("mint"); mintStr != "" {
		mint, ok := parseKey(mintStr)
		if !ok {
			return h.err(c, http.StatusBadRequest, "invalid mint", map[string]any{"mint": "must be base58"})
		}
		tokens, err := h.Ledger.TokenBalance(ctx, mint, owner)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to get balance", nil)
		}
		resp.Mint = mint.String()
		resp.TokenBalance = &tokens
	}
	return c.JSON(http.StatusOK, resp)
}

// Faucet credits lamports to an address for testing (dev mode only)
func (h *Handlers) Faucet(c echo.Context) error {
	var req FaucetRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	user, ok := parseKey(req.User)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid user", map[string]any{"user": "must be base58"})
	}
	if req.Lamports == 0 {
		return h.err(c, http.StatusBadRequest, "lamports required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Ledger.CreditSol(ctx, user, req.Lamports); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to credit", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// RecentTrades returns the most recent trade events with optional limit parameter
// Accepts limit query parameter (default: 100, range: 1-200)
func (h *Handlers) RecentTrades(c echo.Context) error {
	if h.Cache == nil {
		return h.err(c, http.StatusBadRequest, "trade cache is not configured", nil)
	}

	limitStr := c.QueryParam("limit")
	limit := 100
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.GetRecentTrades(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get trades", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsUpsert creates or updates a feature flag with the given key and value
// Validates key format and returns the created/updated flag
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate updates an existing feature flag with the given key
// Validates key format and returns the updated flag
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsGet retrieves a feature flag by its key
// Returns 404 if flag doesn't exist
func (h *Handlers) FlagsGet(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsList returns all feature flags in the system
func (h *Handlers) FlagsList(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes a feature flag by its key
// Returns 204 No Content on successful deletion
func (h *Handlers) FlagsDelete(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// AIAsk processes natural language questions about trade data using AI
// Supports optional model override for one-off requests
// Returns SQL query and answer with execution time
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}

	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()

	// Use default AI agent or create temporary one with custom model
	agent := h.AI
	var tmp *ai.Agent
	if m := strings.TrimSpace(req.Model); m != "" {
		cfg := h.AIBaseConfig
		cfg.Model = m
		a, err := ai.NewAgent(ctx, cfg)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to create ai agent", nil)
		}
		tmp = a
		agent = a
		defer func() {
			_ = tmp.Close() // Clean up temporary agent
		}()
	}

	res, err := agent.Ask(ctx, req.Question)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "ai ask failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, AIAskResponse{SQL: res.SQL, Answer: res.Answer, TookMs: time.Since(start).Milliseconds()})
}
