package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = NotFoundJSON()

	// Apply global middleware
	e.Use(SetJSONContentType) // Ensure all responses are JSON
	e.Use(SetNoCacheHeaders)  // Prevent caching of API responses

	// Optional API key authentication
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key", // Look for API key in X-API-Key header
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil // Simple string comparison
			},
		}))
	}

	// API v1 routes
	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)               // Health check endpoint
	v1.GET("/trades/recent", h.RecentTrades)  // Recent trade events
	v1.GET("/balances/:owner", h.Balance)     // Ledger balances for an address

	// Bonding curve endpoints. Mutating routes share a per-client rate limit.
	tradeLimit := middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(10),  // 10 trades per second per client
		Burst:     20,              // Allow short bursts
		ExpiresIn: 2 * time.Minute, // Rate limit window
	}))

	curves := v1.Group("/curves")
	curves.POST("", h.CurveCreate, tradeLimit)           // Launch a new curve
	curves.GET("", h.CurveList)                          // List mints with live curves
	curves.GET("/:mint", h.CurveGet)                     // Reserve state for a mint
	curves.GET("/:mint/quote/buy", h.QuoteBuy)           // Price a buy without executing
	curves.GET("/:mint/quote/sell", h.QuoteSell)         // Price a sell without executing
	curves.POST("/:mint/buy", h.Buy, tradeLimit)         // Execute a buy
	curves.POST("/:mint/sell", h.Sell, tradeLimit)       // Execute a sell
	curves.POST("/:mint/withdraw", h.Withdraw, tradeLimit) // Drain a completed curve

	// Dev-mode faucet for funding test accounts
	if cfg.DevMode {
		v1.POST("/faucet", h.Faucet)
	}

	// AI endpoints with rate limiting
	aigroup := v1.Group("/ai")
	aigroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(0.2), // 1 request every 5 seconds
		Burst:     2,               // Allow burst of 2 requests
		ExpiresIn: 2 * time.Minute, // Rate limit window
	})))
	aigroup.POST("/ask", h.AIAsk) // Natural language to SQL endpoint

	// Feature flags CRUD endpoints
	flagGroup := v1.Group("/flags")
	flagGroup.GET("", h.FlagsList)           // List all flags
	flagGroup.POST("", h.FlagsUpsert)        // Create new flag
	flagGroup.GET("/:key", h.FlagsGet)       // Get specific flag
	flagGroup.PUT("/:key", h.FlagsUpdate)    // Update existing flag
	flagGroup.DELETE("/:key", h.FlagsDelete) // Delete flag

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
