package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/curve"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/trading"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		// Don't send response if already committed
		if c.Response().Committed {
			return
		}

		// Handle Echo HTTP errors (like 404, 400, etc.)
		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		// Handle all other errors as internal server error
		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// statusForTradeError maps engine sentinel errors to HTTP status codes so
// clients can branch on status alone.
func statusForTradeError(err error) int {
	switch {
	case errors.Is(err, curve.ErrCurveNotFound):
		return http.StatusNotFound
	case errors.Is(err, curve.ErrCurveExists),
		errors.Is(err, curve.ErrCurveComplete),
		errors.Is(err, curve.ErrCurveNotComplete):
		return http.StatusConflict
	case errors.Is(err, curve.ErrSlippageExceeded),
		errors.Is(err, curve.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, curve.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, trading.ErrTradingPaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, curve.ErrZeroAmount),
		errors.Is(err, curve.ErrReserveExceeded),
		errors.Is(err, curve.ErrOverflow),
		errors.Is(err, curve.ErrUnderflow),
		errors.Is(err, curve.ErrFeeRecipientMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
