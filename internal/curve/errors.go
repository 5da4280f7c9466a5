package curve

import "errors"

// Sentinel errors returned by the pricing engine and the trading layer.
// Callers are expected to branch with errors.Is: ErrReserveExceeded means
// "try a smaller amount", ErrSlippageExceeded means "loosen your bound",
// ErrCurveComplete means the market is over.
var (
	ErrZeroAmount           = errors.New("curve: amount must be greater than zero")
	ErrReserveExceeded      = errors.New("curve: amount exceeds tradeable reserves")
	ErrOverflow             = errors.New("curve: arithmetic overflow")
	ErrUnderflow            = errors.New("curve: arithmetic underflow")
	ErrCurveComplete        = errors.New("curve: bonding curve is complete")
	ErrCurveNotComplete     = errors.New("curve: bonding curve is not complete")
	ErrSlippageExceeded     = errors.New("curve: slippage bound exceeded")
	ErrInsufficientBalance  = errors.New("curve: insufficient balance")
	ErrUnauthorized         = errors.New("curve: unauthorized caller")
	ErrCurveNotFound        = errors.New("curve: bonding curve not found")
	ErrCurveExists          = errors.New("curve: bonding curve already exists")
	ErrFeeRecipientMismatch = errors.New("curve: fee recipient does not match config")
)
