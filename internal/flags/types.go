package flags

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("flag not found")

// Well-known switches consulted by the trading API. Anything else is free
// for operators to define.
const (
	KeyTradingPaused  = "trading.paused"
	KeyCreationPaused = "creation.paused"
)

type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
