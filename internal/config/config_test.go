package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsValidate(t *testing.T) {
	// A fresh environment must produce a bootable configuration.
	cfg := Load()
	require.NoError(t, cfg.Validate())
}

func TestValidate_Rejections(t *testing.T) {
	base := Load()

	c := *base
	c.FeeBasisPoints = 10_000
	assert.Error(t, c.Validate(), "fee at or above the denominator")

	c = *base
	c.InitialVirtualSolReserves = 0
	assert.Error(t, c.Validate(), "zero virtual sol reserves")

	c = *base
	c.InitialVirtualTokenReserves = 0
	assert.Error(t, c.Validate(), "zero virtual token reserves")

	c = *base
	c.FeeRecipient = "not-base58"
	assert.Error(t, c.Validate(), "malformed fee recipient")

	c = *base
	c.WithdrawAuthority = "0"
	assert.Error(t, c.Validate(), "malformed withdraw authority")
}
