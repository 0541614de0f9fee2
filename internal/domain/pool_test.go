package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolSerializesSnakeCase(t *testing.T) {
	raw, err := json.Marshal(&LiquidityPool{
		PairSymbol:  "SCRT/USDT",
		ReserveBase: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "SCRT/USDT", m["pair"])
	assert.Contains(t, m, "reserve_base")
	assert.Contains(t, m, "total_liquidity")
	assert.NotContains(t, m, "ReserveBase")
	assert.NotContains(t, m, "last_swap_at")
}

func TestPositionSerializesSnakeCase(t *testing.T) {
	raw, err := json.Marshal(&LiquidityPosition{ProviderAddress: "secret1abc"})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Contains(t, m, "provider_address")
	assert.Contains(t, m, "initial_base")
	assert.NotContains(t, m, "Shares")
}
