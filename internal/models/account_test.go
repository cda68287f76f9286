package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccountNumber(t *testing.T) {
	t.Run("valid range", func(t *testing.T) {
		for _, raw := range []int64{1_000_000_000, 5_500_123_456, 9_999_999_999} {
			n, err := ParseAccountNumber(raw)
			require.NoError(t, err)
			assert.Equal(t, raw, n.Int64())
			assert.False(t, n.IsZero())
		}
	})

	t.Run("out of range", func(t *testing.T) {
		for _, raw := range []int64{0, -1, 999_999_999, 10_000_000_000} {
			_, err := ParseAccountNumber(raw)
			var invalid *InvalidAccountNumberError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, raw, invalid.Raw)
			assert.False(t, invalid.NotNumeric)
		}
	})

	t.Run("negative input keeps its value in the error", func(t *testing.T) {
		_, err := ParseAccountNumber(-5)
		var invalid *InvalidAccountNumberError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, int64(-5), invalid.Raw)
		assert.False(t, invalid.NotNumeric)
		assert.Equal(t, "invalid account number: -5", invalid.Error())
	})

	t.Run("string form", func(t *testing.T) {
		n, err := ParseAccountNumberString("1234567890")
		require.NoError(t, err)
		assert.Equal(t, "1234567890", n.String())

		_, err = ParseAccountNumberString("not-a-number")
		var invalid *InvalidAccountNumberError
		require.ErrorAs(t, err, &invalid)
		assert.True(t, invalid.NotNumeric)
		assert.Equal(t, "invalid account number: not a number", invalid.Error())

		_, err = ParseAccountNumberString("-5")
		require.ErrorAs(t, err, &invalid)
		assert.False(t, invalid.NotNumeric, "a numeric string that fails the range check is not 'not a number'")
		assert.Equal(t, int64(-5), invalid.Raw)

		_, err = ParseAccountNumberString("123")
		assert.Error(t, err)
	})

	t.Run("equality by value", func(t *testing.T) {
		a, _ := ParseAccountNumber(1234567890)
		b, _ := ParseAccountNumber(1234567890)
		assert.Equal(t, a, b)
		// usable as a map key
		m := map[AccountNumber]bool{a: true}
		assert.True(t, m[b])
	})
}

func TestAccountNumberJSON(t *testing.T) {
	n, err := ParseAccountNumber(1234567890)
	require.NoError(t, err)

	data, err := json.Marshal(n)
	require.NoError(t, err)
	assert.Equal(t, "1234567890", string(data))

	var decoded AccountNumber
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, n, decoded)

	assert.Error(t, json.Unmarshal([]byte("42"), &decoded), "re-validates range on decode")
}

func TestAccountJSONAmountsAreStrings(t *testing.T) {
	n, _ := ParseAccountNumber(1234567890)
	account := Account{Number: n, Balance: decimal.RequireFromString("301.14")}

	data, err := json.Marshal(account)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"balance":"301.14"`, "amounts travel as decimal strings")
}
