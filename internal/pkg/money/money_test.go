package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentOf(t *testing.T) {
	assert.Equal(t, Cents(1500), Percent(1500).Of(Cents(10000)))
	assert.Equal(t, Cents(0), Percent(0).Of(Cents(10000)))
	// 12.5% of 0.99 = 0.12375 → 0.12
	assert.Equal(t, Cents(12), Percent(1250).Of(Cents(99)))
	// 10% of 0.05 = 0.005 → rounds up to 0.01
	assert.Equal(t, Cents(1), Percent(1000).Of(Cents(5)))
}

func TestParseCents(t *testing.T) {
	c, err := ParseCents("115")
	require.NoError(t, err)
	assert.Equal(t, Cents(11500), c)

	c, err = ParseCents("99.999")
	require.NoError(t, err)
	assert.Equal(t, Cents(10000), c)

	_, err = ParseCents("abc")
	assert.Error(t, err)
}

func TestCentsString(t *testing.T) {
	assert.Equal(t, "115.00", Cents(11500).String())
	assert.Equal(t, "0.05", Cents(5).String())
	assert.Equal(t, "-1.20", Cents(-120).String())
}

func TestPercentParseAndString(t *testing.T) {
	p, err := ParsePercent("12.5")
	require.NoError(t, err)
	assert.Equal(t, Percent(1250), p)
	assert.Equal(t, "12.5", p.String())
	assert.Equal(t, "15", Percent(1500).String())
	assert.Equal(t, Percent(2000), PercentFromFloat(20))
}

func TestJSONRoundTripAcceptsNumbersAndStrings(t *testing.T) {
	var payload struct {
		Amount Cents   `json:"amount"`
		Pct    Percent `json:"pct"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"100.50","pct":15}`), &payload))
	assert.Equal(t, Cents(10050), payload.Amount)
	assert.Equal(t, Percent(1500), payload.Pct)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":100.50,"pct":15}`, string(out))
}
