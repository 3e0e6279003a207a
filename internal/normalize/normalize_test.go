package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCondition(t *testing.T) {
	cases := map[string]Condition{
		"NEW":       ConditionNew,
		"new":       ConditionNew,
		"Like_New":  ConditionLikeNew,
		"GOOD":      ConditionGood,
		"fair":      ConditionFair,
		"POOR":      ConditionPoor,
		"EXCELLENT": ConditionLikeNew,
		"excellent": ConditionLikeNew,
		" good ":    ConditionGood,
	}
	for raw, want := range cases {
		got, err := NormalizeCondition(raw)
		require.NoError(t, err, "condition %q", raw)
		assert.Equal(t, want, got, "condition %q", raw)
	}
}

func TestNormalizeConditionUnknown(t *testing.T) {
	for _, raw := range []string{"", "MINT", "BROKEN", "brand-new"} {
		_, err := NormalizeCondition(raw)
		require.Error(t, err, "condition %q", raw)
		var condErr *ConditionError
		require.ErrorAs(t, err, &condErr)
		assert.Equal(t, raw, condErr.Raw)
	}
}

func TestNormalizePriceFromTaggedText(t *testing.T) {
	p, err := NormalizePrice(0, "95新 iPhone 13 ¥470 包邮", 4.7)
	require.NoError(t, err)
	assert.Equal(t, "100.00", p.String())
	assert.InDelta(t, 100.0, p.Amount(), 0.001)
}

func TestNormalizePriceBareNumberFallback(t *testing.T) {
	// No currency tag: first numeric chunk in the text still wins over raw.
	p, err := NormalizePrice(999, "asking 940 or best offer", 4.7)
	require.NoError(t, err)
	assert.Equal(t, "200.00", p.String())
}

func TestNormalizePriceMinorUnitFallback(t *testing.T) {
	p, err := NormalizePrice(10000, "", 4.7)
	require.NoError(t, err)
	assert.Equal(t, "100.00", p.String())
}

func TestNormalizePriceRounding(t *testing.T) {
	// ¥100 at 4.7 is 21.276595..., rounds to 21.28.
	p, err := NormalizePrice(0, "¥100", 4.7)
	require.NoError(t, err)
	assert.Equal(t, "21.28", p.String())
}

func TestNormalizePriceRejectsNonPositive(t *testing.T) {
	_, err := NormalizePrice(-5, "", 1.0)
	require.Error(t, err)
	var priceErr *PriceError
	require.ErrorAs(t, err, &priceErr)
	assert.EqualValues(t, -5, priceErr.Raw)

	_, err = NormalizePrice(0, "", 1.0)
	require.Error(t, err)
}

func TestParsePriceFromText(t *testing.T) {
	v, ok := ParsePriceFromText("全新 ¥ 1288.50 顺丰包邮")
	require.True(t, ok)
	assert.InDelta(t, 1288.50, v, 0.001)

	_, ok = ParsePriceFromText("no numbers here")
	assert.False(t, ok)
}
