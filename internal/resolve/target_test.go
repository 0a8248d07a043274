package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTarget(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		baseline *float64
		target   *float64
		rule     string
	}{
		{
			name:     "percent with year",
			text:     "Incrementar de 35,88% en el 2024 a 37,53% al 2029",
			baseline: f(35.88), target: f(37.53), rule: "percent_with_year",
		},
		{
			name:     "rate per 100k",
			text:     "Reducir de 12,81 a 12,25 por cada 100.000 habitantes",
			baseline: f(12.81), target: f(12.25), rule: "rate_per_100k",
		},
		{
			name:     "usd millions with year",
			text:     "Incrementar de USD 232,11 millones en el 2024 a USD 1.098,34 millones al 2029",
			baseline: f(232.11), target: f(1098.34), rule: "usd_millions_with_year",
		},
		{
			name:     "plain from to",
			text:     "Incrementar de 150 a 300 beneficiarios",
			baseline: f(150), target: f(300), rule: "from_to",
		},
		{
			name:   "single usd amount",
			text:   "Alcanzar USD 500 millones de inversión",
			target: f(500), rule: "usd_millions",
		},
		{
			name:     "percentages without from",
			text:     "Pasar del 20% al 25%",
			baseline: f(20), target: f(25), rule: "percentages",
		},
		{
			name:     "decimals",
			text:     "Meta 2029: alcanzar 45,5 puntos desde 40,2",
			baseline: f(45.5), target: f(40.2), rule: "decimals",
		},
		{
			name: "year range is not a value pair",
			text: "Incrementar la cobertura de 2024 a 2029",
		},
		{
			name: "no numbers",
			text: "Sin meta",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTarget(tt.text)
			assert.Equal(t, tt.rule, got.Rule)
			assertFloatPtr(t, tt.baseline, got.Baseline, "baseline")
			assertFloatPtr(t, tt.target, got.Target, "target")
		})
	}
}

func TestExtractTarget_PercentagesRejectHundred(t *testing.T) {
	got := ExtractTarget("Alcanzar 100% de cobertura frente a 80%")
	assert.NotEqual(t, "percentages", got.Rule)
}

func TestExtractTarget_NumericInput(t *testing.T) {
	got := ExtractTarget(37.5)
	assert.Equal(t, RuleNumeric, got.Rule)
	assert.Nil(t, got.Baseline)
	require.NotNil(t, got.Target)
	assert.Equal(t, 37.5, *got.Target)
	assert.False(t, got.Complete())

	assert.Empty(t, ExtractTarget(nil).Rule)
}

func TestRuleNames_Order(t *testing.T) {
	assert.Equal(t, []string{
		"percent_with_year",
		"rate_per_100k",
		"usd_millions_with_year",
		"percent_attached",
		"from_to",
		"usd_millions",
		"percentages",
		"decimals",
	}, RuleNames())
}

func f(v float64) *float64 { return &v }

func assertFloatPtr(t *testing.T, want, got *float64, label string) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got, label)
		return
	}
	if assert.NotNil(t, got, label) {
		assert.InDelta(t, *want, *got, 1e-9, label)
	}
}
