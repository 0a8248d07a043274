package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/indicator-cli/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		indicator string
		target    any
		typ       model.IndicatorType
		dir       model.Direction
		unit      string
	}{
		{
			name:      "mortality rate per 100k",
			indicator: "Tasa de mortalidad por siniestros de tránsito",
			target:    "Reducir de 12,81 a 12,25 por cada 100.000 habitantes",
			typ:       model.TypeRate, dir: model.DirectionDecrease, unit: UnitPer100k,
		},
		{
			name:      "per 100k forces decrease",
			indicator: "Homicidios intencionales",
			target:    "Incrementar control, meta 5 cada 100.000 habitantes",
			typ:       model.TypeRate, dir: model.DirectionDecrease, unit: UnitPer100k,
		},
		{
			name:      "percentage with decrease verb",
			indicator: "Pobreza por ingresos",
			target:    "Reducir de 27% a 22%",
			typ:       model.TypePercentage, dir: model.DirectionDecrease, unit: UnitPercent,
		},
		{
			name:      "social ill in name",
			indicator: "Índice de delitos contra la propiedad",
			target:    "Meta 2029: 40",
			typ:       model.TypePercentage, dir: model.DirectionDecrease,
		},
		{
			name:      "monetary",
			indicator: "Inversión extranjera directa",
			target:    "Incrementar de USD 232,11 millones en el 2024 a USD 1.098,34 millones al 2029",
			typ:       model.TypeMonetaryMillions, dir: model.DirectionIncrease, unit: UnitMillions,
		},
		{
			name:      "count default",
			indicator: "Número de beneficiarios",
			target:    "de 150 a 300",
			typ:       model.TypeCount, dir: model.DirectionIncrease,
		},
		{
			name:      "numeric target",
			indicator: "Kilómetros de vías rehabilitadas",
			target:    320.0,
			typ:       model.TypeCount, dir: model.DirectionIncrease,
		},
		{
			name:      "increase vocabulary re-flips decrease",
			indicator: "Empleo adecuado",
			target:    "Reducir la informalidad e incrementar el empleo de 33 a 40",
			typ:       model.TypeCount, dir: model.DirectionIncrease,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.indicator, tt.target)
			assert.Equal(t, tt.typ, got.Type)
			assert.Equal(t, tt.dir, got.Direction)
			assert.Equal(t, tt.unit, got.Unit)
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	a := Classify("Tasa de desempleo", "Reducir de 4,1% a 3,5%")
	b := Classify("Tasa de desempleo", "Reducir de 4,1% a 3,5%")
	assert.Equal(t, a, b)
}
