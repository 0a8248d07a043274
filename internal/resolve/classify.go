package resolve

import (
	"strings"

	"github.com/sells-group/indicator-cli/internal/model"
)

// Vocabularies are matched as substrings of accent-folded, lower-cased text.
var (
	decreaseWords = []string{"reducir", "disminuir", "bajar", "decrementar", "minimizar"}
	increaseWords = []string{"incrementar", "aumentar", "elevar", "subir", "maximizar", "mejorar"}
	percentWords  = []string{"%", "porcentaje", "tasa"}
	// socialIllWords mark indicators whose improvement is a reduction.
	socialIllWords = []string{"pobreza", "desempleo", "inflacion", "mortalidad", "accidente", "delito", "desercion", "deficit"}
	per100kPhrases = []string{"por cada 100", "cada 100.000", "cada 100,000"}
)

// Unit labels.
const (
	UnitPer100k  = "por 100k hab"
	UnitPercent  = "%"
	UnitMillions = "millones"
)

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// mentionsPer100k reports the rate-per-population phrasing.
func mentionsPer100k(text string) bool {
	return containsAny(text, per100kPhrases)
}

// Classify derives type, unit and direction from the indicator name and its
// target description.
//
// The increase vocabulary is scanned after the decrease vocabulary and wins
// whenever both are present, regardless of where the words appear in the
// text.
func Classify(name string, target any) model.Classification {
	nameText := Fold(name)
	full := nameText + " " + Fold(textOf(target))

	c := model.Classification{
		Type:      model.TypeCount,
		Direction: model.DirectionIncrease,
	}
	if containsAny(full, decreaseWords) {
		c.Direction = model.DirectionDecrease
	}
	if containsAny(full, increaseWords) {
		c.Direction = model.DirectionIncrease
	}

	switch {
	case mentionsPer100k(full):
		// Mortality and incident rates are reduction targets.
		c.Type = model.TypeRate
		c.Unit = UnitPer100k
		c.Direction = model.DirectionDecrease
	case containsAny(full, percentWords):
		c.Type = model.TypePercentage
		c.Unit = UnitPercent
	case containsAny(nameText, socialIllWords):
		c.Direction = model.DirectionDecrease
		if strings.Contains(full, "tasa") {
			c.Type = model.TypeRate
			c.Unit = UnitPercent
		} else {
			c.Type = model.TypePercentage
		}
	case strings.Contains(full, "millones"):
		c.Type = model.TypeMonetaryMillions
		c.Unit = UnitMillions
	}
	return c
}
