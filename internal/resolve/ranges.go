package resolve

import (
	"slices"
	"strings"

	"github.com/sells-group/indicator-cli/internal/model"
)

// Range profile kinds.
const (
	KindRatePer100k = "rate_per_100k"
	KindPercentage  = "percentage"
	KindMonetary    = "monetary"
	KindCount       = "count"
)

var (
	rateNameWords    = []string{"mortalidad", "siniestros", "accidentes", "muertes"}
	percentNameWords = []string{"tasa", "porcentaje", "proporcion"}
)

// RangeFor selects the plausible-value profile that candidate producers use
// to reject denominators, years and out-of-scale numbers.
func RangeFor(name string, target any) model.RangeProfile {
	nameText := Fold(name)
	targetText := Fold(textOf(target))

	switch {
	case containsAny(nameText, rateNameWords) && mentionsPer100k(targetText):
		return model.RangeProfile{
			Kind:     KindRatePer100k,
			Unit:     "por cada 100,000 hab",
			Min:      0.1,
			Max:      100,
			Excluded: []float64{100, 1000, 10000, 100000},
		}
	case strings.Contains(targetText, "%") || containsAny(nameText, percentNameWords):
		return model.RangeProfile{
			Kind:     KindPercentage,
			Unit:     "%",
			Min:      0.01,
			Max:      100,
			Excluded: []float64{100, 1000},
		}
	case strings.Contains(targetText, "millones") || strings.Contains(targetText, "usd") || strings.Contains(nameText, "inversion"):
		return model.RangeProfile{
			Kind: KindMonetary,
			Unit: "millones USD",
			Min:  1,
			Max:  10000,
		}
	default:
		return model.RangeProfile{
			Kind:     KindCount,
			Unit:     "casos/personas",
			Min:      1,
			Max:      1000000,
			Excluded: []float64{100, 1000, 10000, 100000},
		}
	}
}

// Accepts reports whether v is neither an excluded unit constant nor
// outside the profile bounds.
func Accepts(p model.RangeProfile, v float64) bool {
	if slices.Contains(p.Excluded, v) {
		return false
	}
	return v >= p.Min && v <= p.Max
}
