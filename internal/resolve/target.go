package resolve

import (
	"regexp"
	"slices"
)

// TargetPair is the baseline/target pair read from a target description.
// Rule names the extraction rule that produced it; it is empty when no rule
// matched.
type TargetPair struct {
	Baseline *float64
	Target   *float64
	Rule     string
}

// Rule name for non-string targets, which are taken as the target figure.
const RuleNumeric = "numeric"

// denominators are population units that show up next to rates and are
// never data.
var denominators = []float64{100, 1000, 10000, 100000}

// planYears are the years of the planning period; a "de 2024 a 2029" match
// is a date range, not a pair of values.
var planYears = []float64{2024, 2025, 2026, 2027, 2028, 2029}

var (
	rePercentWithYear = regexp.MustCompile(`(?i)de\s+([\d.,]+)\s*%\s+en\s+el\s+\d{4}\s+a\s+([\d.,]+)\s*%`)
	reRatePer100k     = regexp.MustCompile(`(?i)de\s+([\d.,]+)\s+(?:en\s+el\s+\d{4}\s+)?(?:a|al?)\s+([\d.,]+)\s+(?:por\s+cada|cada)\s+100`)
	reUSDWithYear     = regexp.MustCompile(`(?i)USD\s+([\d.,]+)\s+millones?\s+en\s+el\s+\d{4}\s+a\s+USD\s+([\d.,]+)\s+millones?`)
	rePercentAttached = regexp.MustCompile(`(?i)de\s+([\d.,]+)%\s+en\s+el\s+\d{4}\s+a\s+([\d.,]+)%`)
	reFromTo          = regexp.MustCompile(`(?i)de\s+([\d.,]+)\s*(%|millones?)?\s+(?:en\s+el\s+\d{4}\s+)?(?:a|al?)\s+([\d.,]+)\s*(%|millones?)?`)
	reUSDMillions     = regexp.MustCompile(`(?i)USD\s*([\d.,]+)\s*millones?`)
	rePercentage      = regexp.MustCompile(`([\d.,]+)\s*%`)
	reDecimal         = regexp.MustCompile(`(\d+[.,]\d+)`)
)

// targetRule is one entry of the extraction cascade. match reports whether
// the rule yields a pair for text.
type targetRule struct {
	name  string
	match func(text string) (TargetPair, bool)
}

// targetRules run in order; the first rule that yields wins. Earlier rules
// are stricter, so the order must not change.
var targetRules = []targetRule{
	{name: "percent_with_year", match: capturePair(rePercentWithYear, 1, 2, nil)},
	{name: "rate_per_100k", match: capturePair(reRatePer100k, 1, 2, nil)},
	{name: "usd_millions_with_year", match: capturePair(reUSDWithYear, 1, 2, nil)},
	{name: "percent_attached", match: capturePair(rePercentAttached, 1, 2, nil)},
	{name: "from_to", match: capturePair(reFromTo, 1, 3, unitOrYear)},
	{name: "usd_millions", match: matchUSDMillions},
	{name: "percentages", match: matchPercentages},
	{name: "decimals", match: matchDecimals},
}

// ExtractTarget reads the baseline and target out of a target description.
// Non-string input is taken as the target figure with no baseline.
func ExtractTarget(v any) TargetPair {
	text, ok := v.(string)
	if !ok {
		pair := TargetPair{Target: ptr(v)}
		if pair.Target != nil {
			pair.Rule = RuleNumeric
		}
		return pair
	}

	for _, rule := range targetRules {
		if pair, ok := rule.match(text); ok {
			pair.Rule = rule.name
			return pair
		}
	}
	return TargetPair{}
}

// RuleNames lists the cascade in evaluation order.
func RuleNames() []string {
	names := make([]string, len(targetRules))
	for i, r := range targetRules {
		names[i] = r.name
	}
	return names
}

// capturePair matches re once and parses two capture groups. reject, when
// set, vetoes the pair and lets the cascade continue.
func capturePair(re *regexp.Regexp, baseGroup, targetGroup int, reject func(*float64) bool) func(string) (TargetPair, bool) {
	return func(text string) (TargetPair, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return TargetPair{}, false
		}
		pair := TargetPair{Baseline: ptr(m[baseGroup]), Target: ptr(m[targetGroup])}
		if reject != nil && (reject(pair.Baseline) || reject(pair.Target)) {
			return TargetPair{}, false
		}
		return pair, true
	}
}

// unitOrYear flags values that are almost certainly a captured unit or
// a plan year.
func unitOrYear(v *float64) bool {
	if v == nil {
		return false
	}
	return slices.Contains(denominators, *v) || slices.Contains(planYears, *v)
}

func matchUSDMillions(text string) (TargetPair, bool) {
	found := reUSDMillions.FindAllStringSubmatch(text, -1)
	switch {
	case len(found) >= 2:
		return TargetPair{Baseline: ptr(found[0][1]), Target: ptr(found[1][1])}, true
	case len(found) == 1:
		return TargetPair{Target: ptr(found[0][1])}, true
	default:
		return TargetPair{}, false
	}
}

func matchPercentages(text string) (TargetPair, bool) {
	found := rePercentage.FindAllStringSubmatch(text, -1)
	if len(found) < 2 {
		return TargetPair{}, false
	}
	first := ptr(found[0][1])
	last := ptr(found[len(found)-1][1])
	// "100" next to a percent sign is usually the tail of "100.000 habitantes".
	if isHundred(first) || isHundred(last) {
		return TargetPair{}, false
	}
	return TargetPair{Baseline: first, Target: last}, true
}

func isHundred(v *float64) bool {
	return v != nil && *v == 100
}

func matchDecimals(text string) (TargetPair, bool) {
	var values []float64
	for _, m := range reDecimal.FindAllStringSubmatch(text, -1) {
		f, ok := ParseNumber(m[1])
		if !ok {
			continue
		}
		if slices.Contains(denominators, f) || (f >= 2020 && f <= 2030) {
			continue
		}
		values = append(values, f)
	}
	if len(values) < 2 {
		return TargetPair{}, false
	}
	first, last := values[0], values[len(values)-1]
	return TargetPair{Baseline: &first, Target: &last}, true
}

// Complete reports whether both values are present.
func (p TargetPair) Complete() bool {
	return p.Baseline != nil && p.Target != nil
}
