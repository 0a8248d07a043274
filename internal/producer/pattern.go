package producer

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/indicator-cli/internal/model"
	"github.com/sells-group/indicator-cli/internal/resolve"
)

// Pattern extraction tuning.
const (
	contextRadius    = 300
	maxPatternHits   = 5
	baseRelevance    = 5
	wordRelevance    = 5
	minWordLen       = 4
	earliestDataYear = 2020
)

var patternsByKind = map[string][]*regexp.Regexp{
	resolve.KindRatePer100k: {
		regexp.MustCompile(`(?i)(?:fue|alcanzó|registró|ubicó)\s+(?:de|en)?\s*(\d+[.,]\d+)\s*(?:por\s+cada|cada)\s*100`),
		regexp.MustCompile(`(?i)(\d+[.,]\d+)\s*(?:por\s+cada|cada)\s*100[.,]?000`),
		regexp.MustCompile(`(?i)tasa\s+(?:de\s+)?(?:mortalidad|siniestros|accidentes)\s+(?:fue|es)?\s*(\d+[.,]\d+)`),
	},
	resolve.KindPercentage: {
		regexp.MustCompile(`(?i)(?:fue|alcanzó|llegó|registró|ubicó)\s+(?:de|en)?\s*(\d+[.,]\d+)\s*%`),
		regexp.MustCompile(`(\d+[.,]\d+)\s*%`),
	},
	resolve.KindMonetary: {
		regexp.MustCompile(`(?i)USD\s*(\d{1,3}(?:[.,]\d{3})*(?:[.,]\d+)?)\s*millones?`),
		regexp.MustCompile(`(?i)(\d{1,3}(?:[.,]\d{3})*(?:[.,]\d+)?)\s*millones?\s*(?:de\s+)?USD`),
	},
	resolve.KindCount: {
		regexp.MustCompile(`(?i)(\d+[.,]\d+)\s*(?:casos|personas|hogares)`),
	},
}

var yearRe = regexp.MustCompile(`20\d{2}`)

// PatternProducer scans document text with kind-specific regular
// expressions. It is the fallback when the model finds nothing.
type PatternProducer struct {
	reportingYear int
	log           *zap.Logger
}

// NewPatternProducer creates a PatternProducer.
func NewPatternProducer(reportingYear int, log *zap.Logger) *PatternProducer {
	if log == nil {
		log = zap.NewNop()
	}
	if reportingYear <= 0 {
		reportingYear = resolve.DefaultReportingYear
	}
	return &PatternProducer{reportingYear: reportingYear, log: log}
}

// Extract returns up to five pattern candidates, best first.
func (p *PatternProducer) Extract(name string, target any, text string) []model.Candidate {
	profile := resolve.RangeFor(name, target)
	words := indicatorWords(name)

	var out []model.Candidate
	for _, re := range patternsByKind[profile.Kind] {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			value, ok := resolve.ParseNumber(text[m[2]:m[3]])
			if !ok || !resolve.Accepts(profile, value) {
				continue
			}

			ctxText := window(text, m[0], m[1], contextRadius)
			c := model.NewPatternCandidate(value, baseRelevance)
			year := p.dataYear(ctxText)
			if year != 0 {
				c = c.WithYear(year)
			}
			c.Relevance += yearBonus(year, p.reportingYear, 20, 10)

			folded := resolve.Fold(ctxText)
			for _, w := range words {
				if strings.Contains(folded, w) {
					c.Relevance += wordRelevance
				}
			}
			c.Context = ctxText
			c.Unit = profile.Unit
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ya, yb := a.YearIs(p.reportingYear), b.YearIs(p.reportingYear); ya != yb {
			return ya
		}
		return a.Relevance > b.Relevance
	})
	if len(out) > maxPatternHits {
		out = out[:maxPatternHits]
	}

	if len(out) > 0 {
		p.log.Debug("extract: pattern candidates",
			zap.String("indicator", name),
			zap.String("kind", profile.Kind),
			zap.Int("count", len(out)),
		)
	}
	return out
}

// dataYear returns the first year between 2020 and the reporting year that
// appears in text, or 0.
func (p *PatternProducer) dataYear(text string) int {
	for _, m := range yearRe.FindAllString(text, -1) {
		y, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if y >= earliestDataYear && y <= p.reportingYear {
			return y
		}
	}
	return 0
}

func indicatorWords(name string) []string {
	var words []string
	for _, w := range strings.Fields(resolve.Fold(name)) {
		if utf8.RuneCountInString(w) >= minWordLen {
			words = append(words, w)
		}
	}
	return words
}

// window returns text[start-radius:end+radius] clamped to the string and
// aligned to rune boundaries.
func window(text string, start, end, radius int) string {
	from := max(0, start-radius)
	to := min(len(text), end+radius)
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}
	return text[from:to]
}
