package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/indicator-cli/internal/model"
	"github.com/sells-group/indicator-cli/internal/resilience"
	"github.com/sells-group/indicator-cli/internal/resolve"
	"github.com/sells-group/indicator-cli/pkg/anthropic"
)

// Model extraction limits.
const (
	MinTextChars      = 100
	MaxPromptDocChars = 15000
	DefaultConfidence = 5
)

const extractSystemPrompt = "Eres un analista experto. Respondes SOLO en JSON válido. NO confundes unidades con datos."

// extraction is the JSON object the model is asked to return.
type extraction struct {
	Value      any    `json:"valor_encontrado"`
	Year       any    `json:"año"`
	Month      any    `json:"mes"`
	Context    string `json:"contexto"`
	Confidence any    `json:"confianza"`
	DataType   string `json:"tipo_dato"`
	Unit       string `json:"unidad"`
	Reason     string `json:"razon"`
}

// ModelProducer asks a language model for the latest value of an indicator
// in a document. It yields at most one candidate per document.
type ModelProducer struct {
	client        anthropic.Client
	model         string
	maxTokens     int64
	reportingYear int
	retry         resilience.RetryConfig
	log           *zap.Logger
}

// NewModelProducer creates a ModelProducer.
func NewModelProducer(client anthropic.Client, modelID string, maxTokens int64, reportingYear int, retry resilience.RetryConfig, log *zap.Logger) *ModelProducer {
	if log == nil {
		log = zap.NewNop()
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	if reportingYear <= 0 {
		reportingYear = resolve.DefaultReportingYear
	}
	retry.OnRetry = resilience.RetryLogger(log, "extract")
	return &ModelProducer{
		client:        client,
		model:         modelID,
		maxTokens:     maxTokens,
		reportingYear: reportingYear,
		retry:         retry,
		log:           log,
	}
}

// Extract returns the model candidate found in text, or nil when the text is
// too short, the model found nothing, or the value failed the range check.
// An error is returned only when the API call itself failed.
func (p *ModelProducer) Extract(ctx context.Context, name string, target any, text string) ([]model.Candidate, error) {
	if utf8.RuneCountInString(text) < MinTextChars {
		p.log.Debug("extract: text too short for model", zap.String("indicator", name))
		return nil, nil
	}

	profile := resolve.RangeFor(name, target)
	req := anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System:    []anthropic.SystemBlock{{Text: extractSystemPrompt}},
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: BuildExtractionPrompt(name, target, profile, HeadTail(text, MaxPromptDocChars)),
		}},
	}

	resp, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return p.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: model call")
	}
	resp.Usage.LogCost(p.log, p.model, "extract")

	c, ok := p.parse(resp.Text(), name, profile)
	if !ok {
		return nil, nil
	}
	return []model.Candidate{c}, nil
}

func (p *ModelProducer) parse(text, name string, profile model.RangeProfile) (model.Candidate, bool) {
	var ex extraction
	if err := json.Unmarshal([]byte(cleanJSON(text)), &ex); err != nil {
		p.log.Warn("extract: failed to parse model JSON",
			zap.String("indicator", name),
			zap.String("response", truncate(text, 300)),
			zap.Error(err),
		)
		return model.Candidate{}, false
	}

	if ex.Value == nil {
		p.log.Info("extract: model found no value",
			zap.String("indicator", name),
			zap.String("reason", ex.Reason),
		)
		return model.Candidate{}, false
	}
	value, ok := resolve.ParseNumber(ex.Value)
	if !ok {
		p.log.Warn("extract: model value is not numeric", zap.String("indicator", name))
		return model.Candidate{}, false
	}
	if !resolve.Accepts(profile, value) {
		p.log.Info("extract: model value rejected by range",
			zap.String("indicator", name),
			zap.Float64("value", value),
			zap.String("kind", profile.Kind),
		)
		return model.Candidate{}, false
	}

	confidence := DefaultConfidence
	if v, ok := resolve.ParseNumber(ex.Confidence); ok {
		confidence = int(v)
	}
	c := model.NewModelCandidate(value, confidence, 0)

	var year int
	if v, ok := resolve.ParseNumber(ex.Year); ok {
		year = int(v)
		c = c.WithYear(year)
	}
	c.Relevance = float64(c.ConfidenceOrZero()*10) + yearBonus(year, p.reportingYear, 30, 15)
	c.Month = scalarText(ex.Month)
	c.Context = ex.Context
	c.Unit = ex.Unit
	if c.Unit == "" {
		c.Unit = profile.Unit
	}

	p.log.Debug("extract: model candidate",
		zap.String("indicator", name),
		zap.Float64("value", value),
		zap.Int("confidence", c.ConfidenceOrZero()),
		zap.Int("year", year),
	)
	return c, true
}

// BuildExtractionPrompt renders the extraction prompt for one document.
func BuildExtractionPrompt(name string, target any, profile model.RangeProfile, doc string) string {
	minV, maxV := formatNum(profile.Min), formatNum(profile.Max)

	var sb strings.Builder
	sb.WriteString("Eres un experto analista de datos estadísticos oficiales de Ecuador.\n\n")
	sb.WriteString("TAREA: Extraer el valor MÁS RECIENTE del siguiente indicador.\n\n")
	fmt.Fprintf(&sb, "INDICADOR BUSCADO: %s\n", name)
	fmt.Fprintf(&sb, "META DEL GOBIERNO: %v\n", target)
	fmt.Fprintf(&sb, "TIPO DE DATO: %s\n", profile.Kind)
	fmt.Fprintf(&sb, "UNIDAD: %s\n", profile.Unit)
	fmt.Fprintf(&sb, "RANGO VÁLIDO: %s - %s\n\n", minV, maxV)
	sb.WriteString("VALORES QUE DEBES IGNORAR (son parte de las UNIDADES, NO son datos):\n")
	sb.WriteString(formatList(profile.Excluded))
	sb.WriteString("\n\nEjemplo: Si el texto dice \"12.81 por cada 100,000 habitantes\", el dato es 12.81, NO 100 ni 100000.\n\n")
	sb.WriteString("DOCUMENTO:\n")
	sb.WriteString(doc)
	sb.WriteString("\n\nINSTRUCCIONES CRÍTICAS:\n")
	fmt.Fprintf(&sb, "1. Lee TODO el documento buscando el indicador específico: %q\n", name)
	sb.WriteString("2. IGNORA números que sean parte de unidades (como 100, 1000, 100000)\n")
	fmt.Fprintf(&sb, "3. El valor debe estar entre %s y %s\n", minV, maxV)
	sb.WriteString("4. Prioriza datos del año más reciente\n")
	sb.WriteString("5. VERIFICA que el número sea del indicador correcto\n\n")
	sb.WriteString("RESPONDE EN JSON:\n")
	sb.WriteString("{\n")
	sb.WriteString("    \"valor_encontrado\": <número sin símbolos, solo el DATO real>,\n")
	sb.WriteString("    \"año\": <año del dato>,\n")
	sb.WriteString("    \"mes\": \"<mes si está disponible>\",\n")
	sb.WriteString("    \"contexto\": \"<frase del documento (máximo 200 caracteres)>\",\n")
	sb.WriteString("    \"confianza\": <1-10>,\n")
	fmt.Fprintf(&sb, "    \"tipo_dato\": %q,\n", profile.Kind)
	fmt.Fprintf(&sb, "    \"unidad\": %q\n", profile.Unit)
	sb.WriteString("}\n\n")
	sb.WriteString("Si NO encuentras un valor válido:\n")
	sb.WriteString("{\"valor_encontrado\": null, \"razon\": \"explicación\"}")
	return sb.String()
}

// HeadTail keeps the first and last limit/2 runes of s joined by an ellipsis
// line when s is longer than limit.
func HeadTail(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	half := limit / 2
	return string(r[:half]) + "\n...\n" + string(r[len(r)-half:])
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// cleanJSON extracts a JSON object from text that may carry markdown code
// fences or surrounding prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// yearBonus returns current when year is the reporting year and previous
// when it is the year before.
func yearBonus(year, reportingYear int, current, previous float64) float64 {
	switch year {
	case reportingYear:
		return current
	case reportingYear - 1:
		return previous
	default:
		return 0
	}
}

func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return formatNum(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatList(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatNum(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
