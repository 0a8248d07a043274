package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/indicator-cli/internal/resilience"
	"github.com/sells-group/indicator-cli/pkg/anthropic"
)

const systemPrompt = "Analista técnico de políticas públicas. Conciso y objetivo."

// ClaudeService generates narratives with the Anthropic Messages API.
type ClaudeService struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	retry     resilience.RetryConfig
	log       *zap.Logger
}

// NewClaudeService creates a ClaudeService.
func NewClaudeService(client anthropic.Client, model string, maxTokens int64, retry resilience.RetryConfig, log *zap.Logger) *ClaudeService {
	if log == nil {
		log = zap.NewNop()
	}
	if maxTokens <= 0 {
		maxTokens = 600
	}
	retry.OnRetry = resilience.RetryLogger(log, "narrative")
	return &ClaudeService{client: client, model: model, maxTokens: maxTokens, retry: retry, log: log}
}

// Generate implements Service.
func (s *ClaudeService) Generate(ctx context.Context, req Request) (string, error) {
	mreq := anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    []anthropic.SystemBlock{{Text: systemPrompt}},
		Messages:  []anthropic.Message{{Role: "user", Content: BuildPrompt(req)}},
	}

	resp, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return s.client.CreateMessage(ctx, mreq)
	})
	if err != nil {
		return "", eris.Wrap(err, "narrative: generate")
	}
	resp.Usage.LogCost(s.log, s.model, "narrative")
	return resp.Text(), nil
}

// BuildPrompt renders the analysis prompt for req.
func BuildPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("Analiza este indicador de política pública ecuatoriana:\n\n")
	sb.WriteString("DATOS:\n")
	fmt.Fprintf(&sb, "- Indicador: %s\n", req.Indicator)
	fmt.Fprintf(&sb, "- Objetivo: %s de %s a %s %s\n",
		strings.ToUpper(req.Direction.Verb()), num(req.Baseline), num(req.Target), req.Unit)
	fmt.Fprintf(&sb, "- Valor actual: %s %s\n", num(req.Current), req.Unit)
	fmt.Fprintf(&sb, "- Progreso: %s%%\n\n", num(req.Progress))
	sb.WriteString("CONTEXTO DE FUENTES:\n")
	sb.WriteString(Truncate(req.Context, MaxContextChars))
	sb.WriteString("\n\nGenera un análisis en EXACTAMENTE 4 oraciones:\n")
	sb.WriteString("1. Compara valor actual vs inicial\n")
	sb.WriteString("2. Evalúa si el progreso es suficiente\n")
	sb.WriteString("3. Identifica el principal riesgo\n")
	sb.WriteString("4. Da una recomendación específica\n\n")
	sb.WriteString("Sin viñetas, solo texto corrido.")
	return sb.String()
}
