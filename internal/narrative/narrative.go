// Package narrative produces the analysis paragraph attached to each
// indicator result. A model-backed Service is tried first; any failure
// degrades to a deterministic template.
package narrative

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/indicator-cli/internal/model"
)

// InsufficientData replaces the narrative when any of baseline, current or
// target is missing.
const InsufficientData = "No se pudo realizar el análisis debido a falta de datos. Se requiere información actualizada del indicador."

// MaxContextChars bounds the source context forwarded to the service.
const MaxContextChars = 3000

// Fallback reasons.
const (
	ReasonNotConfigured = "not configured"
	ReasonEmpty         = "empty response"
	ReasonPanic         = "panic"
)

// Request is the structured input for one narrative.
type Request struct {
	Indicator string
	Direction model.Direction
	Baseline  float64
	Target    float64
	Current   float64
	Unit      string
	Progress  float64
	// Context is source text the values were found in.
	Context string
}

// Service generates narrative text.
type Service interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Outcome is either service text or a template fallback with the reason.
type Outcome struct {
	Text     string
	Fallback bool
	Reason   string
}

// Narrate calls svc and falls back to Template when svc is nil, errors,
// panics or returns nothing. It always returns usable text.
func Narrate(ctx context.Context, svc Service, req Request, log *zap.Logger) (out Outcome) {
	if log == nil {
		log = zap.NewNop()
	}
	req.Context = Truncate(req.Context, MaxContextChars)

	fallback := func(reason string) Outcome {
		log.Warn("narrative: using template",
			zap.String("indicator", req.Indicator),
			zap.String("reason", reason),
		)
		return Outcome{Text: Template(req), Fallback: true, Reason: reason}
	}

	if svc == nil {
		return Outcome{Text: Template(req), Fallback: true, Reason: ReasonNotConfigured}
	}

	defer func() {
		if r := recover(); r != nil {
			out = fallback(fmt.Sprintf("%s: %v", ReasonPanic, r))
		}
	}()

	text, err := svc.Generate(ctx, req)
	if err != nil {
		return fallback(err.Error())
	}
	if text == "" {
		return fallback(ReasonEmpty)
	}
	return Outcome{Text: text}
}

// Template renders the deterministic four-sentence analysis.
func Template(req Request) string {
	b, c, u := num(req.Baseline), num(req.Current), unitSuffix(req.Unit)
	p := num(req.Progress)

	if req.Direction == model.DirectionDecrease {
		if req.Current < req.Baseline {
			return fmt.Sprintf("El indicador muestra una reducción de %s a %s%s, avanzando hacia la meta. "+
				"Con un progreso del %s%%, se requiere mantener políticas activas. "+
				"El riesgo es perder momentum. Se recomienda monitoreo trimestral y ajustes según necesidad.", b, c, u, p)
		}
		return fmt.Sprintf("El indicador aumentó de %s a %s%s, contradiciendo el objetivo de reducción. "+
			"El progreso del %s%% refleja retroceso. Riesgo crítico de no alcanzar meta. "+
			"Se requiere revisión urgente de estrategias.", b, c, u, p)
	}
	if req.Current > req.Baseline {
		return fmt.Sprintf("El indicador creció de %s a %s%s, mostrando avance positivo. "+
			"El progreso del %s%% indica necesidad de acelerar. Riesgo de no sostener crecimiento. "+
			"Se recomienda continuar políticas actuales con optimizaciones.", b, c, u, p)
	}
	return fmt.Sprintf("El indicador disminuyó de %s a %s%s, contradiciendo el objetivo de incremento. "+
		"Progreso del %s%% indica retroceso. Riesgo grave de alejarse de meta. "+
		"Requiere redefinición inmediata de estrategias.", b, c, u, p)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// unitSuffix attaches "%" directly and spaces out word units.
func unitSuffix(unit string) string {
	if unit == "" || unit == "%" {
		return unit
	}
	return " " + unit
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
