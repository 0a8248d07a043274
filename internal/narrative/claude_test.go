package narrative

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/indicator-cli/internal/resilience"
	"github.com/sells-group/indicator-cli/pkg/anthropic"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func quickRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond}
}

func TestClaudeService_Generate(t *testing.T) {
	mc := new(mockClient)
	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" &&
			len(req.System) == 1 && req.System[0].Text == systemPrompt &&
			len(req.Messages) == 1 && req.Messages[0].Role == "user"
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: " Cuatro oraciones. "}},
	}, nil)

	svc := NewClaudeService(mc, "claude-haiku-4-5-20251001", 0, quickRetry(), nil)
	text, err := svc.Generate(context.Background(), povertyRequest())
	require.NoError(t, err)
	assert.Equal(t, "Cuatro oraciones.", text)
	mc.AssertExpectations(t)
}

func TestClaudeService_RetriesTransient(t *testing.T) {
	mc := new(mockClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, resilience.NewTransientError(errors.New("overloaded"), 529)).Once()
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(&anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: "ok"}}}, nil).Once()

	svc := NewClaudeService(mc, "m", 100, quickRetry(), nil)
	text, err := svc.Generate(context.Background(), povertyRequest())
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	mc.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestClaudeService_ErrorFallsBackThroughNarrate(t *testing.T) {
	mc := new(mockClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("invalid api key"))

	svc := NewClaudeService(mc, "m", 100, quickRetry(), nil)
	out := Narrate(context.Background(), svc, povertyRequest(), nil)
	assert.True(t, out.Fallback)
	assert.Contains(t, out.Reason, "invalid api key")
	mc.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestBuildPrompt(t *testing.T) {
	req := povertyRequest()
	req.Context = "La pobreza se ubicó en 25,5% en junio 2025."
	p := BuildPrompt(req)

	assert.Contains(t, p, "- Indicador: Tasa de pobreza")
	assert.Contains(t, p, "- Objetivo: REDUCIR de 27 a 22 %")
	assert.Contains(t, p, "- Valor actual: 25.5 %")
	assert.Contains(t, p, "- Progreso: 30%")
	assert.Contains(t, p, "junio 2025")
	assert.Contains(t, p, "EXACTAMENTE 4 oraciones")
}
