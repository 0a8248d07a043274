package anthropic

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func TestCreateMessage_MockClient(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	req := MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 512,
		System:    []SystemBlock{{Text: "Extrae valores."}},
		Messages:  []Message{{Role: "user", Content: "Tasa de pobreza 2025"}},
	}
	mc.On("CreateMessage", ctx, req).Return(&MessageResponse{
		ID:      "msg_1",
		Content: []ContentBlock{{Type: "text", Text: `{"valor_encontrado": 31.4}`}},
		Usage:   TokenUsage{InputTokens: 40, OutputTokens: 12},
	}, nil)

	resp, err := mc.CreateMessage(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, `{"valor_encontrado": 31.4}`, resp.Text())
	assert.Equal(t, int64(40), resp.Usage.InputTokens)
	mc.AssertExpectations(t)
}

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "  primera "},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "segunda  "},
	}}
	assert.Equal(t, "primera segunda", resp.Text())

	var nilResp *MessageResponse
	assert.Empty(t, nilResp.Text())
}

func TestToSDKMessages_Roles(t *testing.T) {
	out := toSDKMessages([]Message{
		{Role: "user", Content: "hola"},
		{Role: "assistant", Content: "{"},
		{Role: "system", Content: "falls back to user"},
	})
	require.Len(t, out, 3)
	assert.Equal(t, sdk.MessageParamRoleUser, out[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, out[1].Role)
	assert.Equal(t, sdk.MessageParamRoleUser, out[2].Role)
}

func TestToSDKSystemBlocks(t *testing.T) {
	out := toSDKSystemBlocks([]SystemBlock{{Text: "a"}, {Text: "b"}})
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Text)
	assert.Equal(t, "b", out[1].Text)
}

func TestEstimateCost(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}

	tests := []struct {
		model string
		want  float64
	}{
		{"claude-haiku-4-5-20251001", 4.80},
		{"claude-sonnet-4-5-20250929", 18.00},
		{"claude-opus-4-6", 90.00},
		{"unknown-model", 0},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.InDelta(t, tt.want, usage.EstimateCost(tt.model), 0.001)
		})
	}

	assert.Equal(t, 0.0, TokenUsage{}.EstimateCost("claude-haiku-4-5-20251001"))
}

func TestLogCost(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	usage := TokenUsage{InputTokens: 100, OutputTokens: 50}
	usage.LogCost(zap.New(core), "claude-haiku-4-5-20251001", "extract")

	entries := logs.FilterMessage("cost attribution").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "extract", fields["phase"])
	assert.Equal(t, int64(100), fields["input_tokens"])

	assert.NotPanics(t, func() { usage.LogCost(nil, "x", "y") })
}
