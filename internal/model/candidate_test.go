package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelCandidate_ClampsConfidence(t *testing.T) {
	assert.Equal(t, MaxConfidence, NewModelCandidate(1, 99, 0).ConfidenceOrZero())
	assert.Equal(t, MinConfidence, NewModelCandidate(1, -3, 0).ConfidenceOrZero())
	assert.Equal(t, 7, NewModelCandidate(1, 7, 0).ConfidenceOrZero())
}

func TestCandidate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantConf *int
		wantErr  bool
	}{
		{name: "model confidence above range", in: `{"value": 15, "confidence": 99, "provenance": "model"}`, wantConf: intPtr(10)},
		{name: "model confidence below range", in: `{"value": 15, "confidence": 0, "provenance": "model"}`, wantConf: intPtr(1)},
		{name: "model without confidence", in: `{"value": 15, "provenance": "model"}`, wantConf: intPtr(1)},
		{name: "model in range", in: `{"value": 15, "confidence": 8, "provenance": "model"}`, wantConf: intPtr(8)},
		{name: "pattern drops confidence", in: `{"value": 15, "confidence": 9, "provenance": "pattern"}`},
		{name: "unknown provenance", in: `{"value": 55, "provenance": "ollama_inteligente"}`, wantErr: true},
		{name: "missing provenance", in: `{"value": 55}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Candidate
			err := json.Unmarshal([]byte(tt.in), &c)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownProvenance)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, 15.0, c.Value, 1e-9)
			assert.Equal(t, tt.wantConf, c.Confidence)
		})
	}
}

func TestCandidate_UnmarshalJSONInReport(t *testing.T) {
	var rep SourceReport
	err := json.Unmarshal([]byte(`{"source": "s1", "method": "model", "candidates": [
		{"value": 15, "year": 2025, "confidence": 99, "provenance": "model"}
	]}`), &rep)
	require.NoError(t, err)
	require.Len(t, rep.Candidates, 1)
	assert.Equal(t, MaxConfidence, rep.Candidates[0].ConfidenceOrZero())
	assert.True(t, rep.Candidates[0].YearIs(2025))
}

func intPtr(v int) *int { return &v }
