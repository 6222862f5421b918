package stubs

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajchodisetti/pm-router/internal/reasoning"
)

func TestStubServesBothResponseShapes(t *testing.T) {
	stub := NewReasoningServer()
	srv := httptest.NewServer(stub.Handler())
	defer srv.Close()

	client, err := reasoning.NewClient(reasoning.Config{
		BaseURL:            srv.URL,
		Model:              "stub-model",
		APIKey:             "stub-key",
		RateLimitPerMinute: 6000,
	})
	require.NoError(t, err)

	prompt := `Rule-based decision: strategy=sniper risk=aggressive confidence=0.80
Respond with strict JSON only: {"chosen_strategy": ...}`

	// first call returns the candidates shape, second the flat shape
	for i := 0; i < 2; i++ {
		text, err := client.Generate(context.Background(), prompt)
		require.NoError(t, err)

		var got struct {
			ChosenStrategy string  `json:"chosen_strategy"`
			RiskMode       string  `json:"risk_mode"`
			Confidence     float64 `json:"confidence"`
		}
		require.NoError(t, reasoning.DecodeJSON(text, &got))
		assert.Equal(t, "sniper", got.ChosenStrategy)
		assert.Equal(t, "aggressive", got.RiskMode)
		assert.InDelta(t, 0.7, got.Confidence, 1e-9)
	}
	assert.Equal(t, 2, stub.Requests())
}

func TestStubAnswersPatternPrompts(t *testing.T) {
	stub := NewReasoningServer()
	srv := httptest.NewServer(stub.Handler())
	defer srv.Close()

	client, err := reasoning.NewClient(reasoning.Config{
		BaseURL:            srv.URL,
		Model:              "stub-model",
		APIKey:             "stub-key",
		RateLimitPerMinute: 6000,
	})
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), `Respond with strict JSON only, no prose: {"pattern_name": string}`)
	require.NoError(t, err)

	var got struct {
		PatternName    string  `json:"pattern_name"`
		Confidence     float64 `json:"confidence"`
		TypicalHorizon string  `json:"typical_horizon"`
	}
	require.NoError(t, reasoning.DecodeJSON(text, &got))
	assert.Equal(t, "stub_continuation", got.PatternName)
	assert.Equal(t, "3d", got.TypicalHorizon)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
}
