package factory

import (
	"context"
	"testing"

	"docuchat-be/internal/config"
	"docuchat-be/pkg/llm"
	"docuchat-be/pkg/llm/groq"
	"docuchat-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LLMConfig
		want    interface{}
		wantErr bool
	}{
		{"groq with key", config.LLMConfig{Provider: "groq", GroqAPIKey: "k", Model: "m"}, &groq.GroqProvider{}, false},
		{"groq without key", config.LLMConfig{Provider: "groq"}, llm.Unconfigured{}, false},
		{"ollama", config.LLMConfig{Provider: "ollama", Model: "llama3"}, &ollama.OllamaProvider{}, false},
		{"empty", config.LLMConfig{}, llm.Unconfigured{}, false},
		{"unknown", config.LLMConfig{Provider: "gpt"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewLLMProvider(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}
}

func TestUnconfiguredAnswers(t *testing.T) {
	p, err := NewLLMProvider(config.LLMConfig{Provider: "groq"})
	require.NoError(t, err)

	answer, err := p.Chat(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, llm.NotConfiguredAnswer, answer)

	var streamed []string
	require.NoError(t, p.ChatStream(context.Background(), nil, func(s string) error {
		streamed = append(streamed, s)
		return nil
	}))
	assert.Equal(t, []string{"LLM API Key not configured."}, streamed)
}
